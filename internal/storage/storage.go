// Package storage keeps uploaded radiographs on disk.
//
// An upload is first written to a transient directory. When the analysis
// succeeds it is promoted to the permanent directory with Persist; when it
// fails it is removed with Discard. Nothing is left behind in the transient
// directory either way.
package storage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ironsheep/dentalscan/internal/imaging"
	"github.com/pkg/errors"
)

// Storage is the file lifecycle the pipeline needs.
type Storage interface {
	SaveTransient(name string, data []byte) (string, error)
	Persist(tempPath string) (string, error)
	Discard(tempPath string) error
}

// FS stores files in two local directories.
type FS struct {
	transientDir string
	permanentDir string
	now          func() time.Time
}

// NewFS creates both directories if needed.
func NewFS(transientDir, permanentDir string) (*FS, error) {
	for _, dir := range []string{transientDir, permanentDir} {
		if dir == "" {
			return nil, errors.New("storage directory must not be empty")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}
	return &FS{transientDir: transientDir, permanentDir: permanentDir, now: time.Now}, nil
}

// SaveTransient writes data under a unique name in the transient directory
// and returns its path. Only the extension of name is kept.
func (s *FS) SaveTransient(name string, data []byte) (string, error) {
	path := filepath.Join(s.transientDir, s.uniqueName(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "save upload")
	}
	return path, nil
}

// Persist moves a transient file into the permanent directory and returns
// the new path.
func (s *FS) Persist(tempPath string) (string, error) {
	if err := s.checkTransient(tempPath); err != nil {
		return "", err
	}

	dst := filepath.Join(s.permanentDir, filepath.Base(tempPath))
	if err := os.Rename(tempPath, dst); err == nil {
		return dst, nil
	}

	// Rename fails across filesystems; fall back to copy and remove.
	data, err := os.ReadFile(tempPath)
	if err != nil {
		return "", errors.Wrap(err, "persist upload")
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", errors.Wrap(err, "persist upload")
	}
	if err := os.Remove(tempPath); err != nil {
		return "", errors.Wrap(err, "remove transient upload")
	}
	return dst, nil
}

// Discard removes a transient file. Removing a file that is already gone is
// not an error.
func (s *FS) Discard(tempPath string) error {
	if err := s.checkTransient(tempPath); err != nil {
		return err
	}
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "discard upload")
	}
	return nil
}

// SaveCrops writes each crop as JPEG next to a persisted upload, named
// "<upload>_tooth_<i>.jpg", and returns the paths in order.
func (s *FS) SaveCrops(persisted string, crops []image.Image) ([]string, error) {
	base := strings.TrimSuffix(persisted, filepath.Ext(persisted))

	paths := make([]string, 0, len(crops))
	for i, crop := range crops {
		data, err := imaging.EncodeJPEG(crop)
		if err != nil {
			return paths, errors.Wrapf(err, "encode crop %d", i)
		}
		path := fmt.Sprintf("%s_tooth_%d.jpg", base, i)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, errors.Wrapf(err, "save crop %d", i)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *FS) uniqueName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 5 {
		ext = ".img"
	}
	return s.now().UTC().Format("20060102T150405") + "_" + uuid.NewString() + ext
}

func (s *FS) checkTransient(path string) error {
	rel, err := filepath.Rel(s.transientDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return errors.Errorf("%s is not a transient upload", path)
	}
	return nil
}

package storage

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestFS(t *testing.T) (*FS, string, string) {
	t.Helper()
	root := t.TempDir()
	tmp := filepath.Join(root, "uploads")
	perm := filepath.Join(root, "kept")
	fs, err := NewFS(tmp, perm)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	return fs, tmp, perm
}

func TestNewFS_EmptyDir(t *testing.T) {
	if _, err := NewFS("", t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestSaveTransient(t *testing.T) {
	fs, tmp, _ := newTestFS(t)

	path, err := fs.SaveTransient("../../etc/Scan.PNG", []byte("data"))
	if err != nil {
		t.Fatalf("SaveTransient failed: %v", err)
	}
	if filepath.Dir(path) != tmp {
		t.Errorf("saved outside transient dir: %s", path)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("extension not kept: %s", path)
	}

	got, err := os.ReadFile(path)
	if err != nil || string(got) != "data" {
		t.Errorf("content: got %q, %v", got, err)
	}
}

func TestSaveTransient_UniqueNames(t *testing.T) {
	fs, _, _ := newTestFS(t)

	a, _ := fs.SaveTransient("x.jpg", []byte("a"))
	b, _ := fs.SaveTransient("x.jpg", []byte("b"))
	if a == b {
		t.Errorf("names collide: %s", a)
	}
}

func TestPersist(t *testing.T) {
	fs, _, perm := newTestFS(t)

	tmpPath, _ := fs.SaveTransient("scan.jpg", []byte("xray"))
	kept, err := fs.Persist(tmpPath)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if filepath.Dir(kept) != perm {
		t.Errorf("persisted outside permanent dir: %s", kept)
	}
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Error("transient file still present")
	}
	if got, _ := os.ReadFile(kept); string(got) != "xray" {
		t.Errorf("content: got %q", got)
	}
}

func TestDiscard(t *testing.T) {
	fs, _, _ := newTestFS(t)

	tmpPath, _ := fs.SaveTransient("scan.jpg", []byte("xray"))
	if err := fs.Discard(tmpPath); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Error("transient file still present")
	}
	if err := fs.Discard(tmpPath); err != nil {
		t.Errorf("second Discard: %v", err)
	}
}

func TestRejectsForeignPaths(t *testing.T) {
	fs, _, perm := newTestFS(t)

	outside := filepath.Join(perm, "other.jpg")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := fs.Discard(outside); err == nil {
		t.Error("Discard accepted a path outside the transient dir")
	}
	if _, err := fs.Persist(outside); err == nil {
		t.Error("Persist accepted a path outside the transient dir")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("foreign file was touched")
	}
}

func TestSaveCrops(t *testing.T) {
	fs, _, _ := newTestFS(t)

	tmpPath, _ := fs.SaveTransient("scan.jpg", []byte("xray"))
	kept, _ := fs.Persist(tmpPath)

	crops := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 8, 8)),
		image.NewRGBA(image.Rect(0, 0, 4, 6)),
	}
	paths, err := fs.SaveCrops(kept, crops)
	if err != nil {
		t.Fatalf("SaveCrops failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths: got %d, want 2", len(paths))
	}
	base := strings.TrimSuffix(kept, ".jpg")
	if paths[1] != base+"_tooth_1.jpg" {
		t.Errorf("name: got %s", paths[1])
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("crop %s missing or empty", p)
		}
	}
}

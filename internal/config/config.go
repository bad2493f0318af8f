// Package config loads dentalscan settings.
//
// Settings start from DefaultConfig, are overlaid by an optional TOML file,
// then by DENTALSCAN_* environment variables, and are finally validated.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/pkg/errors"
)

// Backend names accepted in models.backend.
const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

// Server modes accepted in server.mode.
const (
	ModeMCP  = "mcp"
	ModeHTTP = "http"
)

// Duration is a time.Duration that reads from TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Models   ModelsConfig   `toml:"models"`
	Storage  StorageConfig  `toml:"storage"`
	OCR      OCRConfig      `toml:"ocr"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig selects the transport.
type ServerConfig struct {
	Mode     string `toml:"mode"`
	HTTPAddr string `toml:"http_addr"`

	// MaxUploadBytes bounds a multipart upload.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// PipelineConfig tunes the analysis stages.
type PipelineConfig struct {
	MaxCandidates         int      `toml:"max_candidates"`
	ExpansionRatio        float64  `toml:"expansion_ratio"`
	MinDetectorConfidence float64  `toml:"min_detector_confidence"`
	ToothThreshold        float64  `toml:"tooth_threshold"`
	DedupMethod           string   `toml:"dedup_method"`
	// IOUThreshold of 0 selects the dedup method's own default.
	IOUThreshold          float64  `toml:"iou_threshold"`
	MinCenterDistance     float64  `toml:"min_center_distance"`
	StageTimeout          Duration `toml:"stage_timeout"`
	Contrast              float64  `toml:"contrast"`
	SaveCrops             bool     `toml:"save_crops"`
}

// ModelsConfig selects and locates the inference backend.
type ModelsConfig struct {
	Backend string `toml:"backend"`

	// ONNX backend
	LibraryPath  string `toml:"library_path"`
	DetectorPath string `toml:"detector_path"`
	ToothPath    string `toml:"tooth_path"`
	DiseasePath  string `toml:"disease_path"`
	DetectorSize int    `toml:"detector_size"`
	ClassifySize int    `toml:"classify_size"`
	Anchors      int    `toml:"anchors"`
	Slots        int    `toml:"slots"`
	Threads      int    `toml:"threads"`

	// Remote backend
	InferenceURL string   `toml:"inference_url"`
	Timeout      Duration `toml:"timeout"`
}

// StorageConfig locates uploads.
type StorageConfig struct {
	UploadDir    string `toml:"upload_dir"`
	PermanentDir string `toml:"permanent_dir"`
}

// OCRConfig controls label OCR.
type OCRConfig struct {
	Enabled        bool    `toml:"enabled"`
	Language       string  `toml:"language"`
	TessdataPrefix string  `toml:"tessdata_prefix"`
	MinConfidence  float64 `toml:"min_confidence"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Mode:           ModeMCP,
			HTTPAddr:       ":8080",
			MaxUploadBytes: 32 << 20,
		},
		Pipeline: PipelineConfig{
			MaxCandidates:         model.DefaultMaxCandidates,
			ExpansionRatio:        model.DefaultExpansionRatio,
			MinDetectorConfidence: model.DefaultMinDetectorConfidence,
			ToothThreshold:        model.DefaultToothThreshold,
			DedupMethod:           string(detection.MethodIOU),
			MinCenterDistance:     detection.DefaultMinCenterDistance,
			StageTimeout:          Duration{2 * time.Minute},
		},
		Models: ModelsConfig{
			Backend:      BackendONNX,
			DetectorPath: "models/detector.onnx",
			ToothPath:    "models/tooth_binary.onnx",
			DiseasePath:  "models/disease.onnx",
			DetectorSize: 640,
			ClassifySize: 224,
			Anchors:      8400,
			Slots:        1,
			InferenceURL: "http://localhost:5000",
			Timeout:      Duration{60 * time.Second},
		},
		Storage: StorageConfig{
			UploadDir:    "uploads",
			PermanentDir: "static/uploads",
		},
		OCR: OCRConfig{
			Language:      "eng",
			MinConfidence: 0.5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty, in which case only the
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	switch c.Server.Mode {
	case ModeMCP, ModeHTTP:
	default:
		return errors.Errorf("server.mode must be %q or %q, got %q", ModeMCP, ModeHTTP, c.Server.Mode)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}

	p := c.Pipeline
	if p.MaxCandidates <= 0 {
		return errors.New("pipeline.max_candidates must be positive")
	}
	if p.ExpansionRatio < 0 {
		return errors.New("pipeline.expansion_ratio must not be negative")
	}
	if p.ToothThreshold < 0 || p.ToothThreshold > 1 {
		return errors.Errorf("pipeline.tooth_threshold must be in [0,1], got %v", p.ToothThreshold)
	}
	if p.IOUThreshold < 0 || p.IOUThreshold > 1 {
		return errors.Errorf("pipeline.iou_threshold must be in [0,1], got %v", p.IOUThreshold)
	}
	if p.MinCenterDistance <= 0 {
		return errors.New("pipeline.min_center_distance must be positive")
	}
	if _, err := detection.ParseMethod(p.DedupMethod); err != nil {
		return errors.Wrap(err, "pipeline.dedup_method")
	}
	if p.StageTimeout.Duration < 0 {
		return errors.New("pipeline.stage_timeout must not be negative")
	}
	if p.Contrast < -1 || p.Contrast > 1 {
		return errors.Errorf("pipeline.contrast must be in [-1,1], got %v", p.Contrast)
	}

	switch c.Models.Backend {
	case BackendONNX:
		if c.Models.DetectorPath == "" || c.Models.ToothPath == "" || c.Models.DiseasePath == "" {
			return errors.New("models: onnx backend needs detector_path, tooth_path and disease_path")
		}
	case BackendRemote:
		if c.Models.InferenceURL == "" {
			return errors.New("models: remote backend needs inference_url")
		}
	default:
		return errors.Errorf("models.backend must be %q or %q, got %q", BackendONNX, BackendRemote, c.Models.Backend)
	}

	if c.Storage.UploadDir == "" || c.Storage.PermanentDir == "" {
		return errors.New("storage: upload_dir and permanent_dir are required")
	}
	return nil
}

// DedupOptions returns the deduplication settings. An unset IOU threshold
// resolves to the method's default: 0.5 for hybrid, 0.1 otherwise.
func (p PipelineConfig) DedupOptions() detection.Options {
	method := detection.Method(p.DedupMethod)
	threshold := p.IOUThreshold
	if threshold == 0 {
		threshold = detection.DefaultIOUThreshold
		if method == detection.MethodHybrid {
			threshold = detection.DefaultHybridIOUThreshold
		}
	}
	return detection.Options{
		Method:       method,
		IOUThreshold: threshold,
		MinDistance:  p.MinCenterDistance,
	}
}

// CandidateOptions returns the candidate adapter settings.
func (p PipelineConfig) CandidateOptions() model.CandidateOptions {
	return model.CandidateOptions{
		MaxCandidates:  p.MaxCandidates,
		ExpansionRatio: p.ExpansionRatio,
		MinConfidence:  p.MinDetectorConfidence,
	}
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from DENTALSCAN_* variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.setString("DENTALSCAN_MODE", &c.Server.Mode)
	e.setString("DENTALSCAN_HTTP_ADDR", &c.Server.HTTPAddr)
	e.setInt64("DENTALSCAN_MAX_UPLOAD_BYTES", &c.Server.MaxUploadBytes)

	e.setInt("DENTALSCAN_MAX_CANDIDATES", &c.Pipeline.MaxCandidates)
	e.setFloat("DENTALSCAN_EXPANSION_RATIO", &c.Pipeline.ExpansionRatio)
	e.setFloat("DENTALSCAN_MIN_DETECTOR_CONFIDENCE", &c.Pipeline.MinDetectorConfidence)
	e.setFloat("DENTALSCAN_TOOTH_THRESHOLD", &c.Pipeline.ToothThreshold)
	e.setString("DENTALSCAN_DEDUP_METHOD", &c.Pipeline.DedupMethod)
	e.setFloat("DENTALSCAN_IOU_THRESHOLD", &c.Pipeline.IOUThreshold)
	e.setFloat("DENTALSCAN_MIN_CENTER_DISTANCE", &c.Pipeline.MinCenterDistance)
	e.setDuration("DENTALSCAN_STAGE_TIMEOUT", &c.Pipeline.StageTimeout)
	e.setFloat("DENTALSCAN_CONTRAST", &c.Pipeline.Contrast)
	e.setBool("DENTALSCAN_SAVE_CROPS", &c.Pipeline.SaveCrops)

	e.setString("DENTALSCAN_BACKEND", &c.Models.Backend)
	e.setString("DENTALSCAN_ORT_LIBRARY", &c.Models.LibraryPath)
	e.setString("DENTALSCAN_DETECTOR_MODEL", &c.Models.DetectorPath)
	e.setString("DENTALSCAN_TOOTH_MODEL", &c.Models.ToothPath)
	e.setString("DENTALSCAN_DISEASE_MODEL", &c.Models.DiseasePath)
	e.setInt("DENTALSCAN_SESSION_SLOTS", &c.Models.Slots)
	e.setString("DENTALSCAN_INFERENCE_URL", &c.Models.InferenceURL)

	e.setString("DENTALSCAN_UPLOAD_DIR", &c.Storage.UploadDir)
	e.setString("DENTALSCAN_PERMANENT_DIR", &c.Storage.PermanentDir)

	e.setBool("DENTALSCAN_OCR", &c.OCR.Enabled)
	e.setString("DENTALSCAN_OCR_LANGUAGE", &c.OCR.Language)

	e.setString("DENTALSCAN_LOG_LEVEL", &c.Log.Level)
	e.setString("DENTALSCAN_LOG_FORMAT", &c.Log.Format)

	return e.err
}

// envReader records the first parse error and ignores later variables.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(key string, err error) {
	e.err = errors.Wrapf(err, "environment variable %s", key)
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) setInt64(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) setFloat(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) setBool(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) setDuration(key string, dst *Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		dst.Duration = d
	}
}

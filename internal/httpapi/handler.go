package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/ironsheep/dentalscan/internal/pipeline"
	"github.com/ironsheep/dentalscan/internal/report"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMaxUploadBytes bounds request bodies when Options leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

const internalErrorMessage = "Analysis failed"

// Analyzer runs the radiograph pipeline. *pipeline.Pipeline implements it.
type Analyzer interface {
	RunRender(ctx context.Context, up pipeline.Upload, render pipeline.Render) (*report.Report, error)
	ClassifyCrop(ctx context.Context, data []byte) (model.Prediction, error)
}

// HealthChecker reports whether a dependency, such as a remote inference
// service, is reachable.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Options configure a Handler.
type Options struct {
	// Health is optional.
	Health HealthChecker

	Log            logrus.FieldLogger
	MaxUploadBytes int64
	Version        string
}

// Handler serves the HTTP API.
type Handler struct {
	analyzer  Analyzer
	health    HealthChecker
	log       logrus.FieldLogger
	maxUpload int64
	version   string

	now func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(analyzer Analyzer, opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		analyzer:  analyzer,
		health:    opts.Health,
		log:       opts.Log,
		maxUpload: opts.MaxUploadBytes,
		version:   opts.Version,
		now:       time.Now,
	}
}

// Routes returns the API mux wrapped in CORS and request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", h.AnalyzeHandler)
	mux.HandleFunc("/classify", h.ClassifyHandler)
	mux.HandleFunc("/report", h.ReportHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	return logMiddleware(h.log, corsMiddleware(mux))
}

// AnalyzeHandler handles POST /analyze.
func (h *Handler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	// The response is encoded before the upload is persisted, so an encoding
	// failure leaves nothing in permanent storage.
	var resp *analyzeResponse
	rep, err := h.analyzer.RunRender(r.Context(), pipeline.Upload{Name: name, Data: data},
		func(rep *report.Report) (err error) {
			resp, err = newAnalyzeResponse(rep)
			return err
		})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"request_id": rep.RequestID,
		"teeth":      len(rep.Teeth),
		"score":      rep.Score.Value,
	}).Info("analysis complete")
	respondJSON(w, resp, http.StatusOK)
}

// ClassifyHandler handles POST /classify.
func (h *Handler) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	p, err := h.analyzer.ClassifyCrop(r.Context(), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, classifyResponse{
		Disease:    p.Disease,
		Confidence: report.RoundConfidence(p.Confidence),
	}, http.StatusOK)
}

type reportRequest struct {
	TeethByDisease report.DiseaseCounts `json:"teethByDisease"`
}

// ReportHandler handles POST /report. It scores previously returned
// findings without rerunning the models.
func (h *Handler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reportRequest
	body := http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, "Invalid report request: "+err.Error(), http.StatusBadRequest)
		return
	}

	respondJSON(w, report.BuildSummary(req.TeethByDisease, h.now()), http.StatusOK)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthHandler handles GET /health.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.CheckHealth(r.Context()); err != nil {
			h.log.WithError(err).Warn("health check failed")
			respondJSON(w, healthResponse{Status: "degraded", Version: h.version, Error: err.Error()}, http.StatusServiceUnavailable)
			return
		}
	}
	respondJSON(w, healthResponse{Status: "ok", Version: h.version}, http.StatusOK)
}

// readUpload reads the multipart "image" field. On failure it writes the
// response and returns ok == false.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (name string, data []byte, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return "", nil, false
		}
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return "", nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, "No image uploaded", http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusBadRequest)
		return "", nil, false
	}
	return header.Filename, data, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if pipeline.IsInputError(err) {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.WithError(err).Error("request failed")
	respondError(w, internalErrorMessage, http.StatusInternalServerError)
}

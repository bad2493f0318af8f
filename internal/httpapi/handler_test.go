package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/ironsheep/dentalscan/internal/pipeline"
	"github.com/ironsheep/dentalscan/internal/report"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeAnalyzer struct {
	pred model.Prediction
	err  error

	// original replaces the default 60x40 radiograph.
	original image.Image

	uploads   []pipeline.Upload
	persisted int
}

// RunRender mirrors the pipeline's commit order: render, then persist.
func (f *fakeAnalyzer) RunRender(ctx context.Context, up pipeline.Upload, render pipeline.Render) (*report.Report, error) {
	f.uploads = append(f.uploads, up)
	if f.err != nil {
		return nil, f.err
	}

	var img image.Image = image.NewRGBA(image.Rect(0, 0, 60, 40))
	if f.original != nil {
		img = f.original
	}
	crop := image.NewRGBA(image.Rect(0, 0, 10, 10))
	teeth := []report.Tooth{
		report.NewTooth(
			detection.Candidate{Index: 2, Box: detection.Box{X1: 2, Y1: 2, X2: 12, Y2: 12}, Confidence: 0.6, Crop: crop},
			model.Prediction{Disease: model.Fractured, Confidence: 0.333333},
		),
	}
	rep := report.Build(img, teeth)
	rep.RequestID = "req-42"
	rep.ImageText = "PATIENT 7"
	if render != nil {
		if err := render(rep); err != nil {
			return nil, &pipeline.StageError{Stage: pipeline.Aggregate, Err: err}
		}
	}
	f.persisted++
	return rep, nil
}

func (f *fakeAnalyzer) ClassifyCrop(ctx context.Context, data []byte) (model.Prediction, error) {
	if f.err != nil {
		return model.Prediction{}, f.err
	}
	return f.pred, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) CheckHealth(ctx context.Context) error { return f.err }

func newTestHandler(a Analyzer, opts Options) (*Handler, *test.Hook) {
	log, hook := test.NewNullLogger()
	opts.Log = log
	return NewHandler(a, opts), hook
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST with data under the given form field.
func multipartRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "xray.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestAnalyze(t *testing.T) {
	fa := &fakeAnalyzer{}
	h, _ := newTestHandler(fa, Options{})

	rec := serve(h, multipartRequest(t, "/analyze", "image", pngBytes(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if len(fa.uploads) != 1 || fa.uploads[0].Name != "xray.png" {
		t.Fatalf("uploads: %+v", fa.uploads)
	}

	var got struct {
		RequestID      string `json:"requestId"`
		OriginalImage  string `json:"originalImage"`
		AnnotatedImage string `json:"annotatedImage"`
		DetectedTeeth  []struct {
			ID             int     `json:"id"`
			Image          string  `json:"image"`
			AnnotatedImage string  `json:"annotatedImage"`
			Disease        string  `json:"disease"`
			Confidence     float64 `json:"confidence"`
		} `json:"detectedTeeth"`
		TeethByDisease  map[string][]json.RawMessage `json:"teethByDisease"`
		Score           int                          `json:"score"`
		Rating          string                       `json:"rating"`
		Recommendations []string                     `json:"recommendations"`
		ImageText       string                       `json:"imageText"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(got.OriginalImage, prefix) || !strings.HasPrefix(got.AnnotatedImage, prefix) {
		t.Error("original and annotated images should be JPEG data URIs")
	}
	if len(got.DetectedTeeth) != 1 {
		t.Fatalf("detectedTeeth: got %d, want 1", len(got.DetectedTeeth))
	}
	tooth := got.DetectedTeeth[0]
	// ids are positions in the response, not candidate ranks
	if tooth.ID != 0 || tooth.Disease != string(model.Fractured) || tooth.Confidence != 0.3333 {
		t.Errorf("tooth: got %+v", tooth)
	}
	if !strings.HasPrefix(tooth.Image, prefix) || !strings.HasPrefix(tooth.AnnotatedImage, prefix) {
		t.Error("tooth images should be JPEG data URIs")
	}
	if len(got.TeethByDisease[string(model.Fractured)]) != 1 {
		t.Errorf("teethByDisease: got %v", got.TeethByDisease)
	}
	// One Fractured tooth: 100 - 3/4*100 = 25.
	if got.Score != 25 || got.Rating != string(report.Critical) {
		t.Errorf("score: got %d %s, want 25 Critical", got.Score, got.Rating)
	}
	if got.RequestID != "req-42" || got.ImageText != "PATIENT 7" {
		t.Errorf("requestId %q imageText %q", got.RequestID, got.ImageText)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantError  string
	}{
		{
			"wrong method",
			nil,
			func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/analyze", nil) },
			http.StatusMethodNotAllowed,
			"Method not allowed",
		},
		{
			"not multipart",
			nil,
			func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{}"))
			},
			http.StatusBadRequest,
			"Failed to parse form",
		},
		{
			"missing image field",
			nil,
			func(t *testing.T) *http.Request { return multipartRequest(t, "/analyze", "file", pngBytes(t)) },
			http.StatusBadRequest,
			"No image uploaded",
		},
		{
			"undecodable image",
			&pipeline.InputError{Err: errors.New("failed to decode image")},
			func(t *testing.T) *http.Request { return multipartRequest(t, "/analyze", "image", []byte("junk")) },
			http.StatusBadRequest,
			"invalid input: failed to decode image",
		},
		{
			"stage failure",
			&pipeline.StageError{Stage: pipeline.Classify, Err: errors.New("model crashed at /opt/models")},
			func(t *testing.T) *http.Request { return multipartRequest(t, "/analyze", "image", pngBytes(t)) },
			http.StatusInternalServerError,
			internalErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(&fakeAnalyzer{err: tt.err}, Options{})

			rec := serve(h, tt.req(t))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantError {
				t.Errorf("error: got %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}

func TestAnalyze_InternalErrorIsLogged(t *testing.T) {
	h, hook := newTestHandler(&fakeAnalyzer{err: errors.New("disk full")}, Options{})

	serve(h, multipartRequest(t, "/analyze", "image", pngBytes(t)))

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "request failed" {
			found = true
		}
	}
	if !found {
		t.Error("internal failure should be logged at error level")
	}
}

func TestAnalyze_EncodeFailureIsNotPersisted(t *testing.T) {
	// JPEG cannot encode an image 65536 pixels wide.
	fa := &fakeAnalyzer{original: image.NewGray(image.Rect(0, 0, 1<<16, 1))}
	h, _ := newTestHandler(fa, Options{})

	rec := serve(h, multipartRequest(t, "/analyze", "image", pngBytes(t)))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
	if fa.persisted != 0 {
		t.Error("upload persisted although the response could not be encoded")
	}
}

func TestAnalyze_UploadTooLarge(t *testing.T) {
	fa := &fakeAnalyzer{}
	h, _ := newTestHandler(fa, Options{MaxUploadBytes: 64})

	rec := serve(h, multipartRequest(t, "/analyze", "image", bytes.Repeat([]byte{1}, 1024)))

	if rec.Code < 400 || rec.Code >= 500 {
		t.Errorf("status: got %d, want a client error", rec.Code)
	}
	if len(fa.uploads) != 0 {
		t.Error("oversized upload reached the pipeline")
	}
}

func TestClassify(t *testing.T) {
	h, _ := newTestHandler(&fakeAnalyzer{pred: model.Prediction{Disease: model.Caries, Confidence: 0.87654}}, Options{})

	rec := serve(h, multipartRequest(t, "/classify", "image", pngBytes(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var got classifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Disease != model.Caries || got.Confidence != 0.8765 {
		t.Errorf("got %+v, want Caries 0.8765", got)
	}
}

func TestReport(t *testing.T) {
	h, _ := newTestHandler(&fakeAnalyzer{}, Options{})
	h.now = func() time.Time { return time.Date(2025, time.January, 9, 12, 0, 0, 0, time.UTC) }

	body := `{"teethByDisease":{"Caries":[{"id":0},{"id":1}],"Healthy":[{"id":2},{"id":3}]}}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var got report.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// 100 - (2*2)/(4*4)*100 = 75.
	if got.Score != 75 || got.Rating != report.Good {
		t.Errorf("score: got %d %s, want 75 Good", got.Score, got.Rating)
	}
	if got.Generated != "January 09, 2025" {
		t.Errorf("generated: got %q", got.Generated)
	}
	if len(got.Findings) != 2 || got.Findings[0].Condition != model.Caries || got.Findings[0].Severity != report.SeverityLevel(model.Caries) {
		t.Errorf("findings: got %+v", got.Findings)
	}
}

func TestReport_InvalidBody(t *testing.T) {
	h, _ := newTestHandler(&fakeAnalyzer{}, Options{})

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(`{"teethByDisease":[1,2]}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"no checker", nil, http.StatusOK, "ok"},
		{"healthy backend", fakeHealth{}, http.StatusOK, "ok"},
		{"unreachable backend", fakeHealth{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(&fakeAnalyzer{}, Options{Health: tt.health, Version: "v1"})

			rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			var got healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != tt.wantBody || got.Version != "v1" {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	h, _ := newTestHandler(&fakeAnalyzer{}, Options{})

	rec := serve(h, httptest.NewRequest(http.MethodOptions, "/analyze", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status: got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q", got)
	}
}

func TestRequestLogging(t *testing.T) {
	h, hook := newTestHandler(&fakeAnalyzer{}, Options{})

	serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "request" {
		t.Fatalf("expected a request log entry, got %+v", entry)
	}
	if entry.Data["path"] != "/health" || entry.Data["status"] != http.StatusOK {
		t.Errorf("fields: got %v", entry.Data)
	}
}

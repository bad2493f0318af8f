package remote

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ironsheep/dentalscan/internal/model"
)

// newTestServer serves canned answers and records how many files each
// request carried.
func newTestServer(t *testing.T, files *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	countFiles := func(r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		*files = len(r.MultipartForm.File["file"])
	}
	respond := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		countFiles(r)
		respond(w, map[string]interface{}{
			"detections": []map[string]float64{{"x1": 1, "y1": 2, "x2": 30, "y2": 40, "confidence": 0.9}},
		})
	})
	mux.HandleFunc("/tooth", func(w http.ResponseWriter, r *http.Request) {
		countFiles(r)
		respond(w, map[string]float64{"probability": 0.42})
	})
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		countFiles(r)
		preds := make([]model.Prediction, *files)
		for i := range preds {
			preds[i] = model.Prediction{Disease: model.Fractured, Confidence: 0.6}
		}
		respond(w, map[string]interface{}{"predictions": preds})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func crop() image.Image {
	return image.NewGray(image.Rect(0, 0, 16, 16))
}

func TestClient_Detect(t *testing.T) {
	var files int
	c := NewClient(newTestServer(t, &files).URL+"/", time.Second)

	dets, err := c.Detect(context.Background(), crop())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	want := model.RawDetection{X1: 1, Y1: 2, X2: 30, Y2: 40, Confidence: 0.9}
	if len(dets) != 1 || dets[0] != want {
		t.Errorf("got %+v, want [%+v]", dets, want)
	}
	if files != 1 {
		t.Errorf("sent %d files, want 1", files)
	}
}

func TestClient_ScoreIsTooth(t *testing.T) {
	var files int
	c := NewClient(newTestServer(t, &files).URL, time.Second)

	p, err := c.ScoreIsTooth(context.Background(), crop())
	if err != nil {
		t.Fatalf("ScoreIsTooth failed: %v", err)
	}
	if p != 0.42 {
		t.Errorf("got %v, want 0.42", p)
	}
}

func TestClient_ClassifyBatch(t *testing.T) {
	var files int
	c := NewClient(newTestServer(t, &files).URL, time.Second)

	preds, err := c.ClassifyBatch(context.Background(), []image.Image{crop(), crop(), crop()})
	if err != nil {
		t.Fatalf("ClassifyBatch failed: %v", err)
	}
	if files != 3 || len(preds) != 3 {
		t.Errorf("sent %d files and got %d predictions, want 3 and 3", files, len(preds))
	}
	if preds[0].Disease != model.Fractured {
		t.Errorf("disease: got %s", preds[0].Disease)
	}

	single, err := c.Classify(context.Background(), crop())
	if err != nil || single.Disease != model.Fractured {
		t.Errorf("Classify: got %+v, %v", single, err)
	}
}

func TestClient_CheckHealth(t *testing.T) {
	var files int
	c := NewClient(newTestServer(t, &files).URL, time.Second)

	if err := c.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth: %v", err)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}},
		{"missing probability", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"probability out of range", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"probability": 1.5}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			if _, err := c.ScoreIsTooth(context.Background(), crop()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_ImplementsBackend(t *testing.T) {
	var _ model.Backend = (*Client)(nil)
	var _ model.BatchClassifier = (*Client)(nil)
}

// Package remote calls dental models served over HTTP by an external
// inference service.
//
// The service exposes one multipart endpoint per model. Every request
// carries one or more JPEG images in "file" parts:
//
//	POST /detect    -> {"detections": [{"x1":..,"y1":..,"x2":..,"y2":..,"confidence":..}]}
//	POST /tooth     -> {"probability": 0.93}
//	POST /classify  -> {"predictions": [{"disease": "Caries", "confidence": 0.81}]}
//	GET  /health    -> 200 OK
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ironsheep/dentalscan/internal/imaging"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single HTTP call when the caller's context has no
// deadline.
const DefaultTimeout = 60 * time.Second

// Client talks to the inference service. It implements model.Backend and
// model.BatchClassifier.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the service at baseURL, e.g.
// "http://localhost:5000".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Detect implements model.Detector.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]model.RawDetection, error) {
	var result struct {
		Detections []model.RawDetection `json:"detections"`
	}
	if err := c.post(ctx, "/detect", []image.Image{img}, &result); err != nil {
		return nil, err
	}
	return result.Detections, nil
}

// ScoreIsTooth implements model.ToothScorer.
func (c *Client) ScoreIsTooth(ctx context.Context, crop image.Image) (float64, error) {
	var result struct {
		Probability *float64 `json:"probability"`
	}
	if err := c.post(ctx, "/tooth", []image.Image{crop}, &result); err != nil {
		return 0, err
	}
	if result.Probability == nil {
		return 0, errors.New("tooth: response has no probability")
	}
	p := *result.Probability
	if p < 0 || p > 1 {
		return 0, errors.Errorf("tooth: probability %v outside [0,1]", p)
	}
	return p, nil
}

// Classify implements model.DiseaseClassifier.
func (c *Client) Classify(ctx context.Context, crop image.Image) (model.Prediction, error) {
	preds, err := c.ClassifyBatch(ctx, []image.Image{crop})
	if err != nil {
		return model.Prediction{}, err
	}
	if len(preds) != 1 {
		return model.Prediction{}, errors.Errorf("classify: got %d predictions for 1 crop", len(preds))
	}
	return preds[0], nil
}

// ClassifyBatch implements model.BatchClassifier. The service's answer is
// returned as is, even if its length differs from len(crops).
func (c *Client) ClassifyBatch(ctx context.Context, crops []image.Image) ([]model.Prediction, error) {
	var result struct {
		Predictions []model.Prediction `json:"predictions"`
	}
	if err := c.post(ctx, "/classify", crops, &result); err != nil {
		return nil, err
	}
	return result.Predictions, nil
}

// CheckHealth reports whether the inference service is reachable.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "inference service unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Close implements model.Backend. The client holds no resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) post(ctx context.Context, path string, imgs []image.Image, out interface{}) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for i, img := range imgs {
		data, err := imaging.EncodeJPEG(img)
		if err != nil {
			return errors.Wrapf(err, "encode image %d", i)
		}
		part, err := writer.CreateFormFile("file", fmt.Sprintf("image_%d.jpg", i))
		if err != nil {
			return errors.Wrap(err, "create form file")
		}
		if _, err := part.Write(data); err != nil {
			return errors.Wrap(err, "copy image data")
		}
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "send request to %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s failed with status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

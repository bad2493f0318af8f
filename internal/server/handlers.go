package server

import (
	"context"
	"encoding/json"
	"image"
	"path/filepath"

	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/ironsheep/dentalscan/internal/imaging"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/ironsheep/dentalscan/internal/pipeline"
	"github.com/ironsheep/dentalscan/internal/report"
	"github.com/pkg/errors"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dental_analyze", "dental_score").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Analysis
	case "dental_analyze":
		return s.handleAnalyze(ctx, args)
	case "dental_classify_tooth":
		return s.handleClassifyTooth(ctx, args)

	// Geometry
	case "dental_deduplicate":
		return s.handleDeduplicate(args)
	case "dental_expand_box":
		return s.handleExpandBox(args)

	// Reporting
	case "dental_score":
		return s.handleScore(args)

	default:
		return nil, errors.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errors.New("missing arguments")
	}
	return errors.Wrap(json.Unmarshal(args, v), "invalid arguments")
}

// === Analysis Handlers ===

type analyzeArgs struct {
	Path          string `json:"path"`
	IncludeImages bool   `json:"include_images"`
}

type analyzedTooth struct {
	ID             int           `json:"id"`
	CandidateIndex int           `json:"candidate_index"`
	Box            detection.Box `json:"box"`
	Disease        model.Disease `json:"disease"`
	Confidence     float64       `json:"confidence"`
	Image          string        `json:"image,omitempty"`
	AnnotatedImage string        `json:"annotated_image,omitempty"`
}

type analyzeResult struct {
	RequestID       string               `json:"request_id"`
	Image           *imaging.ImageInfo   `json:"image"`
	StoredPath      string               `json:"stored_path"`
	Teeth           []analyzedTooth      `json:"teeth"`
	TeethByDisease  report.DiseaseCounts `json:"teeth_by_disease"`
	Score           int                  `json:"score"`
	Rating          report.Rating        `json:"rating"`
	Recommendations []string             `json:"recommendations"`
	ImageText       string               `json:"image_text,omitempty"`
	AnnotatedImage  string               `json:"annotated_image,omitempty"`
}

func (s *Server) handleAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	_, info, data, err := imaging.Load(a.Path)
	if err != nil {
		return nil, err
	}

	var res *analyzeResult
	rep, err := s.analyzer.RunRender(ctx, pipeline.Upload{Name: filepath.Base(a.Path), Data: data},
		func(rep *report.Report) error {
			res = newAnalyzeResult(rep, info)
			if a.IncludeImages {
				return attachImages(res, rep)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	res.StoredPath = rep.StoredPath
	return res, nil
}

// newAnalyzeResult numbers teeth 0..n-1 in report order; CandidateIndex keeps
// the detector rank each tooth came from.
func newAnalyzeResult(rep *report.Report, info *imaging.ImageInfo) *analyzeResult {
	res := &analyzeResult{
		RequestID:       rep.RequestID,
		Image:           info,
		Teeth:           make([]analyzedTooth, len(rep.Teeth)),
		TeethByDisease:  rep.Groups.Counts(),
		Score:           rep.Score.Value,
		Rating:          rep.Score.Rating,
		Recommendations: rep.Recommendations,
		ImageText:       rep.ImageText,
	}
	for i, t := range rep.Teeth {
		res.Teeth[i] = analyzedTooth{
			ID:             i,
			CandidateIndex: t.Index,
			Box:            t.Box,
			Disease:        t.Disease,
			Confidence:     report.RoundConfidence(t.Confidence),
		}
	}
	return res
}

func attachImages(res *analyzeResult, rep *report.Report) error {
	uri, err := imaging.DataURI(rep.Annotated)
	if err != nil {
		return err
	}
	res.AnnotatedImage = uri

	for i, t := range rep.Teeth {
		if t.Crop != nil {
			if res.Teeth[i].Image, err = imaging.DataURI(t.Crop); err != nil {
				return err
			}
		}
		if i < len(rep.ToothImages) {
			if res.Teeth[i].AnnotatedImage, err = imaging.DataURI(rep.ToothImages[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

type classifyResult struct {
	Disease    model.Disease `json:"disease"`
	Confidence float64       `json:"confidence"`
}

func (s *Server) handleClassifyTooth(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	_, _, data, err := imaging.Load(a.Path)
	if err != nil {
		return nil, err
	}

	p, err := s.analyzer.ClassifyCrop(ctx, data)
	if err != nil {
		return nil, err
	}
	return &classifyResult{Disease: p.Disease, Confidence: report.RoundConfidence(p.Confidence)}, nil
}

// === Geometry Handlers ===

type deduplicateArgs struct {
	Boxes        []detection.Box `json:"boxes"`
	Method       string          `json:"method"`
	IOUThreshold float64         `json:"iou_threshold"`
	MinDistance  float64         `json:"min_distance"`
}

type deduplicateResult struct {
	Method  detection.Method `json:"method"`
	Kept    []detection.Box  `json:"kept"`
	Removed int              `json:"removed"`
}

func (s *Server) handleDeduplicate(args json.RawMessage) (interface{}, error) {
	var a deduplicateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	method, err := detection.ParseMethod(a.Method)
	if err != nil {
		return nil, err
	}
	if a.IOUThreshold < 0 || a.IOUThreshold > 1 {
		return nil, errors.Errorf("iou_threshold %v outside [0, 1]", a.IOUThreshold)
	}
	if a.MinDistance < 0 {
		return nil, errors.Errorf("min_distance %v must not be negative", a.MinDistance)
	}

	kept, err := detection.Deduplicate(a.Boxes, detection.Options{
		Method:       method,
		IOUThreshold: a.IOUThreshold,
		MinDistance:  a.MinDistance,
	})
	if err != nil {
		return nil, err
	}
	return &deduplicateResult{
		Method:  method,
		Kept:    kept,
		Removed: len(a.Boxes) - len(kept),
	}, nil
}

type expandBoxArgs struct {
	detection.Box
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Ratio  *float64 `json:"ratio"`
}

func (s *Server) handleExpandBox(args json.RawMessage) (interface{}, error) {
	var a expandBoxArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, errors.New("width and height must be positive")
	}
	if !a.Box.Valid() {
		return nil, errors.Errorf("invalid box (%d,%d)-(%d,%d)", a.X1, a.Y1, a.X2, a.Y2)
	}

	ratio := model.DefaultExpansionRatio
	if a.Ratio != nil {
		ratio = *a.Ratio
	}
	if ratio < 0 {
		return nil, errors.Errorf("ratio %v must not be negative", ratio)
	}

	return detection.Expand(a.Box, ratio, image.Rect(0, 0, a.Width, a.Height)), nil
}

// === Reporting Handlers ===

type scoreArgs struct {
	TeethByDisease report.DiseaseCounts `json:"teeth_by_disease"`
}

func (s *Server) handleScore(args json.RawMessage) (interface{}, error) {
	var a scoreArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	summary := report.BuildSummary(a.TeethByDisease, s.now())
	return &summary, nil
}

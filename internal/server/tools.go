package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"path"},
	}
}

func boxSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
			"y1": map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
			"x2": map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
			"y2": map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Analysis
		{
			Name:        "dental_analyze",
			Description: "Analyze a dental radiograph: detect teeth, drop non-tooth candidates and duplicates, classify each tooth and score the result. Returns the teeth grouped by condition, an oral health score and recommendations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the radiograph (PNG, JPEG or GIF)",
					},
					"include_images": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the annotated radiograph and per-tooth images as base64 JPEG data URIs",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "dental_classify_tooth",
			Description: "Classify a single, already cropped tooth image. No detection or deduplication is run.",
			InputSchema: pathSchema("Absolute path to the tooth crop"),
		},

		// Geometry
		{
			Name:        "dental_deduplicate",
			Description: "Remove duplicate bounding boxes using IOU, center-distance or hybrid suppression. IOU keeps the larger box of an overlapping pair; center suppression keeps boxes in the order given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"boxes": map[string]interface{}{
						"type":        "array",
						"description": "Boxes in image pixel coordinates",
						"items":       boxSchema(),
					},
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"iou", "center", "hybrid"},
						"description": "Suppression strategy",
						"default":     "iou",
					},
					"iou_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Overlap at or above which the smaller box is dropped (default 0.1, 0.5 for hybrid)",
					},
					"min_distance": map[string]interface{}{
						"type":        "number",
						"description": "Minimum center distance in pixels between kept boxes (default 100)",
					},
				},
				"required": []string{"boxes"},
			},
		},
		{
			Name:        "dental_expand_box",
			Description: "Grow a box by a ratio of its size on every side, clamped to the image. This is the region cropped for classification.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x1":     map[string]interface{}{"type": "integer", "description": "Left edge X coordinate"},
					"y1":     map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate"},
					"x2":     map[string]interface{}{"type": "integer", "description": "Right edge X coordinate"},
					"y2":     map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate"},
					"width":  map[string]interface{}{"type": "integer", "description": "Image width in pixels"},
					"height": map[string]interface{}{"type": "integer", "description": "Image height in pixels"},
					"ratio": map[string]interface{}{
						"type":        "number",
						"description": "Expansion per side as a fraction of the box size",
						"default":     0.1,
					},
				},
				"required": []string{"x1", "y1", "x2", "y2", "width", "height"},
			},
		},

		// Reporting
		{
			Name:        "dental_score",
			Description: "Score a set of findings. Accepts an object mapping each condition to its teeth (or to a count) and returns the oral health score, rating, findings by severity and recommendations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"teeth_by_disease": map[string]interface{}{
						"type":        "object",
						"description": "Condition name to an array of teeth or an integer count",
					},
				},
				"required": []string{"teeth_by_disease"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

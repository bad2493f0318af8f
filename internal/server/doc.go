// Package server implements the MCP (Model Context Protocol) server for
// dental radiograph analysis.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Analysis:
//   - dental_analyze: Run the full pipeline on a radiograph file
//   - dental_classify_tooth: Classify one cropped tooth
//
// Geometry:
//   - dental_deduplicate: Suppress duplicate boxes (iou, center, hybrid)
//   - dental_expand_box: Grow a box the way crops are cut for classification
//
// Reporting:
//   - dental_score: Score findings and build the printable summary
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Logs go to the injected logger and never to stdout, which carries frames.
//
// # Usage
//
//	srv := server.New(pipe, log, version)
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server

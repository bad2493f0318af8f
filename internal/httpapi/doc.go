// Package httpapi serves the analysis pipeline over HTTP.
//
// Routes:
//   - POST /analyze: multipart field "image", full analysis
//   - POST /classify: multipart field "image", one cropped tooth
//   - POST /report: JSON {"teethByDisease": {...}}, printable summary
//   - GET /health: liveness, and inference service reachability when a
//     health checker is configured
//
// Images in responses are base64 JPEG data URIs. Upload errors map to 400;
// every other failure is logged and answered with a generic 500.
package httpapi

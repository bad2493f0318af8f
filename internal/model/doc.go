// Package model adapts the three neural networks of the dental pipeline to
// the shapes the pipeline works with.
//
// The networks themselves sit behind small interfaces (Detector, ToothScorer,
// DiseaseClassifier) so the pipeline can be driven by the ONNX Runtime
// backend in package onnx, the HTTP backend in package remote, or a test fake.
//
// # Adapters
//
//   - CandidateSource ranks raw detections by confidence, caps them, and cuts
//     a crop from a slightly expanded box for each one
//   - ToothFilter keeps candidates whose "is a tooth" probability reaches a threshold
//   - Classifier labels crops with a Disease, batching when the backend supports it
//
// # Disease Labels
//
// The classifier's output index order is fixed by ClassOrder. Unknown is
// never produced by a classifier; it is only a lookup fallback for labels
// that arrive from outside, such as a client-supplied report request.
package model

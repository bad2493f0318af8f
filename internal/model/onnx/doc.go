// Package onnx runs the dental models locally with ONNX Runtime through
// github.com/yalue/onnxruntime_go.
//
// Three models are loaded: a YOLO-style tooth detector, a binary "is a
// tooth" classifier and a multiclass disease classifier. Each model owns a
// fixed pool of sessions; a call waits for a free session, so with the
// default single session all inference on that model is serialised.
//
// The ONNX Runtime shared library must be present at Config.LibraryPath.
package onnx

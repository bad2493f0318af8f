package onnx

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// softmax returns the probabilities for logits. The max logit is subtracted
// first to keep math.Exp finite.
func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = float64(v)
	}
	if len(out) == 0 {
		return out
	}
	floats.AddConst(-floats.Max(out), out)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// argmax returns the index of the largest value. Ties go to the lowest index.
func argmax(v []float64) int {
	if len(v) == 0 {
		return -1
	}
	return floats.MaxIdx(v)
}

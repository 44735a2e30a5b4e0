package embeddings

import (
	"fmt"
	"math"
)

const (
	// Dimension is the fixed embedding dimensionality. All supported
	// models emit 384-component vectors.
	Dimension = 384

	// QuantizedSize is the byte length of a quantized vector: one sign
	// bit per component, packed eight to a byte.
	QuantizedSize = Dimension / 8
)

// Quantize compresses a float32 vector to one sign bit per component.
//
// This is a deliberate 32-bit-float-to-1-bit lossy compression: only the
// sign survives. Downstream ranking needs coarse nearest-neighbor order,
// not exact distances, and the 48-byte codes keep the store compact.
func Quantize(v []float32) ([]byte, error) {
	if len(v) != Dimension {
		return nil, fmt.Errorf("quantize: dimension mismatch: got %d, want %d", len(v), Dimension)
	}
	code := make([]byte, QuantizedSize)
	for i, f := range v {
		if f > 0 {
			code[i/8] |= 1 << (i % 8)
		}
	}
	return code, nil
}

// Dequantize expands a quantized vector back to ±1.0 floats.
// Approximate by construction: only the sign of each component is preserved.
func Dequantize(code []byte) ([]float32, error) {
	if len(code) != QuantizedSize {
		return nil, fmt.Errorf("dequantize: code length mismatch: got %d, want %d", len(code), QuantizedSize)
	}
	v := make([]float32, Dimension)
	for i := range v {
		if code[i/8]&(1<<(i%8)) != 0 {
			v[i] = 1.0
		} else {
			v[i] = -1.0
		}
	}
	return v, nil
}

// CosineSimilarity returns the normalized dot product of two vectors in
// [-1, 1]. Zero vectors and mismatched lengths yield 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

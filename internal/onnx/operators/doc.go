// Package operators implements the ONNX operators needed to execute the
// decoder graphs this project exports: convolutions, element-wise math,
// shape manipulation, and the sampling op behind the noise branch. The
// registry is open, so callers can add handlers for operators outside
// that set.
package operators

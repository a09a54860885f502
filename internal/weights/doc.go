// Package weights loads PyTorch checkpoints into raw tensors. It reads the
// safetensors format natively and legacy pickle checkpoints through
// gopickle, converts half-precision storage to float32, and folds
// weight-normalized parameter pairs into plain weights so downstream code
// only ever sees inference-ready float32 tensors.
package weights

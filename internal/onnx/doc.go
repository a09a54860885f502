// Package onnx implements the ONNX model format end to end: a hand-written
// protobuf wire codec (no generated code, no protobuf toolchain), a writer
// used by the exporter, and a CPU reference executor used for post-export
// verification and offline decoding.
//
// Key components:
//   - ModelProto / GraphProto / NodeProto / TensorProto: the ONNX message
//     structures, mirroring onnx.proto field for field
//   - Parse / ParseFile: wire-format decoder, tolerant of unknown fields
//   - Marshal / WriteFile: deterministic wire-format encoder
//   - Load / Model: graph executor over the operator registry
//   - GetModelInfo: cheap model inspection without building the executor
package onnx

// Copyright 2026 The snacx Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the tensor types used throughout snacx.
//
// The package re-exports the internal tensor representation so that
// callers embedding the exporter or running exported models can build
// inputs and read outputs:
//
//	codes, _ := tensor.FromInt32(tensor.Shape{1, 40}, values)
//	out, _ := model.ForwardNamed(map[string]*tensor.RawTensor{"codes_2": codes})
//	samples := out["audio"].AsFloat32()
package tensor

import (
	"github.com/snac-ml/snacx/internal/tensor"
)

// Shape describes tensor dimensions in row-major order.
type Shape = tensor.Shape

// DataType identifies the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// RawTensor is a dense, contiguous tensor.
type RawTensor = tensor.RawTensor

// Backend is the compute interface models execute against.
type Backend = tensor.Backend

// ConvOpts configures 1-D convolution kernels.
type ConvOpts = tensor.ConvOpts

// Constructors.
var (
	NewRaw          = tensor.NewRaw
	NewRawFromBytes = tensor.NewRawFromBytes
	FromFloat32     = tensor.FromFloat32
	FromInt32       = tensor.FromInt32
	FromInt64       = tensor.FromInt64
	FullRaw         = tensor.FullRaw
	RandnRaw        = tensor.RandnRaw
	RandintRaw      = tensor.RandintRaw
)

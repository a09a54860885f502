// Copyright 2026 The snacx Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package onnx loads and runs the ONNX models snacx exports.
//
// The runtime covers the operator set the SNAC decoder needs and is
// meant for verification and lightweight inference, not as a general
// ONNX engine.
//
// Example:
//
//	backend := cpu.New()
//	model, err := onnx.Load("snac.onnx", backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := model.ForwardNamed(map[string]*tensor.RawTensor{
//	    "codes_0": c0, "codes_1": c1, "codes_2": c2,
//	})
package onnx

import (
	"github.com/snac-ml/snacx/internal/onnx"
)

// Model is a compiled, runnable ONNX graph.
type Model = onnx.Model

// ModelInfo summarizes an ONNX file without compiling it.
type ModelInfo = onnx.ModelInfo

// LoadOptions controls model compilation.
type LoadOptions = onnx.LoadOptions

// ModelProto is the decoded wire representation of an ONNX file.
type ModelProto = onnx.ModelProto

// Loading and file handling.
var (
	Load               = onnx.Load
	LoadFromBytes      = onnx.LoadFromBytes
	LoadFromProto      = onnx.LoadFromProto
	DefaultLoadOptions = onnx.DefaultLoadOptions
	GetModelInfo       = onnx.GetModelInfo
	ListSupportedOps   = onnx.ListSupportedOps
	Marshal            = onnx.Marshal
	Parse              = onnx.Parse
	ParseFile          = onnx.ParseFile
	WriteFile          = onnx.WriteFile
)

// Copyright 2026 The snacx Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package snac exposes the SNAC codec model: its configuration, the
// ONNX decoder graph builder, and the token frame layout used by
// speech LLMs.
//
// Exporting a decoder from a loaded checkpoint:
//
//	cfg, _ := snac.LoadConfig("config.json")
//	model, err := snac.BuildDecoderGraph(cfg, stateDict, snac.BuildOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = onnx.WriteFile("snac.onnx", model)
package snac

import (
	"github.com/snac-ml/snacx/internal/export"
	"github.com/snac-ml/snacx/internal/snac"
)

// Config mirrors the config.json shipped with SNAC checkpoints.
type Config = snac.Config

// Options configures an end-to-end export run.
type Options = export.Options

// Report summarizes a completed export.
type Report = export.Report

// Export runs the whole pipeline: resolve the checkpoint, fold weights,
// build the decoder graph, write the ONNX file, and verify it.
var Export = export.Run

// BuildOptions configures decoder graph construction.
type BuildOptions = snac.BuildOptions

// ModelTraits describes an exported decoder from its ONNX metadata.
type ModelTraits = snac.ModelTraits

// Token frame layout constants.
const (
	FrameSize   = snac.FrameSize
	TokenOffset = snac.TokenOffset
	TokenStride = snac.TokenStride
)

var (
	LoadConfig          = snac.LoadConfig
	ParseConfig         = snac.ParseConfig
	BuildDecoderGraph   = snac.BuildDecoderGraph
	ExpectedAudioLength = snac.ExpectedAudioLength
	TraitsFromMetadata  = snac.TraitsFromMetadata
	PackFrames          = snac.PackFrames
	UnpackFrames        = snac.UnpackFrames
)

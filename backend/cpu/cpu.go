// Copyright 2026 The snacx Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go compute backend.
package cpu

import (
	internalcpu "github.com/snac-ml/snacx/internal/backend/cpu"
	"github.com/snac-ml/snacx/tensor"
)

// Backend runs tensor operations on the CPU with data-parallel kernels.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend that parallelizes across all cores.
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a single-threaded CPU backend.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}

// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The package wraps any compute backend with a gradient tape that
// records operations during the forward pass and replays them in
// reverse to compute gradients.
//
// Example:
//
//	import (
//	    "github.com/kiln-ml/kiln/autodiff"
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    backend.Tape().StartRecording()
//
//	    // ... forward pass ...
//
//	    grads := backend.Backward(loss.Raw())
//	    backend.Tape().Clear()
//	}
package autodiff

import (
	internalautodiff "github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/tensor"
)

// Backend decorates a compute backend with gradient tracking.
type Backend[B tensor.Backend] = internalautodiff.Backend[B]

// Tape records operations for the backward pass.
type Tape = internalautodiff.Tape

// New wraps the given backend with autodiff support.
func New[B tensor.Backend](inner B) *Backend[B] {
	return internalautodiff.New(inner)
}

// NewTape creates an empty gradient tape.
func NewTape() *Tape {
	return internalautodiff.NewTape()
}

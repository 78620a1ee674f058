// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network building blocks: layers,
// activations, losses and parameter management.
//
// # Basic Usage
//
//	import (
//	    "github.com/kiln-ml/kiln/autodiff"
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	    "github.com/kiln-ml/kiln/nn"
//	)
//
//	type Backend = *autodiff.Backend[*cpu.Backend]
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    model := nn.NewSequential[Backend](
//	        nn.NewLinear(2, 16, backend),
//	        nn.NewReLU[Backend](),
//	        nn.NewLinear(16, 3, backend),
//	    )
//
//	    output := model.Forward(input)
//	}
//
// # Modules
//
// Every component implements the Module interface: a Forward pass plus
// a Parameters accessor for the optimizer. Layers (Linear, LSTM) own
// trainable parameters; activations (ReLU, Sigmoid, Tanh) are
// stateless.
//
// # Losses
//
// MSELoss and CrossEntropyLoss are fused operations on the autodiff
// backend: the scalar loss they return can seed a backward pass
// directly.
package nn

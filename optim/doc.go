// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim implements optimization algorithms for training neural
// networks.
//
// # Basic Usage
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
//	    LR: 0.01,
//	})
//
//	for epoch := 0; epoch < epochs; epoch++ {
//	    backend.Tape().StartRecording()
//	    loss := backend.MSE(model.Forward(input).Raw(), targets)
//	    grads := backend.Backward(loss)
//	    backend.Tape().Clear()
//
//	    optimizer.Step(grads)
//	    optimizer.ZeroGrad()
//	}
//
// # Learning Rate Control
//
// Optimizers expose GetLR and SetLR so schedulers — including the
// adaptive training loop in the train package — can decay the rate
// between steps. Within a run the rate only ever decreases.
package optim

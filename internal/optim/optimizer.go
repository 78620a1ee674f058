// Package optim implements optimization algorithms for training neural
// networks.
//
// This package provides:
//   - Optimizer interface: base interface for all optimizers
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation
//
// Example usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
//	    LR: 0.01,
//	})
//
//	for epoch := 0; epoch < epochs; epoch++ {
//	    backend.Tape().StartRecording()
//	    loss := lossFn(model.Forward(input), targets)
//	    grads := backend.Backward(loss.Raw())
//	    backend.Tape().Clear()
//
//	    optimizer.Step(grads)
//	    optimizer.ZeroGrad()
//	}
package optim

import (
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters in place.
	// The map comes from the autodiff backend and is keyed by each
	// parameter's raw tensor. Parameters absent from the map are
	// skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears gradients stored on the parameters.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate. Schedulers and adaptive
	// training loops call this between steps.
	SetLR(lr float32)
}

// Config is the base configuration shared by all optimizers.
type Config struct {
	LR float32 // learning rate
}

// getGradient retrieves the gradient for a parameter, or nil when the
// parameter was not part of the recorded graph.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Raw()]
}

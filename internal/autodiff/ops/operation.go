// Package ops defines the differentiable operations recorded on the tape.
//
// Each operation captures its input and output tensors during the
// forward pass and knows how to turn the gradient of its output into
// gradients of its inputs (reverse-mode differentiation).
package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// Operation is one recorded step of a computation graph.
type Operation interface {
	// Backward computes gradients for the operation's inputs given the
	// gradient of its output. The returned slice is aligned with Inputs().
	// A nil entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the tensors the operation consumed.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor the operation produced.
	Output() *tensor.RawTensor
}

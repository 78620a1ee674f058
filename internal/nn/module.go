// Package nn provides neural network building blocks: layers,
// activations, losses and parameter management.
//
// Modules compose through the Module interface:
//
//	model := nn.NewSequential(
//		nn.NewLinear(2, 16, backend),
//		nn.NewReLU[*cpu.Backend](),
//		nn.NewLinear(16, 1, backend),
//	)
//	output := model.Forward(input)
package nn

import "github.com/kiln-ml/kiln/internal/tensor"

// Module is the interface implemented by every network component.
type Module[B tensor.Backend] interface {
	// Forward computes the module's output for the given input.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's trainable parameters.
	Parameters() []*Parameter[B]
}

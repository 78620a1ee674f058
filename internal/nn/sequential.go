package nn

import "github.com/kiln-ml/kiln/internal/tensor"

// Sequential chains modules, feeding each module's output to the next.
//
// Example:
//
//	model := nn.NewSequential(
//		nn.NewLinear(784, 128, backend),
//		nn.NewReLU[*cpu.Backend](),
//		nn.NewLinear(128, 10, backend),
//	)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a sequential container from the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward runs the input through every module in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := input
	for _, m := range s.modules {
		out = m.Forward(out)
	}
	return out
}

// Parameters returns the concatenated parameters of all modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// Add appends a module to the chain and returns the container.
func (s *Sequential[B]) Add(m Module[B]) *Sequential[B] {
	s.modules = append(s.modules, m)
	return s
}

// Len returns the number of modules in the chain.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

package nn

import "github.com/kiln-ml/kiln/internal/tensor"

// Parameter is a named, trainable tensor. Optimizers update parameters
// in place through their raw tensors; gradient maps are keyed by the
// same raw pointers, which is why a parameter's raw tensor identity is
// stable for its lifetime.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
	grad   *tensor.RawTensor
}

// NewParameter wraps a tensor as a named trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter's name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the underlying typed tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Raw returns the underlying raw tensor. Gradient maps produced by the
// autodiff backend are keyed by this pointer.
func (p *Parameter[B]) Raw() *tensor.RawTensor {
	return p.tensor.Raw()
}

// Data returns the parameter's values as a mutable slice.
func (p *Parameter[B]) Data() []float32 {
	return p.tensor.Data()
}

// Grad returns the most recently stored gradient, or nil.
func (p *Parameter[B]) Grad() *tensor.RawTensor {
	return p.grad
}

// SetGrad stores a gradient on the parameter for later inspection.
func (p *Parameter[B]) SetGrad(grad *tensor.RawTensor) {
	p.grad = grad
}

// ZeroGrad drops the stored gradient.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

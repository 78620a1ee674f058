package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Activation backends expose element-wise nonlinearities beyond the core
// tensor.Backend interface. The autodiff decorator implements all of
// them with gradient tracking.
type activationBackend interface {
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
	Sigmoid(x *tensor.RawTensor) *tensor.RawTensor
	Tanh(x *tensor.RawTensor) *tensor.RawTensor
}

func activations[B tensor.Backend](b B) activationBackend {
	ab, ok := any(b).(activationBackend)
	if !ok {
		panic(fmt.Sprintf("backend %s does not implement activations", b.Name()))
	}
	return ab
}

// ReLU applies max(0, x) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies the activation.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := activations(input.Backend()).ReLU(input.Raw())
	return tensor.New[float32](raw, input.Backend())
}

// Parameters returns nil; activations have no trainable state.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies the activation.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := activations(input.Backend()).Sigmoid(input.Raw())
	return tensor.New[float32](raw, input.Backend())
}

// Parameters returns nil; activations have no trainable state.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] { return nil }

// Tanh applies the hyperbolic tangent element-wise.
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies the activation.
func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := activations(input.Backend()).Tanh(input.Raw())
	return tensor.New[float32](raw, input.Backend())
}

// Parameters returns nil; activations have no trainable state.
func (t *Tanh[B]) Parameters() []*Parameter[B] { return nil }

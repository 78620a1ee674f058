package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Linear is a fully connected layer computing y = x @ Wᵀ + b.
//
// Weight shape is (outFeatures, inFeatures); bias is (1, outFeatures)
// and broadcasts over the batch dimension.
type Linear[B tensor.Backend] struct {
	weight *Parameter[B]
	bias   *Parameter[B]

	inFeatures  int
	outFeatures int
}

// NewLinear creates a linear layer with Xavier-initialized weights and
// zero bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: feature counts must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}

	weight := tensor.Zeros[float32](tensor.Shape{outFeatures, inFeatures}, backend)
	XavierUniform(weight, inFeatures, outFeatures)
	bias := tensor.Zeros[float32](tensor.Shape{1, outFeatures}, backend)

	return &Linear[B]{
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
	}
}

// Forward computes x @ Wᵀ + b for a (batch, inFeatures) input.
// Panics when the input's trailing dimension does not match inFeatures.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: expected input shape (batch, %d), got %v", l.inFeatures, shape))
	}
	return input.MatMul(l.weight.Tensor().T()).Add(l.bias.Tensor())
}

// Parameters returns the weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Loss backends expose fused loss computations. The autodiff decorator
// implements both with gradient tracking; fusing keeps the scalar loss
// differentiable without recording the reduction element by element.
type lossBackend interface {
	MSE(predictions, targets *tensor.RawTensor) *tensor.RawTensor
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

func losses[B tensor.Backend](b B) lossBackend {
	lb, ok := any(b).(lossBackend)
	if !ok {
		panic(fmt.Sprintf("backend %s does not implement loss functions", b.Name()))
	}
	return lb
}

// MSELoss computes mean((predictions - targets)²).
type MSELoss[B tensor.Backend] struct{}

// NewMSELoss creates an MSE loss.
func NewMSELoss[B tensor.Backend]() *MSELoss[B] {
	return &MSELoss[B]{}
}

// Forward returns the scalar loss. Panics on shape mismatch.
func (l *MSELoss[B]) Forward(predictions, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := losses(predictions.Backend()).MSE(predictions.Raw(), targets.Raw())
	return tensor.New[float32](raw, predictions.Backend())
}

// CrossEntropyLoss computes the fused softmax + negative-log-likelihood
// loss for classification.
//
// Logits are (batch, classes) float32; targets are (batch) int32 class
// indices.
type CrossEntropyLoss[B tensor.Backend] struct{}

// NewCrossEntropyLoss creates a cross-entropy loss.
func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{}
}

// Forward returns the scalar loss, averaged over the batch.
func (l *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	raw := losses(logits.Backend()).CrossEntropy(logits.Raw(), targets.Raw())
	return tensor.New[float32](raw, logits.Backend())
}

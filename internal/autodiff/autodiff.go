// Package autodiff implements reverse-mode automatic differentiation as
// a backend decorator.
//
// Backend[B] wraps any tensor.Backend and records every differentiable
// operation on a Tape during the forward pass. Walking the tape in
// reverse yields gradients for all participating tensors.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	loss := ... // forward pass through recorded ops
//	grads := backend.Backward(loss.Raw())
//	optimizer.Step(grads)
//	backend.Tape().Clear()
package autodiff

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/autodiff/ops"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Backend decorates an inner compute backend with gradient tracking.
// It satisfies tensor.Backend, so models built on typed tensors run
// unchanged whether or not they are being differentiated.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *Tape
}

// New wraps the given backend with autodiff support.
func New[B tensor.Backend](inner B) *Backend[B] {
	return &Backend[B]{
		inner: inner,
		tape:  NewTape(),
	}
}

// Tape returns the gradient tape for recording control.
func (b *Backend[B]) Tape() *Tape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B {
	return b.inner
}

// Name returns the decorated backend name.
func (b *Backend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the inner backend's compute device.
func (b *Backend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Backward seeds the tape with a gradient of one for the scalar loss and
// returns accumulated gradients for every tensor in the recorded graph.
// The tape is left intact; call Tape().Clear() before the next step.
func (b *Backend[B]) Backward(loss *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	seed, err := tensor.NewRaw(loss.Shape(), loss.DType(), b.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: %v", err))
	}
	switch loss.DType() {
	case tensor.Float32:
		seed.AsFloat32()[0] = 1
	case tensor.Float64:
		seed.AsFloat64()[0] = 1
	default:
		panic(fmt.Sprintf("backward: unsupported loss dtype %s", loss.DType()))
	}
	return b.tape.Backward(seed, b)
}

// Add performs element-wise addition and records the operation.
//
// Operands are pinned for the duration of the inner call: an in-place
// result would overwrite values the backward pass still reads.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()
	defer y.Pin()()

	result := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()
	defer y.Pin()()

	result := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()
	defer y.Pin()()

	result := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, result))
	return result
}

// Div performs element-wise division and records the operation.
func (b *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()
	defer y.Pin()()

	result := b.inner.Div(x, y)
	b.tape.Record(ops.NewDivOp(x, y, result))
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()
	defer y.Pin()()

	result := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, result))
	return result
}

// Reshape reshapes a tensor and records the operation so gradients flow
// back to the original layout.
func (b *Backend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	defer t.Pin()()

	result := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, result))
	return result
}

// Transpose permutes dimensions and records the operation. Recording is
// required: the CPU backend materializes a new tensor, and a gradient
// computed for the transposed copy must be routed back to the source.
func (b *Backend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer t.Pin()()

	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(t, axes...)
	b.tape.Record(ops.NewTransposeOp(t, result, axes))
	return result
}

// Softmax normalizes rows of a 2D tensor and records the operation.
func (b *Backend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()

	result := b.inner.Softmax(x)
	b.tape.Record(ops.NewSoftmaxOp(x, result))
	return result
}

// ReLU applies max(0, x) element-wise and records the operation.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := unary("relu", x, b.Device(),
		func(v float32) float32 {
			if v > 0 {
				return v
			}
			return 0
		},
		func(v float64) float64 { return math.Max(0, v) })

	b.tape.Record(ops.NewReLUOp(x, result))
	return result
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)) element-wise and records the
// operation.
func (b *Backend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := unary("sigmoid", x, b.Device(),
		func(v float32) float32 { return float32(1.0 / (1.0 + math.Exp(float64(-v)))) },
		func(v float64) float64 { return 1.0 / (1.0 + math.Exp(-v)) })

	b.tape.Record(ops.NewSigmoidOp(x, result))
	return result
}

// Tanh applies the hyperbolic tangent element-wise and records the
// operation.
func (b *Backend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result := unary("tanh", x, b.Device(),
		func(v float32) float32 { return float32(math.Tanh(float64(v))) },
		math.Tanh)

	b.tape.Record(ops.NewTanhOp(x, result))
	return result
}

// CrossEntropy computes the fused softmax + negative-log-likelihood loss
// for classification and records the operation.
//
// logits: (batch, classes) float; targets: (batch) int32 class indices.
// Returns a scalar loss (mean over the batch).
func (b *Backend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	defer logits.Pin()()
	// targets are not differentiated; no pin needed.

	result := ops.CrossEntropyForward(logits, targets, b.Device())
	b.tape.Record(ops.NewCrossEntropyOp(logits, targets, result))
	return result
}

// MSE computes mean((predictions - targets)²) and records the operation.
// Returns a scalar loss.
func (b *Backend[B]) MSE(predictions, targets *tensor.RawTensor) *tensor.RawTensor {
	defer predictions.Pin()()

	result := ops.MSEForward(predictions, targets, b.Device())
	b.tape.Record(ops.NewMSEOp(predictions, targets, result))
	return result
}

// Concat stacks tensors along the leading dimension and records the
// operation so gradients split back to each piece.
func (b *Backend[B]) Concat(inputs []*tensor.RawTensor) *tensor.RawTensor {
	for _, in := range inputs {
		defer in.Pin()()
	}

	result := ops.ConcatForward(inputs, b.Device())
	b.tape.Record(ops.NewConcatOp(inputs, result))
	return result
}

// unary applies an element-wise function into a fresh tensor.
func unary(
	name string,
	x *tensor.RawTensor,
	device tensor.Device,
	f32 func(float32) float32,
	f64 func(float64) float64,
) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = f32(v)
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = f64(v)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

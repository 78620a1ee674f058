package ops

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// ReLUOp records output = max(0, input).
// The gradient passes through where the input was positive.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward masks the gradient by the sign of the forward input.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := mustLike("relu", op.input)
	switch op.input.DType() {
	case tensor.Float32:
		in, g, dst := op.input.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i := range dst {
			if in[i] > 0 {
				dst[i] = g[i]
			}
		}
	case tensor.Float64:
		in, g, dst := op.input.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i := range dst {
			if in[i] > 0 {
				dst[i] = g[i]
			}
		}
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", op.input.DType()))
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [input].
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns max(0, input).
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }

// SigmoidOp records output = σ(input) = 1 / (1 + exp(-input)).
// Backward uses the output: dσ/dx = σ(x)(1 - σ(x)).
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{input: input, output: output}
}

// Backward computes grad * y * (1 - y) from the saved output.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := mustLike("sigmoid", op.input)
	switch op.input.DType() {
	case tensor.Float32:
		y, g, dst := op.output.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i := range dst {
			dst[i] = g[i] * y[i] * (1 - y[i])
		}
	case tensor.Float64:
		y, g, dst := op.output.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i := range dst {
			dst[i] = g[i] * y[i] * (1 - y[i])
		}
	default:
		panic(fmt.Sprintf("sigmoid: unsupported dtype %s", op.input.DType()))
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [input].
func (op *SigmoidOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns σ(input).
func (op *SigmoidOp) Output() *tensor.RawTensor { return op.output }

// TanhOp records output = tanh(input).
// Backward uses the output: dtanh/dx = 1 - tanh²(x).
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{input: input, output: output}
}

// Backward computes grad * (1 - y²) from the saved output.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := mustLike("tanh", op.input)
	switch op.input.DType() {
	case tensor.Float32:
		y, g, dst := op.output.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i := range dst {
			dst[i] = g[i] * (1 - y[i]*y[i])
		}
	case tensor.Float64:
		y, g, dst := op.output.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i := range dst {
			dst[i] = g[i] * (1 - y[i]*y[i])
		}
	default:
		panic(fmt.Sprintf("tanh: unsupported dtype %s", op.input.DType()))
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [input].
func (op *TanhOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns tanh(input).
func (op *TanhOp) Output() *tensor.RawTensor { return op.output }

// SoftmaxOp records output = softmax(input) along the last dimension.
//
// Backward (per row): dx_j = y_j * (g_j - Σ_i g_i y_i).
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(input, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{input: input, output: output}
}

// Backward applies the softmax Jacobian-vector product row by row.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	if len(shape) != 2 {
		panic("softmax: backward only supports 2D tensors")
	}
	rows, cols := shape[0], shape[1]
	grad := mustLike("softmax", op.input)

	switch op.input.DType() {
	case tensor.Float32:
		y, g, dst := op.output.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for r := 0; r < rows; r++ {
			base := r * cols
			var dot float32
			for j := 0; j < cols; j++ {
				dot += g[base+j] * y[base+j]
			}
			for j := 0; j < cols; j++ {
				dst[base+j] = y[base+j] * (g[base+j] - dot)
			}
		}
	case tensor.Float64:
		y, g, dst := op.output.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for r := 0; r < rows; r++ {
			base := r * cols
			var dot float64
			for j := 0; j < cols; j++ {
				dot += g[base+j] * y[base+j]
			}
			for j := 0; j < cols; j++ {
				dst[base+j] = y[base+j] * (g[base+j] - dot)
			}
		}
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", op.input.DType()))
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [input].
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns softmax(input).
func (op *SoftmaxOp) Output() *tensor.RawTensor { return op.output }

// mustLike allocates a zeroed tensor with the same shape/dtype as t.
func mustLike(op string, t *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	return result
}

package ops

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// ConcatOp records output = concat(inputs) along the leading dimension.
//
// The backward pass slices the output gradient back into per-input
// gradients at the recorded row boundaries. Used by recurrent models to
// stack per-timestep outputs into one tensor before the loss.
type ConcatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewConcatOp creates a new ConcatOp.
func NewConcatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor) *ConcatOp {
	return &ConcatOp{inputs: inputs, output: output}
}

// Backward splits the output gradient at each input's row boundary.
func (op *ConcatOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	row := 0
	for i, in := range op.inputs {
		rows := in.Shape()[0]
		grads[i] = outputGrad.SliceRows(row, row+rows)
		row += rows
	}
	return grads
}

// Inputs returns the concatenated tensors.
func (op *ConcatOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the stacked tensor.
func (op *ConcatOp) Output() *tensor.RawTensor { return op.output }

// ConcatForward stacks tensors along the leading dimension.
// All inputs must share dtype and trailing dimensions.
func ConcatForward(inputs []*tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	if len(inputs) == 0 {
		panic("concat: no inputs")
	}

	first := inputs[0]
	rows := 0
	for _, in := range inputs {
		if in.DType() != first.DType() {
			panic(fmt.Sprintf("concat: dtype mismatch: %s vs %s", first.DType(), in.DType()))
		}
		if len(in.Shape()) != len(first.Shape()) || !in.Shape()[1:].Equal(first.Shape()[1:]) {
			panic(fmt.Sprintf("concat: trailing dimensions differ: %v vs %v", first.Shape(), in.Shape()))
		}
		rows += in.Shape()[0]
	}

	outShape := first.Shape().Clone()
	outShape[0] = rows
	output, err := tensor.NewRaw(outShape, first.DType(), device)
	if err != nil {
		panic(err)
	}

	offset := 0
	for _, in := range inputs {
		n := len(in.Data())
		copy(output.Data()[offset:offset+n], in.Data())
		offset += n
	}
	return output
}

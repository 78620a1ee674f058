package ops

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// MSEOp records the mean-squared-error loss.
//
// Forward:
//
//	loss = mean((predictions - targets)²)
//
// Backward:
//
//	∂loss/∂predictions = 2 * (predictions - targets) / n
//
// Fused like CrossEntropyOp so a scalar loss tensor can seed the
// backward pass directly.
type MSEOp struct {
	predictions *tensor.RawTensor
	targets     *tensor.RawTensor
	output      *tensor.RawTensor
}

// NewMSEOp creates a new MSEOp.
func NewMSEOp(predictions, targets, output *tensor.RawTensor) *MSEOp {
	return &MSEOp{predictions: predictions, targets: targets, output: output}
}

// Inputs returns [predictions]; targets carry no gradient.
func (op *MSEOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.predictions}
}

// Output returns the scalar loss.
func (op *MSEOp) Output() *tensor.RawTensor { return op.output }

// Backward computes 2(p - t)/n scaled by the upstream gradient.
func (op *MSEOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := mustLike("mse", op.predictions)
	n := op.predictions.NumElements()

	switch op.predictions.DType() {
	case tensor.Float32:
		p, t, dst := op.predictions.AsFloat32(), op.targets.AsFloat32(), grad.AsFloat32()
		scale := outputGrad.AsFloat32()[0]
		for i := range dst {
			dst[i] = scale * 2 * (p[i] - t[i]) / float32(n)
		}
	case tensor.Float64:
		p, t, dst := op.predictions.AsFloat64(), op.targets.AsFloat64(), grad.AsFloat64()
		scale := outputGrad.AsFloat64()[0]
		for i := range dst {
			dst[i] = scale * 2 * (p[i] - t[i]) / float64(n)
		}
	default:
		panic(fmt.Sprintf("mse: unsupported dtype %s", op.predictions.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// MSEForward computes mean((predictions - targets)²) as a scalar tensor.
func MSEForward(predictions, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	if !predictions.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("mse: shape mismatch: predictions %v vs targets %v",
			predictions.Shape(), targets.Shape()))
	}

	output, err := tensor.NewRaw(tensor.Shape{1}, predictions.DType(), device)
	if err != nil {
		panic(err)
	}

	switch predictions.DType() {
	case tensor.Float32:
		p, t := predictions.AsFloat32(), targets.AsFloat32()
		total := 0.0
		for i := range p {
			d := float64(p[i] - t[i])
			total += d * d
		}
		output.AsFloat32()[0] = float32(total / float64(len(p)))
	case tensor.Float64:
		p, t := predictions.AsFloat64(), targets.AsFloat64()
		total := 0.0
		for i := range p {
			d := p[i] - t[i]
			total += d * d
		}
		output.AsFloat64()[0] = total / float64(len(p))
	default:
		panic(fmt.Sprintf("mse: unsupported dtype %s", predictions.DType()))
	}

	return output
}

package ops

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// CrossEntropyOp records the fused softmax + negative-log-likelihood loss.
//
// Forward:
//
//	loss = mean_b(-log_softmax(logits[b])[targets[b]])
//
// computed with the log-sum-exp trick for numerical stability.
//
// Backward:
//
//	∂loss/∂logits[b,i] = (softmax(logits[b])[i] - onehot(targets[b])[i]) / batch
//
// The collapse of the softmax Jacobian against the NLL gradient into
// "probabilities minus one-hot" is why the two are fused.
//
// Shapes: logits (batch, classes) float; targets (batch) int32 indices.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{logits: logits, targets: targets, output: output}
}

// Inputs returns [logits]; targets carry no gradient.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss.
func (op *CrossEntropyOp) Output() *tensor.RawTensor { return op.output }

// Backward computes (softmax - onehot) / batch, scaled by the upstream
// gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	if len(shape) != 2 {
		panic("cross-entropy: backward requires 2D logits")
	}
	batch, classes := shape[0], shape[1]
	grad := mustLike("cross-entropy", op.logits)
	targets := op.targets.AsInt32()

	switch op.logits.DType() {
	case tensor.Float32:
		logits, dst := op.logits.AsFloat32(), grad.AsFloat32()
		scale := outputGrad.AsFloat32()[0]
		probs := make([]float64, classes)
		for b := 0; b < batch; b++ {
			row := logits[b*classes : (b+1)*classes]
			softmaxRow(probs, func(i int) float64 { return float64(row[i]) })
			for i := 0; i < classes; i++ {
				p := probs[i]
				if int32(i) == targets[b] {
					p -= 1.0
				}
				dst[b*classes+i] = scale * float32(p) / float32(batch)
			}
		}
	case tensor.Float64:
		logits, dst := op.logits.AsFloat64(), grad.AsFloat64()
		scale := outputGrad.AsFloat64()[0]
		probs := make([]float64, classes)
		for b := 0; b < batch; b++ {
			row := logits[b*classes : (b+1)*classes]
			softmaxRow(probs, func(i int) float64 { return row[i] })
			for i := 0; i < classes; i++ {
				p := probs[i]
				if int32(i) == targets[b] {
					p -= 1.0
				}
				dst[b*classes+i] = scale * p / float64(batch)
			}
		}
	default:
		panic(fmt.Sprintf("cross-entropy: unsupported dtype %s", op.logits.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// CrossEntropyForward computes the mean negative log-likelihood of the
// target classes. Shared by the autodiff backend's forward pass and by
// gradient-free evaluation.
func CrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cross-entropy: logits must be 2D (batch, classes), got %v", shape))
	}
	if len(targets.Shape()) != 1 || targets.Shape()[0] != shape[0] {
		panic(fmt.Sprintf("cross-entropy: targets must be (batch)=(%d), got %v", shape[0], targets.Shape()))
	}
	if targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("cross-entropy: targets must be int32 class indices, got %s", targets.DType()))
	}

	batch, classes := shape[0], shape[1]
	output, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), device)
	if err != nil {
		panic(err)
	}

	targetIdx := targets.AsInt32()
	total := 0.0

	row := func(at func(int) float64, b int) float64 {
		t := int(targetIdx[b])
		if t < 0 || t >= classes {
			panic(fmt.Sprintf("cross-entropy: target index %d out of range [0, %d)", t, classes))
		}
		return -(at(t) - logSumExp(at, classes))
	}

	switch logits.DType() {
	case tensor.Float32:
		data := logits.AsFloat32()
		for b := 0; b < batch; b++ {
			base := b * classes
			total += row(func(i int) float64 { return float64(data[base+i]) }, b)
		}
		output.AsFloat32()[0] = float32(total / float64(batch))
	case tensor.Float64:
		data := logits.AsFloat64()
		for b := 0; b < batch; b++ {
			base := b * classes
			total += row(func(i int) float64 { return data[base+i] }, b)
		}
		output.AsFloat64()[0] = total / float64(batch)
	default:
		panic(fmt.Sprintf("cross-entropy: unsupported dtype %s", logits.DType()))
	}

	return output
}

// logSumExp computes log(Σ exp(x_i)) with the max-shift trick.
func logSumExp(at func(int) float64, n int) float64 {
	maxVal := at(0)
	for i := 1; i < n; i++ {
		if v := at(i); v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Exp(at(i) - maxVal)
	}
	return maxVal + math.Log(sum)
}

// softmaxRow fills dst with softmax of the n accessed values.
func softmaxRow(dst []float64, at func(int) float64) {
	n := len(dst)
	maxVal := at(0)
	for i := 1; i < n; i++ {
		if v := at(i); v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		dst[i] = math.Exp(at(i) - maxVal)
		sum += dst[i]
	}
	for i := 0; i < n; i++ {
		dst[i] /= sum
	}
}

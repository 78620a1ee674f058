package autodiff_test

import (
	"math"
	"testing"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// checkGradient compares an autodiff gradient against a central finite
// difference of the forward function, element by element.
func checkGradient(
	t *testing.T,
	name string,
	param *tensor.RawTensor,
	analytic *tensor.RawTensor,
	forward func() float32,
) {
	t.Helper()

	const epsilon = 1e-3
	const tolerance = 1e-2

	data := param.AsFloat32()
	grad := analytic.AsFloat32()

	for i := range data {
		orig := data[i]

		data[i] = orig + epsilon
		plus := float64(forward())
		data[i] = orig - epsilon
		minus := float64(forward())
		data[i] = orig

		numeric := (plus - minus) / (2 * epsilon)
		if math.Abs(float64(grad[i])-numeric) > tolerance {
			t.Errorf("%s: gradient[%d] = %f, numeric estimate %f", name, i, grad[i], numeric)
		}
	}
}

// TestGradientCheck_LinearMSE verifies the full chain
// MatMul → Transpose → broadcast Add → MSE against finite differences.
func TestGradientCheck_LinearMSE(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{0.5, -1.0, 1.5, 2.0, -0.5, 1.0}, tensor.Shape{3, 2}, backend)
	w, _ := tensor.FromSlice([]float32{0.3, -0.2, 0.1, 0.4}, tensor.Shape{2, 2}, backend)
	b, _ := tensor.FromSlice([]float32{0.1, -0.1}, tensor.Shape{1, 2}, backend)
	y, _ := tensor.FromSlice([]float32{1, 0, 0, 1, 1, 1}, tensor.Shape{3, 2}, backend)

	forward := func() float32 {
		pred := backend.Add(backend.MatMul(x.Raw(), backend.Transpose(w.Raw(), 1, 0)), b.Raw())
		return backend.MSE(pred, y.Raw()).AsFloat32()[0]
	}

	backend.Tape().StartRecording()
	pred := backend.Add(backend.MatMul(x.Raw(), backend.Transpose(w.Raw(), 1, 0)), b.Raw())
	loss := backend.MSE(pred, y.Raw())
	backend.Tape().StopRecording()

	grads := backend.Backward(loss)
	backend.Tape().Clear()

	checkGradient(t, "weight", w.Raw(), grads[w.Raw()], forward)
	checkGradient(t, "bias", b.Raw(), grads[b.Raw()], forward)
	checkGradient(t, "input", x.Raw(), grads[x.Raw()], forward)
}

// TestGradientCheck_Activations verifies sigmoid and tanh chains.
func TestGradientCheck_Activations(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{-1.5, -0.3, 0.2, 0.9}, tensor.Shape{4, 1}, backend)
	y, _ := tensor.FromSlice([]float32{0, 1, 1, 0}, tensor.Shape{4, 1}, backend)

	forward := func() float32 {
		return backend.MSE(backend.Tanh(backend.Sigmoid(x.Raw())), y.Raw()).AsFloat32()[0]
	}

	backend.Tape().StartRecording()
	loss := backend.MSE(backend.Tanh(backend.Sigmoid(x.Raw())), y.Raw())
	backend.Tape().StopRecording()

	grads := backend.Backward(loss)
	backend.Tape().Clear()

	checkGradient(t, "x", x.Raw(), grads[x.Raw()], forward)
}

// TestGradientCheck_CrossEntropy verifies the fused loss against finite
// differences of the forward NLL.
func TestGradientCheck_CrossEntropy(t *testing.T) {
	backend := autodiff.New(cpu.New())

	logits, _ := tensor.FromSlice([]float32{0.2, -0.4, 0.9, 1.1, 0.0, -0.7}, tensor.Shape{2, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{2, 0}, tensor.Shape{2}, backend)

	forward := func() float32 {
		return backend.CrossEntropy(logits.Raw(), targets.Raw()).AsFloat32()[0]
	}

	backend.Tape().StartRecording()
	loss := backend.CrossEntropy(logits.Raw(), targets.Raw())
	backend.Tape().StopRecording()

	grads := backend.Backward(loss)
	backend.Tape().Clear()

	checkGradient(t, "logits", logits.Raw(), grads[logits.Raw()], forward)
}

// TestGradientCheck_Softmax verifies the softmax Jacobian product.
func TestGradientCheck_Softmax(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{0.5, -0.5, 1.0, 0.0, 0.3, -0.3}, tensor.Shape{2, 3}, backend)
	y, _ := tensor.FromSlice([]float32{1, 0, 0, 0, 1, 0}, tensor.Shape{2, 3}, backend)

	forward := func() float32 {
		return backend.MSE(backend.Softmax(x.Raw()), y.Raw()).AsFloat32()[0]
	}

	backend.Tape().StartRecording()
	loss := backend.MSE(backend.Softmax(x.Raw()), y.Raw())
	backend.Tape().StopRecording()

	grads := backend.Backward(loss)
	backend.Tape().Clear()

	checkGradient(t, "x", x.Raw(), grads[x.Raw()], forward)
}

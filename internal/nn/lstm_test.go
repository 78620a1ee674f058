package nn

import (
	"testing"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLSTMCellStep(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cell := NewLSTMCell(3, 4, backend)

	x, err := tensor.FromSlice([]float32{0.1, -0.2, 0.3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)
	h := tensor.Zeros[float32](tensor.Shape{1, 4}, backend)
	c := tensor.Zeros[float32](tensor.Shape{1, 4}, backend)

	hNext, cNext := cell.Step(x, h, c)
	require.True(t, hNext.Shape().Equal(tensor.Shape{1, 4}))
	require.True(t, cNext.Shape().Equal(tensor.Shape{1, 4}))

	// h' = o * tanh(c'), with o ∈ (0, 1), so |h'| < 1 everywhere.
	for i, v := range hNext.Data() {
		assert.Greater(t, v, float32(-1), "h[%d]", i)
		assert.Less(t, v, float32(1), "h[%d]", i)
	}
}

func TestLSTMCellParameterCount(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cell := NewLSTMCell(5, 7, backend)

	// Four gates, three parameters each.
	params := cell.Parameters()
	require.Len(t, params, 12)

	total := 0
	for _, p := range params {
		total += p.Tensor().NumElements()
	}
	// 4 * (7*5 + 7*7 + 7)
	assert.Equal(t, 4*(35+49+7), total)
}

func TestLSTMCellForgetBiasStartsAtOne(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cell := NewLSTMCell(2, 3, backend)

	for _, p := range cell.Parameters() {
		if p.Name() != "bf" {
			continue
		}
		for i, v := range p.Data() {
			assert.Equal(t, float32(1), v, "forget bias[%d]", i)
		}
		return
	}
	t.Fatal("forget gate bias not found")
}

func TestLSTMSequenceShapes(t *testing.T) {
	backend := autodiff.New(cpu.New())
	lstm := NewLSTM(3, 5, backend)

	input, err := tensor.FromSlice([]float32{
		0.1, 0.2, 0.3,
		-0.1, 0.0, 0.1,
		0.5, -0.5, 0.2,
		0.0, 0.1, -0.3,
	}, tensor.Shape{4, 3}, backend)
	require.NoError(t, err)

	output := lstm.Forward(input)
	assert.True(t, output.Shape().Equal(tensor.Shape{4, 5}),
		"expected one hidden state per timestep, got %v", output.Shape())
}

func TestLSTMGradientsFlowToAllParameters(t *testing.T) {
	backend := autodiff.New(cpu.New())
	lstm := NewLSTM(2, 3, backend)
	head := NewLinear(3, 2, backend)

	input, err := tensor.FromSlice([]float32{
		0.5, -0.5,
		0.1, 0.9,
		-0.3, 0.3,
	}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{0, 1, 0}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	hidden := lstm.Forward(input)
	logits := head.Forward(hidden)
	loss := backend.CrossEntropy(logits.Raw(), targets.Raw())
	backend.Tape().StopRecording()

	grads := backend.Backward(loss)
	backend.Tape().Clear()

	// Every gate weight and bias participates in each timestep, so all
	// twelve cell parameters must receive a gradient.
	for _, p := range lstm.Parameters() {
		grad, ok := grads[p.Raw()]
		require.True(t, ok, "no gradient for parameter %s", p.Name())
		require.True(t, grad.Shape().Equal(p.Tensor().Shape()),
			"gradient shape %v does not match parameter %s %v", grad.Shape(), p.Name(), p.Tensor().Shape())

		nonZero := false
		for _, v := range grad.AsFloat32() {
			if v != 0 {
				nonZero = true
				break
			}
		}
		assert.True(t, nonZero, "gradient for %s is identically zero", p.Name())
	}

	for _, p := range head.Parameters() {
		_, ok := grads[p.Raw()]
		assert.True(t, ok, "no gradient for head parameter %s", p.Name())
	}
}

func TestLSTMRejectsNonSequenceInput(t *testing.T) {
	backend := autodiff.New(cpu.New())
	lstm := NewLSTM(2, 3, backend)

	bad := tensor.Zeros[float32](tensor.Shape{2, 2, 2}, backend)
	assert.Panics(t, func() { lstm.Forward(bad) })
}

package train

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/tensor"
)

type adBackend = *autodiff.Backend[*cpu.Backend]

// identityModel passes its input through unchanged. Used with scripted
// losses to test the loop's control flow in isolation.
type identityModel struct{}

func (identityModel) Forward(input *tensor.Tensor[float32, adBackend]) *tensor.Tensor[float32, adBackend] {
	return input
}

func (identityModel) Parameters() []*nn.Parameter[adBackend] { return nil }

// fakeOptimizer tracks learning-rate changes without touching any
// parameters.
type fakeOptimizer struct {
	lr      float32
	lrTrace []float32
	steps   int
}

func newFakeOptimizer(lr float32) *fakeOptimizer {
	return &fakeOptimizer{lr: lr, lrTrace: []float32{lr}}
}

func (f *fakeOptimizer) Step(map[*tensor.RawTensor]*tensor.RawTensor) { f.steps++ }
func (f *fakeOptimizer) ZeroGrad()                                    {}
func (f *fakeOptimizer) GetLR() float32                               { return f.lr }
func (f *fakeOptimizer) SetLR(lr float32) {
	f.lr = lr
	f.lrTrace = append(f.lrTrace, lr)
}

// scriptedLoss returns a LossFunc that yields the given values in order,
// repeating the last one when the script runs out.
func scriptedLoss(t *testing.T, values []float32) LossFunc {
	t.Helper()
	i := 0
	return func(_, _ *tensor.RawTensor) *tensor.RawTensor {
		raw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
		require.NoError(t, err)
		raw.AsFloat32()[0] = values[i]
		if i < len(values)-1 {
			i++
		}
		return raw
	}
}

// rawFloat32 builds a RawTensor from values.
func rawFloat32(t *testing.T, values []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

func TestNewTrainerValidation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)

	_, err := NewTrainer(backend, opt, Config{Epochs: 0})
	assert.Error(t, err)

	_, err = NewTrainer(backend, opt, Config{Epochs: 5, BatchSize: -1})
	assert.Error(t, err)

	trainer, err := NewTrainer(backend, opt, Config{Epochs: 5})
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, trainer.config.BatchSize)
	assert.Equal(t, DefaultEarlyStopWindow, trainer.config.EarlyStopWindow)
	assert.Equal(t, float32(DefaultLRFloor), trainer.config.LRFloor)
	assert.Equal(t, float32(DefaultPlateauThreshold), trainer.config.PlateauThreshold)
}

func TestPlateaued(t *testing.T) {
	// Flat window: spread 0.025, relative to last loss 0.0025 < 0.005.
	flat := []float32{10.0, 10.02, 9.99, 10.01, 10.0, 9.995}
	assert.True(t, plateaued(flat, 6, 0.005))

	// Steadily improving window: spread 9.0 relative to 1.0 is huge.
	improving := []float32{10.0, 8.0, 6.0, 4.0, 2.0, 1.0}
	assert.False(t, plateaued(improving, 6, 0.005))

	// Too little history: never a plateau.
	assert.False(t, plateaued([]float32{10.0, 10.0}, 6, 0.005))

	// Only the trailing window counts: a flat tail after a steep drop
	// still plateaus.
	tail := []float32{100, 50, 5.0, 5.001, 5.002, 5.001}
	assert.True(t, plateaued(tail, 4, 0.005))
}

func TestFitHistoryLengthEqualsEpochs(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 10})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{4, 1})
	targets := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{4, 1})

	// Strictly improving losses: no plateau, no decay, no early stop.
	losses := scriptedLoss(t, []float32{100, 90, 80, 70, 60, 50, 40, 30, 20, 10})
	history, err := trainer.Fit(identityModel{}, inputs, targets, losses)
	require.NoError(t, err)

	assert.Len(t, history, 10)
	assert.Equal(t, float32(0.1), opt.GetLR(), "learning rate should be untouched")
	assert.Equal(t, 10, opt.steps, "one optimizer step per epoch at full-dataset batch size")
}

func TestFitRecordsLastBatchLoss(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 2, BatchSize: 2})
	require.NoError(t, err)

	// 4 samples at batch size 2: two batches per epoch. The history
	// must record the second batch's loss, never an average.
	inputs := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{4, 1})
	targets := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{4, 1})

	losses := scriptedLoss(t, []float32{5.0, 3.0, 4.0, 2.0})
	history, err := trainer.Fit(identityModel{}, inputs, targets, losses)
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, float32(3.0), history[0])
	assert.Equal(t, float32(2.0), history[1])
}

func TestFitPlateauHalvesLearningRate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 6, EarlyStopWindow: 6})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	losses := scriptedLoss(t, []float32{10.0, 10.02, 9.99, 10.01, 10.0, 9.995})
	_, err = trainer.Fit(identityModel{}, inputs, targets, losses)
	require.NoError(t, err)

	// The plateau check first fires after epoch 6 and must halve once.
	assert.InDelta(t, 0.05, opt.GetLR(), 1e-7)
}

func TestFitNoDecayWhileImproving(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 6, EarlyStopWindow: 6})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	losses := scriptedLoss(t, []float32{10.0, 8.0, 6.0, 4.0, 2.0, 1.0})
	_, err = trainer.Fit(identityModel{}, inputs, targets, losses)
	require.NoError(t, err)

	assert.Equal(t, float32(0.1), opt.GetLR())
}

func TestFitLearningRateNonIncreasing(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 30, EarlyStopWindow: 3})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	// Improvement, then a long plateau.
	losses := scriptedLoss(t, []float32{10, 8, 6, 4, 2, 1, 1, 1, 1, 1, 1, 1})
	_, err = trainer.Fit(identityModel{}, inputs, targets, losses)
	require.NoError(t, err)

	for i := 1; i < len(opt.lrTrace); i++ {
		assert.LessOrEqual(t, opt.lrTrace[i], opt.lrTrace[i-1],
			"learning rate increased at change %d: %v", i, opt.lrTrace)
	}
}

func TestFitStopsOnLearningRateUnderflow(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(1e-7)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 100, EarlyStopWindow: 1})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	// Window of 1 means every epoch plateaus (spread is always zero),
	// so the rate halves each epoch: 5e-8, 2.5e-8, 1.25e-8, 6.25e-9.
	losses := scriptedLoss(t, []float32{1.0})
	history, err := trainer.Fit(identityModel{}, inputs, targets, losses)
	require.NoError(t, err)

	assert.Len(t, history, 4, "training must stop once the rate underflows the floor")
	assert.Less(t, opt.GetLR(), float32(1e-8))
}

func TestFitDecayAppliesOnTerminatingEpoch(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(1.5e-8)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 10, EarlyStopWindow: 1})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	losses := scriptedLoss(t, []float32{1.0})
	history, err := trainer.Fit(identityModel{}, inputs, targets, losses)
	require.NoError(t, err)

	// The halving lands even though termination follows immediately.
	require.Len(t, history, 1)
	assert.InDelta(t, 0.75e-8, opt.GetLR(), 1e-12)
}

func TestFitNonFiniteLossAborts(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 10})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	losses := scriptedLoss(t, []float32{5.0, 4.0, float32(math.NaN())})
	history, err := trainer.Fit(identityModel{}, inputs, targets, losses)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite loss")

	// Two epochs completed before the divergence.
	assert.Len(t, history, 2)
}

func TestFitLengthMismatch(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 1})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2, 3}, tensor.Shape{3, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	_, err = trainer.Fit(identityModel{}, inputs, targets, scriptedLoss(t, []float32{1}))
	assert.Error(t, err)
}

func TestFitProgressReporting(t *testing.T) {
	backend := autodiff.New(cpu.New())
	opt := newFakeOptimizer(0.1)

	var buf bytes.Buffer
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 3, Progress: &buf})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})
	targets := rawFloat32(t, []float32{1, 2}, tensor.Shape{2, 1})

	_, err = trainer.Fit(identityModel{}, inputs, targets, scriptedLoss(t, []float32{3.0, 2.0, 1.0}))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "loss 3.000000")
	assert.Contains(t, lines[0], "lr 0.10000000")
	assert.Contains(t, lines[2], "epoch 3/3")
}

func TestFitLinearRegressionEndToEnd(t *testing.T) {
	backend := autodiff.New(cpu.New())

	// Fit y = 2x from a cold start at w = 0, b = 0.
	model := nn.NewLinear(1, 1, backend)
	copy(model.Weight().Data(), []float32{0})
	copy(model.Bias().Data(), []float32{0})

	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01})
	trainer, err := NewTrainer(backend, opt, Config{
		Epochs:          50,
		BatchSize:       4,
		EarlyStopWindow: 6,
	})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{4, 1})
	targets := rawFloat32(t, []float32{2, 4, 6, 8}, tensor.Shape{4, 1})

	history, err := trainer.Fit(model, inputs, targets, backend.MSE)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history), 6)

	// Loss strictly decreases over the early epochs.
	for i := 1; i < 6; i++ {
		assert.Less(t, history[i], history[i-1], "loss did not decrease at epoch %d", i)
	}

	// Final loss drops by at least two orders of magnitude.
	final := history[len(history)-1]
	assert.Less(t, final, history[0]/100,
		"final loss %f did not improve 100x over initial %f", final, history[0])

	// The fitted slope lands near 2.
	assert.InDelta(t, 2.0, model.Weight().Data()[0], 0.3)
}

func TestEvaluate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := nn.NewLinear(1, 1, backend)
	copy(model.Weight().Data(), []float32{2})
	copy(model.Bias().Data(), []float32{0})

	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01})
	trainer, err := NewTrainer(backend, opt, Config{Epochs: 1})
	require.NoError(t, err)

	inputs := rawFloat32(t, []float32{1, 2, 3}, tensor.Shape{3, 1})
	targets := rawFloat32(t, []float32{2, 4, 6}, tensor.Shape{3, 1})

	loss := trainer.Evaluate(model, inputs, targets, backend.MSE)
	assert.InDelta(t, 0.0, loss, 1e-6)
	assert.Zero(t, backend.Tape().NumOps(), "evaluation must not record operations")
}

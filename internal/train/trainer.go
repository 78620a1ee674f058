// Package train implements the adaptive training loop: mini-batch
// gradient descent with plateau-driven learning-rate decay and
// learning-rate-floor early termination.
//
// The loop presents contiguous mini-batches to a model, records the
// last batch's loss after each epoch, and halves the optimizer's
// learning rate whenever the recent loss history has flattened out.
// Training stops early once the rate underflows a fixed floor.
//
// Example:
//
//	trainer, err := train.NewTrainer(backend, optimizer, train.Config{
//	    Epochs:    100,
//	    BatchSize: 32,
//	})
//	history, err := trainer.Fit(model, inputs, targets, backend.MSE)
package train

import (
	"fmt"
	"io"
	"math"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Default hyperparameters for Config fields left at zero.
const (
	DefaultBatchSize       = 32
	DefaultEarlyStopWindow = 5

	// DefaultLRFloor is the learning rate below which training stops.
	DefaultLRFloor = 1e-8

	// DefaultPlateauThreshold is the relative loss spread below which
	// the learning rate is halved. Tuned against last-batch loss
	// noise, not epoch averages.
	DefaultPlateauThreshold = 0.005
)

// LossFunc maps predictions and targets to a scalar loss tensor. The
// returned tensor must come from a recorded operation so the backward
// pass can seed from it. The autodiff backend's MSE and CrossEntropy
// methods satisfy this signature.
type LossFunc func(predictions, targets *tensor.RawTensor) *tensor.RawTensor

// Config controls a training run.
type Config struct {
	// Epochs is the maximum number of passes over the data. Required.
	Epochs int

	// BatchSize is the number of samples per contiguous batch. The
	// last batch of an epoch may be shorter. Default: 32.
	BatchSize int

	// EarlyStopWindow is the number of trailing epoch losses the
	// plateau check inspects. Default: 5.
	EarlyStopWindow int

	// LRFloor stops training once the learning rate drops below it.
	// Default: 1e-8.
	LRFloor float32

	// PlateauThreshold halves the learning rate when the window's
	// loss spread, relative to the latest loss, falls below it.
	// Default: 0.005.
	PlateauThreshold float32

	// Progress receives one human-readable line per epoch. Nil
	// disables reporting; the format carries no compatibility
	// contract.
	Progress io.Writer
}

// Trainer runs the adaptive training loop against an autodiff backend.
// The trainer exclusively owns the model and optimizer for the duration
// of a Fit call; batches run strictly sequentially because every
// parameter update changes the next batch's forward pass.
type Trainer[B tensor.Backend] struct {
	backend   *autodiff.Backend[B]
	optimizer optim.Optimizer
	config    Config
}

// NewTrainer validates the configuration and creates a trainer.
func NewTrainer[B tensor.Backend](backend *autodiff.Backend[B], optimizer optim.Optimizer, config Config) (*Trainer[B], error) {
	if config.Epochs <= 0 {
		return nil, fmt.Errorf("train: epochs must be positive, got %d", config.Epochs)
	}
	if config.BatchSize < 0 {
		return nil, fmt.Errorf("train: batch size must not be negative, got %d", config.BatchSize)
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.EarlyStopWindow < 0 {
		return nil, fmt.Errorf("train: early-stop window must not be negative, got %d", config.EarlyStopWindow)
	}
	if config.EarlyStopWindow == 0 {
		config.EarlyStopWindow = DefaultEarlyStopWindow
	}
	if config.LRFloor == 0 {
		config.LRFloor = DefaultLRFloor
	}
	if config.PlateauThreshold == 0 {
		config.PlateauThreshold = DefaultPlateauThreshold
	}

	return &Trainer[B]{
		backend:   backend,
		optimizer: optimizer,
		config:    config,
	}, nil
}

// Fit trains the model on (inputs, targets) and returns the loss
// history, one entry per completed epoch.
//
// Inputs and targets are sliced into contiguous batches along their
// leading dimension; each epoch records the last batch's loss (never an
// epoch average). After each epoch the plateau rule may halve the
// learning rate, and training stops early once the rate drops below the
// floor. Early termination is normal: the returned history is simply
// shorter than Epochs.
//
// A non-finite loss aborts the run with an error; parameters already
// updated in the failing epoch stay mutated. Shape mismatches between
// batches and the model panic, propagated from the tensor layer.
func (t *Trainer[B]) Fit(
	model nn.Module[*autodiff.Backend[B]],
	inputs, targets *tensor.RawTensor,
	lossFn LossFunc,
) ([]float32, error) {
	n := inputs.Shape()[0]
	if m := targets.Shape()[0]; m != n {
		return nil, fmt.Errorf("train: %d inputs but %d targets", n, m)
	}

	bounds := Batches(n, t.config.BatchSize)
	tape := t.backend.Tape()
	history := make([]float32, 0, t.config.Epochs)

	for epoch := 0; epoch < t.config.Epochs; epoch++ {
		var lastLoss float32

		for _, b := range bounds {
			batchInputs := tensor.New[float32](inputs.SliceRows(b[0], b[1]), t.backend)
			batchTargets := targets.SliceRows(b[0], b[1])

			tape.Clear()
			tape.StartRecording()
			predictions := model.Forward(batchInputs)
			loss := lossFn(predictions.Raw(), batchTargets)
			tape.StopRecording()

			lastLoss = loss.AsFloat32()[0]
			if math.IsNaN(float64(lastLoss)) || math.IsInf(float64(lastLoss), 0) {
				tape.Clear()
				return history, fmt.Errorf("train: non-finite loss %v at epoch %d", lastLoss, epoch+1)
			}

			grads := t.backend.Backward(loss)
			tape.Clear()

			t.optimizer.ZeroGrad()
			t.optimizer.Step(grads)
		}

		history = append(history, lastLoss)

		if t.config.Progress != nil {
			fmt.Fprintf(t.config.Progress, "epoch %d/%d loss %.6f lr %.8f\n",
				epoch+1, t.config.Epochs, lastLoss, t.optimizer.GetLR())
		}

		// Decay is always evaluated before the termination check,
		// even on the epoch that ends up terminating.
		if plateaued(history, t.config.EarlyStopWindow, t.config.PlateauThreshold) {
			t.optimizer.SetLR(t.optimizer.GetLR() / 2)
		}
		if t.optimizer.GetLR() < t.config.LRFloor {
			break
		}
	}

	return history, nil
}

// Evaluate runs the model without gradient tracking and returns the
// scalar loss over the full (inputs, targets) set.
func (t *Trainer[B]) Evaluate(
	model nn.Module[*autodiff.Backend[B]],
	inputs, targets *tensor.RawTensor,
	lossFn LossFunc,
) float32 {
	tape := t.backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	predictions := model.Forward(tensor.New[float32](inputs, t.backend))
	return lossFn(predictions.Raw(), targets).AsFloat32()[0]
}

// plateaued reports whether the most recent window of losses has
// flattened: spread = max - min over the window, compared to the latest
// loss. Requires at least window entries.
func plateaued(history []float32, window int, threshold float32) bool {
	if len(history) < window {
		return false
	}

	recent := history[len(history)-window:]
	minLoss, maxLoss := recent[0], recent[0]
	for _, v := range recent[1:] {
		if v < minLoss {
			minLoss = v
		}
		if v > maxLoss {
			maxLoss = v
		}
	}

	last := history[len(history)-1]
	return (maxLoss-minLoss)/last < threshold
}

// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train implements the adaptive training loop.
//
// The loop presents contiguous mini-batches to a model in dataset
// order, records the last batch's loss after every epoch, halves the
// learning rate when the recent loss history flattens out, and stops
// early once the rate underflows a fixed floor.
//
// # Basic Usage
//
//	import (
//	    "github.com/kiln-ml/kiln/autodiff"
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	    "github.com/kiln-ml/kiln/optim"
//	    "github.com/kiln-ml/kiln/train"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := buildModel(backend)
//	    optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01})
//
//	    trainer, err := train.NewTrainer(backend, optimizer, train.Config{
//	        Epochs:    100,
//	        BatchSize: 32,
//	        Progress:  os.Stdout,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    history, err := trainer.Fit(model, inputs, targets, backend.MSE)
//	}
package train

import (
	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/tensor"
	"github.com/kiln-ml/kiln/internal/train"
)

// Config controls a training run.
type Config = train.Config

// LossFunc maps predictions and targets to a recorded scalar loss.
type LossFunc = train.LossFunc

// Trainer runs the adaptive training loop.
type Trainer[B tensor.Backend] = train.Trainer[B]

// Default hyperparameters for Config fields left at zero.
const (
	DefaultBatchSize        = train.DefaultBatchSize
	DefaultEarlyStopWindow  = train.DefaultEarlyStopWindow
	DefaultLRFloor          = train.DefaultLRFloor
	DefaultPlateauThreshold = train.DefaultPlateauThreshold
)

// NewTrainer validates the configuration and creates a trainer.
func NewTrainer[B tensor.Backend](backend *autodiff.Backend[B], optimizer optim.Optimizer, config Config) (*Trainer[B], error) {
	return train.NewTrainer(backend, optimizer, config)
}

// Batches partitions n samples into contiguous [start, end) ranges.
func Batches(n, batchSize int) [][2]int {
	return train.Batches(n, batchSize)
}

// Split partitions n samples into a training prefix and an evaluation
// suffix.
func Split(n int, trainFraction float64) (trainEnd, evalStart int) {
	return train.Split(n, trainFraction)
}

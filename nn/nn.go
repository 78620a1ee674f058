// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Module is the common interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a named, trainable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter wraps a tensor as a named trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear is a fully connected layer computing y = x @ Wᵀ + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier-initialized weights.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	layer := nn.NewLinear(784, 128, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// LSTMCell is a single long short-term memory step.
type LSTMCell[B tensor.Backend] = nn.LSTMCell[B]

// NewLSTMCell creates an LSTM cell with Xavier-initialized weights.
func NewLSTMCell[B tensor.Backend](inputSize, hiddenSize int, backend B) *LSTMCell[B] {
	return nn.NewLSTMCell(inputSize, hiddenSize, backend)
}

// LSTM runs an LSTMCell over a (seq, features) input.
type LSTM[B tensor.Backend] = nn.LSTM[B]

// NewLSTM creates a sequence LSTM.
//
// Example:
//
//	lstm := nn.NewLSTM(embedDim, hiddenDim, backend)
//	hidden := lstm.Forward(sequence) // (seq, hiddenDim)
func NewLSTM[B tensor.Backend](inputSize, hiddenSize int, backend B) *LSTM[B] {
	return nn.NewLSTM(inputSize, hiddenSize, backend)
}

// Sequential chains modules, feeding each module's output to the next.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a sequential container from the given modules.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(2, 16, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(16, 3, backend),
//	)
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Activations

// ReLU applies max(0, x) element-wise.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Sigmoid applies the logistic function element-wise.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Tanh applies the hyperbolic tangent element-wise.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Losses

// MSELoss computes mean((predictions - targets)²).
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates an MSE loss.
func NewMSELoss[B tensor.Backend]() *MSELoss[B] {
	return nn.NewMSELoss[B]()
}

// CrossEntropyLoss computes the fused softmax + NLL classification loss.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a cross-entropy loss.
func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss[B]()
}

// Metrics

// Accuracy returns the fraction of rows whose argmax matches the target.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float32 {
	return nn.Accuracy(logits, targets)
}

// Initialization

// XavierUniform fills t with Xavier-uniform random values.
func XavierUniform[B tensor.Backend](t *tensor.Tensor[float32, B], fanIn, fanOut int) {
	nn.XavierUniform(t, fanIn, fanOut)
}

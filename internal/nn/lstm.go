package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// LSTMCell is a single long short-term memory step.
//
// Each of the four gates has input weights Wx (hidden, input), recurrent
// weights Wh (hidden, hidden) and a bias (1, hidden):
//
//	i = σ(x @ Wxiᵀ + h @ Whiᵀ + bi)    input gate
//	f = σ(x @ Wxfᵀ + h @ Whfᵀ + bf)    forget gate
//	g = tanh(x @ Wxgᵀ + h @ Whgᵀ + bg) candidate state
//	o = σ(x @ Wxoᵀ + h @ Whoᵀ + bo)    output gate
//	c' = f*c + i*g
//	h' = o * tanh(c')
type LSTMCell[B tensor.Backend] struct {
	wxi, whi, bi *Parameter[B]
	wxf, whf, bf *Parameter[B]
	wxg, whg, bg *Parameter[B]
	wxo, who, bo *Parameter[B]

	inputSize  int
	hiddenSize int
	backend    B
}

// NewLSTMCell creates an LSTM cell with Xavier-initialized weights.
// The forget gate bias starts at 1 so early training does not wipe the
// cell state before the gates learn anything.
func NewLSTMCell[B tensor.Backend](inputSize, hiddenSize int, backend B) *LSTMCell[B] {
	if inputSize <= 0 || hiddenSize <= 0 {
		panic(fmt.Sprintf("lstm: sizes must be positive, got input=%d hidden=%d", inputSize, hiddenSize))
	}

	inputWeight := func(name string) *Parameter[B] {
		w := tensor.Zeros[float32](tensor.Shape{hiddenSize, inputSize}, backend)
		XavierUniform(w, inputSize, hiddenSize)
		return NewParameter(name, w)
	}
	hiddenWeight := func(name string) *Parameter[B] {
		w := tensor.Zeros[float32](tensor.Shape{hiddenSize, hiddenSize}, backend)
		XavierUniform(w, hiddenSize, hiddenSize)
		return NewParameter(name, w)
	}
	gateBias := func(name string, value float32) *Parameter[B] {
		b := tensor.Full[float32](tensor.Shape{1, hiddenSize}, value, backend)
		return NewParameter(name, b)
	}

	return &LSTMCell[B]{
		wxi: inputWeight("wxi"), whi: hiddenWeight("whi"), bi: gateBias("bi", 0),
		wxf: inputWeight("wxf"), whf: hiddenWeight("whf"), bf: gateBias("bf", 1),
		wxg: inputWeight("wxg"), whg: hiddenWeight("whg"), bg: gateBias("bg", 0),
		wxo: inputWeight("wxo"), who: hiddenWeight("who"), bo: gateBias("bo", 0),

		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		backend:    backend,
	}
}

// Step advances the cell by one timestep, returning the new hidden and
// cell states. Shapes: x (batch, input), h and c (batch, hidden).
func (l *LSTMCell[B]) Step(x, h, c *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	if shape := x.Shape(); len(shape) != 2 || shape[1] != l.inputSize {
		panic(fmt.Sprintf("lstm: expected input shape (batch, %d), got %v", l.inputSize, shape))
	}

	act := activations(l.backend)
	gate := func(wx, wh, b *Parameter[B], apply func(*tensor.RawTensor) *tensor.RawTensor) *tensor.Tensor[float32, B] {
		pre := x.MatMul(wx.Tensor().T()).Add(h.MatMul(wh.Tensor().T())).Add(b.Tensor())
		return tensor.New[float32](apply(pre.Raw()), l.backend)
	}

	i := gate(l.wxi, l.whi, l.bi, act.Sigmoid)
	f := gate(l.wxf, l.whf, l.bf, act.Sigmoid)
	g := gate(l.wxg, l.whg, l.bg, act.Tanh)
	o := gate(l.wxo, l.who, l.bo, act.Sigmoid)

	cNext := f.Mul(c).Add(i.Mul(g))
	hNext := o.Mul(tensor.New[float32](act.Tanh(cNext.Raw()), l.backend))
	return hNext, cNext
}

// HiddenSize returns the cell's hidden dimension.
func (l *LSTMCell[B]) HiddenSize() int { return l.hiddenSize }

// Parameters returns all twelve gate parameters.
func (l *LSTMCell[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{
		l.wxi, l.whi, l.bi,
		l.wxf, l.whf, l.bf,
		l.wxg, l.whg, l.bg,
		l.wxo, l.who, l.bo,
	}
}

// Concat backends stack tensors along the leading dimension with
// gradient tracking. Implemented by the autodiff decorator.
type concatBackend interface {
	Concat(inputs []*tensor.RawTensor) *tensor.RawTensor
}

// LSTM runs an LSTMCell over a sequence.
//
// The input is (seq, features): one timestep per row. Each row is fed
// through the cell with the carried hidden and cell state, and the
// per-step hidden states are stacked into a (seq, hidden) output.
type LSTM[B tensor.Backend] struct {
	cell    *LSTMCell[B]
	backend B
}

// NewLSTM creates a sequence LSTM.
func NewLSTM[B tensor.Backend](inputSize, hiddenSize int, backend B) *LSTM[B] {
	return &LSTM[B]{
		cell:    NewLSTMCell(inputSize, hiddenSize, backend),
		backend: backend,
	}
}

// Forward processes a (seq, features) input and returns the stacked
// hidden states, shape (seq, hidden).
func (l *LSTM[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("lstm: expected input shape (seq, features), got %v", shape))
	}
	seq := shape[0]

	h := tensor.Zeros[float32](tensor.Shape{1, l.cell.hiddenSize}, l.backend)
	c := tensor.Zeros[float32](tensor.Shape{1, l.cell.hiddenSize}, l.backend)

	outputs := make([]*tensor.RawTensor, seq)
	for t := 0; t < seq; t++ {
		x := input.SliceRows(t, t+1)
		h, c = l.cell.Step(x, h, c)
		outputs[t] = h.Raw()
	}

	if cb, ok := any(l.backend).(concatBackend); ok {
		return tensor.New[float32](cb.Concat(outputs), l.backend)
	}
	return tensor.New[float32](concatRows(outputs), l.backend)
}

// Cell returns the underlying LSTMCell.
func (l *LSTM[B]) Cell() *LSTMCell[B] { return l.cell }

// Parameters returns the cell's parameters.
func (l *LSTM[B]) Parameters() []*Parameter[B] {
	return l.cell.Parameters()
}

// concatRows stacks tensors along dim 0 without gradient tracking.
// Fallback for backends without a recorded Concat.
func concatRows(inputs []*tensor.RawTensor) *tensor.RawTensor {
	rows := 0
	for _, in := range inputs {
		rows += in.Shape()[0]
	}
	outShape := inputs[0].Shape().Clone()
	outShape[0] = rows

	out, err := tensor.NewRaw(outShape, inputs[0].DType(), inputs[0].Device())
	if err != nil {
		panic(err)
	}
	offset := 0
	for _, in := range inputs {
		n := len(in.Data())
		copy(out.Data()[offset:offset+n], in.Data())
		offset += n
	}
	return out
}

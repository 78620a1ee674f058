package tensor

// Backend is the interface compute backends implement. Backends own the
// arithmetic; the tensor types only carry data and metadata.
//
// Implementations:
//   - cpu.Backend: pure Go reference implementation
//   - autodiff.Backend: decorator that records operations for backprop
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) → (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Softmax normalizes along the last dimension of a 2D tensor.
	Softmax(x *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}

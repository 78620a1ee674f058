// Package cpu implements the pure-Go CPU compute backend.
package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Backend implements tensor operations on the CPU.
//
// Element-wise operations follow NumPy broadcasting rules and reuse the
// left operand's buffer in place when it is uniquely referenced and no
// broadcasting is required.
type Backend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{device: tensor.CPU}
}

// Name returns the backend name.
func (c *Backend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (c *Backend) Device() tensor.Device {
	return c.device
}

// Add performs element-wise addition with broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// binary dispatches an element-wise binary operation.
func (c *Backend) binary(
	name string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) *tensor.RawTensor {
	outShape, stretched, err := tensor.Broadcast(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	if !stretched && a.Shape().Equal(b.Shape()) {
		// Fast path: write into a when its buffer has no other owners.
		if a.IsUnique() {
			applySameShape(name, a, a, b, f32, f64)
			return a
		}
		result := mustNewRaw(name, outShape, a.DType(), c.device)
		applySameShape(name, result, a, b, f32, f64)
		return result
	}

	result := mustNewRaw(name, outShape, a.DType(), c.device)
	applyBroadcast(name, result, a, b, f32, f64)
	return result
}

// mustNewRaw allocates a RawTensor or panics with an op-prefixed message.
func mustNewRaw(op string, shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	return result
}

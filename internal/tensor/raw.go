package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device a tensor lives on.
type Device int

// Supported compute devices. Kiln ships a CPU backend; the Device
// abstraction keeps room for accelerator backends behind the same
// Backend interface.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// buffer is a reference-counted byte buffer shared between tensor views.
// Reference counting enables cheap Clone (copy-on-write) and lets backends
// reuse a uniquely-referenced buffer for in-place results.
type buffer struct {
	data     []byte
	refCount atomic.Int32
}

func newBuffer(size int) *buffer {
	b := &buffer{data: make([]byte, size)}
	b.refCount.Store(1)
	return b
}

func (b *buffer) addRef() {
	b.refCount.Add(1)
}

func (b *buffer) release() {
	if b.refCount.Add(-1) == 0 {
		b.data = nil
	}
}

func (b *buffer) isUnique() bool {
	return b.refCount.Load() == 1
}

// RawTensor is the untyped tensor representation shared by all backends.
// It pairs a reference-counted buffer with shape, stride and dtype metadata.
type RawTensor struct {
	buf    *buffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw allocates a zero-initialized RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		buf:    newBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.Strides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's row-major memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's element type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the device the tensor lives on.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Data returns the raw byte slice backing the tensor.
func (r *RawTensor) Data() []byte {
	return r.buf.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// Clone creates a shallow copy sharing the underlying buffer.
// The buffer is reference-counted; a clone only bumps the count.
func (r *RawTensor) Clone() *RawTensor {
	r.buf.addRef()
	return &RawTensor{
		buf:    r.buf,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Release decrements the buffer's reference count, freeing it at zero.
func (r *RawTensor) Release() {
	r.buf.release()
}

// IsUnique reports whether this tensor holds the only reference to its
// buffer. Backends may write results in place only when this is true.
func (r *RawTensor) IsUnique() bool {
	return r.buf.isUnique()
}

// Pin temporarily bumps the reference count so IsUnique reports false,
// blocking in-place reuse of the buffer. The returned func restores the
// count and must be deferred.
//
// The autodiff layer pins operands during the forward pass: an in-place
// result would overwrite values the backward pass still needs.
func (r *RawTensor) Pin() func() {
	r.buf.addRef()
	return func() { r.buf.release() }
}

// SliceRows copies rows [start, end) along the leading dimension into a
// fresh RawTensor. The result owns its memory; mutating it does not
// affect the source.
func (r *RawTensor) SliceRows(start, end int) *RawTensor {
	if len(r.shape) == 0 {
		panic("SliceRows: cannot slice a scalar tensor")
	}
	n := r.shape[0]
	if start < 0 || end > n || start >= end {
		panic(fmt.Sprintf("SliceRows: invalid range [%d:%d) for leading dimension %d", start, end, n))
	}

	outShape := r.shape.Clone()
	outShape[0] = end - start
	out, err := NewRaw(outShape, r.dtype, r.device)
	if err != nil {
		panic(err)
	}

	rowBytes := r.stride[0] * r.dtype.Size()
	copy(out.Data(), r.Data()[start*rowBytes:end*rowBytes])
	return out
}

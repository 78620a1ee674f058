package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Reshape returns a tensor with the same data and a new shape.
// The element count must be preserved.
func (c *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes %v -> %v", t.Shape(), newShape))
	}

	result := mustNewRaw("reshape", newShape, t.DType(), t.Device())
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor's dimensions. With no axes given, all
// dimensions are reversed (standard transpose for 2D).
func (c *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: %d axes for %dD tensor", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result := mustNewRaw("transpose", newShape, t.DType(), t.Device())

	// Element-wise gather: walk the output in order, map each coordinate
	// back through the permutation into the source.
	srcStrides := shape.Strides()
	dstStrides := newShape.Strides()
	elemSize := t.DType().Size()
	srcData := t.Data()
	dstData := result.Data()

	n := newShape.NumElements()
	for i := 0; i < n; i++ {
		rem := i
		src := 0
		for d := 0; d < ndim; d++ {
			coord := rem / dstStrides[d]
			rem %= dstStrides[d]
			src += coord * srcStrides[axes[d]]
		}
		copy(dstData[i*elemSize:(i+1)*elemSize], srcData[src*elemSize:(src+1)*elemSize])
	}

	return result
}

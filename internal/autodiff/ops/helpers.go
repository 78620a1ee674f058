package ops

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// reduceBroadcast reduces a gradient to the shape of the corresponding
// forward-pass input. When broadcasting stretched an input during the
// forward pass, the gradient must be summed back along the stretched
// dimensions:
//
//	forward:  a(3, 1) + b(3, 4) → c(3, 4)
//	backward: grad_c(3, 4) → grad_a(3, 1)  (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone on the matching-shape path so gradient accumulation never
	// aliases a tensor some other op still owns.
	if gradShape.Equal(target) {
		return grad.Clone()
	}

	// Sum away extra leading dimensions first.
	result := grad
	for len(result.Shape()) > len(target) {
		result = sumAlongDim(result, 0, false)
	}

	// Then collapse dimensions the input held at size 1.
	for d := 0; d < len(target); d++ {
		if target[d] == 1 && result.Shape()[d] > 1 {
			result = sumAlongDim(result, d, true)
		}
	}

	if !result.Shape().Equal(target) {
		result = backend.Reshape(result, target)
	}
	return result
}

// sumAlongDim sums a float tensor along one dimension.
// With keep set, the dimension is retained at size 1; otherwise dropped.
func sumAlongDim(t *tensor.RawTensor, dim int, keep bool) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDim: invalid dim %d for shape %v", dim, shape))
	}

	outShape := shape.Clone()
	if keep {
		outShape[dim] = 1
	} else {
		outShape = append(outShape[:dim], outShape[dim+1:]...)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDim: %v", err))
	}

	strides := shape.Strides()
	n := shape.NumElements()

	// Accumulate each source element into the output slot found by
	// dropping the summed coordinate.
	accumulate := func(flatToReduced func(int) int, add func(dst, src int)) {
		for i := 0; i < n; i++ {
			add(flatToReduced(i), i)
		}
	}
	flatToReduced := func(flat int) int {
		reduced := 0
		stride := 1
		rem := flat
		// Walk dims right to left, skipping the reduced one.
		for d := len(shape) - 1; d >= 0; d-- {
			coord := (rem / strides[d]) % shape[d]
			rem -= coord * strides[d]
			if d == dim {
				continue
			}
			reduced += coord * stride
			stride *= shape[d]
		}
		return reduced
	}

	switch t.DType() {
	case tensor.Float32:
		src, dst := t.AsFloat32(), result.AsFloat32()
		accumulate(flatToReduced, func(d, s int) { dst[d] += src[s] })
	case tensor.Float64:
		src, dst := t.AsFloat64(), result.AsFloat64()
		accumulate(flatToReduced, func(d, s int) { dst[d] += src[s] })
	default:
		panic(fmt.Sprintf("sumAlongDim: unsupported dtype %s", t.DType()))
	}

	return result
}

// negate returns a fresh tensor holding -t.
func negate(t *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("negate: %v", err))
	}
	switch t.DType() {
	case tensor.Float32:
		src, dst := t.AsFloat32(), result.AsFloat32()
		for i := range src {
			dst[i] = -src[i]
		}
	case tensor.Float64:
		src, dst := t.AsFloat64(), result.AsFloat64()
		for i := range src {
			dst[i] = -src[i]
		}
	default:
		panic(fmt.Sprintf("negate: unsupported dtype %s", t.DType()))
	}
	return result
}

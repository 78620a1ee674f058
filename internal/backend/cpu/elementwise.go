package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// applySameShape applies f element-wise when dst, a and b share a shape.
// dst may alias a for in-place updates.
func applySameShape(
	name string,
	dst, a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) {
	switch a.DType() {
	case tensor.Float32:
		d, x, y := dst.AsFloat32(), a.AsFloat32(), b.AsFloat32()
		for i := range d {
			d[i] = f32(x[i], y[i])
		}
	case tensor.Float64:
		d, x, y := dst.AsFloat64(), a.AsFloat64(), b.AsFloat64()
		for i := range d {
			d[i] = f64(x[i], y[i])
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
}

// applyBroadcast applies f element-wise with NumPy-style broadcasting.
// dst has the broadcast output shape; a and b are read through stretched
// strides (stride 0 along size-1 dimensions).
func applyBroadcast(
	name string,
	dst, a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) {
	outShape := dst.Shape()
	aStrides := stretchedStrides(a.Shape(), outShape)
	bStrides := stretchedStrides(b.Shape(), outShape)
	outStrides := outShape.Strides()
	n := outShape.NumElements()

	switch a.DType() {
	case tensor.Float32:
		d, x, y := dst.AsFloat32(), a.AsFloat32(), b.AsFloat32()
		for i := 0; i < n; i++ {
			ai, bi := sourceOffsets(i, outStrides, aStrides, bStrides)
			d[i] = f32(x[ai], y[bi])
		}
	case tensor.Float64:
		d, x, y := dst.AsFloat64(), a.AsFloat64(), b.AsFloat64()
		for i := 0; i < n; i++ {
			ai, bi := sourceOffsets(i, outStrides, aStrides, bStrides)
			d[i] = f64(x[ai], y[bi])
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
}

// stretchedStrides aligns shape to the broadcast output shape and returns
// per-dimension strides, with 0 along stretched (size-1 or missing) dims.
func stretchedStrides(shape, out tensor.Shape) []int {
	strides := shape.Strides()
	result := make([]int, len(out))
	offset := len(out) - len(shape)
	for i := range out {
		src := i - offset
		if src < 0 || shape[src] == 1 {
			result[i] = 0
		} else {
			result[i] = strides[src]
		}
	}
	return result
}

// sourceOffsets decomposes a flat output index into coordinates and maps
// it into the two stretched input buffers.
func sourceOffsets(flat int, outStrides, aStrides, bStrides []int) (int, int) {
	ai, bi := 0, 0
	rem := flat
	for d := range outStrides {
		coord := rem / outStrides[d]
		rem %= outStrides[d]
		ai += coord * aStrides[d]
		bi += coord * bStrides[d]
	}
	return ai, bi
}

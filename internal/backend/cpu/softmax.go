package cpu

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Softmax normalizes each row of a 2D tensor:
//
//	softmax(x)_i = exp(x_i - max(x)) / Σ_j exp(x_j - max(x))
//
// The max shift keeps exp from overflowing.
func (c *Backend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("softmax: expected 2D tensor, got %v", shape))
	}

	result := mustNewRaw("softmax", shape, x.DType(), x.Device())
	rows, cols := shape[0], shape[1]

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for r := 0; r < rows; r++ {
			softmaxRowFloat32(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for r := 0; r < rows; r++ {
			softmaxRowFloat64(dst[r*cols:(r+1)*cols], src[r*cols:(r+1)*cols])
		}
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}

	return result
}

func softmaxRowFloat32(dst, src []float32) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float32
	for i, v := range src {
		dst[i] = float32(math.Exp(float64(v - maxVal)))
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

func softmaxRowFloat64(dst, src []float64) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for i, v := range src {
		dst[i] = math.Exp(v - maxVal)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

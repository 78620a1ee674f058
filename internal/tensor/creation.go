package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err)
	}
	// Fresh buffers are already zeroed.
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 0.5, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Scalar creates a single-element tensor holding value.
// Handy for scaling recorded operations by a constant.
func Scalar[T DType, B Backend](value T, b B) *Tensor[T, B] {
	return Full[T, B](Shape{1}, value, b)
}

// Rand creates a float tensor with values uniformly distributed in [0, 1).
// Uses math/rand; reproducibility via rand.Seed matters more here than
// cryptographic quality.
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	fillRandom(t, func() float64 { return rand.Float64() }) //nolint:gosec // statistical use
	return t
}

// Randn creates a float tensor with values drawn from N(0, 1) using the
// Box-Muller transform.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	var spare float64
	haveSpare := false
	fillRandom(t, func() float64 {
		if haveSpare {
			haveSpare = false
			return spare
		}
		u1 := rand.Float64() //nolint:gosec // statistical use
		u2 := rand.Float64() //nolint:gosec // statistical use
		r := math.Sqrt(-2.0 * math.Log(u1))
		spare = r * math.Sin(2.0*math.Pi*u2)
		haveSpare = true
		return r * math.Cos(2.0*math.Pi*u2)
	})
	return t
}

// fillRandom populates a float tensor from a generator function.
func fillRandom[T DType, B Backend](t *Tensor[T, B], next func() float64) {
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := range data {
			data[i] = float32(next())
		}
	case []float64:
		for i := range data {
			data[i] = next()
		}
	default:
		panic("random initialization only supports float32 and float64")
	}
}

// Arange creates a 1D tensor with values start, start+1, ..., end-1.
func Arange[T DType, B Backend](start, end int, b B) *Tensor[T, B] {
	if end <= start {
		panic("Arange: end must be greater than start")
	}
	t := Zeros[T, B](Shape{end - start}, b)
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := range data {
			data[i] = float32(start + i)
		}
	case []float64:
		for i := range data {
			data[i] = float64(start + i)
		}
	case []int32:
		for i := range data {
			data[i] = int32(start + i)
		}
	}
	return t
}

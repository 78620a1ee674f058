package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements described by the shape.
// A zero-length shape describes a scalar, which holds one element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Strides computes row-major strides for the shape.
// stride[i] is the product of all dimensions after i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Broadcast applies NumPy-style broadcasting rules to two shapes.
//
// Dimensions are compared right to left; a pair is compatible when the
// sizes match or one of them is 1. Missing leading dimensions count as 1.
//
// Returns the broadcast result shape, whether any stretching is needed,
// and an error for incompatible shapes:
//
//	(3, 1) + (3, 5) → (3, 5), true, nil
//	(4, 5) + (5)    → (4, 5), true, nil
//	(3, 4) + (3, 5) → nil, false, error
func Broadcast(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	result := make(Shape, n)
	stretched := false

	for i := 0; i < n; i++ {
		da, db := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			da = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			db = b[idx]
		}

		switch {
		case da == db:
			result[n-1-i] = da
		case da == 1:
			result[n-1-i] = db
			stretched = true
		case db == 1:
			result[n-1-i] = da
			stretched = true
		default:
			return nil, false, fmt.Errorf("shapes not broadcastable: %v vs %v (dim %d: %d vs %d)",
				a, b, n-1-i, da, db)
		}
	}

	return result, stretched, nil
}

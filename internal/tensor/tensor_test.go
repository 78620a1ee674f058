package tensor

import "testing"

// mockBackend implements just enough of Backend for tensor-level tests.
// Real arithmetic is covered by the cpu backend's own tests.
type mockBackend struct{}

func newMockBackend() *mockBackend { return &mockBackend{} }

func (m *mockBackend) Add(a, b *RawTensor) *RawTensor {
	out, err := NewRaw(a.Shape(), a.DType(), CPU)
	if err != nil {
		panic(err)
	}
	av, bv, ov := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()
	for i := range ov {
		ov[i] = av[i] + bv[i]
	}
	return out
}

func (m *mockBackend) Sub(a, b *RawTensor) *RawTensor          { panic("mock: Sub") }
func (m *mockBackend) Mul(a, b *RawTensor) *RawTensor          { panic("mock: Mul") }
func (m *mockBackend) Div(a, b *RawTensor) *RawTensor          { panic("mock: Div") }
func (m *mockBackend) MatMul(a, b *RawTensor) *RawTensor       { panic("mock: MatMul") }
func (m *mockBackend) Reshape(t *RawTensor, s Shape) *RawTensor { panic("mock: Reshape") }
func (m *mockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	panic("mock: Transpose")
}
func (m *mockBackend) Softmax(x *RawTensor) *RawTensor { panic("mock: Softmax") }
func (m *mockBackend) Name() string                    { return "Mock" }
func (m *mockBackend) Device() Device                  { return CPU }

func TestFromSlice(t *testing.T) {
	backend := newMockBackend()

	a, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if !a.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", a.Shape())
	}
	if a.DType() != Float32 {
		t.Errorf("DType() = %s, want float32", a.DType())
	}
	if got := a.At(1, 2); got != 6 {
		t.Errorf("At(1, 2) = %f, want 6", got)
	}
}

func TestFromSliceSizeMismatch(t *testing.T) {
	backend := newMockBackend()
	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, backend); err == nil {
		t.Error("FromSlice should reject mismatched data length")
	}
}

func TestAtSet(t *testing.T) {
	backend := newMockBackend()
	a := Zeros[float32](Shape{2, 2}, backend)

	a.Set(7, 0, 1)
	if got := a.At(0, 1); got != 7 {
		t.Errorf("At(0, 1) = %f, want 7", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("At with out-of-bounds index should panic")
		}
	}()
	a.At(2, 0)
}

func TestItem(t *testing.T) {
	backend := newMockBackend()
	s := Scalar[float32](3.5, backend)
	if got := s.Item(); got != 3.5 {
		t.Errorf("Item() = %f, want 3.5", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("Item on a multi-element tensor should panic")
		}
	}()
	Zeros[float32](Shape{2}, backend).Item()
}

func TestCreation(t *testing.T) {
	backend := newMockBackend()

	ones := Ones[float32](Shape{3}, backend)
	for i, v := range ones.Data() {
		if v != 1 {
			t.Errorf("Ones[%d] = %f, want 1", i, v)
		}
	}

	full := Full[float32](Shape{2, 2}, 0.5, backend)
	for i, v := range full.Data() {
		if v != 0.5 {
			t.Errorf("Full[%d] = %f, want 0.5", i, v)
		}
	}

	ar := Arange[int32](2, 6, backend)
	want := []int32{2, 3, 4, 5}
	for i, v := range ar.Data() {
		if v != want[i] {
			t.Errorf("Arange[%d] = %d, want %d", i, v, want[i])
		}
	}
}

func TestRandnRange(t *testing.T) {
	backend := newMockBackend()
	r := Randn[float32](Shape{1000}, backend)

	// Loose sanity bound: standard normal samples this far out are
	// effectively impossible at n=1000.
	for i, v := range r.Data() {
		if v < -10 || v > 10 {
			t.Fatalf("Randn[%d] = %f, outside sane range", i, v)
		}
	}
}

func TestDetach(t *testing.T) {
	backend := newMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	d := a.Detach()
	if !d.Shape().Equal(a.Shape()) {
		t.Errorf("Detach shape = %v, want %v", d.Shape(), a.Shape())
	}
	for i, v := range d.Data() {
		if v != a.Data()[i] {
			t.Errorf("Detach[%d] = %f, want %f", i, v, a.Data()[i])
		}
	}

	// The copy owns a fresh buffer: writes do not cross over, and it
	// stays uniquely referenced regardless of the source's refcount.
	d.Set(99, 0, 0)
	if got := a.At(0, 0); got != 1 {
		t.Errorf("source mutated through detached copy: At(0,0) = %f", got)
	}

	clone := a.Clone()
	_ = clone
	if a.Raw().IsUnique() {
		t.Fatal("expected the clone to share the source buffer")
	}
	if !a.Detach().Raw().IsUnique() {
		t.Error("detached tensor should own its buffer uniquely")
	}
}

func TestTensorAdd(t *testing.T) {
	backend := newMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	b, _ := FromSlice([]float32{10, 20, 30, 40}, Shape{2, 2}, backend)

	c := a.Add(b)
	want := []float32{11, 22, 33, 44}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("Add[%d] = %f, want %f", i, v, want[i])
		}
	}
}

package tensor

import "testing"

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	if !raw.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements() = %d, want 6", raw.NumElements())
	}
	if len(raw.Data()) != 6*Float32.Size() {
		t.Errorf("len(Data()) = %d, want %d", len(raw.Data()), 6*Float32.Size())
	}

	// Fresh buffers are zeroed.
	for i, v := range raw.AsFloat32() {
		if v != 0 {
			t.Errorf("element %d = %f, want 0", i, v)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, 0}, Float32, CPU); err == nil {
		t.Error("NewRaw should reject zero dimension")
	}
}

func TestRawTensorWrongDTypeAccess(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	defer func() {
		if recover() == nil {
			t.Error("AsInt32 on a float32 tensor should panic")
		}
	}()
	raw.AsInt32()
}

func TestCloneSharesBuffer(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	raw.AsFloat32()[0] = 42

	clone := raw.Clone()
	if clone.AsFloat32()[0] != 42 {
		t.Error("clone should see the original's data")
	}
	if raw.IsUnique() {
		t.Error("original should not be unique after Clone")
	}

	clone.Release()
	if !raw.IsUnique() {
		t.Error("original should be unique again after clone Release")
	}
}

func TestPinBlocksInPlaceReuse(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	if !raw.IsUnique() {
		t.Fatal("fresh tensor should be unique")
	}

	unpin := raw.Pin()
	if raw.IsUnique() {
		t.Error("pinned tensor must not report unique")
	}
	unpin()
	if !raw.IsUnique() {
		t.Error("unpinned tensor should be unique again")
	}
}

func TestSliceRows(t *testing.T) {
	raw, _ := NewRaw(Shape{4, 2}, Float32, CPU)
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(i)
	}

	slice := raw.SliceRows(1, 3)
	if !slice.Shape().Equal(Shape{2, 2}) {
		t.Fatalf("SliceRows shape = %v, want [2 2]", slice.Shape())
	}
	want := []float32{2, 3, 4, 5}
	for i, v := range slice.AsFloat32() {
		if v != want[i] {
			t.Errorf("slice[%d] = %f, want %f", i, v, want[i])
		}
	}

	// The slice owns its memory.
	slice.AsFloat32()[0] = -1
	if raw.AsFloat32()[2] != 2 {
		t.Error("mutating the slice must not affect the source")
	}
}

func TestSliceRowsInvalidRange(t *testing.T) {
	raw, _ := NewRaw(Shape{4, 2}, Float32, CPU)
	defer func() {
		if recover() == nil {
			t.Error("SliceRows with end > rows should panic")
		}
	}()
	raw.SliceRows(2, 5)
}

package tensor_test

import (
	"testing"

	"github.com/snac-ml/snacx/tensor"
)

func TestFacadeConstructors(t *testing.T) {
	x, err := tensor.FromInt32(tensor.Shape{2, 3}, []int32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if !x.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("shape = %v", x.Shape())
	}
	if x.DType() != tensor.Int32 {
		t.Fatalf("dtype = %v", x.DType())
	}

	full, err := tensor.FullRaw(tensor.Shape{4}, 1.5, tensor.Float32)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range full.AsFloat32() {
		if v != 1.5 {
			t.Fatalf("element %d = %v", i, v)
		}
	}
}

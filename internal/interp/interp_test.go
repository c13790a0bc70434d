package interp

import "testing"

func TestHermite4IdentityOnLinearRamp(t *testing.T) {
	xm1, x0, x1, x2 := -1.0, 0.0, 1.0, 2.0
	for _, tc := range []struct {
		t float64
		w float64
	}{
		{t: 0.0, w: 0.0},
		{t: 0.25, w: 0.25},
		{t: 0.5, w: 0.5},
		{t: 1.0, w: 1.0},
	} {
		got := Hermite4(tc.t, xm1, x0, x1, x2)
		if diff := got - tc.w; diff < -1e-12 || diff > 1e-12 {
			t.Fatalf("t=%v: got %v want %v", tc.t, got, tc.w)
		}
	}
}

func TestAt(t *testing.T) {
	s := []float64{2, 4, 8, 16}

	if got := At(s, 0.25, Linear); got != 2.5 {
		t.Fatalf("linear got %v want 2.5", got)
	}
	if got := At(s, -3, Linear); got != 2 {
		t.Fatalf("left edge got %v want 2", got)
	}
	if got := At(s, 7, Cubic); got != 16 {
		t.Fatalf("right edge got %v want 16", got)
	}
	if got := At(s, 2, Cubic); got != 8 {
		t.Fatalf("cubic at knot got %v want 8", got)
	}

	ramp := []float64{0, 1, 2, 3, 4}
	for _, x := range []float64{1.5, 2.25, 2.9} {
		if got := At(ramp, x, Cubic); got-x > 1e-12 || x-got > 1e-12 {
			t.Fatalf("cubic ramp at %v got %v", x, got)
		}
	}
}

func TestZoom(t *testing.T) {
	src := []float64{0, 3, 6}
	dst := make([]float64, 7)
	Zoom(dst, src, Linear)

	want := []float64{0, 1, 2, 3, 4, 5, 6}
	for i := range want {
		if d := dst[i] - want[i]; d > 1e-12 || d < -1e-12 {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestZoomDegenerate(t *testing.T) {
	dst := []float64{9, 9}
	Zoom(dst, nil, Linear)
	if dst[0] != 0 || dst[1] != 0 {
		t.Fatalf("empty source should clear dst, got %v", dst)
	}

	one := make([]float64, 1)
	Zoom(one, []float64{5, 7}, Cubic)
	if one[0] != 5 {
		t.Fatalf("single output got %v want 5", one[0])
	}
}

func TestOrder(t *testing.T) {
	if !Linear.Valid() || !Cubic.Valid() || Order(2).Valid() {
		t.Fatal("unexpected Valid result")
	}
	if Cubic.String() != "cubic" || Order(5).String() != "Order(5)" {
		t.Fatal("unexpected String result")
	}
}

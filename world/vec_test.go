package world

import (
	"math"
	"testing"
)

func TestVecBasics(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -2, 1}

	if got := a.Add(b); got != (Vec3{5, 0, 4}) {
		t.Errorf("Add = %+v", got)
	}
	if got := a.Sub(b); got != (Vec3{-3, 4, 2}) {
		t.Errorf("Sub = %+v", got)
	}
	if got := a.Scale(2); got != (Vec3{2, 4, 6}) {
		t.Errorf("Scale = %+v", got)
	}
	if got := (Vec3{3, 4, 0}).Length(); got != 5 {
		t.Errorf("Length = %v, want 5", got)
	}
	if got := (Vec3{0, 3, 0}).DistanceTo(Vec3{4, 0, 0}); got != 5 {
		t.Errorf("DistanceTo = %v, want 5", got)
	}
}

func TestNormalized(t *testing.T) {
	if got := (Vec3{10, 0, 0}).Normalized(); got != (Vec3{1, 0, 0}) {
		t.Errorf("Normalized = %+v", got)
	}
	if got := (Vec3{}).Normalized(); got != (Vec3{}) {
		t.Errorf("zero Normalized = %+v, want zero", got)
	}
}

func TestLateral(t *testing.T) {
	v := Vec3{1, 0, 0}
	lat := v.Lateral()

	if math.Abs(lat.Length()-1) > 1e-9 {
		t.Errorf("lateral length = %v, want 1", lat.Length())
	}
	if dot := v.X*lat.X + v.Y*lat.Y + v.Z*lat.Z; math.Abs(dot) > 1e-9 {
		t.Errorf("lateral not perpendicular, dot = %v", dot)
	}

	// Near-vertical input falls back to a fixed axis.
	if got := (Vec3{0, 1, 0}).Lateral(); got != (Vec3{1, 0, 0}) {
		t.Errorf("vertical lateral = %+v, want X axis", got)
	}
}

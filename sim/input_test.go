package sim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestInputSamplerLatchesDash(t *testing.T) {
	var s InputSampler
	s.Sample(0, 0, true, 0)
	s.Sample(0, 1, false, 45)

	in := s.Capture(7)
	if !in.Dash {
		t.Fatalf("dash press between ticks was lost")
	}
	if in.Tick != 7 || in.ReferenceYaw != 45 {
		t.Fatalf("unexpected sample %+v", in)
	}
	if next := s.Capture(8); next.Dash {
		t.Fatalf("dash flag not cleared after capture")
	}
}

func TestInputSamplerNormalizes(t *testing.T) {
	var s InputSampler
	s.Sample(1, 1, false, 0)
	in := s.Capture(0)
	if l := in.Movement.Len(); math.Abs(l-1) > 1e-12 {
		t.Fatalf("movement length = %v", l)
	}
	if got := NormalizeMovement(mgl64.Vec3{1e-7, 0, 0}); got != (mgl64.Vec3{}) {
		t.Fatalf("tiny input should normalize to zero, got %v", got)
	}
}

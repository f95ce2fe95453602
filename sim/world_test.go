package sim

import (
	"math"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

func TestColliderBlockedBySide(t *testing.T) {
	cfg := DefaultConfig()
	w := flatWorld(cube.Box(2, 0, -5, 3, 3, 5))
	c := w.NewCollider(mgl64.Vec3{}, cfg)

	flags := c.Move(mgl64.Vec3{5, 0, 0})
	if !flags.Sides() {
		t.Fatalf("expected side collision, flags=%b", flags)
	}
	if x := c.Position()[0]; math.Abs(x-(2-cfg.ActorRadius)) > 1e-9 {
		t.Fatalf("x = %v", x)
	}

	if flags := c.Move(mgl64.Vec3{0, 0, 1}); flags != 0 {
		t.Fatalf("sliding along the wall collided: %b", flags)
	}
}

func TestColliderLandsOnFloor(t *testing.T) {
	w := flatWorld()
	c := w.NewCollider(mgl64.Vec3{0, 1, 0}, DefaultConfig())

	if !c.Move(mgl64.Vec3{0, -5, 0}).Below() {
		t.Fatalf("expected floor collision")
	}
	if c.Position()[1] != 0 {
		t.Fatalf("y = %v, want 0", c.Position()[1])
	}
}

func TestProbeGroundWithinStepReach(t *testing.T) {
	w := flatWorld()
	cases := []struct {
		y    float64
		want bool
	}{
		{0, true},
		{0.2, true},
		{0.5, false},
	}
	for _, tc := range cases {
		if got := w.ProbeGround(mgl64.Vec3{0, tc.y, 0}, 0.5, 0.3); got != tc.want {
			t.Errorf("probe at y=%v = %v, want %v", tc.y, got, tc.want)
		}
	}
	if w.ProbeGround(mgl64.Vec3{200, 0, 0}, 0.5, 0.3) {
		t.Fatalf("probe beyond the floor edge reported support")
	}
}

func TestSpawnRotates(t *testing.T) {
	w := DefaultWorld()
	if w.Spawn(0) != w.Spawn(len(w.spawns)) {
		t.Fatalf("spawn index should wrap")
	}
	if (&World{}).Spawn(3) != (mgl64.Vec3{}) {
		t.Fatalf("empty world should spawn at origin")
	}
}

func TestCollidersTouchWithinReach(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWorld(nil, nil)
	a := w.NewCollider(mgl64.Vec3{0, 0, 0}, cfg)
	b := w.NewCollider(mgl64.Vec3{1.05, 0, 0}, cfg)
	if a.Touches(b, 0) {
		t.Fatalf("boxes 0.05 apart must not touch without reach")
	}
	if !a.Touches(b, 0.1) || !b.Touches(a, 0.1) {
		t.Fatalf("boxes 0.05 apart must touch with reach 0.1")
	}
}

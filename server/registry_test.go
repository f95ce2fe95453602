package server

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

type joinCounter struct {
	NopCollaborator
	joins int
}

func (c *joinCounter) OnJoin(ActorID, mgl64.Vec3) { c.joins++ }

func TestRegistryDeregister(t *testing.T) {
	reg := NewRegistry()
	a, b := &joinCounter{}, &joinCounter{}
	deregA := reg.Register(a)
	reg.Register(b)

	reg.joined("alice", mgl64.Vec3{})
	deregA()
	deregA()
	reg.joined("bob", mgl64.Vec3{})

	if a.joins != 1 || b.joins != 2 {
		t.Fatalf("a=%d b=%d", a.joins, b.joins)
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d", reg.Len())
	}
}

type selfRemoving struct {
	NopCollaborator
	deregister func()
	calls      int
}

func (c *selfRemoving) OnLeave(ActorID) {
	c.calls++
	c.deregister()
}

func TestRegistryCallbackMayDeregister(t *testing.T) {
	reg := NewRegistry()
	c := &selfRemoving{}
	c.deregister = reg.Register(c)

	reg.left("alice")
	reg.left("bob")
	if c.calls != 1 || reg.Len() != 0 {
		t.Fatalf("calls=%d len=%d", c.calls, reg.Len())
	}
}

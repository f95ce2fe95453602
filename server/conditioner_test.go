package server

import (
	"errors"
	"testing"
	"time"
)

func TestLinkSettingsValidate(t *testing.T) {
	cases := []struct {
		name string
		s    LinkSettings
		ok   bool
	}{
		{"zero", LinkSettings{}, true},
		{"range", LinkSettings{DelayMinMs: 20, DelayMaxMs: 80, DropProb: 0.1}, true},
		{"negative delay", LinkSettings{DelayMinMs: -1}, false},
		{"inverted range", LinkSettings{DelayMinMs: 50, DelayMaxMs: 10}, false},
		{"drop above one", LinkSettings{DropProb: 1.5}, false},
	}
	for _, c := range cases {
		err := c.s.Validate()
		if c.ok != (err == nil) {
			t.Errorf("%s: err = %v", c.name, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidLink) {
			t.Errorf("%s: err = %v, want ErrInvalidLink", c.name, err)
		}
	}
}

func TestLinkConditionerDropsAndDelays(t *testing.T) {
	var l LinkConditioner
	ran := false
	if !l.Deliver(func() { ran = true }) || !ran {
		t.Fatalf("default link must deliver synchronously")
	}

	_ = l.Update(LinkSettings{DropProb: 1})
	if l.Deliver(func() { t.Error("dropped input delivered") }) {
		t.Fatalf("drop probability 1 delivered")
	}

	_ = l.Update(LinkSettings{DelayMinMs: 20, DelayMaxMs: 20})
	done := make(chan time.Time, 1)
	start := time.Now()
	l.Deliver(func() { done <- time.Now() })
	select {
	case at := <-done:
		if at.Sub(start) < 20*time.Millisecond {
			t.Fatalf("delivered after %v", at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("delayed input never delivered")
	}
}

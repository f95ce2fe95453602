package server

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dasharena/sim"
)

func TestRoomCreatedLogsTickRate(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() { Log = prev })

	cfg, err := sim.DefaultConfig().Normalize()
	if err != nil {
		t.Fatal(err)
	}
	cfg.TickRate = 60.5
	rm := NewRoomManager(cfg, sim.DefaultWorld(), "json")
	defer rm.Close()
	rm.GetOrCreateRoom("fractional")

	created := logs.FilterMessageSnippet("room created").All()
	if len(created) != 1 {
		t.Fatalf("room created logged %d times", len(created))
	}
	if msg := created[0].Message; !strings.Contains(msg, "tickRate=60.5") || strings.Contains(msg, "%!") {
		t.Fatalf("log message = %q", msg)
	}
}

package client

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"

	"dasharena/sim"
)

func testWorld() *sim.World {
	return sim.NewWorld([]cube.BBox{cube.Box(-100, -1, -100, 100, 0, 100)}, nil)
}

func testConfig(t *testing.T) sim.Config {
	t.Helper()
	cfg, err := sim.DefaultConfig().Normalize()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// scriptedInput 确定性的输入脚本：走一段圆弧，每 40 个 Tick 冲刺一次
func scriptedInput(tick uint32) (h, v float64, dash bool, yaw float64) {
	h, v = 0, 1
	if tick%20 < 10 {
		h = 1
	}
	return h, v, tick%40 == 5, float64(tick % 360)
}

func step(p *Predictor) {
	h, v, dash, yaw := scriptedInput(p.Tick())
	p.Sample(h, v, dash, yaw)
	p.Update(p.clock.Length())
}

func TestPredictionMatchesAuthority(t *testing.T) {
	cfg, w := testConfig(t), testWorld()
	server := sim.NewBody(cfg, w.NewCollider(mgl64.Vec3{}, cfg))

	var p *Predictor
	p = NewPredictor(cfg, w, mgl64.Vec3{}, WithSender(func(in sim.InputSample) {
		p.OnTargetState(server.Step(in))
	}))
	for i := 0; i < 200; i++ {
		step(p)
	}

	st := p.Stats()
	if st.Corrections != 0 {
		t.Fatalf("identical simulation produced %d corrections", st.Corrections)
	}
	if st.Accepted == 0 {
		t.Fatalf("no snapshot was compared")
	}
	if p.Position() != server.Position() {
		t.Fatalf("client %v != server %v", p.Position(), server.Position())
	}
}

type frame struct {
	state sim.StateSnapshot
	body  sim.BodyState
	in    sim.InputSample
}

func dump(t *testing.T, p *Predictor, from, to uint32) []frame {
	t.Helper()
	var out []frame
	for tick := from; tick < to; tick++ {
		s, ok := p.History().State(tick)
		if !ok {
			t.Fatalf("tick %d missing from history", tick)
		}
		b, _ := p.History().Body(tick)
		in, _ := p.History().Input(tick)
		out = append(out, frame{s, b, in})
	}
	return out
}

func TestReconcileIdempotent(t *testing.T) {
	cfg, w := testConfig(t), testWorld()
	p := NewPredictor(cfg, w, mgl64.Vec3{})
	for i := 0; i < 110; i++ {
		step(p)
	}

	predicted, _ := p.History().State(100)
	server := sim.StateSnapshot{Tick: 100, Position: predicted.Position.Add(mgl64.Vec3{0.5, 0, 0.25})}

	if !p.Reconcile(server, p.Tick()) {
		t.Fatalf("expected a correction")
	}
	first := dump(t, p, 90, p.Tick())
	pos := p.Position()

	if p.Reconcile(server, p.Tick()) {
		t.Fatalf("second reconcile against the same snapshot corrected again")
	}
	second := dump(t, p, 90, p.Tick())
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("buffer changed at tick %d: %+v vs %+v", 90+i, first[i], second[i])
		}
	}
	if p.Position() != pos {
		t.Fatalf("position changed on duplicate reconcile")
	}
	if got, _ := p.History().State(100); got != server {
		t.Fatalf("slot 100 = %v, want authoritative %v", got, server)
	}
	if p.Stats().Duplicates != 1 {
		t.Fatalf("stats = %+v", p.Stats())
	}
}

// 端到端：服务端从偏移的位置开始模拟，快照往返约 100ms（5 个 Tick）后到达，
// 客户端在 Tick 106 开始时校正到 Tick 100 的权威位置并重放 101..105。
func TestDelayedCorrectionReplaysDeterministically(t *testing.T) {
	run := func() (*Predictor, *sim.Body) {
		cfg, w := testConfig(t), testWorld()
		server := sim.NewBody(cfg, w.NewCollider(mgl64.Vec3{0.5, 0, 0}, cfg))
		snapshots := map[uint32]sim.StateSnapshot{}

		p := NewPredictor(cfg, w, mgl64.Vec3{}, WithSender(func(in sim.InputSample) {
			snapshots[in.Tick] = server.Step(in)
		}))
		for p.Tick() < 106 {
			step(p)
		}

		a, _ := p.History().State(100)
		b := snapshots[100]
		if b.Position.Sub(a.Position).Len() <= Epsilon {
			t.Fatalf("scenario needs divergence at tick 100: A=%v B=%v", a.Position, b.Position)
		}
		p.OnTargetState(b)
		step(p)

		if got, _ := p.History().State(100); got != b {
			t.Fatalf("slot 100 = %v, want %v", got, b)
		}
		// 继续运行到 Tick 85 开始的冲刺结束之后
		for p.Tick() < 140 {
			step(p)
		}
		return p, server
	}

	p1, server := run()
	p2, _ := run()

	if p1.Stats().Corrections != 1 {
		t.Fatalf("stats = %+v", p1.Stats())
	}
	for tick := uint32(101); tick <= 106; tick++ {
		s1, _ := p1.History().State(tick)
		s2, _ := p2.History().State(tick)
		if s1 != s2 {
			t.Fatalf("replay not reproducible at tick %d: %v vs %v", tick, s1, s2)
		}
	}
	if p1.Position().Sub(server.Position()).Len() > 1e-9 {
		t.Fatalf("after correction client %v, server %v", p1.Position(), server.Position())
	}
}

func TestReconcileOutsideHorizonIsSkipped(t *testing.T) {
	cfg := testConfig(t)
	cfg.BufferSize = 16
	p := NewPredictor(cfg, testWorld(), mgl64.Vec3{})
	for i := 0; i < 40; i++ {
		step(p)
	}
	pos := p.Position()
	if p.Reconcile(sim.StateSnapshot{Tick: 5, Position: mgl64.Vec3{9, 0, 9}}, p.Tick()) {
		t.Fatalf("correction outside the horizon")
	}
	if p.Position() != pos || p.Stats().Skipped != 1 {
		t.Fatalf("skip changed state: %v %+v", p.Position(), p.Stats())
	}
}

func TestReconcileWithinEpsilonIsAccepted(t *testing.T) {
	p := NewPredictor(testConfig(t), testWorld(), mgl64.Vec3{})
	for i := 0; i < 10; i++ {
		step(p)
	}
	s, _ := p.History().State(5)
	s.Position = s.Position.Add(mgl64.Vec3{Epsilon / 2, 0, 0})
	if p.Reconcile(s, p.Tick()) {
		t.Fatalf("sub-epsilon error corrected")
	}
	if got, _ := p.History().State(5); got == s {
		t.Fatalf("accepted snapshot must not overwrite the buffer")
	}
}

func TestResetClearsHistory(t *testing.T) {
	p := NewPredictor(testConfig(t), testWorld(), mgl64.Vec3{})
	for i := 0; i < 10; i++ {
		step(p)
	}
	p.Reset(mgl64.Vec3{3, 0, 3})
	if _, ok := p.History().State(5); ok {
		t.Fatalf("history survived reset")
	}
	if p.Position() != (mgl64.Vec3{3, 0, 3}) {
		t.Fatalf("position = %v", p.Position())
	}
}

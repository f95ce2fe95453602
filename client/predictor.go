// Package client 实现控制端的本地预测与权威校正
package client

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"dasharena/sim"
)

// Epsilon 预测与权威位置的误差低于该值时静默接受
const Epsilon = 0.001

// Stats 校正统计
type Stats struct {
	Corrections int // 发生回滚重放的次数
	Accepted    int // 误差在 Epsilon 内
	Skipped     int // 目标 Tick 已超出历史范围
	Duplicates  int // 与上一次校正的 Tick 相同
}

// Option 配置 Predictor
type Option func(*Predictor)

// WithLogger 注入日志，默认不输出
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Predictor) { p.log = l }
}

// WithSender 每个本地 Tick 产出的输入通过 fn 发往服务端
func WithSender(fn func(sim.InputSample)) Option {
	return func(p *Predictor) { p.send = fn }
}

// WithStateListener 每个本地 Tick 结束后移动状态发生变化时回调（重放过程中的中间变化不会通知）
func WithStateListener(fn func(from, to sim.MovementState)) Option {
	return func(p *Predictor) { p.onState = fn }
}

// Predictor 所属角色的客户端预测：采样输入、按固定 Tick 模拟、缓存历史，
// 并在下一 Tick 开始时使用最新的权威快照进行校正与重放。
// 除 OnTargetState 外的方法都只能在 Tick 循环所在的 goroutine 中调用。
type Predictor struct {
	cfg     sim.Config
	world   *sim.World
	body    *sim.Body
	history *sim.History
	sampler sim.InputSampler
	clock   *sim.TickClock

	mu         sync.Mutex
	pending    sim.StateSnapshot
	hasPending bool

	lastReconciled uint32
	reconciled     bool

	log     *zap.SugaredLogger
	send    func(sim.InputSample)
	onState func(from, to sim.MovementState)
	stats   Stats
}

// NewPredictor cfg 必须与服务端一致（通常来自 Welcome）
func NewPredictor(cfg sim.Config, world *sim.World, spawn mgl64.Vec3, opts ...Option) *Predictor {
	p := &Predictor{
		cfg:     cfg,
		world:   world,
		history: sim.NewHistory(cfg.BufferSize),
		clock:   sim.NewTickClock(cfg.TickDuration()),
		log:     zap.NewNop().Sugar(),
	}
	p.body = sim.NewBody(cfg, world.NewCollider(spawn, cfg))
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sample 每帧调用，更新锁存输入
func (p *Predictor) Sample(horizontal, vertical float64, dash bool, referenceYaw float64) {
	p.sampler.Sample(horizontal, vertical, dash, referenceYaw)
}

// Update 每帧调用，推进时钟并执行到期的 Tick，返回执行的 Tick 数
func (p *Predictor) Update(elapsed time.Duration) int {
	return p.clock.Advance(elapsed, p.tick)
}

// OnTargetState 网络线程收到权威快照时调用；校正推迟到下一个本地 Tick 开始时执行
func (p *Predictor) OnTargetState(s sim.StateSnapshot) {
	p.mu.Lock()
	p.pending = s
	p.hasPending = true
	p.mu.Unlock()
}

func (p *Predictor) takePending() (sim.StateSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.pending, p.hasPending
	p.hasPending = false
	return s, ok
}

func (p *Predictor) tick(t uint32) {
	before := p.body.State()
	if s, ok := p.takePending(); ok {
		p.Reconcile(s, t)
	}

	in := p.sampler.Capture(t)
	p.history.PushInput(t, in)
	p.history.PushState(t, p.body.Step(in))
	p.history.PushBody(t, p.body.Save())

	if p.send != nil {
		p.send(in)
	}
	if after := p.body.State(); after != before && p.onState != nil {
		p.onState(before, after)
	}
}

// Reconcile 使用 Tick T 的权威快照校正预测，current 为当前（尚未执行的）本地 Tick。
// 误差超过 Epsilon 时：恢复 T 时刻的非位置状态，以运动学移动把角色移到权威位置，
// 覆盖缓冲中的 T，再用缓存的输入重放 T+1 .. current-1。返回是否发生了校正。
func (p *Predictor) Reconcile(server sim.StateSnapshot, current uint32) bool {
	if p.reconciled && server.Tick == p.lastReconciled {
		p.stats.Duplicates++
		return false
	}
	p.lastReconciled = server.Tick
	p.reconciled = true

	predicted, ok := p.history.State(server.Tick)
	if !ok {
		p.stats.Skipped++
		p.log.Debugf("reconcile skipped: tick %d outside history (current %d)", server.Tick, current)
		return false
	}
	diff := server.Position.Sub(predicted.Position).Len()
	if diff < Epsilon {
		p.stats.Accepted++
		return false
	}

	if body, ok := p.history.Body(server.Tick); ok {
		// 冲刺目标是绝对坐标，随校正量一起平移
		body.Dash.Target = body.Dash.Target.Add(server.Position.Sub(predicted.Position))
		p.body.Restore(body)
	}
	p.body.Move(server.Position.Sub(p.body.Position()))
	p.history.PushState(server.Tick, server)

	replayed := 0
	for t := server.Tick + 1; t < current; t++ {
		in, ok := p.history.Input(t)
		if !ok {
			break
		}
		p.history.PushState(t, p.body.Step(in))
		p.history.PushBody(t, p.body.Save())
		replayed++
	}
	p.stats.Corrections++
	p.log.Debugf("reconciled tick %d: error=%.4f replayed=%d", server.Tick, diff, replayed)
	return true
}

// Reset 重生：在 spawn 处重建碰撞体，之前的历史全部作废
func (p *Predictor) Reset(spawn mgl64.Vec3) {
	prev := p.body.State()
	p.body = sim.NewBody(p.cfg, p.world.NewCollider(spawn, p.cfg))
	p.history.Reset()
	p.reconciled = false
	p.mu.Lock()
	p.hasPending = false
	p.mu.Unlock()
	if prev != sim.Idle && p.onState != nil {
		p.onState(prev, sim.Idle)
	}
}

// Tick 下一个将要执行的本地 Tick
func (p *Predictor) Tick() uint32 { return p.clock.Tick() }

func (p *Predictor) Position() mgl64.Vec3 { return p.body.Position() }

func (p *Predictor) Yaw() float64 { return p.body.Yaw() }

func (p *Predictor) State() sim.MovementState { return p.body.State() }

func (p *Predictor) History() *sim.History { return p.history }

func (p *Predictor) Stats() Stats { return p.stats }

package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	forwardAxis = mgl64.Vec3{0, 0, 1}
	upAxis      = mgl64.Vec3{0, 1, 0}
)

// Kinematic 运动学移动与地面探测原语；实现方不得允许调用方直接赋值位置
type Kinematic interface {
	Position() mgl64.Vec3
	Move(delta mgl64.Vec3) CollisionFlags
	GroundInStepReach() bool
}

// Body 移动状态机：Idle / Walking / Dashing，外加独立积分的重力。
// 每个 Body 只被所属角色的 Tick 循环访问。
type Body struct {
	cfg    Config
	dt     float64
	mover  Kinematic
	state  MovementState
	facing mgl64.Quat
	vspeed float64
	dash   *DashProgress

	onChange func(from, to MovementState)
}

// NewBody cfg 需已经过 Normalize
func NewBody(cfg Config, mover Kinematic) *Body {
	return &Body{
		cfg:    cfg,
		dt:     cfg.TickLength(),
		mover:  mover,
		state:  Idle,
		facing: mgl64.QuatIdent(),
	}
}

// OnStateChange 注册状态变化回调（复制字段的变更通知）
func (b *Body) OnStateChange(fn func(from, to MovementState)) { b.onChange = fn }

func (b *Body) State() MovementState { return b.state }

func (b *Body) Position() mgl64.Vec3 { return b.mover.Position() }

func (b *Body) VerticalSpeed() float64 { return b.vspeed }

// Forward 当前朝向的前方单位向量
func (b *Body) Forward() mgl64.Vec3 {
	return b.facing.Rotate(forwardAxis)
}

// Yaw 当前朝向（度）
func (b *Body) Yaw() float64 {
	f := b.Forward()
	return mgl64.RadToDeg(math.Atan2(f[0], f[2]))
}

// Dash 当前冲刺进度，非 Dashing 时 ok 为 false
func (b *Body) Dash() (DashProgress, bool) {
	if b.dash == nil {
		return DashProgress{}, false
	}
	return *b.dash, true
}

// Move 透传运动学移动，供校正时使用
func (b *Body) Move(delta mgl64.Vec3) CollisionFlags {
	return b.mover.Move(delta)
}

// Save 导出除位置外的状态
func (b *Body) Save() BodyState {
	s := BodyState{State: b.state, Facing: b.facing, VerticalSpeed: b.vspeed}
	if b.dash != nil {
		s.Dash = *b.dash
	}
	return s
}

// Restore 恢复除位置外的状态，不触发状态变化回调
func (b *Body) Restore(s BodyState) {
	b.state = s.State
	b.facing = s.Facing
	b.vspeed = s.VerticalSpeed
	b.dash = nil
	if s.State == Dashing {
		d := s.Dash
		b.dash = &d
	}
}

// Step 消费一个 Tick 的输入：状态转换 → 水平运动 → 重力，返回该 Tick 的快照
func (b *Body) Step(in InputSample) StateSnapshot {
	supported := b.mover.GroundInStepReach()
	b.transition(NextState(b.state, in.Movement.Len(), in.Dash, supported))

	switch b.state {
	case Walking:
		b.walk(in)
	case Dashing:
		b.stepDash()
	}
	b.applyGravity()

	return StateSnapshot{Tick: in.Tick, Position: b.mover.Position()}
}

func (b *Body) transition(next MovementState) {
	if next == b.state {
		return
	}
	prev := b.state
	b.state = next
	b.dash = nil
	if next == Dashing {
		b.enterDash()
	}
	if b.onChange != nil {
		b.onChange(prev, next)
	}
}

// walk 朝 atan2(x, z) + 参考 yaw 方向行走；朝向按 TurnRate 平滑插值，移动方向直接使用目标方向
func (b *Body) walk(in InputSample) {
	target := math.Atan2(in.Movement[0], in.Movement[2]) + mgl64.DegToRad(in.ReferenceYaw)
	rot := mgl64.QuatRotate(target, upAxis)
	if b.cfg.TurnRate > 0 {
		b.facing = mgl64.QuatSlerp(b.facing, rot, math.Min(1, b.cfg.TurnRate*b.dt)).Normalize()
	} else {
		b.facing = rot
	}
	b.mover.Move(rot.Rotate(forwardAxis).Mul(b.cfg.MovementSpeed * b.dt))
}

func (b *Body) enterDash() {
	b.dash = &DashProgress{
		Target: b.mover.Position().Add(b.Forward().Mul(b.cfg.DashDistance)),
		Speed:  b.cfg.DashStartSpeed,
	}
}

// stepDash 推进一次冲刺；最后一步裁剪到目标点的水平坐标，被侧面阻挡时立即结束
func (b *Body) stepDash() {
	if b.dash == nil {
		b.enterDash()
	}
	d, cfg := b.dash, b.cfg
	if d.Traveled > cfg.DampAfterDistance {
		ratio := (d.Traveled - cfg.DampAfterDistance) / (cfg.DashDistance - cfg.DampAfterDistance)
		d.Speed = lerp(cfg.DashStartSpeed, cfg.DashEndSpeed, ratio)
	}

	step := d.Speed * b.dt
	if d.Traveled+step >= cfg.DashDistance {
		pos := b.mover.Position()
		b.mover.Move(mgl64.Vec3{d.Target[0] - pos[0], 0, d.Target[2] - pos[2]})
		d.Traveled = cfg.DashDistance
		b.transition(Idle)
		return
	}

	flags := b.mover.Move(b.Forward().Mul(step))
	d.Traveled += step
	if flags.Sides() {
		b.transition(Idle)
	}
}

// applyGravity 地面在容差内时速度清零并贴地，否则累积下落速度
func (b *Body) applyGravity() {
	if b.mover.GroundInStepReach() {
		b.vspeed = 0
		b.mover.Move(mgl64.Vec3{0, -b.cfg.StepReach, 0})
		return
	}
	b.vspeed -= b.cfg.Gravity * b.dt
	if b.mover.Move(mgl64.Vec3{0, b.vspeed * b.dt, 0}).Below() {
		b.vspeed = 0
	}
}

func lerp(a, b, t float64) float64 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a + (b-a)*t
}

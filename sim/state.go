package sim

import "github.com/go-gl/mathgl/mgl64"

// MovementState 角色的移动状态，任一 Tick 恰好取一个值
type MovementState uint8

const (
	Idle MovementState = iota
	Walking
	Dashing
)

func (s MovementState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Walking:
		return "walking"
	case Dashing:
		return "dashing"
	default:
		return "unknown"
	}
}

// StateSnapshot 某个 Tick 模拟结束后的位置
type StateSnapshot struct {
	Tick     uint32     `json:"tick"`
	Position mgl64.Vec3 `json:"position"`
}

// DashProgress 只在 Dashing 期间存在，进入时创建，退出（完成或被打断）时丢弃
type DashProgress struct {
	Target   mgl64.Vec3
	Traveled float64
	Speed    float64
}

// BodyState 除位置以外的模拟状态，用于回滚重放时恢复
type BodyState struct {
	State         MovementState
	Facing        mgl64.Quat
	VerticalSpeed float64
	Dash          DashProgress
}

// NextState 状态转换表：对任意 (状态, 输入幅度, 冲刺, 地面支撑) 组合给出唯一结果。
// 冲刺优先于行走；离开地面时行走与冲刺都回到 Idle。
func NextState(cur MovementState, magnitude float64, dash, supported bool) MovementState {
	switch cur {
	case Walking:
		switch {
		case !supported:
			return Idle
		case dash:
			return Dashing
		case magnitude < WalkThreshold:
			return Idle
		default:
			return Walking
		}
	case Dashing:
		if !supported {
			return Idle
		}
		return Dashing
	default:
		switch {
		case !supported:
			return Idle
		case dash:
			return Dashing
		case magnitude >= WalkThreshold:
			return Walking
		default:
			return Idle
		}
	}
}

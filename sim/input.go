package sim

import "github.com/go-gl/mathgl/mgl64"

// WalkThreshold 移动输入的最小幅度，低于该值视为无移动意图
const WalkThreshold = 0.1

// InputSample 某个 Tick 的输入采样，创建后不可修改
type InputSample struct {
	Tick         uint32     `json:"tick"`
	Movement     mgl64.Vec3 `json:"movement"` // 已归一化，x=水平轴 z=垂直轴
	Dash         bool       `json:"dash,omitempty"`
	ReferenceYaw float64    `json:"yaw"` // 参考朝向（度），通常为相机 yaw
}

// InputSampler 只在控制端使用：每帧采样原始输入，并锁存瞬时按键，
// 保证两次 Tick 之间的按下不会丢失
type InputSampler struct {
	movement mgl64.Vec3
	yaw      float64
	dash     bool
}

// Sample 每帧调用一次
func (s *InputSampler) Sample(horizontal, vertical float64, dashPressed bool, referenceYaw float64) {
	s.movement = NormalizeMovement(mgl64.Vec3{horizontal, 0, vertical})
	s.yaw = referenceYaw
	if dashPressed {
		s.dash = true
	}
}

// Capture 在 Tick 边界生成采样并清除瞬时标记
func (s *InputSampler) Capture(tick uint32) InputSample {
	in := InputSample{
		Tick:         tick,
		Movement:     s.movement,
		Dash:         s.dash,
		ReferenceYaw: s.yaw,
	}
	s.dash = false
	return in
}

// NormalizeMovement 归一化移动向量，极小向量返回零向量
func NormalizeMovement(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-5 {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

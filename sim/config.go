package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// MinDashSpeed 冲刺速度下限，低于该值时冲刺无法保证到达目标点
const MinDashSpeed = 0.1

// ErrInvalidConfig 配置存在无法自动修正的取值
var ErrInvalidConfig = errors.New("sim: invalid config")

// Config 移动模拟的全部调参；客户端与服务端必须使用同一份配置，否则预测必然偏离
type Config struct {
	TickRate          float64 `json:"tickRate"`          // 每秒 Tick 数
	MovementSpeed     float64 `json:"movementSpeed"`     // 行走速度（单位/秒）
	TurnRate          float64 `json:"turnRate"`          // 转向插值速率，<=0 表示瞬间转向
	DashDistance      float64 `json:"dashDistance"`      // 冲刺总距离
	DashStartSpeed    float64 `json:"dashStartSpeed"`    // 冲刺初速度
	DashEndSpeed      float64 `json:"dashEndSpeed"`      // 冲刺末速度
	DampAfterDistance float64 `json:"dampAfterDistance"` // 超过该距离后开始减速
	Gravity           float64 `json:"gravity"`
	StepReach         float64 `json:"stepReach"` // 地面探测容差（台阶高度）
	ActorRadius       float64 `json:"actorRadius"`
	ActorHeight       float64 `json:"actorHeight"`
	BufferSize        int     `json:"bufferSize"`     // 客户端历史环形缓冲容量
	QueueLimit        int     `json:"queueLimit"`     // 服务端每个角色的输入队列上限
	BroadcastEvery    int     `json:"broadcastEvery"` // 每 N 个服务端 Tick 广播一次
}

// DefaultConfig 默认调参
func DefaultConfig() Config {
	return Config{
		TickRate:          50,
		MovementSpeed:     5,
		TurnRate:          15,
		DashDistance:      7,
		DashStartSpeed:    10,
		DashEndSpeed:      0.5,
		DampAfterDistance: 5,
		Gravity:           9.8,
		StepReach:         0.3,
		ActorRadius:       0.5,
		ActorHeight:       2,
		BufferSize:        1024,
		QueueLimit:        256,
		BroadcastEvery:    2,
	}
}

// TickLength 单个 Tick 的时长（秒）
func (c Config) TickLength() float64 {
	return 1 / c.TickRate
}

// TickDuration 单个 Tick 的时长
func (c Config) TickDuration() time.Duration {
	return time.Duration(float64(time.Second) / c.TickRate)
}

// Normalize 在加载阶段修正或拒绝非法配置，保证模拟阶段不会出现除零
func (c Config) Normalize() (Config, error) {
	switch {
	case !(c.TickRate > 0):
		return c, fmt.Errorf("%w: tickRate must be positive, got %v", ErrInvalidConfig, c.TickRate)
	case !(c.MovementSpeed >= 0):
		return c, fmt.Errorf("%w: movementSpeed must not be negative, got %v", ErrInvalidConfig, c.MovementSpeed)
	case !(c.DashDistance > 0):
		return c, fmt.Errorf("%w: dashDistance must be positive, got %v", ErrInvalidConfig, c.DashDistance)
	case !(c.Gravity >= 0):
		return c, fmt.Errorf("%w: gravity must not be negative, got %v", ErrInvalidConfig, c.Gravity)
	case !(c.StepReach >= 0):
		return c, fmt.Errorf("%w: stepReach must not be negative, got %v", ErrInvalidConfig, c.StepReach)
	case !(c.ActorRadius > 0) || !(c.ActorHeight > 0):
		return c, fmt.Errorf("%w: actor size must be positive, got r=%v h=%v", ErrInvalidConfig, c.ActorRadius, c.ActorHeight)
	case c.BufferSize <= 0:
		return c, fmt.Errorf("%w: bufferSize must be positive, got %d", ErrInvalidConfig, c.BufferSize)
	}

	if !(c.DashStartSpeed >= MinDashSpeed) {
		c.DashStartSpeed = MinDashSpeed
	}
	if !(c.DashEndSpeed >= MinDashSpeed) {
		c.DashEndSpeed = MinDashSpeed
	}
	if c.DampAfterDistance > c.DashDistance {
		c.DampAfterDistance = c.DashDistance
	}
	if !(c.DampAfterDistance >= 0) {
		c.DampAfterDistance = 0
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = c.BufferSize
	}
	if c.BroadcastEvery <= 0 {
		c.BroadcastEvery = 1
	}
	return c, nil
}

// LoadConfig 以默认值为底，叠加 JSON 文件中的字段；path 为空时直接使用默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg.Normalize()
}

// Package protocol 定义客户端与权威服务端之间的复制消息。
// 每条消息都自带 Tick，传输层可以乱序、可以丢包，后到的消息总是覆盖先前的。
package protocol

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"dasharena/sim"
)

// ErrUnknownType 消息类型未知或载荷与类型不符
var ErrUnknownType = errors.New("protocol: unknown message type")

// Type 消息类型
type Type string

const (
	TypeWelcome   Type = "welcome"   // 服务端 → 所属客户端：加入成功
	TypeInput     Type = "input"     // 客户端 → 服务端：每个本地 Tick 一条
	TypeTarget    Type = "target"    // 服务端 → 所属客户端：权威快照
	TypeBroadcast Type = "broadcast" // 服务端 → 所有观察者：位置与朝向
	TypeEvent     Type = "event"     // 服务端 → 客户端：命中、得分等事件
)

// Message 线上信封，只有与 Type 对应的载荷字段非空
type Message struct {
	Type      Type               `json:"type"`
	Welcome   *Welcome           `json:"welcome,omitempty"`
	Input     *sim.InputSample   `json:"input,omitempty"`
	Target    *sim.StateSnapshot `json:"target,omitempty"`
	Broadcast *Broadcast         `json:"broadcast,omitempty"`
	Event     *Event             `json:"event,omitempty"`
}

// Welcome 加入房间后下发：角色 ID、出生点以及客户端预测必须使用的同一份配置
type Welcome struct {
	ActorID    string     `json:"actorId"`
	Spawn      mgl64.Vec3 `json:"spawn"`
	ServerTick uint64     `json:"serverTick"`
	Config     sim.Config `json:"config"`
}

// ActorState 观察者用于渲染其他角色的状态，不参与所属客户端的预测
type ActorState struct {
	ID       string            `json:"id"`
	Position mgl64.Vec3        `json:"position"`
	Yaw      float64           `json:"yaw"`
	State    sim.MovementState `json:"state"`
}

// Broadcast 一次广播中发生变化的角色
type Broadcast struct {
	Tick   uint64       `json:"tick"`
	Actors []ActorState `json:"actors"`
}

// EventKind 事件类型
type EventKind string

const (
	EventHit       EventKind = "hit"       // 冲刺命中，Value 为命中者累计命中数
	EventScore     EventKind = "score"     // 得分变化，Value 为新分数
	EventWin       EventKind = "win"       // 本局结束
	EventCountdown EventKind = "countdown" // 重开倒计时，Value 为剩余秒数
	EventRestart   EventKind = "restart"   // 新一局开始
	EventRespawn   EventKind = "respawn"   // 角色重生，Position 为出生点
	EventLeave     EventKind = "leave"     // 角色离开
	EventReject    EventKind = "reject"    // 加入被拒绝，Text 为原因，随后连接关闭
)

// Event 即发即弃的事件
type Event struct {
	Kind     EventKind  `json:"kind"`
	Actor    string     `json:"actor,omitempty"`
	Other    string     `json:"other,omitempty"`
	Value    int        `json:"value,omitempty"`
	Position mgl64.Vec3 `json:"position,omitempty"`
	Text     string     `json:"text,omitempty"`
}

func NewWelcome(w Welcome) *Message { return &Message{Type: TypeWelcome, Welcome: &w} }

func NewInput(in sim.InputSample) *Message { return &Message{Type: TypeInput, Input: &in} }

func NewTarget(s sim.StateSnapshot) *Message { return &Message{Type: TypeTarget, Target: &s} }

func NewBroadcast(b Broadcast) *Message { return &Message{Type: TypeBroadcast, Broadcast: &b} }

func NewEvent(e Event) *Message { return &Message{Type: TypeEvent, Event: &e} }

// Validate 检查载荷与类型是否匹配
func (m *Message) Validate() error {
	var ok bool
	switch m.Type {
	case TypeWelcome:
		ok = m.Welcome != nil
	case TypeInput:
		ok = m.Input != nil
	case TypeTarget:
		ok = m.Target != nil
	case TypeBroadcast:
		ok = m.Broadcast != nil
	case TypeEvent:
		ok = m.Event != nil
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}

package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"dasharena/protocol"
	"dasharena/sim"
)

// ActorID 表示角色唯一标识，同时也是所属玩家的名字
type ActorID string

// Sender 角色所属连接的发送端；Send 不得阻塞 Tick
type Sender interface {
	Send(m *protocol.Message)
	Close()
}

// Actor 房间内的角色实体（服务端权威状态），只在房间 Tick 协程中读写
type Actor struct {
	ID   ActorID
	Conn Sender // 唯一的所属连接，只接受来自它的输入

	collider *sim.Collider
	body     *sim.Body
	queue    *sim.InputQueue

	latest    sim.StateSnapshot // 最近一次产出的权威快照
	hasLatest bool

	broadcastHash uint64 // 上一次广播内容的哈希，用于抑制未变化的角色
	broadcasted   bool
}

func newActor(id ActorID, conn Sender, cfg sim.Config, world *sim.World, spawn mgl64.Vec3) *Actor {
	a := &Actor{ID: id, Conn: conn, queue: sim.NewInputQueue(cfg.QueueLimit)}
	a.respawn(cfg, world, spawn)
	return a
}

// respawn 在 spawn 处重建碰撞体与状态机；输入队列的已消费 Tick 保留
func (a *Actor) respawn(cfg sim.Config, world *sim.World, spawn mgl64.Vec3) {
	a.collider = world.NewCollider(spawn, cfg)
	a.body = sim.NewBody(cfg, a.collider)
	a.hasLatest = false
	a.broadcasted = false
}

// Position 当前权威位置
func (a *Actor) Position() mgl64.Vec3 { return a.body.Position() }

// State 当前移动状态
func (a *Actor) State() sim.MovementState { return a.body.State() }

// Latest 最近一次产出的权威快照
func (a *Actor) Latest() (sim.StateSnapshot, bool) { return a.latest, a.hasLatest }

// snapshot 观察者用的轻量状态
func (a *Actor) snapshot() protocol.ActorState {
	return protocol.ActorState{
		ID:       string(a.ID),
		Position: a.body.Position(),
		Yaw:      a.body.Yaw(),
		State:    a.body.State(),
	}
}

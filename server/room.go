package server

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/zeebo/xxh3"

	"dasharena/protocol"
	"dasharena/sim"
)

// Room 房间世界：权威状态维护在内存，单线程 Tick 推进。
// actors 及其状态机只在 Tick 协程中读写，其余协程通过通道提交请求。
type Room struct {
	ID string

	cfg   sim.Config
	world *sim.World

	actors    *orderedmap.OrderedMap[ActorID, *Actor] // 按加入顺序模拟与广播
	inputChan chan Input
	joinChan  chan joinRequest
	leaveChan chan leaveRequest

	registry *Registry
	scores   *Scoreboard
	link     *LinkConditioner
	metrics  *RoomMetrics

	tickSeq        atomic.Uint64
	actorCount     atomic.Int64
	broadcastEvery atomic.Int64
	nextSpawn      int

	startOnce sync.Once
	started   atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	stopped   chan struct{}
	downOnce  sync.Once
}

// NewRoom 创建房间，初始化数据结构；cfg 必须已经 Normalize
func NewRoom(id string, cfg sim.Config, world *sim.World) *Room {
	r := &Room{
		ID:        id,
		cfg:       cfg,
		world:     world,
		actors:    orderedmap.NewOrderedMap[ActorID, *Actor](),
		inputChan: make(chan Input, 1024), // 足够缓冲，避免网络读阻塞影响 Tick
		joinChan:  make(chan joinRequest, 64),
		leaveChan: make(chan leaveRequest, 64),
		registry:  NewRegistry(),
		scores:    NewScoreboard(cfg.TickRate),
		link:      &LinkConditioner{},
		metrics:   &RoomMetrics{},
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	r.broadcastEvery.Store(int64(cfg.BroadcastEvery))
	r.registry.Register(logCollaborator{room: id})
	return r
}

// Config 房间使用的移动配置（只读）
func (r *Room) Config() sim.Config { return r.cfg }

// Registry 协作方登记表
func (r *Room) Registry() *Registry { return r.registry }

// Metrics 房间指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Link 入站链路模拟
func (r *Room) Link() *LinkConditioner { return r.link }

// Tick 已完成的 Tick 数
func (r *Room) Tick() uint64 { return r.tickSeq.Load() }

// ActorCount 当前角色数
func (r *Room) ActorCount() int { return int(r.actorCount.Load()) }

// BroadcastEvery 每多少个 Tick 广播一次
func (r *Room) BroadcastEvery() int { return int(r.broadcastEvery.Load()) }

// SetBroadcastEvery 热更新广播间隔，n 至少为 1
func (r *Room) SetBroadcastEvery(n int) {
	if n < 1 {
		n = 1
	}
	r.broadcastEvery.Store(int64(n))
}

// RequestJoin 请求在 Tick 协程中加入角色；加入成功后 conn 会收到 Welcome
func (r *Room) RequestJoin(id ActorID, conn Sender) {
	r.joinChan <- joinRequest{id: id, conn: conn}
}

// RequestLeave 请求在 Tick 线程中移除角色，避免并发改动房间状态
func (r *Room) RequestLeave(id ActorID, conn Sender) {
	// 为保证移除一定生效，这里采用阻塞式写入（通道有容量，避免死锁）
	r.leaveChan <- leaveRequest{id: id, conn: conn}
}

// OnInput 入站输入（不立即模拟），经过链路模拟后进入输入通道，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	if !r.link.Deliver(func() { r.enqueue(in) }) {
		r.metrics.IncDropsSimulated()
	}
}

func (r *Room) enqueue(in Input) {
	// 不阻塞：输入拥塞时丢弃，保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// Step 执行一个完整的服务端 Tick：处理请求 → 模拟 → 更新世界 → 广播
func (r *Room) Step() {
	tick := r.tickSeq.Load()
	r.ProcessInputs()
	r.Simulate()
	r.UpdateWorld(tick)
	r.BroadcastDelta(tick)
	r.tickSeq.Add(1)
}

// ProcessInputs 处理当前帧的加入、离开与输入（非阻塞 drain）。
// 加入先于输入处理，保证同一 Tick 内新角色的第一条输入不会丢失。
func (r *Room) ProcessInputs() {
	// 只有 Tick 协程接收，按当前长度 drain 不会阻塞
	for n := len(r.joinChan); n > 0; n-- {
		r.join(<-r.joinChan)
	}
	for n := len(r.leaveChan); n > 0; n-- {
		r.leave(<-r.leaveChan)
	}
	for n := len(r.inputChan); n > 0; n-- {
		r.accept(<-r.inputChan)
	}
}

func (r *Room) join(req joinRequest) {
	if _, ok := r.actors.Get(req.id); ok {
		Log.Warnf("join rejected: room=%s actor=%s already present", r.ID, req.id)
		req.conn.Send(protocol.NewEvent(protocol.Event{
			Kind:  protocol.EventReject,
			Actor: string(req.id),
			Text:  "actor already in room",
		}))
		req.conn.Close()
		return
	}

	spawn := r.world.Spawn(r.nextSpawn)
	r.nextSpawn++
	a := newActor(req.id, req.conn, r.cfg, r.world, spawn)
	r.attach(a)
	r.actors.Set(a.ID, a)
	r.actorCount.Add(1)

	a.Conn.Send(protocol.NewWelcome(protocol.Welcome{
		ActorID:    string(a.ID),
		Spawn:      spawn,
		ServerTick: r.tickSeq.Load(),
		Config:     r.cfg,
	}))
	// 新加入者需要看到所有角色，下一次广播不做抑制
	r.resetBroadcastHashes()
	r.registry.joined(a.ID, spawn)
}

func (r *Room) leave(req leaveRequest) {
	a, ok := r.actors.Get(req.id)
	if !ok || a.Conn != req.conn {
		return
	}
	r.actors.Delete(req.id)
	r.actorCount.Add(-1)
	r.scores.Remove(req.id)
	a.Conn.Close()

	r.broadcastEvent(protocol.Event{Kind: protocol.EventLeave, Actor: string(req.id)})
	r.registry.left(req.id)
}

func (r *Room) accept(in Input) {
	a, ok := r.actors.Get(in.ActorID)
	if !ok {
		return
	}
	if a.Conn != in.Conn {
		r.metrics.IncForeign()
		return
	}
	if !a.queue.Push(in.Sample) {
		r.metrics.IncQueueOverflow()
		return
	}
	r.metrics.IncAccepted()
}

// attach 把状态机的状态变化转发给协作方
func (r *Room) attach(a *Actor) {
	id := a.ID
	a.body.OnStateChange(func(from, to sim.MovementState) {
		r.registry.stateChanged(id, from, to)
	})
}

// Simulate 逐个角色按 Tick 升序消费输入队列，并把最新的权威快照发给所属连接
func (r *Room) Simulate() {
	for el := r.actors.Front(); el != nil; el = el.Next() {
		a := el.Value
		processed, stale := a.queue.Drain(func(in sim.InputSample) {
			a.latest = a.body.Step(in)
			a.hasLatest = true
		})
		if stale > 0 {
			r.metrics.AddStale(stale)
			Log.Debugf("stale input dropped: room=%s actor=%s count=%d", r.ID, a.ID, stale)
		}
		if processed == 0 {
			continue
		}
		r.metrics.AddSimulated(processed)
		a.Conn.Send(protocol.NewTarget(a.latest))
		r.metrics.IncSnapshots()
	}
}

// UpdateWorld 推进计分：重开倒计时与冲刺命中判定
func (r *Room) UpdateWorld(tick uint64) {
	secondsLeft, announce, restart := r.scores.Update(tick)
	if announce {
		r.broadcastEvent(protocol.Event{Kind: protocol.EventCountdown, Value: secondsLeft})
	}
	if restart {
		r.broadcastEvent(protocol.Event{Kind: protocol.EventRestart})
		r.respawnAll()
		return
	}
	if r.scores.Over() {
		return
	}

	for el := r.actors.Front(); el != nil; el = el.Next() {
		hitter := el.Value
		if hitter.State() != sim.Dashing {
			continue
		}
		for other := r.actors.Front(); other != nil; other = other.Next() {
			target := other.Value
			if target == hitter || !r.scores.CanBeHit(target.ID, tick) {
				continue
			}
			if !hitter.collider.Touches(target.collider, hitReach) {
				continue
			}
			hits, won := r.scores.Hit(hitter.ID, target.ID, tick)
			r.metrics.IncDashHits()
			r.registry.hit(hitter.ID, target.ID)
			r.registry.scored(hitter.ID, hits, won)

			r.broadcastEvent(protocol.Event{
				Kind:  protocol.EventHit,
				Actor: string(hitter.ID),
				Other: string(target.ID),
				Value: hits,
			})
			hitter.Conn.Send(protocol.NewEvent(protocol.Event{
				Kind:  protocol.EventScore,
				Actor: string(hitter.ID),
				Value: hits,
			}))
			if won {
				r.broadcastEvent(protocol.Event{
					Kind:  protocol.EventWin,
					Actor: string(hitter.ID),
					Value: hits,
					Text:  string(hitter.ID) + " wins",
				})
				return
			}
		}
	}
}

// respawnAll 新一局：所有角色在出生点重建，客户端收到 respawn 事件后重置预测
func (r *Room) respawnAll() {
	for el := r.actors.Front(); el != nil; el = el.Next() {
		a := el.Value
		spawn := r.world.Spawn(r.nextSpawn)
		r.nextSpawn++
		a.respawn(r.cfg, r.world, spawn)
		r.attach(a)
		r.broadcastEvent(protocol.Event{Kind: protocol.EventRespawn, Actor: string(a.ID), Position: spawn})
	}
}

// BroadcastDelta 按广播间隔把发生变化的角色状态发给所有连接
func (r *Room) BroadcastDelta(tick uint64) {
	every := uint64(r.broadcastEvery.Load())
	if every > 1 && tick%every != 0 {
		return
	}

	var changed []protocol.ActorState
	suppressed := 0
	for el := r.actors.Front(); el != nil; el = el.Next() {
		a := el.Value
		s := a.snapshot()
		h := hashActorState(s)
		if a.broadcasted && h == a.broadcastHash {
			suppressed++
			continue
		}
		a.broadcastHash = h
		a.broadcasted = true
		changed = append(changed, s)
	}
	r.metrics.AddSuppressed(suppressed)
	if len(changed) == 0 {
		return
	}

	msg := protocol.NewBroadcast(protocol.Broadcast{Tick: tick, Actors: changed})
	for el := r.actors.Front(); el != nil; el = el.Next() {
		el.Value.Conn.Send(msg)
	}
	r.metrics.IncBroadcasts()
}

func (r *Room) resetBroadcastHashes() {
	for el := r.actors.Front(); el != nil; el = el.Next() {
		el.Value.broadcasted = false
	}
}

func (r *Room) broadcastEvent(e protocol.Event) {
	msg := protocol.NewEvent(e)
	for el := r.actors.Front(); el != nil; el = el.Next() {
		el.Value.Conn.Send(msg)
	}
}

func hashActorState(s protocol.ActorState) uint64 {
	buf := make([]byte, 0, 8*4+1)
	for _, v := range s.Position {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Yaw))
	buf = append(buf, byte(s.State))
	return xxh3.Hash(buf)
}

// shutdown 关闭所有连接，只在 Tick 协程退出时（或未启动时由 Close）调用
func (r *Room) shutdown() {
	r.downOnce.Do(func() {
		for el := r.actors.Front(); el != nil; el = el.Next() {
			el.Value.Conn.Close()
		}
		close(r.stopped)
	})
}

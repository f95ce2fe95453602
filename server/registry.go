package server

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"dasharena/sim"
)

// Collaborator 房间之外的协作方（镜头、动画、UI、计分等）关注的只读事件。
// 回调在房间 Tick 协程中同步执行，不得阻塞。
type Collaborator interface {
	OnJoin(id ActorID, spawn mgl64.Vec3)
	OnLeave(id ActorID)
	OnStateChange(id ActorID, from, to sim.MovementState)
	OnHit(hitter, target ActorID)
	OnScore(id ActorID, score int, won bool)
}

// NopCollaborator 便于只实现部分回调
type NopCollaborator struct{}

func (NopCollaborator) OnJoin(ActorID, mgl64.Vec3)                                  {}
func (NopCollaborator) OnLeave(ActorID)                                             {}
func (NopCollaborator) OnStateChange(ActorID, sim.MovementState, sim.MovementState) {}
func (NopCollaborator) OnHit(ActorID, ActorID)                                      {}
func (NopCollaborator) OnScore(ActorID, int, bool)                                  {}

// Registry 房间级的协作方登记表。协作方创建时 Register，销毁时调用返回的注销函数
type Registry struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]Collaborator
	order   []int
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]Collaborator)}
}

// Register 登记协作方，返回的函数用于注销，可重复调用
func (r *Registry) Register(c Collaborator) (deregister func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.entries[id] = c
	r.order = append(r.order, id)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.entries, id)
			for i, v := range r.order {
				if v == id {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Len 当前登记的协作方数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// each 按登记顺序在锁外回调，允许回调中注销自己
func (r *Registry) each(fn func(Collaborator)) {
	r.mu.Lock()
	list := make([]Collaborator, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.entries[id])
	}
	r.mu.Unlock()
	for _, c := range list {
		fn(c)
	}
}

func (r *Registry) joined(id ActorID, spawn mgl64.Vec3) {
	r.each(func(c Collaborator) { c.OnJoin(id, spawn) })
}

func (r *Registry) left(id ActorID) {
	r.each(func(c Collaborator) { c.OnLeave(id) })
}

func (r *Registry) stateChanged(id ActorID, from, to sim.MovementState) {
	r.each(func(c Collaborator) { c.OnStateChange(id, from, to) })
}

func (r *Registry) hit(hitter, target ActorID) {
	r.each(func(c Collaborator) { c.OnHit(hitter, target) })
}

func (r *Registry) scored(id ActorID, score int, won bool) {
	r.each(func(c Collaborator) { c.OnScore(id, score, won) })
}

// logCollaborator 把房间事件写入日志
type logCollaborator struct {
	room string
}

func (l logCollaborator) OnJoin(id ActorID, spawn mgl64.Vec3) {
	Log.Infof("actor joined: room=%s actor=%s spawn=%v", l.room, id, spawn)
}

func (l logCollaborator) OnLeave(id ActorID) {
	Log.Infof("actor left: room=%s actor=%s", l.room, id)
}

func (l logCollaborator) OnStateChange(id ActorID, from, to sim.MovementState) {
	Log.Debugf("state change: room=%s actor=%s %s -> %s", l.room, id, from, to)
}

func (l logCollaborator) OnHit(hitter, target ActorID) {
	Log.Debugf("dash hit: room=%s %s -> %s", l.room, hitter, target)
}

func (l logCollaborator) OnScore(id ActorID, score int, won bool) {
	if won {
		Log.Infof("round won: room=%s actor=%s score=%d", l.room, id, score)
	}
}

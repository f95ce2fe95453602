package server

import (
	"sync"

	"dasharena/sim"
)

// DefaultRoom 未指定房间时使用
const DefaultRoom = "room-1"

// RoomManager 管理多个房间的生命周期，所有房间共享同一份移动配置与场景
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg   sim.Config
	world *sim.World
	codec string // 客户端未指定编码时使用
}

var (
	defaultManager *RoomManager
	once           sync.Once
)

// NewRoomManager cfg 必须已经 Normalize；codec 为默认编码名
func NewRoomManager(cfg sim.Config, world *sim.World, codec string) *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*Room),
		cfg:   cfg,
		world: world,
		codec: codec,
	}
}

// InitRoomManager 初始化单例房间管理器，只有第一次调用生效
func InitRoomManager(cfg sim.Config, world *sim.World, codec string) *RoomManager {
	once.Do(func() {
		defaultManager = NewRoomManager(cfg, world, codec)
	})
	return defaultManager
}

// GetRoomManager 单例房间管理器；未初始化时使用默认配置与默认场景
func GetRoomManager() *RoomManager {
	return InitRoomManager(sim.DefaultConfig(), sim.DefaultWorld(), "json")
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	if id == "" {
		id = DefaultRoom
	}
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok = m.rooms[id]; !ok {
		r = NewRoom(id, m.cfg, m.world)
		m.rooms[id] = r
		r.StartTicker()
		Log.Infof("room created: %s tickRate=%g", id, m.cfg.TickRate)
	}
	return r
}

// Room 查找已存在的房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	if id == "" {
		id = DefaultRoom
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Close 停止所有房间
func (m *RoomManager) Close() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()
	for _, r := range rooms {
		r.Close()
	}
}

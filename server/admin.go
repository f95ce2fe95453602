package server

import (
	"encoding/json"
	"net/http"

	"dasharena/sim"
)

// HandleAdminConfig 提供房间网络参数的读取与热更新；移动配置只读，运行中修改会使客户端预测失配
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	room := m.GetOrCreateRoom(r.URL.Query().Get("room"))

	type cfg struct {
		BroadcastEvery     *int        `json:"broadcastEvery,omitempty"`
		SimulateDelayMinMs *int        `json:"simulateDelayMinMs,omitempty"`
		SimulateDelayMaxMs *int        `json:"simulateDelayMaxMs,omitempty"`
		SimulateDropProb   *float64    `json:"simulateDropProb,omitempty"`
		Movement           *sim.Config `json:"movement,omitempty"`
		Tick               *uint64     `json:"tick,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		every := room.BroadcastEvery()
		link := room.Link().Settings()
		movement := room.Config()
		tick := room.Tick()
		cur := cfg{
			BroadcastEvery:     &every,
			SimulateDelayMinMs: &link.DelayMinMs,
			SimulateDelayMaxMs: &link.DelayMaxMs,
			SimulateDropProb:   &link.DropProb,
			Movement:           &movement,
			Tick:               &tick,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.Movement != nil {
			http.Error(w, "movement config is read-only at runtime", http.StatusBadRequest)
			return
		}
		if body.BroadcastEvery != nil && *body.BroadcastEvery < 1 {
			http.Error(w, "broadcastEvery must be >= 1", http.StatusBadRequest)
			return
		}
		link := room.Link().Settings()
		if body.SimulateDelayMinMs != nil {
			link.DelayMinMs = *body.SimulateDelayMinMs
		}
		if body.SimulateDelayMaxMs != nil {
			link.DelayMaxMs = *body.SimulateDelayMaxMs
		}
		if body.SimulateDropProb != nil {
			link.DropProb = *body.SimulateDropProb
		}
		if err := room.Link().Update(link); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.BroadcastEvery != nil {
			room.SetBroadcastEvery(*body.BroadcastEvery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: room=%s broadcastEvery=%d delay=[%d,%d] drop=%.2f",
			room.ID, room.BroadcastEvery(), link.DelayMinMs, link.DelayMaxMs, link.DropProb)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	room, ok := m.Room(r.URL.Query().Get("room"))
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	payload := map[string]any{
		"room":    room.ID,
		"tick":    room.Tick(),
		"actors":  room.ActorCount(),
		"metrics": room.Metrics().Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

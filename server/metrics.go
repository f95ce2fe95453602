package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount           int64 // 统计的 Tick 次数
	InputsAccepted      int64 // 进入角色队列的输入数
	InputsSimulated     int64 // 被模拟消费的输入数
	QueueOverflow       int64 // 因角色队列已满被拒绝的输入数
	StaleIgnored        int64 // Tick 不大于已消费 Tick 被丢弃的输入数
	ForeignIgnored      int64 // 来自非所属连接的输入数
	DropsSimulated      int64 // 因模拟丢包被丢弃的输入数
	ChanFullDiscarded   int64 // 因通道满被丢弃的输入数
	SnapshotsSent       int64 // 下发给所属客户端的权威快照数
	BroadcastsSent      int64 // 发出的广播数
	BroadcastSuppressed int64 // 因内容未变化而未广播的角色状态数
	DashHits            int64 // 冲刺命中数
	TotalTickNs         int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) AddSimulated(n int)    { atomic.AddInt64(&m.InputsSimulated, int64(n)) }
func (m *RoomMetrics) IncQueueOverflow()     { atomic.AddInt64(&m.QueueOverflow, 1) }
func (m *RoomMetrics) AddStale(n int)        { atomic.AddInt64(&m.StaleIgnored, int64(n)) }
func (m *RoomMetrics) IncForeign()           { atomic.AddInt64(&m.ForeignIgnored, 1) }
func (m *RoomMetrics) IncDropsSimulated()    { atomic.AddInt64(&m.DropsSimulated, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncSnapshots()         { atomic.AddInt64(&m.SnapshotsSent, 1) }
func (m *RoomMetrics) IncBroadcasts()        { atomic.AddInt64(&m.BroadcastsSent, 1) }
func (m *RoomMetrics) AddSuppressed(n int)   { atomic.AddInt64(&m.BroadcastSuppressed, int64(n)) }
func (m *RoomMetrics) IncDashHits()          { atomic.AddInt64(&m.DashHits, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":           tick,
		"inputs_accepted":      atomic.LoadInt64(&m.InputsAccepted),
		"inputs_simulated":     atomic.LoadInt64(&m.InputsSimulated),
		"queue_overflow":       atomic.LoadInt64(&m.QueueOverflow),
		"stale_ignored":        atomic.LoadInt64(&m.StaleIgnored),
		"foreign_ignored":      atomic.LoadInt64(&m.ForeignIgnored),
		"drops_simulated":      atomic.LoadInt64(&m.DropsSimulated),
		"chan_full_discarded":  atomic.LoadInt64(&m.ChanFullDiscarded),
		"snapshots_sent":       atomic.LoadInt64(&m.SnapshotsSent),
		"broadcasts_sent":      atomic.LoadInt64(&m.BroadcastsSent),
		"broadcast_suppressed": atomic.LoadInt64(&m.BroadcastSuppressed),
		"dash_hits":            atomic.LoadInt64(&m.DashHits),
		"avg_tick_ms":          avgMs,
	}
}

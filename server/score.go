package server

import (
	"math"
	"time"
)

const (
	WinningHits      = 3               // 先达到该命中数者获胜
	InvincibleFor    = 3 * time.Second // 被命中后的无敌时间
	RestartCountdown = 5 * time.Second // 一局结束到重开的倒计时
	hitReach         = 0.1             // 冲刺命中判定时包围盒的外扩距离
)

// Scoreboard 冲刺命中计分，时间全部换算为房间 Tick
type Scoreboard struct {
	tickRate        float64
	invincibleTicks uint64
	restartTicks    uint64

	hits            map[ActorID]int
	invincibleUntil map[ActorID]uint64

	over          bool
	restartAt     uint64
	lastCountdown int
}

func NewScoreboard(tickRate float64) *Scoreboard {
	return &Scoreboard{
		tickRate:        tickRate,
		invincibleTicks: durationTicks(InvincibleFor, tickRate),
		restartTicks:    durationTicks(RestartCountdown, tickRate),
		hits:            make(map[ActorID]int),
		invincibleUntil: make(map[ActorID]uint64),
	}
}

// durationTicks 向上取整，非整数 Tick 率下时长不会被截短
func durationTicks(d time.Duration, tickRate float64) uint64 {
	return uint64(math.Ceil(d.Seconds() * tickRate))
}

// CanBeHit 本局未结束且目标不在无敌时间内
func (s *Scoreboard) CanBeHit(target ActorID, tick uint64) bool {
	return !s.over && tick >= s.invincibleUntil[target]
}

// Hit 记录一次命中，返回命中者的累计命中数以及是否因此获胜
func (s *Scoreboard) Hit(hitter, target ActorID, tick uint64) (hits int, won bool) {
	s.invincibleUntil[target] = tick + s.invincibleTicks
	s.hits[hitter]++
	hits = s.hits[hitter]
	if hits >= WinningHits {
		s.over = true
		s.restartAt = tick + s.restartTicks
		s.lastCountdown = -1
		won = true
	}
	return hits, won
}

// Update 每 Tick 调用。本局结束后返回倒计时秒数（每秒变化时 announce 为 true），
// 到点时 restart 为 true 且计分已清零
func (s *Scoreboard) Update(tick uint64) (secondsLeft int, announce, restart bool) {
	if !s.over {
		return 0, false, false
	}
	if tick >= s.restartAt {
		s.Reset()
		return 0, false, true
	}
	left := s.restartAt - tick
	secondsLeft = int(math.Ceil(float64(left) / s.tickRate))
	if secondsLeft != s.lastCountdown {
		s.lastCountdown = secondsLeft
		return secondsLeft, true, false
	}
	return secondsLeft, false, false
}

// Over 本局是否已分出胜负
func (s *Scoreboard) Over() bool { return s.over }

// Hits 当前命中数
func (s *Scoreboard) Hits(id ActorID) int { return s.hits[id] }

// Remove 角色离开时清理
func (s *Scoreboard) Remove(id ActorID) {
	delete(s.hits, id)
	delete(s.invincibleUntil, id)
}

// Reset 清零所有计分，开始新的一局
func (s *Scoreboard) Reset() {
	s.hits = make(map[ActorID]int)
	s.invincibleUntil = make(map[ActorID]uint64)
	s.over = false
	s.restartAt = 0
}

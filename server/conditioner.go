package server

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrInvalidLink 链路模拟参数非法
var ErrInvalidLink = errors.New("server: invalid link settings")

// LinkSettings 入站链路模拟：随机延迟区间与丢包概率
type LinkSettings struct {
	DelayMinMs int     `json:"simulateDelayMinMs"`
	DelayMaxMs int     `json:"simulateDelayMaxMs"`
	DropProb   float64 `json:"simulateDropProb"`
}

// Validate 延迟非负且 min <= max，丢包概率在 [0,1]
func (s LinkSettings) Validate() error {
	if s.DelayMinMs < 0 || s.DelayMaxMs < s.DelayMinMs {
		return ErrInvalidLink
	}
	if s.DropProb < 0 || s.DropProb > 1 {
		return ErrInvalidLink
	}
	return nil
}

// LinkConditioner 在输入进入房间之前模拟延迟与丢包，用于复现高延迟下的校正场景
type LinkConditioner struct {
	mu  sync.RWMutex
	cur LinkSettings
}

func (l *LinkConditioner) Settings() LinkSettings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cur
}

func (l *LinkConditioner) Update(s LinkSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.cur = s
	l.mu.Unlock()
	return nil
}

// Deliver 按当前设置投递 fn：可能丢弃（返回 false），可能延迟后在定时器协程中执行
func (l *LinkConditioner) Deliver(fn func()) bool {
	s := l.Settings()
	if s.DropProb > 0 && rand.Float64() < s.DropProb {
		return false
	}
	delay := s.DelayMinMs
	if s.DelayMaxMs > s.DelayMinMs {
		delay += rand.IntN(s.DelayMaxMs - s.DelayMinMs + 1)
	}
	if delay <= 0 {
		fn()
		return true
	}
	time.AfterFunc(time.Duration(delay)*time.Millisecond, fn)
	return true
}

package sim

import "time"

// TickClock 固定步长时钟：累积真实耗时，每满一个步长触发一次 Tick，与渲染帧率解耦
type TickClock struct {
	length time.Duration
	timer  time.Duration
	tick   uint32
}

// NewTickClock 创建时钟；length 非正时按 1ns 处理
func NewTickClock(length time.Duration) *TickClock {
	if length <= 0 {
		length = time.Nanosecond
	}
	return &TickClock{length: length}
}

// Advance 累积 elapsed 并依次触发所有到期的 Tick（可能一次补多个），返回触发次数
func (c *TickClock) Advance(elapsed time.Duration, fn func(tick uint32)) int {
	if elapsed > 0 {
		c.timer += elapsed
	}
	fired := 0
	for c.timer >= c.length {
		c.timer -= c.length
		fn(c.tick)
		c.tick++
		fired++
	}
	return fired
}

// Tick 下一个将要触发的 Tick 序号
func (c *TickClock) Tick() uint32 { return c.tick }

// Length 步长
func (c *TickClock) Length() time.Duration { return c.length }

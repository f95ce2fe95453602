package server

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"dasharena/sim"
)

// StartTicker 启动房间的 Tick 循环（单线程推进世界），重复调用无效
func (r *Room) StartTicker() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.run()
	})
}

func (r *Room) run() {
	defer func() {
		if err := recover(); err != nil {
			Log.Errorf("room %s tick loop panic: %v", r.ID, err)
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("room", r.ID)
				scope.SetTag("tick", fmt.Sprint(r.Tick()))
			})
			hub.Recover(err)
			hub.Flush(5 * time.Second)
		}
	}()
	defer r.shutdown()

	// 累加器时钟：定时器抖动或调度延迟时补齐落后的 Tick
	clock := sim.NewTickClock(r.cfg.TickDuration())
	ticker := time.NewTicker(clock.Length())
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			// 核心循环：处理输入 → 模拟 → 更新世界 → 广播结果
			clock.Advance(now.Sub(last), func(uint32) {
				start := time.Now()
				r.Step()
				r.metrics.AddTick(time.Since(start).Nanoseconds())
			})
			last = now
		}
	}
}

// Close 停止 Tick 循环并关闭所有连接，阻塞到 Tick 协程退出
func (r *Room) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
		if !r.started.Load() {
			r.shutdown()
		}
	})
	<-r.stopped
}

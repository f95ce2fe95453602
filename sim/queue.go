package sim

// InputQueue 服务端每个角色的输入 FIFO。按到达顺序出队、从不重排；
// Tick 不大于上次消费值的输入视为过期或重复，直接丢弃。
type InputQueue struct {
	items    []InputSample
	limit    int
	last     uint32
	consumed bool
}

// NewInputQueue limit 为队列最多缓存的输入数
func NewInputQueue(limit int) *InputQueue {
	if limit <= 0 {
		limit = 1
	}
	return &InputQueue{limit: limit}
}

// Push 入队；队列已满时丢弃并返回 false
func (q *InputQueue) Push(in InputSample) bool {
	if len(q.items) >= q.limit {
		return false
	}
	q.items = append(q.items, in)
	return true
}

func (q *InputQueue) Len() int { return len(q.items) }

// LastConsumed 最近一次被消费的 Tick
func (q *InputQueue) LastConsumed() (uint32, bool) { return q.last, q.consumed }

// Drain 依次出队全部输入，对未过期的调用 fn；返回处理数与丢弃数
func (q *InputQueue) Drain(fn func(InputSample)) (processed, stale int) {
	for _, in := range q.items {
		if q.consumed && in.Tick <= q.last {
			stale++
			continue
		}
		fn(in)
		q.last = in.Tick
		q.consumed = true
		processed++
	}
	clear(q.items)
	q.items = q.items[:0]
	return processed, stale
}

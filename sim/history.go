package sim

// Ring 以 tick mod N 为下标的定长环形缓冲。读取 tick T 只有在槽位仍保存 T 时才有效，
// 距离最后一次写入超过 N 个 Tick 的槽位已被更新的 Tick 覆盖。
type Ring[T any] struct {
	slots []ringSlot[T]
}

type ringSlot[T any] struct {
	tick  uint32
	value T
	set   bool
}

// NewRing capacity 建议取 2 的幂
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{slots: make([]ringSlot[T], capacity)}
}

func (r *Ring[T]) index(tick uint32) int {
	return int(tick % uint32(len(r.slots)))
}

// Put 写入（覆盖）tick 对应的槽位
func (r *Ring[T]) Put(tick uint32, v T) {
	r.slots[r.index(tick)] = ringSlot[T]{tick: tick, value: v, set: true}
}

// Get 读取 tick 的值；槽位为空或已被其它 Tick 覆盖时 ok 为 false
func (r *Ring[T]) Get(tick uint32) (T, bool) {
	s := r.slots[r.index(tick)]
	if !s.set || s.tick != tick {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Cap 容量
func (r *Ring[T]) Cap() int { return len(r.slots) }

// Reset 清空全部槽位
func (r *Ring[T]) Reset() {
	clear(r.slots)
}

// History 客户端历史：输入、预测快照以及回放所需的非位置状态
type History struct {
	inputs *Ring[InputSample]
	states *Ring[StateSnapshot]
	bodies *Ring[BodyState]
}

func NewHistory(capacity int) *History {
	return &History{
		inputs: NewRing[InputSample](capacity),
		states: NewRing[StateSnapshot](capacity),
		bodies: NewRing[BodyState](capacity),
	}
}

func (h *History) PushInput(tick uint32, in InputSample)   { h.inputs.Put(tick, in) }
func (h *History) PushState(tick uint32, s StateSnapshot)  { h.states.Put(tick, s) }
func (h *History) PushBody(tick uint32, s BodyState)       { h.bodies.Put(tick, s) }
func (h *History) Input(tick uint32) (InputSample, bool)   { return h.inputs.Get(tick) }
func (h *History) State(tick uint32) (StateSnapshot, bool) { return h.states.Get(tick) }
func (h *History) Body(tick uint32) (BodyState, bool)      { return h.bodies.Get(tick) }
func (h *History) Cap() int                                { return h.inputs.Cap() }

// Reset 清空历史（例如重生之后旧预测全部作废）
func (h *History) Reset() {
	h.inputs.Reset()
	h.states.Reset()
	h.bodies.Reset()
}

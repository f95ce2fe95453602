package sim

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// CollisionFlags 一次运动移动中发生碰撞的方向
type CollisionFlags uint8

const (
	CollidedSides CollisionFlags = 1 << iota
	CollidedAbove
	CollidedBelow
)

// Sides 是否被侧面阻挡
func (f CollisionFlags) Sides() bool { return f&CollidedSides != 0 }

// Below 是否被下方阻挡（落地）
func (f CollisionFlags) Below() bool { return f&CollidedBelow != 0 }

// minProbeDepth 探测深度下限
const minProbeDepth = 1e-3

// World 静态碰撞几何（地面、墙体、平台），只读，可被多个 Collider 共享
type World struct {
	boxes  []cube.BBox
	spawns []mgl64.Vec3
}

// NewWorld 使用给定的碰撞盒与出生点创建世界
func NewWorld(boxes []cube.BBox, spawns []mgl64.Vec3) *World {
	return &World{boxes: boxes, spawns: spawns}
}

// DefaultWorld 100x100 的竞技场：地面、围墙、若干柱子和一个高台
func DefaultWorld() *World {
	boxes := []cube.BBox{
		cube.Box(-50, -1, -50, 50, 0, 50),
		// 围墙
		cube.Box(-51, 0, -51, 51, 3, -50),
		cube.Box(-51, 0, 50, 51, 3, 51),
		cube.Box(-51, 0, -50, -50, 3, 50),
		cube.Box(50, 0, -50, 51, 3, 50),
		// 柱子
		cube.Box(-21, 0, -21, -19, 3, -19),
		cube.Box(19, 0, -21, 21, 3, -19),
		cube.Box(-21, 0, 19, -19, 3, 21),
		cube.Box(19, 0, 19, 21, 3, 21),
		// 高台（无台阶，只能从上面掉下来）
		cube.Box(30, 0, -5, 40, 4, 5),
	}
	spawns := []mgl64.Vec3{
		{0, 0, 0},
		{10, 0, 0},
		{-10, 0, 0},
		{0, 0, 10},
		{0, 0, -10},
		{35, 4, 0},
	}
	return NewWorld(boxes, spawns)
}

// Spawn 按序号轮流返回出生点
func (w *World) Spawn(i int) mgl64.Vec3 {
	if len(w.spawns) == 0 {
		return mgl64.Vec3{}
	}
	if i < 0 {
		i = -i
	}
	return w.spawns[i%len(w.spawns)]
}

// Boxes 碰撞盒列表（只读）
func (w *World) Boxes() []cube.BBox { return w.boxes }

// ProbeGround 检查脚底下方 maxStep 范围内是否有支撑，比严格接地更宽松。
// 水平方向使用与 YOffset 相同的严格重叠判定，保证“探测不到地面”时下落不会被挡住。
func (w *World) ProbeGround(origin mgl64.Vec3, radius, maxStep float64) bool {
	if maxStep < minProbeDepth {
		maxStep = minProbeDepth
	}
	probe := cube.Box(
		origin[0]-radius, origin[1]-maxStep, origin[2]-radius,
		origin[0]+radius, origin[1], origin[2]+radius,
	)
	for _, b := range w.boxes {
		if overlaps(probe, b) {
			return true
		}
	}
	return false
}

func overlaps(a, b cube.BBox) bool {
	amin, amax, bmin, bmax := a.Min(), a.Max(), b.Min(), b.Max()
	for i := 0; i < 3; i++ {
		if amax[i] <= bmin[i] || amin[i] >= bmax[i] {
			return false
		}
	}
	return true
}

// Collider 角色在世界中的运动学碰撞体。位置只能通过 Move 改变，不提供直接赋值
type Collider struct {
	world     *World
	pos       mgl64.Vec3 // 脚底中心
	radius    float64
	height    float64
	stepReach float64
}

// NewCollider 在 spawn 处创建碰撞体
func (w *World) NewCollider(spawn mgl64.Vec3, cfg Config) *Collider {
	return &Collider{
		world:     w,
		pos:       spawn,
		radius:    cfg.ActorRadius,
		height:    cfg.ActorHeight,
		stepReach: cfg.StepReach,
	}
}

// Position 当前位置（只读）
func (c *Collider) Position() mgl64.Vec3 { return c.pos }

// BBox 当前包围盒
func (c *Collider) BBox() cube.BBox {
	return cube.Box(
		c.pos[0]-c.radius, c.pos[1], c.pos[2]-c.radius,
		c.pos[0]+c.radius, c.pos[1]+c.height, c.pos[2]+c.radius,
	)
}

// Touches 两个碰撞体的包围盒在向外扩张 reach 后是否相交
func (c *Collider) Touches(other *Collider, reach float64) bool {
	a := c.BBox()
	min, max := a.Min(), a.Max()
	grown := cube.Box(min[0]-reach, min[1]-reach, min[2]-reach, max[0]+reach, max[1]+reach, max[2]+reach)
	return overlaps(grown, other.BBox())
}

// GroundInStepReach 地面是否在台阶容差之内
func (c *Collider) GroundInStepReach() bool {
	return c.world.ProbeGround(c.pos, c.radius, c.stepReach)
}

// Move 按 Y、X、Z 顺序逐轴裁剪位移并移动，返回碰撞方向
func (c *Collider) Move(delta mgl64.Vec3) CollisionFlags {
	box := c.BBox()
	dx, dy, dz := delta[0], delta[1], delta[2]

	for _, b := range c.world.boxes {
		dy = box.YOffset(b, dy)
	}
	box = box.Translate(mgl64.Vec3{0, dy, 0})
	for _, b := range c.world.boxes {
		dx = box.XOffset(b, dx)
	}
	box = box.Translate(mgl64.Vec3{dx, 0, 0})
	for _, b := range c.world.boxes {
		dz = box.ZOffset(b, dz)
	}

	c.pos = c.pos.Add(mgl64.Vec3{dx, dy, dz})

	var flags CollisionFlags
	if dx != delta[0] || dz != delta[2] {
		flags |= CollidedSides
	}
	if dy != delta[1] {
		if delta[1] < 0 {
			flags |= CollidedBelow
		} else {
			flags |= CollidedAbove
		}
	}
	return flags
}

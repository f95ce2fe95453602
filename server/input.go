package server

import "dasharena/sim"

// Input 客户端输入（意图），由服务端在 Tick 中按角色排队并模拟
type Input struct {
	ActorID ActorID
	Conn    Sender // 来源连接，用于所属权校验
	Sample  sim.InputSample
}

// joinRequest 加入请求，在 Tick 协程中处理
type joinRequest struct {
	id   ActorID
	conn Sender
}

// leaveRequest 离开请求；conn 不是当前所属连接时忽略（例如被拒绝的重复加入）
type leaveRequest struct {
	id   ActorID
	conn Sender
}

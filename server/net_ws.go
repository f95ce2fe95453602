package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dasharena/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ID    string // 连接 ID，仅用于日志
	ws    *websocket.Conn
	codec protocol.Codec
	send  chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec) *ClientConn {
	return &ClientConn{
		ID:    uuid.NewString(),
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, 64),
		done:  make(chan struct{}),
	}
}

// Send 按连接的编码序列化后入队
func (c *ClientConn) Send(m *protocol.Message) {
	b, err := c.codec.Marshal(m)
	if err != nil {
		Log.Errorf("encode %s for conn %s: %v", m.Type, c.ID, err)
		return
	}
	c.Enqueue(b)
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）；后续快照总会覆盖
	}
}

// Close 结束写协程并关闭底层连接，可重复调用
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(frame, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			// 尽量写出已排队的消息（例如拒绝原因），再发送关闭帧
			for n := len(c.send); n > 0; n-- {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.ws.WriteMessage(frame, <-c.send); err != nil {
					return
				}
			}
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// readPump 读取客户端输入，解码后注入房间
func (c *ClientConn) readPump(room *Room, actorID ActorID) {
	defer c.Close()
	// 读泵退出时，通知房间在 Tick 线程中移除该角色
	defer room.RequestLeave(actorID, c)
	c.ws.SetReadLimit(1 << 16)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				Log.Warnf("read error: conn=%s actor=%s: %v", c.ID, actorID, err)
			}
			return
		}
		var m protocol.Message
		if err := c.codec.Unmarshal(payload, &m); err != nil {
			Log.Debugf("bad message: conn=%s actor=%s: %v", c.ID, actorID, err)
			continue
		}
		if m.Type != protocol.TypeInput {
			continue
		}
		room.OnInput(Input{ActorID: actorID, Conn: c, Sample: *m.Input})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?room=room-1&player=alice&codec=msgpack
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	playerID := q.Get("player")
	if playerID == "" {
		http.Error(w, "missing player query", http.StatusBadRequest)
		return
	}
	codecName := q.Get("codec")
	if codecName == "" {
		codecName = m.codec
	}
	codec, err := protocol.Lookup(codecName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	room := m.GetOrCreateRoom(q.Get("room"))
	client := NewClientConn(ws, codec)
	Log.Infof("connected: conn=%s room=%s player=%s codec=%s remote=%s",
		client.ID, room.ID, playerID, codec.Name(), r.RemoteAddr)

	go client.writePump()
	room.RequestJoin(ActorID(playerID), client)
	go client.readPump(room, ActorID(playerID))
}

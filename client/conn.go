package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dasharena/protocol"
	"dasharena/sim"
)

// ErrClosed 连接已关闭
var ErrClosed = errors.New("client: connection closed")

const writeWait = 5 * time.Second

// Conn 客户端到权威服务端的 WebSocket 连接：上行输入，下行快照、广播与事件
type Conn struct {
	ws      *websocket.Conn
	codec   protocol.Codec
	welcome protocol.Welcome
	log     *zap.SugaredLogger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	observers map[string]protocol.ActorState
	onTarget  func(sim.StateSnapshot)
	onEvent   func(protocol.Event)
}

// Dial 连接服务端并等待 Welcome。rawURL 形如 ws://host/ws?room=room-1&player=alice，
// codec 名称会写入查询参数 codec。
func Dial(ctx context.Context, rawURL string, codec protocol.Codec, log *zap.SugaredLogger) (*Conn, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("codec", codec.Name())
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetReadDeadline(deadline)
	}
	_, payload, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	var m protocol.Message
	if err := codec.Unmarshal(payload, &m); err != nil {
		_ = ws.Close()
		return nil, err
	}
	if m.Type != protocol.TypeWelcome {
		_ = ws.Close()
		return nil, fmt.Errorf("expected welcome, got %q", m.Type)
	}
	_ = ws.SetReadDeadline(time.Time{})

	return &Conn{
		ws:        ws,
		codec:     codec,
		welcome:   *m.Welcome,
		log:       log,
		send:      make(chan []byte, 64),
		done:      make(chan struct{}),
		observers: make(map[string]protocol.ActorState),
	}, nil
}

// Welcome 加入时服务端下发的角色 ID、出生点与配置
func (c *Conn) Welcome() protocol.Welcome { return c.welcome }

// OnTarget 注册权威快照回调，需在 Run 之前调用；回调在读协程中执行
func (c *Conn) OnTarget(fn func(sim.StateSnapshot)) {
	c.mu.Lock()
	c.onTarget = fn
	c.mu.Unlock()
}

// OnEvent 注册事件回调，需在 Run 之前调用；回调在读协程中执行
func (c *Conn) OnEvent(fn func(protocol.Event)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// SendInput 非阻塞发送一条输入，发送队列满时丢弃
func (c *Conn) SendInput(in sim.InputSample) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	b, err := c.codec.Marshal(protocol.NewInput(in))
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
	default:
		c.log.Debugf("send queue full, input %d dropped", in.Tick)
	}
	return nil
}

// Observers 其他角色最近一次广播的状态副本
func (c *Conn) Observers() map[string]protocol.ActorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]protocol.ActorState, len(c.observers))
	for id, s := range c.observers {
		out[id] = s
	}
	return out
}

// Run 运行读写协程，直到 ctx 取消、连接断开或 Close
func (c *Conn) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(c.readPump)
	g.Go(c.writePump)
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		c.Close()
		return nil
	})
	return g.Wait()
}

// Close 关闭连接，可重复调用
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) readPump() error {
	defer c.Close()
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var m protocol.Message
		if err := c.codec.Unmarshal(payload, &m); err != nil {
			c.log.Warnf("bad message from server: %v", err)
			continue
		}
		c.dispatch(&m)
	}
}

func (c *Conn) dispatch(m *protocol.Message) {
	c.mu.Lock()
	onTarget, onEvent := c.onTarget, c.onEvent
	switch m.Type {
	case protocol.TypeBroadcast:
		for _, a := range m.Broadcast.Actors {
			if a.ID != c.welcome.ActorID {
				c.observers[a.ID] = a
			}
		}
	case protocol.TypeEvent:
		if m.Event.Kind == protocol.EventLeave {
			delete(c.observers, m.Event.Actor)
		}
	}
	c.mu.Unlock()

	switch m.Type {
	case protocol.TypeTarget:
		if onTarget != nil {
			onTarget(*m.Target)
		}
	case protocol.TypeEvent:
		if onEvent != nil {
			onEvent(*m.Event)
		}
	}
}

func (c *Conn) writePump() error {
	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	for {
		select {
		case <-c.done:
			return nil
		case b := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(frame, b); err != nil {
				if c.closed() {
					return nil
				}
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

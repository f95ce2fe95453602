package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownCodec 不支持的编码名
var ErrUnknownCodec = errors.New("protocol: unknown codec")

// Codec 消息编解码；Binary 决定使用 websocket 的二进制帧还是文本帧
type Codec interface {
	Name() string
	Binary() bool
	Marshal(m *Message) ([]byte, error)
	Unmarshal(b []byte, m *Message) error
}

// Lookup 按名称返回编码器，空字符串为 json
func Lookup(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// JSONCodec 文本帧，便于浏览器端调试
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Marshal(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

func (JSONCodec) Unmarshal(b []byte, m *Message) error {
	if err := json.Unmarshal(b, m); err != nil {
		return fmt.Errorf("decode json message: %w", err)
	}
	return m.Validate()
}

// MsgpackCodec 二进制帧，复用 json 标签，两种编码字段名一致
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Marshal(m *Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(b []byte, m *Message) error {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("decode msgpack message: %w", err)
	}
	return m.Validate()
}

package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/megamanics/interactive/internal/util"
)

// Kind 消息类型标签，决定 Content 的具体结构
type Kind string

const (
	KindKernelInfoRequest Kind = "kernel_info_request"
	KindKernelInfoReply   Kind = "kernel_info_reply"
	KindExecuteRequest    Kind = "execute_request"
	KindExecuteReply      Kind = "execute_reply"
	KindExecuteResult     Kind = "execute_result"
	KindStream            Kind = "stream"
	KindError             Kind = "error"
	KindStatus            Kind = "status"
	KindValueRequest      Kind = "value_request"
	KindValueReply        Kind = "value_reply"
	KindValueInfosRequest Kind = "value_infos_request"
	KindValueInfosReply   Kind = "value_infos_reply"
)

// Message 与内核交换的线级消息信封。
// MsgID 每条消息唯一；ParentID 将回复关联到引发它的请求（请求为空）。
type Message struct {
	MsgID    string          `json:"msg_id"`
	ParentID string          `json:"parent_id,omitempty"`
	Kind     Kind            `json:"msg_type"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// NewRequest 创建一条请求消息并为其生成唯一标识
func NewRequest(kind Kind, content interface{}) (*Message, error) {
	data, err := marshalContent(content)
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgID:   util.GenID(),
		Kind:    kind,
		Content: data,
	}, nil
}

// NewReply 创建一条以 parent 为父消息的回复
func NewReply(parent *Message, kind Kind, content interface{}) (*Message, error) {
	data, err := marshalContent(content)
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgID:    util.GenID(),
		ParentID: parent.MsgID,
		Kind:     kind,
		Content:  data,
	}, nil
}

// IsReplyTo reports whether m answers the request with the given identifier.
func (m *Message) IsReplyTo(requestID string) bool {
	return m.ParentID != "" && m.ParentID == requestID
}

// DecodeContent 将消息内容解码到 kind 对应的结构
func (m *Message) DecodeContent(v interface{}) error {
	if len(m.Content) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Content, v); err != nil {
		return fmt.Errorf("decode %s content: %w", m.Kind, err)
	}
	return nil
}

// Encode 序列化整条消息用于传输
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode 从传输帧还原消息
func Decode(data []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

func marshalContent(content interface{}) (json.RawMessage, error) {
	if content == nil {
		return nil, nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return data, nil
}

package inmem

import (
	"context"
	"errors"
	"sync"

	"github.com/megamanics/interactive/internal/protocol"
	"github.com/megamanics/interactive/internal/transport"
)

// Messenger 进程内回环传输，用于测试与本地开发。
// 通过 OnKind 注册的应答器模拟内核对每类请求的回复。
type Messenger struct {
	broadcast *transport.Broadcaster
	mu        sync.RWMutex
	repliers  map[protocol.Kind]Replier
	sendErr   error
	closed    bool
}

// Replier 为一条出站请求生成零或多条入站回复
type Replier func(req *protocol.Message) []*protocol.Message

func NewMessenger() *Messenger {
	return &Messenger{
		broadcast: transport.NewBroadcaster(),
		repliers:  make(map[protocol.Kind]Replier),
	}
}

// OnKind 注册对某类请求的应答器
func (m *Messenger) OnKind(kind protocol.Kind, fn Replier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repliers[kind] = fn
}

// FailSends 使后续 Send 调用返回 err，模拟传输故障
func (m *Messenger) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// Send 将请求交给对应应答器，并把回复广播给订阅者
func (m *Messenger) Send(ctx context.Context, msg *protocol.Message) error {
	m.mu.RLock()
	closed, sendErr, fn := m.closed, m.sendErr, m.repliers[msg.Kind]
	m.mu.RUnlock()

	if closed {
		return errors.New("inmem messenger is closed")
	}
	if sendErr != nil {
		return sendErr
	}
	if fn == nil {
		return nil
	}
	// 回复异步到达，贴近真实内核的行为
	go func() {
		for _, reply := range fn(msg) {
			m.broadcast.Publish(reply)
		}
	}()
	return nil
}

// Inject 直接向入站流注入一条消息
func (m *Messenger) Inject(msg *protocol.Message) {
	m.broadcast.Publish(msg)
}

func (m *Messenger) Subscribe() (<-chan *protocol.Message, func()) {
	return m.broadcast.Subscribe()
}

func (m *Messenger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.broadcast.Close()
	return nil
}

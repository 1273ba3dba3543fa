package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/megamanics/interactive/internal/protocol"
	"github.com/megamanics/interactive/internal/transport"
	"github.com/sirupsen/logrus"
)

// sinkBuffer 每个等待者的回复缓冲大小
const sinkBuffer = 64

type sink struct {
	kindFilter protocol.Kind // 空值匹配所有类型
	ch         chan *protocol.Message
}

// Matcher 按父消息标识将入站回复分发给各自的等待者。
// 它持有一份待定交换表（请求标识 → 等待者），对共享入站流只占用
// 一个订阅；取消某个等待者不影响其他交换。
type Matcher struct {
	mu      sync.Mutex
	pending map[string]map[int]*sink
	nextID  int
}

func NewMatcher() *Matcher {
	return &Matcher{
		pending: make(map[string]map[int]*sink),
	}
}

// Run 消费 messenger 的入站流并完成匹配，直到 ctx 取消。
// Matcher 工作期间必须有且仅有一个 Run 在执行。
func (m *Matcher) Run(ctx context.Context, messenger transport.Messenger) error {
	inbound, cancel := messenger.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			m.Observe(msg)
		}
	}
}

// Observe 处理一条入站消息：查到待定交换则投递，否则丢弃。
func (m *Matcher) Observe(msg *protocol.Message) {
	if msg == nil || msg.ParentID == "" {
		return
	}

	m.mu.Lock()
	sinks := m.pending[msg.ParentID]
	matched := make([]*sink, 0, len(sinks))
	for _, s := range sinks {
		if s.kindFilter == "" || s.kindFilter == msg.Kind {
			matched = append(matched, s)
		}
	}
	m.mu.Unlock()

	for _, s := range matched {
		select {
		case s.ch <- msg:
		default:
			logrus.Warnf("Reply sink for request %s is full, dropping %s message %s",
				msg.ParentID, msg.Kind, msg.MsgID)
		}
	}
}

// Watch 注册对某个请求的后续回复的观察，返回回复通道与释放函数。
// 必须在请求发出前注册，否则先到的回复会被丢弃。
func (m *Matcher) Watch(requestID string, kindFilter protocol.Kind) (<-chan *protocol.Message, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	s := &sink{
		kindFilter: kindFilter,
		ch:         make(chan *protocol.Message, sinkBuffer),
	}
	if m.pending[requestID] == nil {
		m.pending[requestID] = make(map[int]*sink)
	}
	m.pending[requestID][id] = s

	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		sinks := m.pending[requestID]
		if _, ok := sinks[id]; !ok {
			return
		}
		delete(sinks, id)
		if len(sinks) == 0 {
			delete(m.pending, requestID)
		}
	}
	return s.ch, release
}

// AwaitReplies 返回请求的后续 count 条匹配回复，按到达顺序排列。
// ctx 在凑齐之前取消时返回 ErrCancelled 并释放订阅，绝不返回部分结果。
func (m *Matcher) AwaitReplies(ctx context.Context, requestID string, kindFilter protocol.Kind, count int) ([]*protocol.Message, error) {
	if count < 1 {
		return nil, errors.New("await replies: count must be >= 1")
	}

	ch, release := m.Watch(requestID, kindFilter)
	defer release()

	replies := make([]*protocol.Message, 0, count)
	for len(replies) < count {
		select {
		case <-ctx.Done():
			return nil, cancelled(ctx.Err())
		case msg := <-ch:
			replies = append(replies, msg)
		}
	}
	return replies, nil
}

// PendingCount 当前待定交换数，供监控使用
func (m *Matcher) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sinks := range m.pending {
		n += len(sinks)
	}
	return n
}

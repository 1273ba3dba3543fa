package bridge

import (
	"context"
	"sync"

	"github.com/megamanics/interactive/internal/transport"
	"github.com/sirupsen/logrus"
)

// busBuffer 每个总线订阅者的缓冲大小
const busBuffer = 64

// Connector 本地命令/事件总线与内核协议之间的桥接门面。
// 状态机：Active → Disposed，释放是立即且全量的。
type Connector struct {
	messenger transport.Messenger
	matcher   *Matcher
	handlers  map[CommandKind]Handler

	mu          sync.RWMutex
	subscribers map[int]chan CommandOrEvent
	nextID      int
	disposed    bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewConnector 创建连接器；handlers 为 nil 时使用默认注册表。
// 调用方需保证 matcher.Run 正在消费 messenger 的入站流。
func NewConnector(messenger transport.Messenger, matcher *Matcher, handlers map[CommandKind]Handler) *Connector {
	if handlers == nil {
		handlers = DefaultHandlers()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Connector{
		messenger:   messenger,
		matcher:     matcher,
		handlers:    handlers,
		subscribers: make(map[int]chan CommandOrEvent),
		baseCtx:     baseCtx,
		cancel:      cancel,
	}
}

// Dispatch 将命令交给注册的 handler 并等待其完成。
// 未注册的命令类型静默忽略（面向前向兼容的显式策略）。
// 多个 Dispatch 可以并发进行，彼此只靠关联标识区分。
func (c *Connector) Dispatch(ctx context.Context, cmd Command) error {
	c.mu.RLock()
	disposed := c.disposed
	handler := c.handlers[cmd.CommandKind()]
	c.mu.RUnlock()

	if disposed {
		return ErrDisposed
	}
	if handler == nil {
		logrus.Debugf("No handler registered for command %s, ignoring", cmd.CommandKind())
		return nil
	}

	// 连接器释放时，进行中的交换随之取消
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.baseCtx, cancel)
	defer stop()

	c.broadcast(CommandOrEvent{Command: cmd})

	ectx := &ExecutionContext{
		messenger: c.messenger,
		matcher:   c.matcher,
		publish:   c.Publish,
	}
	return handler(runCtx, cmd, ectx)
}

// Publish 将事件包装为 CommandOrEvent 追加到共享出站流。
// 投递不会因任何订阅者的处理速度而阻塞。
func (c *Connector) Publish(event Event) error {
	c.mu.RLock()
	disposed := c.disposed
	c.mu.RUnlock()
	if disposed {
		return ErrDisposed
	}
	c.broadcast(CommandOrEvent{Event: event})
	return nil
}

// SendEvent 在此连接器角色下恒为不支持：命令向协议方向流出，
// 事件向本地方向流入，本地事件不会被回送到线上。
func (c *Connector) SendEvent(Event) error {
	return ErrNotSupported
}

// Subscribe 注册一个总线观察者，返回通道与可多次调用的退订函数
func (c *Connector) Subscribe() (<-chan CommandOrEvent, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan CommandOrEvent, busBuffer)
	if c.disposed {
		close(ch)
		return ch, func() {}
	}
	c.subscribers[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (c *Connector) broadcast(item CommandOrEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.disposed {
		return
	}
	for id, sub := range c.subscribers {
		select {
		case sub <- item:
		default:
			logrus.Warnf("Bus subscriber %d is full, dropping item", id)
		}
	}
}

// Dispose 同步退订所有观察者并取消进行中的交换；幂等。
func (c *Connector) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		close(sub)
	}
	c.mu.Unlock()

	c.cancel()
	logrus.Info("Connector disposed")
}

package transport

import (
	"sync"

	"github.com/megamanics/interactive/internal/protocol"
	"github.com/sirupsen/logrus"
)

// subscriberBuffer 每个订阅者通道的缓冲大小
const subscriberBuffer = 64

// Broadcaster fans inbound messages out to any number of subscribers.
// Delivery to one subscriber never blocks on another; a subscriber that
// falls behind its buffer loses messages with a warning.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[int]chan *protocol.Message
	nextID      int
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[int]chan *protocol.Message),
	}
}

// Subscribe registers a new observer of the inbound stream.
func (b *Broadcaster) Subscribe() (<-chan *protocol.Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan *protocol.Message, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers msg to every current subscriber.
func (b *Broadcaster) Publish(msg *protocol.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for id, sub := range b.subscribers {
		select {
		case sub <- msg:
		default:
			logrus.Warnf("Inbound subscriber %d is full, dropping message %s", id, msg.MsgID)
		}
	}
}

// Close unsubscribes all observers; further publishes are discarded.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub)
	}
}

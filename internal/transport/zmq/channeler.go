package zmq

import (
	"context"
	"errors"
	"sync"

	"github.com/megamanics/interactive/internal/protocol"
	"github.com/megamanics/interactive/internal/transport"
	"github.com/sirupsen/logrus"
	"gopkg.in/zeromq/goczmq.v4"
)

// Messenger wraps goczmq.Channeler for kernel communication.
// It holds a Dealer socket connected to the kernel's Router endpoint;
// messages are JSON-framed, one message per frame.
type Messenger struct {
	channeler *goczmq.Channeler
	broadcast *transport.Broadcaster
	mu        sync.RWMutex
	closed    bool
}

// NewMessenger connects a Dealer channeler to the kernel endpoint,
// e.g. "tcp://127.0.0.1:5555".
func NewMessenger(endpoint string) (*Messenger, error) {
	base := goczmq.NewDealerChanneler(endpoint)
	if base == nil {
		return nil, errors.New("failed to create ZMQ dealer for " + endpoint)
	}
	logrus.Infof("Connected ZMQ dealer to kernel endpoint %s", endpoint)
	return &Messenger{
		channeler: base,
		broadcast: transport.NewBroadcaster(),
	}, nil
}

// Send encodes and sends a message to the kernel.
func (m *Messenger) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	m.mu.RLock()
	closed, ch := m.closed, m.channeler
	m.mu.RUnlock()
	if closed || ch == nil {
		return errors.New("zmq messenger is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch.SendChan <- [][]byte{data}:
		logrus.Debugf("Sent %s message %s to kernel", msg.Kind, msg.MsgID)
		return nil
	}
}

// Subscribe registers an observer of the inbound kernel stream.
func (m *Messenger) Subscribe() (<-chan *protocol.Message, func()) {
	return m.broadcast.Subscribe()
}

// Run processes inbound frames until the context is cancelled or the
// messenger is closed. It must be running for subscribers to see messages.
func (m *Messenger) Run(ctx context.Context) error {
	m.mu.RLock()
	ch := m.channeler
	m.mu.RUnlock()
	if ch == nil {
		return errors.New("zmq messenger is closed")
	}

	logrus.Info("ZMQ receiver started, waiting for kernel messages...")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("ZMQ receiver stopped")
			return ctx.Err()
		case frames, ok := <-ch.RecvChan:
			if !ok {
				logrus.Info("ZMQ RecvChan closed")
				return nil
			}
			if len(frames) == 0 {
				continue
			}
			// Dealer sockets may deliver an empty delimiter frame first.
			data := frames[len(frames)-1]
			msg, err := protocol.Decode(data)
			if err != nil {
				logrus.Warnf("Dropping undecodable kernel frame: %v", err)
				continue
			}
			logrus.Debugf("Received %s message %s (parent %s)", msg.Kind, msg.MsgID, msg.ParentID)
			m.broadcast.Publish(msg)
		}
	}
}

// Close destroys the channeler and releases all resources.
func (m *Messenger) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ch := m.channeler
	m.channeler = nil
	m.mu.Unlock()

	m.broadcast.Close()
	if ch != nil {
		ch.Destroy()
		logrus.Info("ZMQ channeler closed and resources released")
	}
	return nil
}

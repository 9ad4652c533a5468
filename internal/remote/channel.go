package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the number of undelivered messages a channel keeps.
const DefaultBufferSize = 64

var (
	// ErrUnsupportedEndpoint is returned by Open for unknown endpoint schemes.
	ErrUnsupportedEndpoint = errors.New("unsupported endpoint")
	// ErrChannelClosed is returned when sending on a closed channel.
	ErrChannelClosed = errors.New("channel closed")
)

// Channel is a best-effort inbound message stream.
type Channel interface {
	// Poll returns the oldest pending message. It waits at most timeout and
	// never blocks when timeout is zero.
	Poll(timeout time.Duration) ([]byte, bool)

	// Close stops delivery and releases the underlying connection.
	Close() error
}

// Options configures Open.
type Options struct {
	// BufferSize caps pending messages; when full the oldest is dropped.
	BufferSize int
	Logger     *log.Logger
}

// Open connects to endpoint. Supported schemes:
//
//	ws://, wss://  websocket client, one JSON document per message
//	udp://         UDP listener, one JSON document per datagram
//	mem://         in-process channel, fed with MemoryChannel.Send
//
// A connection failure is returned immediately; there is no retry.
func Open(ctx context.Context, endpoint string, opts Options) (Channel, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}

	switch u.Scheme {
	case "ws", "wss":
		ch, err := DialWebSocket(ctx, endpoint, opts)
		if err != nil {
			return nil, err
		}
		return ch, nil
	case "udp":
		ch, err := ListenUDP(u.Host, opts)
		if err != nil {
			return nil, err
		}
		return ch, nil
	case "mem":
		return NewMemoryChannel(opts.BufferSize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEndpoint, endpoint)
	}
}

// queue is the bounded drop-oldest buffer shared by every channel.
type queue struct {
	ch      chan []byte
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once
	dropped atomic.Int64
}

func newQueue(size int) *queue {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &queue{
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
	}
}

// push enqueues data, evicting the oldest message when full.
func (q *queue) push(data []byte) {
	for {
		select {
		case q.ch <- data:
			return
		default:
		}

		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

func (q *queue) poll(timeout time.Duration) ([]byte, bool) {
	if q.closed.Load() {
		return nil, false
	}

	select {
	case data := <-q.ch:
		return data, true
	default:
	}

	if timeout <= 0 {
		return nil, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-q.ch:
		return data, true
	case <-timer.C:
		return nil, false
	case <-q.done:
		return nil, false
	}
}

// shutdown marks the queue closed. It reports false if it was already closed.
func (q *queue) shutdown() bool {
	first := false
	q.once.Do(func() {
		q.closed.Store(true)
		close(q.done)
		first = true
	})
	return first
}

// Dropped returns how many messages were evicted because the buffer was full.
func (q *queue) Dropped() int64 {
	return q.dropped.Load()
}

func discardLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard, "", 0)
	}
	return l
}

// MemoryChannel is an in-process Channel for tests and embedding.
type MemoryChannel struct {
	*queue
}

// NewMemoryChannel creates a MemoryChannel holding up to size pending messages.
func NewMemoryChannel(size int) *MemoryChannel {
	return &MemoryChannel{queue: newQueue(size)}
}

// Send enqueues a message.
func (m *MemoryChannel) Send(data []byte) error {
	if m.closed.Load() {
		return ErrChannelClosed
	}
	m.push(data)
	return nil
}

// Poll implements Channel.
func (m *MemoryChannel) Poll(timeout time.Duration) ([]byte, bool) {
	return m.poll(timeout)
}

// Close implements Channel.
func (m *MemoryChannel) Close() error {
	m.shutdown()
	return nil
}

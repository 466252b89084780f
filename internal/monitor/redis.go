package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"

	"github.com/joeycumines/bteng/internal/bt"
)

// DefaultChannel receives published events unless WithChannel is used.
const DefaultChannel = "bteng:events"

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithChannel sets the channel events are published to.
func WithChannel(channel string) PublisherOption {
	return func(p *Publisher) {
		if channel != "" {
			p.channel = channel
		}
	}
}

// WithBuffer sets how many events may wait for delivery before new events
// are dropped.
func WithBuffer(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// WithPublishTimeout bounds each round trip to Redis.
func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Publisher forwards events to Redis from a background goroutine, so that
// observing never blocks a tick.
//
// Every event is published as a JSON Record on the channel, and the latest
// status of each node is kept in the hash "<channel>:status:<tree id>",
// keyed by node id.
type Publisher struct {
	client  backend.UniversalClient
	channel string
	buffer  int
	timeout time.Duration
	logger  *slog.Logger

	events    chan bt.TickEvent
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	dropped   atomic.Uint64
	published atomic.Uint64
}

// NewPublisher starts a publisher. Close must be called to release it.
func NewPublisher(client backend.UniversalClient, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:  client,
		channel: DefaultChannel,
		buffer:  1024,
		timeout: time.Second,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.events = make(chan bt.TickEvent, p.buffer)
	go p.run()
	return p
}

// StatusKey returns the hash holding the latest node statuses of a tree.
func (p *Publisher) StatusKey(treeID string) string {
	return p.channel + ":status:" + treeID
}

// Observe queues ev, dropping it if the buffer is full or the publisher is
// closed.
func (p *Publisher) Observe(ev bt.TickEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns the number of events that were not queued.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Published returns the number of events delivered to Redis.
func (p *Publisher) Published() uint64 { return p.published.Load() }

// Close stops accepting events, delivers the queued ones, and waits for the
// background goroutine, or for ctx.
func (p *Publisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.events {
		if err := p.publish(ev); err != nil {
			p.logger.Warn("[BT] publishing event failed",
				"channel", p.channel,
				"node", ev.Name,
				"error", err)
			continue
		}
		p.published.Add(1)
	}
}

func (p *Publisher) publish(ev bt.TickEvent) error {
	payload, err := json.Marshal(NewRecord(ev))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	cmds, err := p.client.Pipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.HSet(ctx, p.StatusKey(ev.TreeID), ev.NodeID, ev.Status.String())
		return nil
	})
	if err != nil {
		return err
	}
	var errs []error
	for _, cmd := range cmds {
		errs = append(errs, cmd.Err())
	}
	return errors.Join(errs...)
}

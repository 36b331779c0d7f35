// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventChannel is the Valkey pub/sub channel carrying auth-state events.
const EventChannel = "session:events"

// EventType names an auth-state transition.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is one auth-state change announced by the session store.
type Event struct {
	Type   EventType `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	At     time.Time `json:"at"`
}

// Subscription is a live feed of auth-state events.
type Subscription interface {
	// Confirm blocks until the upstream acknowledges the subscription or
	// reports why it could not.
	Confirm(ctx context.Context) error
	// Events delivers events after a successful Confirm. The channel is
	// closed when the subscription ends.
	Events() <-chan Event
	Close() error
}

// Source opens subscriptions to the auth-state channel.
type Source interface {
	Subscribe(ctx context.Context) Subscription
}

// Gate tracks whether the auth-state feed has answered at least once.
// Until it has, the app cannot tell "signed out" from "not known yet", so
// requests are held on a loading page instead of being sent to sign-in.
// The gate becomes ready on the first answer, successful or not, and stays
// ready for the life of the process.
type Gate struct {
	source  Source
	ready   atomic.Bool
	readyCh chan struct{}

	mu        sync.RWMutex
	listeners []func(Event)
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
}

// NewGate creates a gate fed by source. Call Start to subscribe.
func NewGate(source Source) *Gate {
	return &Gate{
		source:  source,
		readyCh: make(chan struct{}),
	}
}

// OnEvent registers fn to be called for every event received after the
// subscription is confirmed. Listeners run on the gate's goroutine.
func (g *Gate) OnEvent(fn func(Event)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// Start subscribes once and processes events in the background until ctx
// is cancelled or Close is called. Calling Start more than once has no effect.
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil || g.closed {
		return
	}

	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})
	go g.run(ctx, g.done)
}

func (g *Gate) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	sub := g.source.Subscribe(ctx)
	defer sub.Close()

	err := sub.Confirm(ctx)
	g.markReady()
	if err != nil {
		slog.Error("session event subscription failed", "error", err)
		return
	}
	slog.Info("session event subscription ready", "channel", EventChannel)

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.dispatch(ev)
		}
	}
}

func (g *Gate) markReady() {
	if g.ready.CompareAndSwap(false, true) {
		close(g.readyCh)
	}
}

func (g *Gate) dispatch(ev Event) {
	g.mu.RLock()
	listeners := g.listeners
	g.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Ready reports whether the first answer from the feed has arrived.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// Wait blocks until the gate is ready or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unsubscribes and waits for the background goroutine to exit.
func (g *Gate) Close() error {
	g.mu.Lock()
	g.closed = true
	cancel, done := g.cancel, g.done
	g.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// RedisSource subscribes to EventChannel on a Valkey server.
type RedisSource struct {
	client *redis.Client
}

// NewRedisSource creates a Source backed by Valkey pub/sub.
func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{client: client}
}

// Subscribe opens a pub/sub subscription on EventChannel.
func (s *RedisSource) Subscribe(ctx context.Context) Subscription {
	return &redisSubscription{
		ps:     s.client.Subscribe(ctx, EventChannel),
		events: make(chan Event),
		stop:   make(chan struct{}),
	}
}

type redisSubscription struct {
	ps        *redis.PubSub
	events    chan Event
	stop      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Confirm waits for the subscribe acknowledgement, which is the first reply
// the server sends.
func (s *redisSubscription) Confirm(ctx context.Context) error {
	_, err := s.ps.Receive(ctx)
	return err
}

func (s *redisSubscription) Events() <-chan Event {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.forward()
	})
	return s.events
}

func (s *redisSubscription) forward() {
	defer s.wg.Done()
	defer close(s.events)

	msgs := s.ps.Channel()
	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("malformed session event", "payload", msg.Payload, "error", err)
				continue
			}
			select {
			case s.events <- ev:
			case <-s.stop:
				return
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.ps.Close()
		s.wg.Wait()
	})
	return err
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PropExtract/internal/port/changefeed"
)

// FeedChannel is the NOTIFY channel written by the notify_table_change trigger.
const FeedChannel = "table_changes"

const (
	feedBuffer       = 64
	feedRetryInitial = 500 * time.Millisecond
	feedRetryMax     = 30 * time.Second
)

// Feed implements changefeed.Feed on a single LISTEN connection. Events are
// fanned out to per-subscriber goroutines so a slow subscriber never blocks
// the listener or other subscribers.
type Feed struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	subs   map[uint64]*feedSub
	nextID uint64

	ready     chan struct{}
	readyOnce sync.Once
}

type feedSub struct {
	table  string
	fn     changefeed.Listener
	events chan changefeed.Event
	done   chan struct{}
	closed atomic.Bool
}

// NewFeed creates a Feed. Call Run to start listening.
func NewFeed(pool *pgxpool.Pool) *Feed {
	return &Feed{
		pool:  pool,
		subs:  make(map[uint64]*feedSub),
		ready: make(chan struct{}),
	}
}

// Run holds the LISTEN connection until ctx is cancelled, reconnecting with
// exponential backoff. After a reconnect every subscriber receives an
// OpResync event.
func (f *Feed) Run(ctx context.Context) error {
	delay := feedRetryInitial
	first := true
	for {
		err := f.listen(ctx, !first)
		if ctx.Err() != nil {
			return nil
		}
		first = false
		slog.Warn("change feed disconnected, retrying", "error", err, "delay", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, feedRetryMax)
	}
}

func (f *Feed) listen(ctx context.Context, reconnect bool) error {
	pc, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	// The connection carries LISTEN state and must not return to the pool.
	conn := pc.Hijack()
	defer func() { _ = conn.Close(context.WithoutCancel(ctx)) }()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{FeedChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", FeedChannel, err)
	}
	f.readyOnce.Do(func() { close(f.ready) })
	slog.Info("change feed listening", "channel", FeedChannel)

	if reconnect {
		f.broadcastResync()
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		var ev changefeed.Event
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			slog.Warn("change feed: malformed payload", "payload", n.Payload, "error", err)
			continue
		}
		f.dispatch(ev)
	}
}

// Subscribe registers fn for changes on table. It waits until the feed is
// listening so that no change committed after Subscribe returns is missed.
func (f *Feed) Subscribe(ctx context.Context, table string, fn changefeed.Listener) (func(), error) {
	select {
	case <-f.ready:
	case <-ctx.Done():
		return nil, fmt.Errorf("subscribe %s: %w", table, ctx.Err())
	}

	sub := &feedSub{
		table:  table,
		fn:     fn,
		events: make(chan changefeed.Event, feedBuffer),
		done:   make(chan struct{}),
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	go sub.run(context.WithoutCancel(ctx))

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.closed.Store(true)
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(sub.done)
		})
	}, nil
}

// SubscriberCount returns the number of live registrations.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) dispatch(ev changefeed.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.table == ev.Table {
			sub.offer(ev)
		}
	}
}

func (f *Feed) broadcastResync() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		sub.offer(changefeed.Event{Table: sub.table, Op: changefeed.OpResync})
	}
}

// offer enqueues ev without blocking. A full buffer already holds pending
// events that will trigger the subscriber, so the event is dropped.
func (s *feedSub) offer(ev changefeed.Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *feedSub) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			if s.closed.Load() {
				return
			}
			s.fn(ctx, ev)
		}
	}
}

// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/PropExtract/internal/config"
	"github.com/Strob0t/PropExtract/internal/logger"
	"github.com/Strob0t/PropExtract/internal/port/messagequeue"
)

const headerRequestID = "X-Request-ID"

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	stream  string
	ackWait time.Duration
	workers int
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, cfg config.NATS) (*Queue, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("propextract"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Ensure the stream exists with subjects matching our topic patterns.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{"tasks.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", cfg.URL, "stream", cfg.Stream)
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Queue{nc: nc, js: js, stream: cfg.Stream, ackWait: cfg.AckWait, workers: workers}, nil
}

// JetStream exposes the JetStream context for KV and object store adapters.
func (q *Queue) JetStream() jetstream.JetStream {
	return q.js
}

// Publish validates data against the subject schema and sends it. The
// request ID from ctx travels as a header.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler on a durable consumer shared by every
// instance subscribing to subject.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	return q.consume(ctx, subject, jetstream.ConsumerConfig{
		Durable:       durableName(subject),
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.ackWait,
	}, handler)
}

// SubscribeBroadcast registers a handler on an ephemeral consumer that only
// sees messages published from now on.
func (q *Queue) SubscribeBroadcast(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	return q.consume(ctx, subject, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	}, handler)
}

func (q *Queue) consume(ctx context.Context, subject string, cfg jetstream.ConsumerConfig, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.stream, cfg)
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	var (
		base = context.WithoutCancel(ctx)
		sem  = make(chan struct{}, q.workers)
		wg   sync.WaitGroup
	)
	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem; wg.Done() }()
			deliver(base, msg, handler, cfg.AckWait/2)
		}()
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return func() {
		cons.Stop()
		wg.Wait()
	}, nil
}

// deliver runs handler for msg and acks or terminates it. While the handler
// runs, msg is marked in progress every heartbeat so JetStream does not
// redeliver it; a zero heartbeat disables that.
func deliver(base context.Context, msg jetstream.Msg, handler messagequeue.Handler, heartbeat time.Duration) {
	msgCtx := base
	if id := msg.Headers().Get(headerRequestID); id != "" {
		msgCtx = logger.WithRequestID(msgCtx, id)
	}

	done := make(chan struct{})
	if heartbeat > 0 {
		go func() {
			t := time.NewTicker(heartbeat)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					if err := msg.InProgress(); err != nil {
						slog.WarnContext(msgCtx, "nats in-progress failed", "subject", msg.Subject(), "error", err)
					}
				}
			}
		}()
	}
	err := handler(msgCtx, msg.Subject(), msg.Data())
	close(done)

	if err != nil {
		slog.ErrorContext(msgCtx, "message handler failed", "subject", msg.Subject(), "error", err)
		// Handlers are not retried; terminate instead of redelivering.
		if termErr := msg.Term(); termErr != nil {
			slog.Error("nats term failed", "error", termErr)
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("nats ack failed", "error", ackErr)
	}
}

// Drain gracefully drains all subscriptions before closing.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the NATS connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc.IsConnected()
}

// durableName derives a consumer name from a subject. Durable names may not
// contain '.', '*' or '>'.
func durableName(subject string) string {
	r := strings.NewReplacer(".", "_", "*", "any", ">", "all")
	return "propextract_" + r.Replace(subject)
}

//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fogfish/suitestarter/internal/events"
	"github.com/fogfish/suitestarter/internal/starter"
	"github.com/fogfish/suitestarter/internal/telemetry"
	"github.com/nats-io/nats.go"
)

// ConnectNATS connects to NATS server, reconnects forever
func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return conn, nil
}

// EnsureStream creates JetStream stream for the subject unless it exists
func EnsureStream(js nats.JetStreamContext, stream, subject string) error {
	_, err := js.StreamInfo(stream)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("create stream %s: %w", stream, err)
		}
		return nil
	default:
		return fmt.Errorf("stream %s: %w", stream, err)
	}
}

// NATS consumes events from JetStream queue subscription. Events are
// acknowledged if consumed. Failed events are redelivered after a delay,
// a limited number of times. Malformed events and events rejected by
// assertion are terminated, redelivery does not fix them.
type NATS struct {
	js         nats.JetStreamContext
	subject    string
	queue      string
	callback   Callback
	delay      time.Duration
	maxDeliver int
	sub        *nats.Subscription
}

type Option func(*NATS)

// WithRedelivery defines the delay and the max number of deliveries of
// failed event
func WithRedelivery(delay time.Duration, maxDeliver int) Option {
	return func(n *NATS) {
		n.delay = delay
		n.maxDeliver = maxDeliver
	}
}

func NewNATS(js nats.JetStreamContext, subject, queue string, callback Callback, opts ...Option) *NATS {
	n := &NATS{
		js:         js,
		subject:    subject,
		queue:      queue,
		callback:   callback,
		delay:      10 * time.Second,
		maxDeliver: 5,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

func (n *NATS) Subscribe() error {
	sub, err := n.js.QueueSubscribe(n.subject, n.queue, n.handle,
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(n.maxDeliver),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", n.subject, err)
	}

	n.sub = sub
	slog.Info("subscribed", "subject", n.subject, "queue", n.queue, "max_deliver", n.maxDeliver)

	return nil
}

func (n *NATS) Close() error {
	if n.sub == nil {
		return nil
	}
	return n.sub.Unsubscribe()
}

func (n *NATS) handle(msg *nats.Msg) {
	ctx := telemetry.Extract(context.Background(), msg.Header)

	evt, err := events.Decode(msg.Data)
	if err != nil {
		slog.Error("malformed event", "subject", msg.Subject, "err", err)
		if err := msg.Term(); err != nil {
			slog.Warn("term failed", "err", err)
		}
		return
	}

	ok, err := n.callback(ctx, evt)
	if err == nil && !ok {
		err = ErrNotConsumed
	}
	if starter.IsAssertion(err) {
		slog.Error("event rejected", "suite_id", evt.ID(), "err", err)
		if err := msg.Term(); err != nil {
			slog.Warn("term failed", "suite_id", evt.ID(), "err", err)
		}
		return
	}

	if err != nil {
		slog.Error("event failed", "suite_id", evt.ID(), "err", err)
		if err := msg.NakWithDelay(n.delay); err != nil {
			slog.Warn("nak failed", "suite_id", evt.ID(), "err", err)
		}
		return
	}

	if err := msg.Ack(); err != nil {
		slog.Warn("ack failed", "suite_id", evt.ID(), "err", err)
	}
}

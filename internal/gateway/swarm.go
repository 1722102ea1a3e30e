//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

// Package gateway delivers TERCC events from message brokers to the callback
// and acknowledges them according to the outcome.
package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fogfish/suitestarter/internal/events"
	"github.com/fogfish/suitestarter/internal/starter"
	"github.com/fogfish/swarm"
)

// Callback consumes the event, false or error requests redelivery unless
// the error is assertion
type Callback func(ctx context.Context, evt *events.TERCC) (bool, error)

var ErrNotConsumed = errors.New("event is not consumed")

// Swarm consumes events dequeued by swarm broker. Malformed events and
// events rejected by assertion are acknowledged, redelivery does not fix them.
type Swarm struct {
	callback Callback
}

func NewSwarm(callback Callback) *Swarm {
	return &Swarm{callback: callback}
}

func (s *Swarm) Run(rcv <-chan swarm.Msg[*events.TERCC], ack chan<- swarm.Msg[*events.TERCC]) {
	for msg := range rcv {
		evt := msg.Object
		if evt == nil {
			ack <- msg
			continue
		}

		if err := evt.Validate(); err != nil {
			slog.Error("malformed event", "category", msg.Ctx.Category, "err", err)
			ack <- msg
			continue
		}

		ok, err := s.callback(context.Background(), evt)
		if err == nil && !ok {
			err = ErrNotConsumed
		}
		if starter.IsAssertion(err) {
			slog.Error("event rejected", "suite_id", evt.ID(), "err", err)
			ack <- msg
			continue
		}
		if err != nil {
			slog.Error("event failed", "suite_id", evt.ID(), "err", err)
			ack <- msg.Fail(err)
			continue
		}

		ack <- msg
	}
}

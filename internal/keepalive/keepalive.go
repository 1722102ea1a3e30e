//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package keepalive

import (
	"context"
	"log/slog"
	"time"
)

// Run reports liveness of the process every interval. It blocks until
// the context is cancelled, which happens on process termination only.
func Run(ctx context.Context, interval time.Duration, status string) {
	slog.Info(status)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("keep alive stopped", "err", ctx.Err())
			return
		case <-ticker.C:
			slog.Info("alive")
		}
	}
}

// Package stream implements the polling loop behind the customer-facing
// delivery status feed. The loop is transport-agnostic: it recomputes a
// snapshot on a fixed interval and pushes serialized frames through a send
// callback only when the snapshot changed since the last emission.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is used when a poller is constructed without one.
const DefaultInterval = 3 * time.Second

// Snapshot recomputes the current client-visible state. Returning an error
// terminates the stream with one error frame.
type Snapshot func(ctx context.Context) (interface{}, error)

// SendFunc delivers one serialized frame to the client. A send error is
// treated as a disconnect and ends the loop silently.
type SendFunc func(data []byte) error

type errorFrame struct {
	Error string `json:"error"`
}

// Poller drives one client's status feed.
type Poller struct {
	Interval time.Duration
	Fetch    Snapshot
	Logger   *zap.Logger
}

// Run polls until the context is cancelled, the client disconnects, or
// Fetch fails. The first snapshot is emitted immediately; afterwards a
// frame goes out only when the marshaled snapshot differs from the last
// one sent. A Fetch failure emits a terminal error frame and returns the
// fetch error; cancellation and disconnect return nil.
func (p *Poller) Run(ctx context.Context, send SendFunc) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSent []byte
	for {
		snap, err := p.Fetch(ctx)
		if err != nil {
			frame, merr := json.Marshal(errorFrame{Error: err.Error()})
			if merr == nil {
				if serr := send(frame); serr != nil {
					return nil
				}
			}
			return err
		}

		data, err := json.Marshal(snap)
		if err != nil {
			p.Logger.Error("failed to marshal status snapshot", zap.Error(err))
			return err
		}

		if !bytes.Equal(data, lastSent) {
			if err := send(data); err != nil {
				// Client went away.
				return nil
			}
			lastSent = data
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor implements adaptive polling of one sensor. Each
// reading's self-reported measurement interval and age schedule the
// next read, so scheduling error does not accumulate across
// iterations.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aranet-go/aranet/reading"
	"github.com/aranet-go/aranet/session"
)

// DefaultMargin is added to the computed wait so the read lands just
// after the device's next measurement edge.
const DefaultMargin = 3 * time.Second

// Reader performs one read operation against a device. It is
// implemented by session.Coordinator.
type Reader interface {
	Read(ctx context.Context, dev session.Device) (*session.Result, error)
}

// Monitor polls one device. At most one read is in flight at any time.
type Monitor struct {
	reader Reader
	dev    session.Device
	margin time.Duration
	log    *zap.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMargin sets the slack added after each computed measurement
// edge.
func WithMargin(d time.Duration) Option {
	return func(m *Monitor) { m.margin = d }
}

// WithLogger sets the logger used for diagnostic trace events.
func WithLogger(log *zap.Logger) Option {
	return func(m *Monitor) { m.log = log }
}

// New returns a Monitor polling dev through reader.
func New(reader Reader, dev session.Device, opts ...Option) *Monitor {
	m := &Monitor{
		reader: reader,
		dev:    dev,
		margin: DefaultMargin,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run reads the device repeatedly, calling emit with each result,
// until ctx is cancelled or a read fails. The first error terminates
// the stream; whether to start over is the caller's decision. A
// reading that reports no measurement cadence cannot drive the
// schedule and ends the run with reading.ErrInvalidData.
//
// Cancellation is observed before each read and during each wait; the
// read in flight when cancellation arrives still runs to its own
// resolution and releases its connection.
func (m *Monitor) Run(ctx context.Context, emit func(*session.Result)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := m.reader.Read(ctx, m.dev)
		if err != nil {
			return err
		}
		emit(res)

		interval, age, ok := res.Reading.Cadence()
		if !ok {
			return fmt.Errorf("%w: reading reports no interval or age", reading.ErrInvalidData)
		}
		// Always derived from the freshly observed age, never from
		// elapsed wall-clock time.
		delay := nextDelay(interval, age, m.margin)
		m.log.Debug("monitor: waiting for next measurement",
			zap.Duration("interval", interval),
			zap.Duration("age", age),
			zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// nextDelay computes the wait until just after the device's next
// measurement edge.
func nextDelay(interval, age, margin time.Duration) time.Duration {
	delay := interval - age + margin
	if delay < 0 {
		return 0
	}
	return delay
}

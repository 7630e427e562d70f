// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session drives single-shot scan and read operations against
// the supported environmental sensors, reconciling the BLE stack's
// asynchronous callbacks into exactly one resolution per operation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/aranet-go/aranet/gatt"
)

const (
	// defaultGraceTimeout is how long a read waits before treating
	// accumulated authentication failures as a missing bond.
	defaultGraceTimeout = 5 * time.Second
	// defaultReadTimeout is the absolute budget for one read operation.
	defaultReadTimeout = 30 * time.Second
)

// Coordinator performs scan and read operations against one peripheral
// at a time. Methods are safe for concurrent use; operations on the
// same Coordinator are serialized, never interleaved.
type Coordinator struct {
	adapter Adapter
	log     *zap.Logger

	grace   time.Duration
	timeout time.Duration

	enableOnce sync.Once
	enableErr  error

	ops chan struct{} // serializes operations
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for diagnostic trace events. Tracing
// never alters behavior.
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithGraceTimeout sets how long a read operation waits before
// escalating counted authentication failures to PairingRequiredError.
func WithGraceTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.grace = d }
}

// WithReadTimeout sets the absolute budget for one read operation.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// New returns a Coordinator using the provided adapter.
func New(adapter Adapter, opts ...Option) *Coordinator {
	c := &Coordinator{
		adapter: adapter,
		log:     zap.NewNop(),
		grace:   defaultGraceTimeout,
		timeout: defaultReadTimeout,
		ops:     make(chan struct{}, 1),
	}
	c.ops <- struct{}{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// acquire serializes operations on the coordinator, honoring ctx while
// waiting for a running operation to finish.
func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case <-c.ops:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) release() { c.ops <- struct{}{} }

// ensureEnabled powers on the adapter once, classifying failures into
// the adapter precondition taxonomy.
func (c *Coordinator) ensureEnabled() error {
	c.enableOnce.Do(func() {
		err := c.adapter.Enable()
		switch {
		case err == nil:
		case errors.Is(err, ErrAdapterUnauthorized),
			errors.Is(err, ErrAdapterUnsupported),
			errors.Is(err, ErrAdapterUnavailable):
			c.enableErr = err
		default:
			c.enableErr = fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
		}
	})
	return c.enableErr
}

// Scan discovers peripherals advertising the sensor service. It
// collects unique devices until timeout elapses or ctx is cancelled
// and returns whatever was found; an empty result is not an error.
func (c *Coordinator) Scan(ctx context.Context, timeout time.Duration) ([]Device, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()
	if err := c.ensureEnabled(); err != nil {
		return nil, err
	}

	found := make(chan Device, 16)
	done := make(chan struct{})
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- c.adapter.Scan([]bluetooth.UUID{gatt.Service}, func(d Device) {
			select {
			case found <- d:
			case <-done:
			}
		})
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	seen := make(map[string]int)
	var devices []Device
	var cause error
loop:
	for {
		select {
		case d := <-found:
			if i, ok := seen[d.Address]; ok {
				// The same peripheral advertises repeatedly; keep one
				// entry, backfilling the name if a later advertisement
				// carried it.
				if devices[i].Name == "" && d.Name != "" {
					devices[i].Name = d.Name
				}
				continue
			}
			seen[d.Address] = len(devices)
			devices = append(devices, d)
			c.log.Debug("scan: found device",
				zap.String("address", d.Address),
				zap.String("name", d.Name),
				zap.Int16("rssi", d.RSSI))
		case err := <-scanErr:
			// The adapter scan ended on its own.
			close(done)
			if err != nil {
				return devices, fmt.Errorf("%w: scan: %v", ErrAdapterUnavailable, err)
			}
			return devices, nil
		case <-timer.C:
			break loop
		case <-ctx.Done():
			cause = ctx.Err()
			break loop
		}
	}
	close(done)
	if err := c.adapter.StopScan(); err != nil {
		c.log.Warn("scan: stop failed", zap.Error(err))
	}
	if err := <-scanErr; err != nil {
		c.log.Warn("scan: adapter error", zap.Error(err))
	}
	return devices, cause
}

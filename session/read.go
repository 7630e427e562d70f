// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/aranet-go/aranet/gatt"
	"github.com/aranet-go/aranet/reading"
)

// State tracks a read operation's progress through its lifecycle.
type State uint8

const (
	Idle State = iota
	Connecting
	DiscoveringServices
	DiscoveringCharacteristics
	AwaitingPayload
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case DiscoveringServices:
		return "discovering services"
	case DiscoveringCharacteristics:
		return "discovering characteristics"
	case AwaitingPayload:
		return "awaiting payload"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one read operation.
type Result struct {
	Reading reading.Reading

	// Name and Firmware are best-effort informational reads, empty
	// when the peripheral did not expose or answer them.
	Name     string
	Firmware string
}

// Adapter completions are translated into these events and drained
// serially by the operation loop, so all operation state is mutated
// from a single goroutine.
type (
	connectedEvent     struct{ conn Conn }
	connectFailedEvent struct{ err error }
	servicesEvent      struct {
		services []Service
		err      error
	}
	charsEvent struct {
		chars []Char
		err   error
	}
	valueEvent struct {
		char bluetooth.UUID
		data []byte
		err  error
	}
)

// readOp carries the mutable state for one read operation. A fresh
// value is built for every Read call, so no state leaks between
// operations and a terminal operation cannot be revived.
type readOp struct {
	c   *Coordinator
	dev Device

	state State
	conn  Conn

	servicesLeft int
	chars        []Char

	pending    map[bluetooth.UUID]bool // reads issued but not yet answered
	encErrs    int                     // authentication-denied responses
	readingSrc bluetooth.UUID
	readErr    error // last failure on the reading source

	result     Result
	captured   bool
	graceFired bool

	events chan any
	done   chan struct{}

	resolved bool
	err      error
}

// Read connects to dev, discovers its services and characteristics,
// reads the best available reading source along with the informational
// characteristics, and returns the decoded result.
//
// The operation resolves exactly once: payload arrival, the pairing
// grace timer and the absolute timeout race for the result, and
// whichever fires first wins. The peripheral is disconnected on every
// terminal path. Once started, a read runs to a terminal resolution;
// ctx bounds only the wait to begin and the connect step.
func (c *Coordinator) Read(ctx context.Context, dev Device) (*Result, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()
	if err := c.ensureEnabled(); err != nil {
		return nil, err
	}
	op := &readOp{
		c:       c,
		dev:     dev,
		state:   Idle,
		pending: make(map[bluetooth.UUID]bool),
		events:  make(chan any, 8),
		done:    make(chan struct{}),
	}
	return op.run(ctx)
}

func (op *readOp) run(ctx context.Context) (*Result, error) {
	grace := time.NewTimer(op.c.grace)
	defer grace.Stop()
	absolute := time.NewTimer(op.c.timeout)
	defer absolute.Stop()

	op.state = Connecting
	if conn, ok := op.c.adapter.Connection(op.dev); ok {
		op.c.log.Debug("read: reusing connection", zap.String("address", op.dev.Address))
		op.post(connectedEvent{conn})
	} else {
		go func() {
			conn, err := op.c.adapter.Connect(ctx, op.dev)
			if err != nil {
				op.post(connectFailedEvent{err})
				return
			}
			op.post(connectedEvent{conn})
		}()
	}

	for !op.resolved {
		select {
		case ev := <-op.events:
			op.handle(ev)
		case <-grace.C:
			op.graceFired = true
			if op.encErrs > 0 && !op.captured {
				op.fail(&PairingRequiredError{Device: op.dev.Address})
			}
		case <-absolute.C:
			op.fail(fmt.Errorf("%w after %v", ErrTimeout, op.c.timeout))
		}
	}
	close(op.done)

	if op.conn != nil {
		if err := op.conn.Disconnect(); err != nil {
			op.c.log.Warn("read: disconnect failed", zap.Error(err))
		}
	}
	op.c.log.Debug("read: resolved",
		zap.Stringer("state", op.state),
		zap.Error(op.err))
	if op.err != nil {
		return nil, op.err
	}
	return &op.result, nil
}

// post delivers an adapter completion to the operation loop, dropping
// it if the operation has already resolved.
func (op *readOp) post(ev any) {
	select {
	case op.events <- ev:
	case <-op.done:
	}
}

// complete and fail resolve the operation. The resolved flag guards
// the single resolution: later attempts are no-ops, so a racing timer
// or stale event cannot revive or re-resolve a terminal operation.
func (op *readOp) complete() {
	if op.resolved {
		return
	}
	op.resolved = true
	op.state = Completed
}

func (op *readOp) fail(err error) {
	if op.resolved {
		return
	}
	op.resolved = true
	op.state = Failed
	op.err = err
}

func (op *readOp) handle(ev any) {
	switch ev := ev.(type) {
	case connectedEvent:
		if op.state != Connecting {
			return
		}
		op.conn = ev.conn
		op.state = DiscoveringServices
		op.c.log.Debug("read: connected", zap.String("address", op.dev.Address))
		go func() {
			services, err := ev.conn.DiscoverServices()
			op.post(servicesEvent{services: services, err: err})
		}()

	case connectFailedEvent:
		op.fail(fmt.Errorf("%w: %v", ErrConnectionFailed, ev.err))

	case servicesEvent:
		if op.state != DiscoveringServices {
			return
		}
		if ev.err != nil {
			op.fail(fmt.Errorf("%w: discover services: %v", ErrReadFailed, ev.err))
			return
		}
		if len(ev.services) == 0 {
			op.fail(fmt.Errorf("%w: no services", ErrReadFailed))
			return
		}
		op.state = DiscoveringCharacteristics
		op.servicesLeft = len(ev.services)
		for _, svc := range ev.services {
			go func(svc Service) {
				chars, err := svc.DiscoverCharacteristics()
				op.post(charsEvent{chars: chars, err: err})
			}(svc)
		}

	case charsEvent:
		if op.state != DiscoveringCharacteristics {
			return
		}
		if ev.err != nil {
			op.fail(fmt.Errorf("%w: discover characteristics: %v", ErrReadFailed, ev.err))
			return
		}
		op.chars = append(op.chars, ev.chars...)
		op.servicesLeft--
		if op.servicesLeft > 0 {
			// Reads are issued only once every service has reported.
			return
		}
		op.issueReads()

	case valueEvent:
		if op.state != AwaitingPayload {
			return
		}
		op.handleValue(ev)
	}
}

// issueReads runs once all services have reported their
// characteristics. It picks the single reading source, issues its read
// along with best-effort reads of the informational characteristics,
// and moves the operation to AwaitingPayload.
func (op *readOp) issueReads() {
	ids := make([]bluetooth.UUID, len(op.chars))
	for i, ch := range op.chars {
		ids[i] = ch.UUID()
	}
	src, ok := gatt.SelectReading(ids)
	if !ok {
		op.fail(fmt.Errorf("%w: no reading characteristic", ErrReadFailed))
		return
	}
	op.readingSrc = src
	op.state = AwaitingPayload
	op.c.log.Debug("read: selected source", zap.Stringer("characteristic", src))

	for _, ch := range op.chars {
		id := ch.UUID()
		if id != src && id != gatt.DeviceName && id != gatt.FirmwareRevision {
			continue
		}
		if op.pending[id] {
			continue
		}
		op.pending[id] = true
		go func(ch Char) {
			data, err := ch.Read()
			op.post(valueEvent{char: ch.UUID(), data: data, err: err})
		}(ch)
	}
}

func (op *readOp) handleValue(ev valueEvent) {
	delete(op.pending, ev.char)
	switch {
	case errors.Is(ev.err, ErrAuthRequired):
		// Tolerated: another characteristic may still supply the
		// payload. Escalation happens at the grace timer.
		op.encErrs++
		op.c.log.Debug("read: authentication denied",
			zap.Stringer("characteristic", ev.char),
			zap.Int("count", op.encErrs))
	case ev.err != nil:
		if ev.char == op.readingSrc {
			op.readErr = ev.err
		}
		op.c.log.Debug("read: characteristic read failed",
			zap.Stringer("characteristic", ev.char),
			zap.Error(ev.err))
	case ev.char == gatt.DeviceName:
		op.result.Name = string(ev.data)
	case ev.char == gatt.FirmwareRevision:
		op.result.Firmware = string(ev.data)
	case ev.char == op.readingSrc:
		r, err := reading.Decode(ev.char, ev.data)
		if err != nil {
			op.fail(err)
			return
		}
		op.result.Reading = r
		op.captured = true
	}

	if len(op.pending) != 0 {
		return
	}
	switch {
	case op.captured:
		op.complete()
	case op.encErrs > 0:
		// All reads answered, no payload, but the denials suggest a
		// missing bond: leave the operation for the grace timer to
		// report PairingRequired, the absolute timer as backstop.
		if op.graceFired {
			op.fail(&PairingRequiredError{Device: op.dev.Address})
		}
	case op.readErr != nil:
		op.fail(fmt.Errorf("%w: %v", ErrReadFailed, op.readErr))
	default:
		op.fail(fmt.Errorf("%w: no reading payload", ErrReadFailed))
	}
}

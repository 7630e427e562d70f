// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"sync"
	"sync/atomic"

	"tinygo.org/x/bluetooth"
)

// mockChar is a fake readable characteristic. When release is set, a
// read blocks until the channel is closed, letting tests race payload
// arrival against the operation timers.
type mockChar struct {
	id      bluetooth.UUID
	data    []byte
	err     error
	release chan struct{}

	reads atomic.Int32
}

func (c *mockChar) UUID() bluetooth.UUID { return c.id }

func (c *mockChar) Read() ([]byte, error) {
	c.reads.Add(1)
	if c.release != nil {
		<-c.release
	}
	return c.data, c.err
}

type mockService struct {
	id    bluetooth.UUID
	chars []*mockChar
	err   error
}

func (s *mockService) UUID() bluetooth.UUID { return s.id }

func (s *mockService) DiscoverCharacteristics() ([]Char, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Char, len(s.chars))
	for i, ch := range s.chars {
		out[i] = ch
	}
	return out, nil
}

type mockConn struct {
	services []*mockService
	err      error

	disconnects atomic.Int32
}

func (c *mockConn) DiscoverServices() ([]Service, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]Service, len(c.services))
	for i, s := range c.services {
		out[i] = s
	}
	return out, nil
}

func (c *mockConn) Disconnect() error {
	c.disconnects.Add(1)
	return nil
}

// mockAdapter simulates the BLE stack. Scan reports the configured
// devices, duplicates included, then blocks until StopScan.
type mockAdapter struct {
	devices    []Device
	conn       *mockConn
	connectErr error
	enableErr  error
	existing   bool // report the peripheral as already connected

	connects atomic.Int32
	stops    atomic.Int32

	stop     chan struct{}
	stopOnce sync.Once
}

func newMockAdapter(conn *mockConn) *mockAdapter {
	return &mockAdapter{conn: conn, stop: make(chan struct{})}
}

func (a *mockAdapter) Enable() error { return a.enableErr }

func (a *mockAdapter) Scan(_ []bluetooth.UUID, found func(Device)) error {
	for _, d := range a.devices {
		found(d)
	}
	<-a.stop
	return nil
}

func (a *mockAdapter) StopScan() error {
	a.stops.Add(1)
	a.stopOnce.Do(func() { close(a.stop) })
	return nil
}

func (a *mockAdapter) Connection(Device) (Conn, bool) {
	if a.existing {
		return a.conn, true
	}
	return nil, false
}

func (a *mockAdapter) Connect(_ context.Context, _ Device) (Conn, error) {
	a.connects.Add(1)
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return a.conn, nil
}

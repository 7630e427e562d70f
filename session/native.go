// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/aranet-go/aranet/internal/forkbeard"
)

// nativeAdapter backs the Adapter interface with the platform
// Bluetooth stack via tinygo.org/x/bluetooth.
type nativeAdapter struct {
	adapter *bluetooth.Adapter

	mu    sync.Mutex
	conns map[string]*nativeConn
}

// NewAdapter returns an Adapter backed by the platform default
// Bluetooth adapter.
func NewAdapter() Adapter {
	return &nativeAdapter{
		adapter: bluetooth.DefaultAdapter,
		conns:   make(map[string]*nativeConn),
	}
}

func (a *nativeAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return classifyEnableError(err)
	}
	// Drop tracked connections when the stack reports a disconnect so
	// Connection never hands out a dead link.
	a.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if connected {
			return
		}
		a.mu.Lock()
		delete(a.conns, dev.Address.String())
		a.mu.Unlock()
	})
	return nil
}

// classifyEnableError maps platform enable failures onto the adapter
// precondition taxonomy by the error strings BlueZ, CoreBluetooth and
// WinRT produce.
func classifyEnableError(err error) error {
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "unauthorized"), strings.Contains(s, "not authorized"), strings.Contains(s, "permission"):
		return fmt.Errorf("%w: %v", ErrAdapterUnauthorized, err)
	case strings.Contains(s, "unsupported"), strings.Contains(s, "not supported"):
		return fmt.Errorf("%w: %v", ErrAdapterUnsupported, err)
	default:
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
}

func (a *nativeAdapter) Scan(services []bluetooth.UUID, found func(Device)) error {
	return a.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
		if len(services) != 0 {
			ok := false
			for _, s := range services {
				if res.HasServiceUUID(s) {
					ok = true
					break
				}
			}
			if !ok {
				return
			}
		}
		found(Device{
			Address: res.Address.String(),
			Name:    res.LocalName(),
			RSSI:    res.RSSI,
		})
	})
}

func (a *nativeAdapter) StopScan() error { return a.adapter.StopScan() }

func (a *nativeAdapter) Connection(dev Device) (Conn, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	conn, ok := a.conns[dev.Address]
	if !ok {
		return nil, false
	}
	return conn, true
}

func (a *nativeAdapter) Connect(ctx context.Context, dev Device) (Conn, error) {
	var addr bluetooth.Address
	addr.Set(dev.Address)

	// The stack's Connect blocks with its own timeout; wrap it so ctx
	// cancellation returns promptly even though the underlying attempt
	// cannot be abandoned from here.
	type connectResult struct {
		dev bluetooth.Device
		err error
	}
	ch := make(chan connectResult, 1)
	go func() {
		d, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{dev: d, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		conn := &nativeConn{a: a, key: dev.Address, dev: res.dev}
		a.mu.Lock()
		a.conns[dev.Address] = conn
		a.mu.Unlock()
		return conn, nil
	}
}

type nativeConn struct {
	a   *nativeAdapter
	key string
	dev bluetooth.Device
}

func (c *nativeConn) DiscoverServices() ([]Service, error) {
	services, err := c.dev.DiscoverServices(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Service, len(services))
	for i, s := range services {
		out[i] = nativeService{svc: s}
	}
	return out, nil
}

func (c *nativeConn) Disconnect() error {
	c.a.mu.Lock()
	delete(c.a.conns, c.key)
	c.a.mu.Unlock()
	return c.dev.Disconnect()
}

type nativeService struct {
	svc bluetooth.DeviceService
}

func (s nativeService) UUID() bluetooth.UUID { return s.svc.UUID() }

func (s nativeService) DiscoverCharacteristics() ([]Char, error) {
	chars, err := s.svc.DiscoverCharacteristics(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Char, len(chars))
	for i, ch := range chars {
		out[i] = nativeChar{char: ch}
	}
	return out, nil
}

type nativeChar struct {
	char bluetooth.DeviceCharacteristic
}

func (c nativeChar) UUID() bluetooth.UUID { return c.char.UUID() }

func (c nativeChar) Read() ([]byte, error) {
	data, err := forkbeard.ReadFull(c.char)
	if err != nil && forkbeard.IsEncryptionError(err) {
		return nil, fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}
	return data, err
}

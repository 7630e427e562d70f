// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"

	"tinygo.org/x/bluetooth"
)

// Device identifies a discovered peripheral.
type Device struct {
	// Address is the platform identity of the peripheral: a MAC
	// address on Linux and Windows, a CoreBluetooth UUID on macOS.
	Address string
	// Name is the advertised local name, possibly empty.
	Name string
	RSSI int16
}

// Char is a readable GATT characteristic on a connected peripheral.
type Char interface {
	UUID() bluetooth.UUID
	// Read returns the characteristic value. Implementations return an
	// error wrapping ErrAuthRequired when the peripheral denies the
	// read pending a bond.
	Read() ([]byte, error)
}

// Service is a discovered GATT service.
type Service interface {
	UUID() bluetooth.UUID
	DiscoverCharacteristics() ([]Char, error)
}

// Conn is an established connection to a peripheral.
type Conn interface {
	DiscoverServices() ([]Service, error)
	Disconnect() error
}

// Adapter abstracts the platform BLE stack so the coordinator can be
// driven by a fake in tests. Calls are synchronous; the coordinator is
// responsible for issuing them off its event loop.
type Adapter interface {
	// Enable powers on the adapter. Implementations classify failures
	// into the ErrAdapter* precondition errors where they can.
	Enable() error

	// Scan reports peripherals advertising any of the given services
	// to found until StopScan is called. It blocks for the duration of
	// the scan. The same peripheral may be reported repeatedly.
	Scan(services []bluetooth.UUID, found func(Device)) error
	StopScan() error

	// Connection returns a connection the adapter is already holding
	// for dev, allowing the connect step to be skipped.
	Connection(dev Device) (Conn, bool)

	// Connect establishes a new connection to dev. ctx bounds only the
	// wait for establishment.
	Connect(ctx context.Context, dev Device) (Conn, error)
}

// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reading decodes raw characteristic payloads from the
// supported sensor families into structured measurement snapshots.
//
// All layouts are little-endian with fixed byte offsets. A payload
// shorter than a family's mandatory region is invalid; the optional
// interval/age trailer is simply absent when the payload ends before
// it.
package reading

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/aranet-go/aranet/gatt"
)

var (
	// ErrInvalidData indicates a payload that cannot be decoded.
	ErrInvalidData = errors.New("invalid data")

	// ErrUnsupported indicates a payload from a recognized device
	// family whose layout is not implemented.
	ErrUnsupported = fmt.Errorf("%w: unsupported device family", ErrInvalidData)
)

// Device-type tags carried in the first byte of the multi-family
// reading characteristics.
const (
	tagCO2       = 1
	tagCompact   = 2
	tagRadiation = 3
	tagRadon     = 4
)

// Status is the traffic-light level indicator reported by a sensor.
type Status uint8

const (
	StatusInvalid Status = iota
	StatusGreen
	StatusYellow
	StatusRed
)

func (s Status) String() string {
	switch s {
	case StatusGreen:
		return "green"
	case StatusYellow:
		return "yellow"
	case StatusRed:
		return "red"
	default:
		return "invalid"
	}
}

// Reading is a decoded measurement snapshot from one sensor. The
// concrete type identifies the device family and carries only the
// fields that family produces.
type Reading interface {
	// Family returns the product family that produced the reading.
	Family() gatt.Family

	// Cadence returns the device's measurement interval and the age of
	// this reading. ok is false when the payload carried neither field.
	Cadence() (interval, age time.Duration, ok bool)

	String() string
}

// Common holds the fields every family reports.
type Common struct {
	Battery int // %

	Interval    time.Duration
	Age         time.Duration
	HasInterval bool
	HasAge      bool
}

// Cadence implements the Reading interval/age accessor.
func (c Common) Cadence() (interval, age time.Duration, ok bool) {
	return c.Interval, c.Age, c.HasInterval || c.HasAge
}

// trailer parses the optional interval and age fields following a
// family's mandatory region at offset off. Fields beyond the end of
// the payload are absent, not an error.
func (c *Common) trailer(data []byte, off int) {
	if len(data) >= off+2 {
		c.Interval = time.Duration(binary.LittleEndian.Uint16(data[off:])) * time.Second
		c.HasInterval = true
	}
	if len(data) >= off+4 {
		c.Age = time.Duration(binary.LittleEndian.Uint16(data[off+2:])) * time.Second
		c.HasAge = true
	}
}

// Decode maps a raw payload read from the characteristic identified by
// src to a Reading. A characteristic used by a single family decodes
// with that family's layout directly; the multi-family characteristics
// carry a leading device-type tag byte which selects the sub-decoder.
func Decode(src bluetooth.UUID, data []byte) (Reading, error) {
	switch src {
	case gatt.CO2Detailed, gatt.CO2Basic:
		var r CO2
		if err := r.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &r, nil
	case gatt.RadiationLegacy:
		var r Radiation
		if err := r.UnmarshalLegacyBinary(data); err != nil {
			return nil, err
		}
		return &r, nil
	case gatt.MultiDetailed, gatt.MultiBasic:
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty payload", ErrInvalidData)
		}
		return decodeTagged(data[0], data[1:])
	default:
		return nil, fmt.Errorf("%w: no decoder for characteristic %s", ErrInvalidData, src)
	}
}

// decodeTagged dispatches on the device-type tag of a multi-family
// payload. The tag has already been consumed from data.
func decodeTagged(tag byte, data []byte) (Reading, error) {
	switch tag {
	case tagCO2:
		var r CO2
		if err := r.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &r, nil
	case tagCompact:
		var r Compact
		if err := r.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &r, nil
	case tagRadiation:
		var r Radiation
		if err := r.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &r, nil
	case tagRadon:
		// The radon payload layout is documented to exist but has
		// never been published; do not guess at it.
		return nil, fmt.Errorf("radon payload: %w", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: unknown device type tag %#x", ErrInvalidData, tag)
	}
}

// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"fmt"
)

// Operation errors. Every error is terminal for the operation that
// produced it; the coordinator never retries. Callers decide whether
// to re-invoke an entire operation.
var (
	// Adapter preconditions, reported before any operation proceeds.
	ErrAdapterUnavailable  = errors.New("bluetooth adapter unavailable")
	ErrAdapterUnauthorized = errors.New("bluetooth use not authorized")
	ErrAdapterUnsupported  = errors.New("bluetooth not supported on this platform")

	// ErrDeviceNotFound indicates a scan produced no match for a
	// requested device name or address.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrConnectionFailed indicates the peripheral could not be
	// connected.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrReadFailed indicates discovery failed or the operation ran
	// out of pending reads without capturing a reading payload.
	ErrReadFailed = errors.New("read failed")

	// ErrTimeout indicates the operation exceeded its absolute budget.
	ErrTimeout = errors.New("operation timed out")

	// ErrAuthRequired is returned by Char.Read implementations when the
	// peripheral denies a read pending a bond. The coordinator counts
	// these rather than failing the operation immediately.
	ErrAuthRequired = errors.New("authentication required")
)

// PairingRequiredError reports that the peripheral refused its reading
// characteristics without a bond and no unauthenticated source
// supplied a payload before the grace period expired.
type PairingRequiredError struct {
	Device string
}

func (e *PairingRequiredError) Error() string {
	return fmt.Sprintf("pairing required for %s: bond the device in the system Bluetooth settings with the sensor in pairing mode, then try again", e.Device)
}

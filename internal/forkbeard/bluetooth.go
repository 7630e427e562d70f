// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package forkbeard provides helper functions for interacting with
// Bluetooth devices.
package forkbeard

import (
	"fmt"
	"io"
	"strings"

	"tinygo.org/x/bluetooth"
)

// attMaxValueLen is the largest attribute value permitted by ATT,
// used when the characteristic does not report an MTU.
const attMaxValueLen = 512

// ReadFull reads a characteristic value using an MTU-sized buffer.
func ReadFull(char bluetooth.DeviceCharacteristic) ([]byte, error) {
	size := attMaxValueLen
	if mtu, err := char.GetMTU(); err == nil {
		size = int(mtu)
	}
	buf := make([]byte, size)
	n, err := char.Read(buf)
	if err != nil && err != io.EOF {
		return buf[:n], fmt.Errorf("failed to read characteristic %s: %w", char.UUID(), err)
	}
	return buf[:n], nil
}

// IsEncryptionError reports whether err looks like the peripheral
// denied a characteristic read pending pairing or bonding. The BLE
// stacks do not expose ATT error codes directly, so this matches the
// error strings BlueZ, CoreBluetooth and WinRT produce for
// insufficient authentication or encryption.
func IsEncryptionError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, m := range []string{
		"authentication",
		"not permitted",
		"not authorized",
		"encryption",
		"insufficient",
	} {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package forkbeard

import (
	"errors"
	"io"
	"testing"
)

var encryptionErrorTests = []struct {
	name string
	err  error
	want bool
}{
	{name: "nil", err: nil, want: false},
	{name: "bluez_not_permitted", err: errors.New("org.bluez.Error.NotPermitted: Read not permitted"), want: true},
	{name: "bluez_insufficient_authentication", err: errors.New("Insufficient Authentication"), want: true},
	{name: "corebluetooth", err: errors.New("Authentication is insufficient"), want: true},
	{name: "encryption", err: errors.New("ATT error: insufficient encryption"), want: true},
	{name: "unrelated", err: io.ErrUnexpectedEOF, want: false},
	{name: "timeout", err: errors.New("connection timed out"), want: false},
}

func TestIsEncryptionError(t *testing.T) {
	for _, test := range encryptionErrorTests {
		t.Run(test.name, func(t *testing.T) {
			got := IsEncryptionError(test.err)
			if got != test.want {
				t.Errorf("unexpected result for %v: got %t want %t", test.err, got, test.want)
			}
		})
	}
}

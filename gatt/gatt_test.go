// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gatt

import (
	"testing"

	"tinygo.org/x/bluetooth"
)

var selectReadingTests = []struct {
	name       string
	discovered []bluetooth.UUID
	want       bluetooth.UUID
	ok         bool
}{
	{
		name:       "detailed_beats_basic",
		discovered: []bluetooth.UUID{CO2Basic, CO2Detailed},
		want:       CO2Detailed,
		ok:         true,
	},
	{
		name:       "basic_only",
		discovered: []bluetooth.UUID{DeviceName, CO2Basic},
		want:       CO2Basic,
		ok:         true,
	},
	{
		name:       "co2_beats_multi",
		discovered: []bluetooth.UUID{MultiDetailed, CO2Basic},
		want:       CO2Basic,
		ok:         true,
	},
	{
		name:       "multi_detailed_beats_multi_basic",
		discovered: []bluetooth.UUID{MultiBasic, MultiDetailed, RadiationLegacy},
		want:       MultiDetailed,
		ok:         true,
	},
	{
		name:       "legacy_radiation_last_resort",
		discovered: []bluetooth.UUID{FirmwareRevision, RadiationLegacy},
		want:       RadiationLegacy,
		ok:         true,
	},
	{
		name:       "empty",
		discovered: nil,
		ok:         false,
	},
	{
		name:       "no_reading_source",
		discovered: []bluetooth.UUID{DeviceName, FirmwareRevision, Service},
		ok:         false,
	},
}

func TestSelectReading(t *testing.T) {
	for _, test := range selectReadingTests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := SelectReading(test.discovered)
			if ok != test.ok {
				t.Fatalf("unexpected ok: got %t want %t", ok, test.ok)
			}
			if ok && got != test.want {
				t.Errorf("unexpected selection: got %s want %s", got, test.want)
			}
		})
	}
}

func TestIsReading(t *testing.T) {
	for _, id := range []bluetooth.UUID{CO2Detailed, CO2Basic, MultiDetailed, MultiBasic, RadiationLegacy} {
		if !IsReading(id) {
			t.Errorf("expected %s to be a reading source", id)
		}
	}
	for _, id := range []bluetooth.UUID{Service, DeviceName, FirmwareRevision} {
		if IsReading(id) {
			t.Errorf("expected %s not to be a reading source", id)
		}
	}
}

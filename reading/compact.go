// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reading

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/aranet-go/aranet/gatt"
)

// Compact is a reading from a compact-class temperature/humidity
// sensor.
type Compact struct {
	Temperature float64 // °C
	Humidity    float64 // %
	Status      Status

	Common
}

// Family returns gatt.FamilyCompact.
func (*Compact) Family() gatt.Family { return gatt.FamilyCompact }

// UnmarshalBinary decodes a compact-class payload.
//
// Layout: temperature u16@0 in 0.05 °C steps; humidity u16@2 in 0.1 %
// steps; battery u8@4 %; status u8@5; optional interval u16@6 s;
// optional age u16@8 s. The leading device-type tag has already been
// consumed by the dispatcher.
func (r *Compact) UnmarshalBinary(data []byte) error {
	const minLen = 6
	if len(data) < minLen {
		return fmt.Errorf("%w: compact payload too short: %d bytes", ErrInvalidData, len(data))
	}
	*r = Compact{
		Temperature: float64(binary.LittleEndian.Uint16(data[0:])) / 20,
		Humidity:    float64(binary.LittleEndian.Uint16(data[2:])) / 10,
		Status:      Status(data[5]),
		Common:      Common{Battery: int(data[4])},
	}
	r.trailer(data, minLen)
	return nil
}

func (r *Compact) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "Temperature: %.2f °C (%s)\n", r.Temperature, r.Status)
	fmt.Fprintf(&s, "Humidity: %.1f %%\n", r.Humidity)
	fmt.Fprintf(&s, "Battery: %d %%", r.Battery)
	if r.HasInterval {
		fmt.Fprintf(&s, "\nInterval: %v", r.Interval)
	}
	if r.HasAge {
		fmt.Fprintf(&s, "\nAge: %v", r.Age)
	}
	return s.String()
}

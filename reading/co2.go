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

// CO2 is a reading from a CO₂-class sensor.
type CO2 struct {
	CO2         int     // ppm
	Temperature float64 // °C
	Pressure    float64 // hPa
	Humidity    float64 // %
	Status      Status

	Common
}

// Family returns gatt.FamilyCO2.
func (*CO2) Family() gatt.Family { return gatt.FamilyCO2 }

// UnmarshalBinary decodes a CO₂-class payload.
//
// Layout: co2 u16@0 ppm; temperature u16@2 in 0.05 °C steps; pressure
// u16@4 in 0.1 hPa steps; humidity u8@6 %; battery u8@7 %; status
// u8@8; optional interval u16@9 s; optional age u16@11 s. The basic
// characteristic ends at the status byte.
func (r *CO2) UnmarshalBinary(data []byte) error {
	const minLen = 9
	if len(data) < minLen {
		return fmt.Errorf("%w: co2 payload too short: %d bytes", ErrInvalidData, len(data))
	}
	*r = CO2{
		CO2:         int(binary.LittleEndian.Uint16(data[0:])),
		Temperature: float64(binary.LittleEndian.Uint16(data[2:])) / 20,
		Pressure:    float64(binary.LittleEndian.Uint16(data[4:])) / 10,
		Humidity:    float64(data[6]),
		Status:      Status(data[8]),
		Common:      Common{Battery: int(data[7])},
	}
	r.trailer(data, minLen)
	return nil
}

func (r *CO2) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "CO2: %d ppm (%s)\n", r.CO2, r.Status)
	fmt.Fprintf(&s, "Temperature: %.2f °C\n", r.Temperature)
	fmt.Fprintf(&s, "Pressure: %.1f hPa\n", r.Pressure)
	fmt.Fprintf(&s, "Humidity: %.0f %%\n", r.Humidity)
	fmt.Fprintf(&s, "Battery: %d %%", r.Battery)
	if r.HasInterval {
		fmt.Fprintf(&s, "\nInterval: %v", r.Interval)
	}
	if r.HasAge {
		fmt.Fprintf(&s, "\nAge: %v", r.Age)
	}
	return s.String()
}

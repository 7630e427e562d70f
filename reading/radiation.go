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

// Radiation is a reading from a radiation-class sensor.
type Radiation struct {
	Rate float64 // nSv/h
	Dose float64 // µSv accumulated

	Common
}

// Family returns gatt.FamilyRadiation.
func (*Radiation) Family() gatt.Family { return gatt.FamilyRadiation }

// UnmarshalBinary decodes the current radiation payload, in which the
// dose rate field is stored unscaled.
func (r *Radiation) UnmarshalBinary(data []byte) error {
	return r.unmarshal(data, 1)
}

// UnmarshalLegacyBinary decodes the legacy radiation characteristic
// layout, in which the dose rate field is stored ×10. The divisor is
// fixed by the source layout; it is never inferred from the value's
// magnitude.
func (r *Radiation) UnmarshalLegacyBinary(data []byte) error {
	return r.unmarshal(data, 10)
}

// Layout: rate u32@0 nSv/h (scaled per source layout); dose u32@4 µSv;
// battery u8@8 %; optional interval u16@9 s; optional age u16@11 s.
func (r *Radiation) unmarshal(data []byte, rateDiv float64) error {
	const minLen = 9
	if len(data) < minLen {
		return fmt.Errorf("%w: radiation payload too short: %d bytes", ErrInvalidData, len(data))
	}
	*r = Radiation{
		Rate:   float64(binary.LittleEndian.Uint32(data[0:])) / rateDiv,
		Dose:   float64(binary.LittleEndian.Uint32(data[4:])),
		Common: Common{Battery: int(data[8])},
	}
	r.trailer(data, minLen)
	return nil
}

func (r *Radiation) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "Dose rate: %.1f nSv/h\n", r.Rate)
	fmt.Fprintf(&s, "Total dose: %.0f µSv\n", r.Dose)
	fmt.Fprintf(&s, "Battery: %d %%", r.Battery)
	if r.HasInterval {
		fmt.Fprintf(&s, "\nInterval: %v", r.Interval)
	}
	if r.HasAge {
		fmt.Fprintf(&s, "\nAge: %v", r.Age)
	}
	return s.String()
}

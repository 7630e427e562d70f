// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gatt describes the GATT surface of the supported sensor
// families: the fixed catalog of known characteristic identities and
// the policy that picks the single reading source a session uses.
package gatt

import "tinygo.org/x/bluetooth"

// Service and characteristic identifiers.
const (
	// ServiceID is advertised by all supported sensors and is used as
	// the scan filter.
	ServiceID = "f0cd1400-95da-4f4b-9ac8-aa55d312af0c"

	// Standard GATT informational characteristics.
	DeviceNameID       = "2a00"
	FirmwareRevisionID = "2a26"

	co2DetailedID     = "f0cd3001-95da-4f4b-9ac8-aa55d312af0c"
	co2BasicID        = "f0cd1503-95da-4f4b-9ac8-aa55d312af0c"
	multiDetailedID   = "f0cd3002-95da-4f4b-9ac8-aa55d312af0c"
	multiBasicID      = "f0cd1505-95da-4f4b-9ac8-aa55d312af0c"
	radiationLegacyID = "f0cd3003-95da-4f4b-9ac8-aa55d312af0c"
)

var (
	Service          = must(bluetooth.ParseUUID(ServiceID))
	DeviceName       = must(bluetooth.ParseUUID(DeviceNameID))
	FirmwareRevision = must(bluetooth.ParseUUID(FirmwareRevisionID))

	// CO2Detailed is the CO₂-class reading characteristic that is
	// readable without a bond and carries the interval/age trailer.
	CO2Detailed = must(bluetooth.ParseUUID(co2DetailedID))
	// CO2Basic is the CO₂-class reading characteristic that requires a
	// bond and omits the trailer.
	CO2Basic = must(bluetooth.ParseUUID(co2BasicID))
	// MultiDetailed and MultiBasic are shared by the newer sensor
	// families. Their payloads start with a device-type tag byte.
	MultiDetailed = must(bluetooth.ParseUUID(multiDetailedID))
	MultiBasic    = must(bluetooth.ParseUUID(multiBasicID))
	// RadiationLegacy is the original radiation-class reading layout,
	// with the dose rate stored ×10.
	RadiationLegacy = must(bluetooth.ParseUUID(radiationLegacyID))
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Family identifies a sensor product family.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyCO2
	FamilyCompact
	FamilyRadiation
	FamilyRadon
)

func (f Family) String() string {
	switch f {
	case FamilyCO2:
		return "co2"
	case FamilyCompact:
		return "compact"
	case FamilyRadiation:
		return "radiation"
	case FamilyRadon:
		return "radon"
	default:
		return "unknown"
	}
}

// Role classifies what a catalog characteristic is for.
type Role uint8

const (
	RoleDeviceName Role = iota
	RoleFirmwareRevision
	RoleReadingDetailed
	RoleReadingBasic
)

// Entry ties a characteristic identity to its role and, where the
// identity is used by a single family, that family. The multi-family
// reading characteristics carry FamilyUnknown here; their payloads
// identify the family with a leading type tag instead.
type Entry struct {
	UUID   bluetooth.UUID
	Role   Role
	Family Family
}

// Catalog lists every characteristic the session coordinator knows how
// to use.
var Catalog = []Entry{
	{UUID: DeviceName, Role: RoleDeviceName},
	{UUID: FirmwareRevision, Role: RoleFirmwareRevision},
	{UUID: CO2Detailed, Role: RoleReadingDetailed, Family: FamilyCO2},
	{UUID: CO2Basic, Role: RoleReadingBasic, Family: FamilyCO2},
	{UUID: MultiDetailed, Role: RoleReadingDetailed},
	{UUID: MultiBasic, Role: RoleReadingBasic},
	{UUID: RadiationLegacy, Role: RoleReadingDetailed, Family: FamilyRadiation},
}

// readingPriority orders reading sources best first: a detailed source
// readable without a bond beats a basic one that needs pairing, the
// CO₂ family's pair beats the shared multi-family pair, and the legacy
// radiation layout comes last.
var readingPriority = []bluetooth.UUID{
	CO2Detailed,
	CO2Basic,
	MultiDetailed,
	MultiBasic,
	RadiationLegacy,
}

// SelectReading returns the single reading characteristic to use from
// the set of identities discovered on one peripheral. It never returns
// more than one source even when several are present. ok is false when
// the peripheral exposes no known reading source.
func SelectReading(discovered []bluetooth.UUID) (id bluetooth.UUID, ok bool) {
	for _, want := range readingPriority {
		for _, have := range discovered {
			if have == want {
				return want, true
			}
		}
	}
	return bluetooth.UUID{}, false
}

// IsReading reports whether id is one of the catalog's reading sources.
func IsReading(id bluetooth.UUID) bool {
	for _, want := range readingPriority {
		if id == want {
			return true
		}
	}
	return false
}

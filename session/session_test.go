// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aranet-go/aranet/gatt"
	"github.com/aranet-go/aranet/reading"
)

// co2Payload is a full CO₂-class detailed payload: 1481 ppm, 21.8 °C,
// 1003.2 hPa, 44 %, battery 94 %, yellow, interval 300 s, age 237 s.
var co2Payload = []byte{
	0xc9, 0x05, 0xb4, 0x01, 0x30, 0x27, 0x2c, 0x5e, 0x02, 0x2c, 0x01, 0xed, 0x00,
}

func sensorConn(chars ...*mockChar) *mockConn {
	return &mockConn{services: []*mockService{
		{id: gatt.Service, chars: chars},
	}}
}

func testCoordinator(a Adapter, opts ...Option) *Coordinator {
	opts = append([]Option{
		WithGraceTimeout(20 * time.Millisecond),
		WithReadTimeout(500 * time.Millisecond),
	}, opts...)
	return New(a, opts...)
}

func TestReadDetailed(t *testing.T) {
	detailed := &mockChar{id: gatt.CO2Detailed, data: co2Payload}
	basic := &mockChar{id: gatt.CO2Basic, data: co2Payload[:9]}
	name := &mockChar{id: gatt.DeviceName, data: []byte("Aranet4 1BA04")}
	firmware := &mockChar{id: gatt.FirmwareRevision, data: []byte("v1.4.4")}
	conn := sensorConn(detailed, basic, name, firmware)
	c := testCoordinator(newMockAdapter(conn))

	res, err := c.Read(context.Background(), Device{Address: "aa:bb:cc:dd:ee:ff"})
	require.NoError(t, err)

	co2, ok := res.Reading.(*reading.CO2)
	require.True(t, ok, "expected a CO₂-class reading, got %T", res.Reading)
	assert.Equal(t, 1481, co2.CO2)
	assert.Equal(t, 21.8, co2.Temperature)
	assert.Equal(t, "Aranet4 1BA04", res.Name)
	assert.Equal(t, "v1.4.4", res.Firmware)

	// The selector picks exactly one reading source; the lower
	// priority basic characteristic is never read.
	assert.EqualValues(t, 1, detailed.reads.Load())
	assert.EqualValues(t, 0, basic.reads.Load())
	assert.EqualValues(t, 1, conn.disconnects.Load())
}

func TestReadAcrossServices(t *testing.T) {
	// Characteristics spread over several services: reads are issued
	// only after every service has reported.
	conn := &mockConn{services: []*mockService{
		{id: gatt.Service, chars: []*mockChar{{id: gatt.CO2Detailed, data: co2Payload}}},
		{chars: []*mockChar{{id: gatt.DeviceName, data: []byte("Aranet4")}}},
		{chars: []*mockChar{{id: gatt.FirmwareRevision, data: []byte("v1.2.0")}}},
	}}
	c := testCoordinator(newMockAdapter(conn))

	res, err := c.Read(context.Background(), Device{Address: "dev"})
	require.NoError(t, err)
	assert.Equal(t, "Aranet4", res.Name)
	assert.Equal(t, "v1.2.0", res.Firmware)
	require.IsType(t, &reading.CO2{}, res.Reading)
}

func TestReadReusesConnection(t *testing.T) {
	conn := sensorConn(&mockChar{id: gatt.CO2Detailed, data: co2Payload})
	a := newMockAdapter(conn)
	a.existing = true
	c := testCoordinator(a)

	_, err := c.Read(context.Background(), Device{Address: "dev"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, a.connects.Load(), "connect must be skipped for a connected peripheral")
	assert.EqualValues(t, 1, conn.disconnects.Load())
}

func TestReadConnectFailed(t *testing.T) {
	a := newMockAdapter(nil)
	a.connectErr = errors.New("le connection failed")
	c := testCoordinator(a)

	_, err := c.Read(context.Background(), Device{Address: "dev"})
	require.ErrorIs(t, err, ErrConnectionFailed)
}

func TestReadNoReadingCharacteristic(t *testing.T) {
	conn := sensorConn(&mockChar{id: gatt.DeviceName, data: []byte("x")})
	c := testCoordinator(newMockAdapter(conn))

	_, err := c.Read(context.Background(), Device{Address: "dev"})
	require.ErrorIs(t, err, ErrReadFailed)
	assert.EqualValues(t, 1, conn.disconnects.Load())
}

func TestReadDiscoveryError(t *testing.T) {
	conn := &mockConn{err: errors.New("disconnected during discovery")}
	c := testCoordinator(newMockAdapter(conn))

	_, err := c.Read(context.Background(), Device{Address: "dev"})
	require.ErrorIs(t, err, ErrReadFailed)
}

func TestReadDecodeError(t *testing.T) {
	conn := sensorConn(&mockChar{id: gatt.CO2Detailed, data: co2Payload[:5]})
	c := testCoordinator(newMockAdapter(conn))

	_, err := c.Read(context.Background(), Device{Address: "dev"})
	require.ErrorIs(t, err, reading.ErrInvalidData)
	assert.EqualValues(t, 1, conn.disconnects.Load())
}

func TestReadPairingRequired(t *testing.T) {
	denied := fmt.Errorf("%w: insufficient authentication", ErrAuthRequired)
	conn := sensorConn(&mockChar{id: gatt.CO2Basic, err: denied})
	c := testCoordinator(newMockAdapter(conn))

	_, err := c.Read(context.Background(), Device{Address: "aa:bb:cc:dd:ee:ff"})
	var pairing *PairingRequiredError
	require.ErrorAs(t, err, &pairing)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", pairing.Device)
	assert.EqualValues(t, 1, conn.disconnects.Load())
}

func TestReadToleratesInformationalAuthFailure(t *testing.T) {
	// A denied informational read is counted, not fatal, as long as
	// the reading source supplies a payload.
	denied := fmt.Errorf("%w: insufficient authentication", ErrAuthRequired)
	conn := sensorConn(
		&mockChar{id: gatt.CO2Detailed, data: co2Payload},
		&mockChar{id: gatt.DeviceName, err: denied},
	)
	c := testCoordinator(newMockAdapter(conn))

	res, err := c.Read(context.Background(), Device{Address: "dev"})
	require.NoError(t, err)
	assert.Empty(t, res.Name)
	require.IsType(t, &reading.CO2{}, res.Reading)
}

func TestReadTimeout(t *testing.T) {
	release := make(chan struct{})
	char := &mockChar{id: gatt.CO2Detailed, data: co2Payload, release: release}
	conn := sensorConn(char)
	c := testCoordinator(newMockAdapter(conn), WithReadTimeout(50*time.Millisecond))

	_, err := c.Read(context.Background(), Device{Address: "dev"})
	require.ErrorIs(t, err, ErrTimeout)
	assert.EqualValues(t, 1, conn.disconnects.Load())

	// The late payload arrival races an already resolved operation:
	// it must be observably ignored, with no second disconnect.
	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, conn.disconnects.Load())
}

func TestReadInformationalFailureDoesNotFail(t *testing.T) {
	conn := sensorConn(
		&mockChar{id: gatt.CO2Detailed, data: co2Payload},
		&mockChar{id: gatt.FirmwareRevision, err: errors.New("read error")},
	)
	c := testCoordinator(newMockAdapter(conn))

	res, err := c.Read(context.Background(), Device{Address: "dev"})
	require.NoError(t, err)
	assert.Empty(t, res.Firmware)
}

func TestReadAdapterEnableError(t *testing.T) {
	a := newMockAdapter(nil)
	a.enableErr = errors.New("dbus: no adapter")
	c := testCoordinator(a)

	_, err := c.Read(context.Background(), Device{Address: "dev"})
	require.ErrorIs(t, err, ErrAdapterUnavailable)

	// The classification is sticky across operations.
	_, err = c.Scan(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrAdapterUnavailable)
}

func TestScanDeduplicates(t *testing.T) {
	a := newMockAdapter(nil)
	a.devices = []Device{
		{Address: "aa:aa", RSSI: -40},
		{Address: "bb:bb", Name: "Aranet4 00001", RSSI: -60},
		{Address: "aa:aa", Name: "Aranet2 0A0F2", RSSI: -42},
		{Address: "bb:bb", Name: "Aranet4 00001", RSSI: -61},
	}
	c := testCoordinator(a)

	devices, err := c.Scan(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	// The repeated report backfills the missing name.
	assert.Equal(t, "Aranet2 0A0F2", devices[0].Name)
	assert.Equal(t, "bb:bb", devices[1].Address)
	assert.NotZero(t, a.stops.Load())
}

func TestScanEmptyIsNotError(t *testing.T) {
	c := testCoordinator(newMockAdapter(nil))

	devices, err := c.Scan(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestScanCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := testCoordinator(newMockAdapter(nil))

	_, err := c.Scan(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassifyEnableError(t *testing.T) {
	for _, test := range []struct {
		err  string
		want error
	}{
		{err: "bluetooth use not authorized for this application", want: ErrAdapterUnauthorized},
		{err: "operation not supported", want: ErrAdapterUnsupported},
		{err: "dbus: connection refused", want: ErrAdapterUnavailable},
	} {
		got := classifyEnableError(errors.New(test.err))
		assert.ErrorIs(t, got, test.want, test.err)
	}
}

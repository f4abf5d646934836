package veml7700

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Compile-time check.
var _ Bus = (*fakeBus)(nil)

var errBus = errors.New("bus failure")

// fakeBus is a scripted register-level stand-in for the sensor. It models
// the one stateful quirk that matters: reading the interrupt status
// register clears it.
type fakeBus struct {
	regs     map[uint8]uint16
	reads    int
	writes   int
	readErr  error
	writeErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: make(map[uint8]uint16)}
}

func (f *fakeBus) ReadRegister(reg uint8) (uint16, error) {
	f.reads++
	if f.readErr != nil {
		return 0, f.readErr
	}
	value := f.regs[reg]
	if reg == VEML7700_REGISTER_INTERRUPT_STATUS {
		f.regs[reg] = 0
	}
	return value, nil
}

func (f *fakeBus) WriteRegister(reg uint8, value uint16) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.regs[reg] = value
	return nil
}

func (f *fakeBus) resetCounters() {
	f.reads = 0
	f.writes = 0
}

func newTestDevice(t *testing.T) (*VEML7700, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	dev := &VEML7700{}
	require.NoError(t, dev.Begin(bus))
	bus.resetCounters()
	return dev, bus
}

func TestIntegrationTimeRoundTrip(t *testing.T) {
	times := []IntegrationTime{
		IntegrationTime25ms, IntegrationTime50ms, IntegrationTime100ms,
		IntegrationTime200ms, IntegrationTime400ms, IntegrationTime800ms,
	}
	for _, it := range times {
		bits := bitsForIntegrationTime(it)
		require.NotEqual(t, integrationBitsInvalid, bits, "no register pattern for %v", it)
		require.Equal(t, it, integrationTimeFromBits(bits), "round trip for %v", it)
	}
}

func TestIntegrationTimeFromBitsRejectsUnknownPatterns(t *testing.T) {
	valid := map[uint16]bool{
		0b1100: true, 0b1000: true, 0b0000: true,
		0b0001: true, 0b0010: true, 0b0011: true,
	}
	for bits := uint16(0); bits < 16; bits++ {
		if valid[bits] {
			continue
		}
		require.Equal(t, IntegrationTimeInvalid, integrationTimeFromBits(bits),
			"pattern %04b must decode to the invalid sentinel", bits)
	}
}

func TestBitsForIntegrationTimeRejectsOutOfRange(t *testing.T) {
	require.Equal(t, integrationBitsInvalid, bitsForIntegrationTime(IntegrationTimeInvalid))
	require.Equal(t, integrationBitsInvalid, bitsForIntegrationTime(IntegrationTime(42)))
}

func TestBeginWritesDefaultConfiguration(t *testing.T) {
	bus := newFakeBus()
	dev := &VEML7700{}
	require.NoError(t, dev.Begin(bus))

	// One unconditional write, no read-modify-write on startup.
	require.Equal(t, 1, bus.writes)
	require.Equal(t, 0, bus.reads)

	config := configRegister(bus.regs[VEML7700_REGISTER_CONFIG])
	require.False(t, config.shutdown())
	require.False(t, config.interruptEnabled())
	require.Equal(t, Persistence1, config.persistence())
	require.Equal(t, IntegrationTime100ms, integrationTimeFromBits(config.integrationBits()))
	require.Equal(t, GainX1, config.gain())
	// Reserved bits are cleared by the from-scratch write.
	require.Equal(t, uint16(0), bus.regs[VEML7700_REGISTER_CONFIG])
}

func TestBeginNilBus(t *testing.T) {
	dev := &VEML7700{}
	require.ErrorIs(t, dev.Begin(nil), ErrNotInitialized)
}

func TestOperationsBeforeBegin(t *testing.T) {
	dev := &VEML7700{}

	_, err := dev.GetGain()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = dev.GetIntegrationTime()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = dev.GetAmbientLight()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = dev.GetLux()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = dev.GetInterruptStatus()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, dev.SetGain(GainX2), ErrNotInitialized)
	require.ErrorIs(t, dev.SetHighThreshold(100), ErrNotInitialized)
}

func TestSettersPreserveOtherFields(t *testing.T) {
	dev, bus := newTestDevice(t)

	// Seed the reserved bits as if the device powered up with them set.
	// Every read-modify-write cycle must carry them through untouched.
	const reservedMask = uint16(0xE40C)
	bus.regs[VEML7700_REGISTER_CONFIG] |= reservedMask

	require.NoError(t, dev.SetShutdown(true))
	require.NoError(t, dev.EnableInterrupt(true))
	require.NoError(t, dev.SetPersistence(Persistence4))
	require.NoError(t, dev.SetIntegrationTime(IntegrationTime400ms))
	require.NoError(t, dev.SetGain(GainX14))

	shutdown, err := dev.IsShutdown()
	require.NoError(t, err)
	require.True(t, shutdown)

	enabled, err := dev.InterruptEnabled()
	require.NoError(t, err)
	require.True(t, enabled)

	persistence, err := dev.GetPersistence()
	require.NoError(t, err)
	require.Equal(t, Persistence4, persistence)

	it, err := dev.GetIntegrationTime()
	require.NoError(t, err)
	require.Equal(t, IntegrationTime400ms, it)

	gain, err := dev.GetGain()
	require.NoError(t, err)
	require.Equal(t, GainX14, gain)

	require.Equal(t, reservedMask, bus.regs[VEML7700_REGISTER_CONFIG]&reservedMask)
}

func TestSetterDoesNotPartiallyApplyOnWriteFailure(t *testing.T) {
	dev, bus := newTestDevice(t)
	before := bus.regs[VEML7700_REGISTER_CONFIG]

	bus.writeErr = errBus
	require.ErrorIs(t, dev.SetGain(GainX2), errBus)
	require.Equal(t, before, bus.regs[VEML7700_REGISTER_CONFIG])
}

func TestSettersRejectInvalidParameterWithoutBusTraffic(t *testing.T) {
	dev, bus := newTestDevice(t)

	require.ErrorIs(t, dev.SetIntegrationTime(IntegrationTimeInvalid), ErrInvalidParameter)
	require.ErrorIs(t, dev.SetGain(GainInvalid), ErrInvalidParameter)
	require.ErrorIs(t, dev.SetPersistence(PersistenceInvalid), ErrInvalidParameter)

	require.Equal(t, 0, bus.reads)
	require.Equal(t, 0, bus.writes)
}

func TestGetLux(t *testing.T) {
	dev, bus := newTestDevice(t)

	// Gain x1, integration 100ms, 1000 counts at 0.0576 lux/count.
	bus.regs[VEML7700_REGISTER_ALS_OUTPUT] = 1000
	lux, err := dev.GetLux()
	require.NoError(t, err)
	require.InDelta(t, 57.6, lux, 1e-9)
}

func TestGetLuxInvalidIntegrationTimeBits(t *testing.T) {
	dev, bus := newTestDevice(t)

	// 0b0111 is a valid 4-bit value the sensor never produces.
	var config configRegister
	config.setIntegrationBits(0b0111)
	bus.regs[VEML7700_REGISTER_CONFIG] = uint16(config)
	bus.regs[VEML7700_REGISTER_ALS_OUTPUT] = 1000

	_, err := dev.GetLux()
	require.ErrorIs(t, err, ErrInvalidDeviceState)
}

func TestGetLuxFailsFastOnBusError(t *testing.T) {
	dev, bus := newTestDevice(t)

	bus.readErr = errBus
	_, err := dev.GetLux()
	require.ErrorIs(t, err, errBus)
	// The first failing read aborts the operation.
	require.Equal(t, 1, bus.reads)
}

func TestLuxResolutionHalving(t *testing.T) {
	// Halving the integration time exactly doubles the resolution.
	for g := range luxResolution {
		for it := 0; it < len(luxResolution[g])-1; it++ {
			require.Equal(t, 2*luxResolution[g][it+1], luxResolution[g][it],
				"gain row %d, columns %d and %d", g, it, it+1)
		}
	}
	// Halving the gain exactly doubles the resolution.
	for it := 0; it < 6; it++ {
		require.Equal(t, 2*luxResolution[GainX2][it], luxResolution[GainX1][it], "x1 vs x2, column %d", it)
		require.Equal(t, 2*luxResolution[GainX14][it], luxResolution[GainX18][it], "x1/8 vs x1/4, column %d", it)
	}
}

func TestInterruptStatusDecode(t *testing.T) {
	dev, bus := newTestDevice(t)

	cases := []struct {
		raw  uint16
		want InterruptStatus
	}{
		{0x0000, InterruptNone},
		{0x4000, InterruptHigh},
		{0x8000, InterruptLow},
		{0xC000, InterruptBoth},
	}
	for _, c := range cases {
		bus.regs[VEML7700_REGISTER_INTERRUPT_STATUS] = c.raw
		status, err := dev.GetInterruptStatus()
		require.NoError(t, err)
		require.Equal(t, c.want, status, "raw 0x%04x", c.raw)
	}
}

func TestInterruptStatusClearsOnRead(t *testing.T) {
	dev, bus := newTestDevice(t)

	bus.regs[VEML7700_REGISTER_INTERRUPT_STATUS] = 0x4000
	status, err := dev.GetInterruptStatus()
	require.NoError(t, err)
	require.Equal(t, InterruptHigh, status)

	// The read cleared the flags on the device; with no new threshold
	// crossing the second call sees nothing pending.
	status, err = dev.GetInterruptStatus()
	require.NoError(t, err)
	require.Equal(t, InterruptNone, status)
}

func TestInterruptStatusBusError(t *testing.T) {
	dev, bus := newTestDevice(t)

	bus.readErr = errBus
	status, err := dev.GetInterruptStatus()
	require.ErrorIs(t, err, errBus)
	require.Equal(t, InterruptInvalid, status)
}

func TestThresholdPassthrough(t *testing.T) {
	dev, _ := newTestDevice(t)

	require.NoError(t, dev.SetHighThreshold(0xBEEF))
	high, err := dev.GetHighThreshold()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), high)

	require.NoError(t, dev.SetLowThreshold(0x1234))
	low, err := dev.GetLowThreshold()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), low)
}

func TestRawChannelReads(t *testing.T) {
	dev, bus := newTestDevice(t)

	bus.regs[VEML7700_REGISTER_ALS_OUTPUT] = 512
	bus.regs[VEML7700_REGISTER_WHITE_OUTPUT] = 768

	ambient, err := dev.GetAmbientLight()
	require.NoError(t, err)
	require.Equal(t, uint16(512), ambient)

	white, err := dev.GetWhiteLevel()
	require.NoError(t, err)
	require.Equal(t, uint16(768), white)
}

func TestConvenienceAccessorsCollapseErrorsToSentinel(t *testing.T) {
	dev, bus := newTestDevice(t)

	bus.readErr = errBus
	require.Equal(t, VEML7700_VALUE_ERROR, dev.AmbientLight())
	require.Equal(t, VEML7700_VALUE_ERROR, dev.WhiteLevel())
	require.Equal(t, VEML7700_VALUE_ERROR, dev.HighThreshold())
	require.Equal(t, VEML7700_VALUE_ERROR, dev.LowThreshold())
}

func TestIsConnected(t *testing.T) {
	dev, bus := newTestDevice(t)
	require.True(t, dev.IsConnected())

	bus.readErr = errBus
	require.False(t, dev.IsConnected())

	require.False(t, (&VEML7700{}).IsConnected())
}

func TestSetOptimalGain(t *testing.T) {
	dev, bus := newTestDevice(t)

	// A usable reading is available immediately, so the least sensitive
	// combination wins.
	bus.regs[VEML7700_REGISTER_ALS_OUTPUT] = 2000
	require.NoError(t, dev.SetOptimalGain())

	gain, err := dev.GetGain()
	require.NoError(t, err)
	require.Equal(t, GainX18, gain)

	it, err := dev.GetIntegrationTime()
	require.NoError(t, err)
	require.Equal(t, IntegrationTime800ms, it)
}

func TestSetOptimalGainAllSaturated(t *testing.T) {
	dev, bus := newTestDevice(t)

	bus.regs[VEML7700_REGISTER_ALS_OUTPUT] = VEML7700_VALUE_ERROR
	require.Error(t, dev.SetOptimalGain())

	// Defaults restored after the failed sweep.
	gain, err := dev.GetGain()
	require.NoError(t, err)
	require.Equal(t, GainX1, gain)

	it, err := dev.GetIntegrationTime()
	require.NoError(t, err)
	require.Equal(t, IntegrationTime100ms, it)
}

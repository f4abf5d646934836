package veml7700

/*
 * veml7700 - Package for interacting with VEML7700 ambient light sensors.
 *
 * Ref:
 * https://www.vishay.com/docs/84286/veml7700.pdf
 * https://github.com/sparkfun/SparkFun_VEML7700_Arduino_Library
 *
 */

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var l *logrus.Logger

func init() {
	l = logrus.New()
	// Setup the logger, so it can be parsed by datadog
	l.Formatter = &logrus.JSONFormatter{}
	l.SetOutput(os.Stdout)
	// Set the log level
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
}

var (
	// ErrNotInitialized is returned by every operation until Begin has
	// bound a bus.
	ErrNotInitialized = errors.New("veml7700: not initialized")

	// ErrInvalidParameter is returned when a setter is handed an enum
	// value outside its defined range. The bus is not touched.
	ErrInvalidParameter = errors.New("veml7700: invalid parameter")

	// ErrInvalidDeviceState is returned when a register reads back a bit
	// pattern the sensor should never produce, so a derived computation
	// (such as the lux lookup) cannot proceed.
	ErrInvalidDeviceState = errors.New("veml7700: invalid device state")
)

// VEML7700 is a handle to one sensor on one bus. It holds no register
// state of its own: every getter reads the device, every setter
// read-modify-writes the configuration register, so the handle stays
// correct even if the sensor is power-cycled or reconfigured externally.
//
// Compound operations issue multiple dependent bus transactions and are
// not safe for concurrent use on the same handle without external
// locking.
type VEML7700 struct {
	bus Bus
}

// NewVEML7700 connects to a VEML7700 via the I2C character device at path
// and writes the power-up defaults. An empty path defaults to /dev/i2c-1,
// addr 0 defaults to the sensor's fixed address.
func NewVEML7700(path string, addr int) (*VEML7700, error) {
	bus, err := OpenBus(path, addr)
	if err != nil {
		return nil, err
	}
	dev := &VEML7700{}
	if err := dev.Begin(bus); err != nil {
		return nil, err
	}
	return dev, nil
}

// Begin binds the bus and writes the default configuration: powered on,
// interrupts disabled, persistence 1, integration time 100ms, gain x1.
// This is a from-scratch write, not a read-modify-write: it deliberately
// overrides anything a previous run left in the register, reserved bits
// included, so the driver starts from a known state.
func (d *VEML7700) Begin(bus Bus) error {
	if bus == nil {
		return ErrNotInitialized
	}
	d.bus = bus
	return d.bus.WriteRegister(VEML7700_REGISTER_CONFIG, uint16(defaultConfig()))
}

// IsConnected reports whether the sensor responds to a configuration
// register read.
func (d *VEML7700) IsConnected() bool {
	_, err := d.updateConfig()
	return err == nil
}

// updateConfig performs the single register read every getter and setter
// starts from.
func (d *VEML7700) updateConfig() (configRegister, error) {
	if d.bus == nil {
		return 0, ErrNotInitialized
	}
	value, err := d.bus.ReadRegister(VEML7700_REGISTER_CONFIG)
	if err != nil {
		return 0, err
	}
	return configRegister(value), nil
}

// writeConfig writes the whole configuration register back. Paired with
// updateConfig it preserves every bit outside the field a setter changed.
func (d *VEML7700) writeConfig(config configRegister) error {
	return d.bus.WriteRegister(VEML7700_REGISTER_CONFIG, uint16(config))
}

// SetShutdown powers the sensor down (true) or up (false).
func (d *VEML7700) SetShutdown(shutdown bool) error {
	config, err := d.updateConfig()
	if err != nil {
		return err
	}
	config.setShutdown(shutdown)
	return d.writeConfig(config)
}

// PowerOn clears the shutdown bit.
func (d *VEML7700) PowerOn() error {
	return d.SetShutdown(false)
}

// Shutdown sets the shutdown bit, putting the sensor in its low-power state.
func (d *VEML7700) Shutdown() error {
	return d.SetShutdown(true)
}

// IsShutdown reports whether the sensor is currently shut down.
func (d *VEML7700) IsShutdown() (bool, error) {
	config, err := d.updateConfig()
	if err != nil {
		return false, err
	}
	return config.shutdown(), nil
}

// EnableInterrupt switches threshold interrupt generation on or off.
func (d *VEML7700) EnableInterrupt(enable bool) error {
	config, err := d.updateConfig()
	if err != nil {
		return err
	}
	config.setInterruptEnabled(enable)
	return d.writeConfig(config)
}

// InterruptEnabled reports whether threshold interrupts are enabled.
func (d *VEML7700) InterruptEnabled() (bool, error) {
	config, err := d.updateConfig()
	if err != nil {
		return false, err
	}
	return config.interruptEnabled(), nil
}

// SetPersistence sets how many consecutive threshold crossings are
// required before the sensor raises an interrupt.
func (d *VEML7700) SetPersistence(p Persistence) error {
	if p >= PersistenceInvalid {
		return ErrInvalidParameter
	}
	config, err := d.updateConfig()
	if err != nil {
		return err
	}
	config.setPersistence(p)
	return d.writeConfig(config)
}

// GetPersistence reads the current persistence protect setting.
func (d *VEML7700) GetPersistence() (Persistence, error) {
	config, err := d.updateConfig()
	if err != nil {
		return PersistenceInvalid, err
	}
	return config.persistence(), nil
}

// SetIntegrationTime sets the ALS integration time. The sequential value
// is translated to the sensor's non-monotonic register pattern before the
// write.
func (d *VEML7700) SetIntegrationTime(it IntegrationTime) error {
	if it >= IntegrationTimeInvalid {
		return ErrInvalidParameter
	}
	config, err := d.updateConfig()
	if err != nil {
		return err
	}
	config.setIntegrationBits(bitsForIntegrationTime(it))
	return d.writeConfig(config)
}

// GetIntegrationTime reads the current integration time. A register
// pattern outside the translation table decodes to
// IntegrationTimeInvalid, never to a nearest guess.
func (d *VEML7700) GetIntegrationTime() (IntegrationTime, error) {
	config, err := d.updateConfig()
	if err != nil {
		return IntegrationTimeInvalid, err
	}
	return integrationTimeFromBits(config.integrationBits()), nil
}

// SetGain sets the ALS sensitivity mode.
func (d *VEML7700) SetGain(g Gain) error {
	if g >= GainInvalid {
		return ErrInvalidParameter
	}
	config, err := d.updateConfig()
	if err != nil {
		return err
	}
	config.setGain(g)
	return d.writeConfig(config)
}

// GetGain reads the current sensitivity mode.
func (d *VEML7700) GetGain() (Gain, error) {
	config, err := d.updateConfig()
	if err != nil {
		return GainInvalid, err
	}
	return config.gain(), nil
}

// SetHighThreshold sets the ALS high threshold window. Any 16-bit value
// is valid.
func (d *VEML7700) SetHighThreshold(threshold uint16) error {
	if d.bus == nil {
		return ErrNotInitialized
	}
	return d.bus.WriteRegister(VEML7700_REGISTER_HIGH_THRESHOLD, threshold)
}

// GetHighThreshold reads the ALS high threshold window.
func (d *VEML7700) GetHighThreshold() (uint16, error) {
	if d.bus == nil {
		return 0, ErrNotInitialized
	}
	return d.bus.ReadRegister(VEML7700_REGISTER_HIGH_THRESHOLD)
}

// HighThreshold is the legacy no-error form of GetHighThreshold. All
// failure kinds collapse into VEML7700_VALUE_ERROR.
func (d *VEML7700) HighThreshold() uint16 {
	threshold, err := d.GetHighThreshold()
	if err != nil {
		return VEML7700_VALUE_ERROR
	}
	return threshold
}

// SetLowThreshold sets the ALS low threshold window. Any 16-bit value is
// valid.
func (d *VEML7700) SetLowThreshold(threshold uint16) error {
	if d.bus == nil {
		return ErrNotInitialized
	}
	return d.bus.WriteRegister(VEML7700_REGISTER_LOW_THRESHOLD, threshold)
}

// GetLowThreshold reads the ALS low threshold window.
func (d *VEML7700) GetLowThreshold() (uint16, error) {
	if d.bus == nil {
		return 0, ErrNotInitialized
	}
	return d.bus.ReadRegister(VEML7700_REGISTER_LOW_THRESHOLD)
}

// LowThreshold is the legacy no-error form of GetLowThreshold. All
// failure kinds collapse into VEML7700_VALUE_ERROR.
func (d *VEML7700) LowThreshold() uint16 {
	threshold, err := d.GetLowThreshold()
	if err != nil {
		return VEML7700_VALUE_ERROR
	}
	return threshold
}

// GetAmbientLight reads the raw ambient light channel count.
func (d *VEML7700) GetAmbientLight() (uint16, error) {
	if d.bus == nil {
		return 0, ErrNotInitialized
	}
	return d.bus.ReadRegister(VEML7700_REGISTER_ALS_OUTPUT)
}

// AmbientLight is the legacy no-error form of GetAmbientLight. All
// failure kinds collapse into VEML7700_VALUE_ERROR.
func (d *VEML7700) AmbientLight() uint16 {
	ambient, err := d.GetAmbientLight()
	if err != nil {
		return VEML7700_VALUE_ERROR
	}
	return ambient
}

// GetWhiteLevel reads the raw white channel count.
func (d *VEML7700) GetWhiteLevel() (uint16, error) {
	if d.bus == nil {
		return 0, ErrNotInitialized
	}
	return d.bus.ReadRegister(VEML7700_REGISTER_WHITE_OUTPUT)
}

// WhiteLevel is the legacy no-error form of GetWhiteLevel. All failure
// kinds collapse into VEML7700_VALUE_ERROR.
func (d *VEML7700) WhiteLevel() uint16 {
	white, err := d.GetWhiteLevel()
	if err != nil {
		return VEML7700_VALUE_ERROR
	}
	return white
}

// GetLux reads the ambient light level in lux: gain, integration time and
// the raw count are read live, then the count is scaled by the resolution
// constant for that gain/integration-time pair. Fails fast on the first
// failing read. If either setting reads back as an invalid pattern the
// lookup is out of table bounds and GetLux returns ErrInvalidDeviceState
// rather than guessing.
func (d *VEML7700) GetLux() (float64, error) {
	gain, err := d.GetGain()
	if err != nil {
		return 0, err
	}
	if gain >= GainInvalid {
		return 0, fmt.Errorf("%w: gain bits out of range", ErrInvalidDeviceState)
	}

	it, err := d.GetIntegrationTime()
	if err != nil {
		return 0, err
	}
	if it >= IntegrationTimeInvalid {
		return 0, fmt.Errorf("%w: integration time bits out of range", ErrInvalidDeviceState)
	}

	ambient, err := d.GetAmbientLight()
	if err != nil {
		return 0, err
	}

	resolution := luxResolution[gain][it]
	l.Debugf("Gain: %v, Integration: %v, Ambient: %v, Resolution: %v", gain, it, ambient, resolution)
	return float64(ambient) * resolution, nil
}

// GetInterruptStatus reads and decodes the interrupt status register.
//
// Reading this register clears both threshold flags on the device, so
// both flags are checked in the single read; a second call without an
// intervening threshold crossing returns InterruptNone.
func (d *VEML7700) GetInterruptStatus() (InterruptStatus, error) {
	if d.bus == nil {
		return InterruptInvalid, ErrNotInitialized
	}
	value, err := d.bus.ReadRegister(VEML7700_REGISTER_INTERRUPT_STATUS)
	if err != nil {
		return InterruptInvalid, err
	}
	// Bit 14: high threshold crossed. Bit 15: low threshold crossed.
	return InterruptStatus(value >> 14), nil
}

// SetOptimalGain walks the sensitivity options from least to most
// sensitive and keeps the first combination that produces a usable,
// non-saturated ambient reading. If every combination saturates the
// defaults are restored and an error is returned.
func (d *VEML7700) SetOptimalGain() error {
	gainOptions := []Gain{GainX18, GainX14, GainX1, GainX2}
	integrationOptions := []IntegrationTime{
		IntegrationTime800ms, IntegrationTime400ms, IntegrationTime200ms,
		IntegrationTime100ms, IntegrationTime50ms, IntegrationTime25ms,
	}
	for _, gain := range gainOptions {
		if err := d.SetGain(gain); err != nil {
			return err
		}
		for _, it := range integrationOptions {
			if err := d.SetIntegrationTime(it); err != nil {
				return err
			}
			l.Debugf("Attempting - Gain: %v, Integration Time: %v", gain, it)
			ambient, err := d.GetAmbientLight()
			if err != nil {
				continue
			}
			if ambient == 0 || ambient == VEML7700_VALUE_ERROR {
				continue
			}
			l.Debugf("Set - Gain: %v, Integration Time: %v", gain, it)
			return nil
		}
	}
	// Use default options
	if err := d.SetGain(GainX1); err != nil {
		return err
	}
	if err := d.SetIntegrationTime(IntegrationTime100ms); err != nil {
		return err
	}
	return errors.New("all gain options are saturated")
}

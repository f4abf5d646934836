package veml7700

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/io/i2c"
)

// Bus is the register transport the driver runs on. Implementations
// perform one atomic 16-bit register transaction per call and report the
// transport failure unmodified; the driver never retries.
type Bus interface {
	ReadRegister(reg uint8) (uint16, error)
	WriteRegister(reg uint8, value uint16) error
}

// devfsBus drives the sensor through the Linux I2C character device.
type devfsBus struct {
	device *i2c.Device
}

// OpenBus opens the I2C device at path and returns a Bus for the sensor
// at addr. An empty path defaults to /dev/i2c-1, the primary I2C bus on
// the Raspberry Pi. Pass VEML7700_ADDR unless the board is strapped to an
// alternate address.
func OpenBus(path string, addr int) (Bus, error) {
	if path == "" {
		path = "/dev/i2c-1"
	}
	if addr == 0 {
		addr = VEML7700_ADDR
	}
	device, err := i2c.Open(&i2c.Devfs{Dev: path}, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &devfsBus{device: device}, nil
}

// All VEML7700 registers are 16-bit, low byte first on the wire.

func (b *devfsBus) ReadRegister(reg uint8) (uint16, error) {
	buf := make([]byte, 2)
	if err := b.device.ReadReg(reg, buf); err != nil {
		return 0, fmt.Errorf("failed to read register 0x%02x: %w", reg, err)
	}
	l.Debugf("Read register 0x%02x: %v", reg, buf)
	return binary.LittleEndian.Uint16(buf), nil
}

func (b *devfsBus) WriteRegister(reg uint8, value uint16) error {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, value)
	if err := b.device.WriteReg(reg, buf); err != nil {
		return fmt.Errorf("failed to write register 0x%02x: %w", reg, err)
	}
	l.Debugf("Wrote register 0x%02x: %v", reg, buf)
	return nil
}

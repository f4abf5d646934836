package veml7700

// configRegister is the 16-bit ALS configuration register.
//
// Bit layout (LSB first):
//
//	0      ALS_SD      shut down (1 = shut down)
//	1      ALS_INT_EN  interrupt enable
//	2-3    reserved
//	4-5    ALS_PERS    persistence protect number
//	6-9    ALS_IT      integration time (non-monotonic bit pattern)
//	10     reserved
//	11-12  ALS_SM      sensitivity mode (gain)
//	13-15  reserved
//
// Field mutators only touch their own mask, so a value obtained from the
// device keeps its reserved bits across a read-modify-write cycle.
type configRegister uint16

const (
	configShutdownMask  configRegister = 0x0001
	configInterruptMask configRegister = 0x0002

	configPersistenceMask  configRegister = 0x0030
	configPersistenceShift                = 4

	configIntegrationMask  configRegister = 0x03C0
	configIntegrationShift                = 6

	configGainMask  configRegister = 0x1800
	configGainShift                = 11
)

// Physical ALS_IT bit pattern that no integration time maps to. Used as
// the encode-side sentinel for out-of-range logical values.
const integrationBitsInvalid uint16 = 0xF

// integrationTimeBits translates the sequential integration time into the
// non-monotonic ALS_IT register pattern.
var integrationTimeBits = [6]uint16{
	IntegrationTime25ms:  0b1100,
	IntegrationTime50ms:  0b1000,
	IntegrationTime100ms: 0b0000,
	IntegrationTime200ms: 0b0001,
	IntegrationTime400ms: 0b0010,
	IntegrationTime800ms: 0b0011,
}

// bitsForIntegrationTime returns the ALS_IT register pattern for a
// sequential integration time, or integrationBitsInvalid if it is out of
// range. Never clamps.
func bitsForIntegrationTime(it IntegrationTime) uint16 {
	if it >= IntegrationTimeInvalid {
		return integrationBitsInvalid
	}
	return integrationTimeBits[it]
}

// integrationTimeFromBits is the reverse translation. Any pattern the
// sensor never produces, including valid 4-bit values outside the table,
// decodes to IntegrationTimeInvalid.
func integrationTimeFromBits(bits uint16) IntegrationTime {
	switch bits {
	case 0b1100:
		return IntegrationTime25ms
	case 0b1000:
		return IntegrationTime50ms
	case 0b0000:
		return IntegrationTime100ms
	case 0b0001:
		return IntegrationTime200ms
	case 0b0010:
		return IntegrationTime400ms
	case 0b0011:
		return IntegrationTime800ms
	}
	return IntegrationTimeInvalid
}

func (c configRegister) shutdown() bool {
	return c&configShutdownMask != 0
}

func (c *configRegister) setShutdown(sd bool) {
	if sd {
		*c |= configShutdownMask
	} else {
		*c &^= configShutdownMask
	}
}

func (c configRegister) interruptEnabled() bool {
	return c&configInterruptMask != 0
}

func (c *configRegister) setInterruptEnabled(en bool) {
	if en {
		*c |= configInterruptMask
	} else {
		*c &^= configInterruptMask
	}
}

func (c configRegister) persistence() Persistence {
	return Persistence((c & configPersistenceMask) >> configPersistenceShift)
}

func (c *configRegister) setPersistence(p Persistence) {
	*c = (*c &^ configPersistenceMask) | (configRegister(p) << configPersistenceShift & configPersistenceMask)
}

func (c configRegister) integrationBits() uint16 {
	return uint16((c & configIntegrationMask) >> configIntegrationShift)
}

func (c *configRegister) setIntegrationBits(bits uint16) {
	*c = (*c &^ configIntegrationMask) | (configRegister(bits) << configIntegrationShift & configIntegrationMask)
}

func (c configRegister) gain() Gain {
	return Gain((c & configGainMask) >> configGainShift)
}

func (c *configRegister) setGain(g Gain) {
	*c = (*c &^ configGainMask) | (configRegister(g) << configGainShift & configGainMask)
}

// defaultConfig is the known-good power-up configuration written by Begin:
// powered on, interrupts disabled, persistence 1, integration time 100ms,
// gain x1, reserved bits cleared. Built from scratch on purpose so a
// restart overrides whatever a previous run left in the register.
func defaultConfig() configRegister {
	var c configRegister
	c.setShutdown(false)
	c.setInterruptEnabled(false)
	c.setPersistence(Persistence1)
	c.setIntegrationBits(bitsForIntegrationTime(IntegrationTime100ms))
	c.setGain(GainX1)
	return c
}

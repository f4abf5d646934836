package veml7700

const (
	VEML7700_ADDR int = 0x10 ///< Default I2C address

	// Sentinel returned by the no-error convenience accessors when the
	// bus transaction fails. A real reading of 0xFFFF is indistinguishable
	// from an error by anything other than convention; prefer the Get*
	// variants which report the error directly.
	VEML7700_VALUE_ERROR uint16 = 0xFFFF
)

// VEML7700 Register map. Registers are 16-bit, little-endian on the wire.
// Address 3 is reserved by the device.
const (
	VEML7700_REGISTER_CONFIG           uint8 = 0x00 // ALS configuration register
	VEML7700_REGISTER_HIGH_THRESHOLD   uint8 = 0x01 // ALS high threshold window setting
	VEML7700_REGISTER_LOW_THRESHOLD    uint8 = 0x02 // ALS low threshold window setting
	VEML7700_REGISTER_ALS_OUTPUT       uint8 = 0x04 // Ambient light channel output
	VEML7700_REGISTER_WHITE_OUTPUT     uint8 = 0x05 // White channel output
	VEML7700_REGISTER_INTERRUPT_STATUS uint8 = 0x06 // Interrupt status, cleared on read
)

// Gain is the ALS sensitivity mode (ALS_SM). Values are in register order.
type Gain uint8

const (
	GainX1 Gain = iota // x1
	GainX2             // x2
	GainX18            // x1/8
	GainX14            // x1/4
	GainInvalid
)

// IntegrationTime is the ALS integration time (ALS_IT), in simple
// sequential order. The physical register bit patterns are non-monotonic,
// see integrationTimeBits in config.go.
type IntegrationTime uint8

const (
	IntegrationTime25ms IntegrationTime = iota
	IntegrationTime50ms
	IntegrationTime100ms
	IntegrationTime200ms
	IntegrationTime400ms
	IntegrationTime800ms
	IntegrationTimeInvalid
)

// Persistence is the ALS persistence protect number (ALS_PERS): how many
// consecutive threshold crossings are needed before an interrupt fires.
type Persistence uint8

const (
	Persistence1 Persistence = iota // 1 crossing
	Persistence2                    // 2 crossings
	Persistence4                    // 4 crossings
	Persistence8                    // 8 crossings
	PersistenceInvalid
)

// InterruptStatus is the decoded interrupt status register. The numeric
// order follows the register bits: bit 14 is the high threshold flag,
// bit 15 is the low threshold flag.
type InterruptStatus uint8

const (
	InterruptNone InterruptStatus = iota
	InterruptHigh
	InterruptLow
	InterruptBoth
	InterruptInvalid
)

// The sensor resolution (lux per raw count) vs. gain and integration time,
// taken from the VEML7700 application note. Indexed by the sequential
// [Gain][IntegrationTime] values, not the register bit patterns. Halving
// either the gain or the integration time exactly doubles the resolution.
var luxResolution = [4][6]float64{
	// 25ms    50ms    100ms   200ms   400ms   800ms
	{0.2304, 0.1152, 0.0576, 0.0288, 0.0144, 0.0072}, // Gain x1
	{0.1152, 0.0576, 0.0288, 0.0144, 0.0072, 0.0036}, // Gain x2
	{1.8432, 0.9216, 0.4608, 0.2304, 0.1152, 0.0576}, // Gain x1/8
	{0.9216, 0.4608, 0.2304, 0.1152, 0.0576, 0.0288}, // Gain x1/4
}

func (g Gain) String() string {
	switch g {
	case GainX1:
		return "x1"
	case GainX2:
		return "x2"
	case GainX18:
		return "x1/8"
	case GainX14:
		return "x1/4"
	default:
		return "INVALID"
	}
}

func (it IntegrationTime) String() string {
	switch it {
	case IntegrationTime25ms:
		return "25ms"
	case IntegrationTime50ms:
		return "50ms"
	case IntegrationTime100ms:
		return "100ms"
	case IntegrationTime200ms:
		return "200ms"
	case IntegrationTime400ms:
		return "400ms"
	case IntegrationTime800ms:
		return "800ms"
	default:
		return "INVALID"
	}
}

func (p Persistence) String() string {
	switch p {
	case Persistence1:
		return "1"
	case Persistence2:
		return "2"
	case Persistence4:
		return "4"
	case Persistence8:
		return "8"
	default:
		return "INVALID"
	}
}

func (s InterruptStatus) String() string {
	switch s {
	case InterruptNone:
		return "none"
	case InterruptHigh:
		return "high threshold crossed"
	case InterruptLow:
		return "low threshold crossed"
	case InterruptBoth:
		return "both thresholds crossed"
	default:
		return "INVALID"
	}
}

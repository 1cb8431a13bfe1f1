package ahci

import "fmt"

// DeviceType classifies what, if anything, is attached to a port.
type DeviceType int

const (
	DeviceNone DeviceType = iota
	DeviceSATA
	DeviceSATAPI
	DeviceSEMB
	DevicePM
)

// String returns a short human-readable device type name.
func (t DeviceType) String() string {
	switch t {
	case DeviceNone:
		return "none"
	case DeviceSATA:
		return "SATA"
	case DeviceSATAPI:
		return "SATAPI"
	case DeviceSEMB:
		return "SEMB"
	case DevicePM:
		return "PM"
	default:
		return fmt.Sprintf("DeviceType(%d)", int(t))
	}
}

// MarshalJSON encodes the device type as its string name.
func (t DeviceType) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

// ClassifyDevice decides the device type from a port's SATA status and
// signature registers. Absence of a device is a normal result, not an
// error: any DET other than "present" or IPM other than "active" yields
// DeviceNone regardless of the signature.
//
// A signature that established a link but matches none of the known
// constants is treated as a plain SATA drive.
func ClassifyDevice(ssts, sig uint32) DeviceType {
	if DetField(ssts) != DetPresent {
		return DeviceNone
	}
	if IpmField(ssts) != IpmActive {
		return DeviceNone
	}

	switch sig {
	case SigATAPI:
		return DeviceSATAPI
	case SigSEMB:
		return DeviceSEMB
	case SigPM:
		return DevicePM
	default:
		return DeviceSATA
	}
}

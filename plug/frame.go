package plug

import (
	"encoding/binary"
)

// ECHONET Lite frame constants used by the power query.
const (
	EHD1 byte = 0x10
	EHD2 byte = 0x81

	ESVGet    byte = 0x62
	ESVGetRes byte = 0x72
	ESVGetSNA byte = 0x52

	EPCInstantPower byte = 0xE2

	RequestLength            = 14
	SuccessLength            = 16
	FailureLength            = 14
	DefaultMaxResponseLength = 64

	offsetTID   = 2
	offsetESV   = 10
	offsetValue = 14
)

var (
	// controller class, sender of requests
	SEOJController = [3]byte{0x0E, 0xF0, 0x00}
	// power measuring plug, answers requests
	DEOJPlug = [3]byte{0x00, 0x22, 0x00}
)

var requestTemplate = [RequestLength]byte{
	EHD1, EHD2,
	0x00, 0x00, // TID
	SEOJController[0], SEOJController[1], SEOJController[2],
	DEOJPlug[0], DEOJPlug[1], DEOJPlug[2],
	ESVGet,
	0x01, EPCInstantPower, // OPC, EPC
	0x00, // PDC
}

func BuildRequest(tid uint16) [RequestLength]byte {
	b := requestTemplate
	binary.LittleEndian.PutUint16(b[offsetTID:], tid)
	return b
}

func NextTID(tid uint16) uint16 { return tid + 1 }

// FrameTID returns TID echoed in frame b, which must be at least 4 bytes.
func FrameTID(b []byte) uint16 { return binary.LittleEndian.Uint16(b[offsetTID:]) }

// Power is instant consumption in 0.1 W units, as sent by device.
type Power uint16

func (self Power) Watts() float64 { return float64(self) / 10 }

func DecodePower(b []byte) Power {
	return Power(binary.LittleEndian.Uint16(b[offsetValue:]))
}

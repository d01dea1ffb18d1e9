package plug

import (
	"github.com/juju/errors"
)

var (
	ErrConnect       = errors.New("connect failed")
	ErrClosed        = errors.New("connection closed")
	ErrDesync        = errors.New("protocol desync")
	ErrDeviceFailure = errors.New("device reported failure")
)

type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindConnect
	KindIO
	KindDesync
	KindDevice
)

func (self ErrorKind) String() string {
	switch self {
	case KindNone:
		return "none"
	case KindConnect:
		return "connect"
	case KindIO:
		return "io"
	case KindDesync:
		return "desync"
	case KindDevice:
		return "device"
	}
	return "unknown"
}

// Kind classifies err by cause. Anything unknown is I/O failure.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	switch errors.Cause(err) {
	case ErrConnect:
		return KindConnect
	case ErrDesync:
		return KindDesync
	case ErrDeviceFailure:
		return KindDevice
	}
	return KindIO
}

func IsDeviceFailure(err error) bool { return Kind(err) == KindDevice }

// Fatal errors mean connection state is unknown and must be dropped.
func IsFatal(err error) bool {
	switch Kind(err) {
	case KindIO, KindDesync:
		return true
	}
	return false
}

package mmio

import "errors"

var (
	ErrUnsupported = errors.New("mmio: register mapping not supported on this platform")
	ErrOutOfRange  = errors.New("mmio: register outside mapped window")
	ErrMisaligned  = errors.New("mmio: register not naturally aligned")
	ErrClosed      = errors.New("mmio: device closed")
)

const (
	// DefaultPath is the physical memory device.
	DefaultPath = "/dev/mem"
	// WindowSize covers every accelerator register.
	WindowSize = 0x5000
)

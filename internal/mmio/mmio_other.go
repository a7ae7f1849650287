//go:build !linux

package mmio

import "github.com/san-kum/celestial/internal/accel"

type Device struct{}

func Open(path string, base int64, size int) (*Device, error) {
	return nil, ErrUnsupported
}

func (d *Device) Write64(reg accel.Register, v uint64) error { return ErrUnsupported }
func (d *Device) Read8(reg accel.Register) (uint8, error)    { return 0, ErrUnsupported }
func (d *Device) Read32(reg accel.Register) (uint32, error)  { return 0, ErrUnsupported }
func (d *Device) Close() error                               { return nil }

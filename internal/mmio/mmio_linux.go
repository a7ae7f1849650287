//go:build linux

package mmio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/san-kum/celestial/internal/accel"
	"golang.org/x/sys/unix"
)

// Device maps the accelerator's register window from physical memory.
// Loads and stores go through sync/atomic so every access reaches the bus
// exactly once.
type Device struct {
	fd  int
	mem []byte
}

// Open maps size bytes of path at the physical address base. base must be
// page aligned.
func Open(path string, base int64, size int) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmio: open %s: %w", path, err)
	}

	mem, err := unix.Mmap(fd, base, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmio: map %#x+%#x: %w", base, size, err)
	}

	return &Device{fd: fd, mem: mem}, nil
}

func (d *Device) addr(reg accel.Register, width uintptr) (unsafe.Pointer, error) {
	if d.mem == nil {
		return nil, ErrClosed
	}
	off := uintptr(reg)
	if off+width > uintptr(len(d.mem)) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, reg)
	}
	if off%width != 0 {
		return nil, fmt.Errorf("%w: %s", ErrMisaligned, reg)
	}
	return unsafe.Pointer(&d.mem[off]), nil
}

func (d *Device) Write64(reg accel.Register, v uint64) error {
	p, err := d.addr(reg, 8)
	if err != nil {
		return err
	}
	atomic.StoreUint64((*uint64)(p), v)
	return nil
}

// Read8 loads the containing 32-bit word; the bus does not support byte
// atomics. Registers are little-endian.
func (d *Device) Read8(reg accel.Register) (uint8, error) {
	word := reg &^ 3
	p, err := d.addr(word, 4)
	if err != nil {
		return 0, err
	}
	v := atomic.LoadUint32((*uint32)(p))
	return uint8(v >> (8 * (reg & 3))), nil
}

func (d *Device) Read32(reg accel.Register) (uint32, error) {
	p, err := d.addr(reg, 4)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32((*uint32)(p)), nil
}

func (d *Device) Close() error {
	if d.mem == nil {
		return nil
	}
	err := unix.Munmap(d.mem)
	d.mem = nil
	if cerr := unix.Close(d.fd); err == nil {
		err = cerr
	}
	return err
}

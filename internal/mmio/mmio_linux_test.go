//go:build linux

package mmio

import (
	"errors"
	"testing"

	"github.com/san-kum/celestial/internal/accel"
)

func TestDeviceOnBuffer(t *testing.T) {
	d := &Device{fd: -1, mem: make([]byte, WindowSize)}

	if err := d.Write64(accel.RegDIN, 0x0102030405060708); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got, _ := d.Read32(accel.RegDIN); got != 0x05060708 {
		t.Errorf("expected low word 0x05060708, got %#x", got)
	}

	d.mem[accel.RegLocked] = 1
	if got, err := d.Read8(accel.RegLocked); err != nil || got != 1 {
		t.Errorf("expected LOCKED=1, got %d (%v)", got, err)
	}
	d.mem[accel.RegLocked+1] = 7
	if got, _ := d.Read8(accel.RegLocked + 1); got != 7 {
		t.Errorf("expected byte lane 1 = 7, got %d", got)
	}
}

func TestDeviceBounds(t *testing.T) {
	d := &Device{fd: -1, mem: make([]byte, WindowSize)}

	if _, err := d.Read32(accel.Register(WindowSize)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := d.Write64(accel.RegDIN+4, 0); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}

	d.mem = nil
	if _, err := d.Read32(accel.RegDOUT); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open("/nonexistent/mem", 0, WindowSize); err == nil {
		t.Error("expected error opening a missing device")
	}
}

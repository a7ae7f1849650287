package accel

import "fmt"

// Register is a byte offset into the accelerator's register window.
type Register uint32

const (
	RegDIN       Register = 0x4000 // write 64: command packet
	RegLocked    Register = 0x4010 // read 8: non-zero while a session holds the lock
	RegDOUT      Register = 0x4020 // read 32: result word of the last output command
	RegIteration Register = 0x4030 // read 32: remaining iterations, zero when finished
)

func (r Register) String() string {
	switch r {
	case RegDIN:
		return "DIN"
	case RegLocked:
		return "LOCKED"
	case RegDOUT:
		return "DOUT"
	case RegIteration:
		return "ITERATION"
	default:
		return fmt.Sprintf("reg(%#x)", uint32(r))
	}
}

// Device is raw register access to one accelerator. Implementations may be
// backed by mapped physical memory or by a software model.
type Device interface {
	Write64(reg Register, v uint64) error
	Read8(reg Register) (uint8, error)
	Read32(reg Register) (uint32, error)
}

package accel

import "fmt"

const (
	// TokenMask keeps the 27 bits of a lock token that fit in a packet.
	TokenMask = 0x07FFFFFF

	commandShift = 59
	commandMask  = 0x1F
	tokenShift   = 32
	dataMask     = 0xFFFFFFFF
)

// Packet is one 64-bit command word as written to DIN.
type Packet uint64

// Encode packs a command, the low 27 bits of token and a data word.
func Encode(cmd Command, token uint32, data uint32) Packet {
	return Packet(uint64(cmd&commandMask)<<commandShift |
		uint64(token&TokenMask)<<tokenShift |
		uint64(data))
}

func (p Packet) Command() Command { return Command((p >> commandShift) & commandMask) }
func (p Packet) Token() uint32    { return uint32((p >> tokenShift) & TokenMask) }
func (p Packet) Data() uint32     { return uint32(p & dataMask) }

func (p Packet) String() string {
	return fmt.Sprintf("%s token=%#07x data=%#08x", p.Command(), p.Token(), p.Data())
}

// TokenSource is the subset of *math/rand.Rand used to pick lock tokens.
type TokenSource interface {
	Uint32() uint32
}

// NewToken draws a random 27-bit lock token.
func NewToken(src TokenSource) uint32 {
	return src.Uint32() & TokenMask
}

package accel

import (
	"fmt"

	"github.com/san-kum/celestial/internal/physics"
)

// Channel is one scalar that can be read back for the target body.
type Channel uint8

const (
	ChannelX Channel = iota
	ChannelY
	ChannelZ
	ChannelDX
	ChannelDY
	ChannelDZ

	numChannels
)

var channelNames = [numChannels]string{"x", "y", "z", "dx", "dy", "dz"}

func (c Channel) String() string {
	if c < numChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

func (c Channel) command() Command { return CmdOutputX + Command(c) }

// MaskPolicy selects, per channel, whether reads use a random mask or zero.
type MaskPolicy [numChannels]bool

// DefaultMaskPolicy masks every channel.
func DefaultMaskPolicy() MaskPolicy {
	var p MaskPolicy
	for i := range p {
		p[i] = true
	}
	return p
}

// LegacyMaskPolicy masks every channel except DX, which older firmware
// drivers read with a zero mask.
func LegacyMaskPolicy() MaskPolicy {
	p := DefaultMaskPolicy()
	p[ChannelDX] = false
	return p
}

// Obfuscate is what the device places in DOUT for value v under mask.
func Obfuscate(v float32, mask uint32) uint32 {
	return physics.Float32Bits(v) ^ mask
}

// Deobfuscate inverts Obfuscate.
func Deobfuscate(word, mask uint32) float32 {
	return physics.Float32FromBits(word ^ mask)
}

// Read fetches one channel of the target body. With randomMask the mask is a
// fresh draw from the session's MaskSource, otherwise zero. Values are in
// device units; use Scaling.Unlength to convert.
func (s *Session) Read(ch Channel, randomMask bool) (float32, error) {
	if err := s.require("read "+ch.String(), Locked, Idle); err != nil {
		return 0, err
	}
	if ch >= numChannels {
		return 0, fmt.Errorf("accel: unknown channel %d", ch)
	}

	var mask uint32
	if randomMask {
		mask = s.masks.Uint32()
	}
	if err := s.send(ch.command(), mask); err != nil {
		return 0, err
	}

	word, err := s.dev.Read32(RegDOUT)
	if err != nil {
		return 0, fmt.Errorf("accel: read %s: %w", RegDOUT, err)
	}
	return Deobfuscate(word, mask), nil
}

func (s *Session) readTriple(first Channel, policy MaskPolicy) (x, y, z float32, err error) {
	var out [3]float32
	for i := range out {
		ch := first + Channel(i)
		if out[i], err = s.Read(ch, policy[ch]); err != nil {
			return 0, 0, 0, err
		}
	}
	return out[0], out[1], out[2], nil
}

// ReadPosition reads x, y and z of the target body.
func (s *Session) ReadPosition(policy MaskPolicy) (x, y, z float32, err error) {
	return s.readTriple(ChannelX, policy)
}

// ReadVelocity reads dx, dy and dz of the target body.
func (s *Session) ReadVelocity(policy MaskPolicy) (dx, dy, dz float32, err error) {
	return s.readTriple(ChannelDX, policy)
}

// ReadBody reads position and velocity of the body at index. Mass and size
// are not readable and are left zero.
func (s *Session) ReadBody(index int, policy MaskPolicy) (physics.Body, error) {
	var b physics.Body
	if err := s.SetTarget(index); err != nil {
		return b, err
	}
	var err error
	if b.X, b.Y, b.Z, err = s.ReadPosition(policy); err != nil {
		return b, err
	}
	if b.VX, b.VY, b.VZ, err = s.ReadVelocity(policy); err != nil {
		return b, err
	}
	return b, nil
}

// ReadCollisionID returns the id latched by a stop-on-collision halt. The
// word is not masked.
func (s *Session) ReadCollisionID() (uint32, error) {
	if err := s.require("read collision id", Locked, Idle); err != nil {
		return 0, err
	}
	if err := s.send(CmdOutputCollisionID, 0); err != nil {
		return 0, err
	}
	id, err := s.dev.Read32(RegDOUT)
	if err != nil {
		return 0, fmt.Errorf("accel: read %s: %w", RegDOUT, err)
	}
	return id, nil
}

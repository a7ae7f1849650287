package accel_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/physics"
)

type fields struct {
	Cmd   accel.Command
	Token uint32
	Data  uint32
}

func TestPacketRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	tokens := []uint32{0, 1, accel.TokenMask, accel.TokenMask + 1, 0xFFFFFFFF, 0x12345678}
	data := []uint32{0, 1, 0x80000000, 0xFFFFFFFF, physics.Float32Bits(-1.5)}

	for c := accel.CmdIdle; c <= accel.CmdOutputCollisionID; c++ {
		for i := 0; i < 200; i++ {
			tok := rng.Uint32()
			d := rng.Uint32()
			if i < len(tokens) {
				tok = tokens[i]
			}
			if i < len(data) {
				d = data[i]
			}

			p := accel.Encode(c, tok, d)
			got := fields{p.Command(), p.Token(), p.Data()}
			want := fields{c, tok & accel.TokenMask, d}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("Encode(%s, %#x, %#x) mismatch (-want +got):\n%s", c, tok, d, diff)
			}
		}
	}
}

func TestPacketLayout(t *testing.T) {
	p := accel.Encode(accel.CmdStart, 0x07FFFFFF, 0xDEADBEEF)
	want := uint64(12)<<59 | uint64(0x07FFFFFF)<<32 | 0xDEADBEEF
	if uint64(p) != want {
		t.Errorf("expected %#016x, got %#016x", want, uint64(p))
	}

	// token bits above 27 must not leak into the command field
	p = accel.Encode(accel.CmdIdle, 0xF8000000, 0)
	if p != 0 {
		t.Errorf("expected empty packet, got %#016x", uint64(p))
	}
}

func TestObfuscationSelfInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		v := physics.Float32FromBits(rng.Uint32())
		mask := rng.Uint32()
		got := accel.Deobfuscate(accel.Obfuscate(v, mask), mask)
		if physics.Float32Bits(got) != physics.Float32Bits(v) {
			t.Fatalf("mask %#x: %08x -> %08x", mask, physics.Float32Bits(v), physics.Float32Bits(got))
		}
	}

	if accel.Obfuscate(1, 0) != physics.Float32Bits(1) {
		t.Error("zero mask should pass the raw bits through")
	}
}

func TestCommandNames(t *testing.T) {
	tests := []struct {
		cmd  accel.Command
		name string
	}{
		{accel.CmdIdle, "Idle"},
		{accel.CmdSetMass, "SetMass"},
		{accel.CmdKeepAlive, "KeepAlive"},
		{accel.CmdOutputCollisionID, "OutputCollisionID"},
		{accel.Command(25), "Command(25)"},
	}

	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.name {
			t.Errorf("%d: expected %q, got %q", uint8(tt.cmd), tt.name, got)
		}
	}

	c, err := accel.ParseCommand("SetTarget")
	if err != nil || c != accel.CmdSetTarget {
		t.Errorf("ParseCommand(SetTarget) = %v, %v", c, err)
	}
	if _, err := accel.ParseCommand("Reboot"); err == nil {
		t.Error("expected error for unknown command")
	}
	if uint8(accel.CmdOutputCollisionID) != 24 {
		t.Errorf("command table shifted: OutputCollisionID = %d", accel.CmdOutputCollisionID)
	}
}

func TestNewToken(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if tok := accel.NewToken(rng); tok > accel.TokenMask {
			t.Fatalf("token %#x exceeds 27 bits", tok)
		}
	}
}

func TestScaling(t *testing.T) {
	sc := accel.DefaultScaling()
	sun := sc.Mass(1.989e30)
	if sun < 132.7 || sun > 132.8 {
		t.Errorf("expected scaled sun mass near 132.75, got %g", sun)
	}

	b := sc.Body(physics.Body{X: 1.5e11, VY: 3e4, Mass: 5.972e24, Size: 6371})
	if b.X < 1.4999e5 || b.X > 1.5001e5 {
		t.Errorf("expected x near 1.5e5, got %g", b.X)
	}
	if b.VY < 0.0299 || b.VY > 0.0301 {
		t.Errorf("expected vy near 0.03, got %g", b.VY)
	}
	if back := sc.Unlength(b.X); back < 1.4999e11 || back > 1.5001e11 {
		t.Errorf("expected round trip near 1.5e11, got %g", back)
	}
}

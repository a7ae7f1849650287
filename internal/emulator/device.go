package emulator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/sim"
)

// NoCollision is the collision id reported when no pair collided.
const NoCollision uint32 = 0xFFFFFFFF

const DefaultCapacity = 64

var ErrBadRegister = errors.New("emulator: register not accessible")

type Config struct {
	// Capacity is the number of BPEs.
	Capacity int
	// StepsPerTick is the number of integration steps run per accepted
	// packet once the pipeline is full.
	StepsPerTick uint32
	Refinements  int
}

func DefaultConfig() Config {
	return Config{
		Capacity:     DefaultCapacity,
		StepsPerTick: 1,
		Refinements:  physics.DefaultRefinements,
	}
}

type Stats struct {
	Packets    int
	Dropped    int
	KeepAlives int
	Steps      int
	Runs       int
}

type staging struct {
	x, y, z    float32
	mass, size float32
}

// Device implements accel.Device.
type Device struct {
	mu  sync.Mutex
	cfg Config

	locked bool
	token  uint32

	staged          staging
	bodies          []physics.Body
	dt              float32
	maxIterations   uint32
	active          int
	stopOnCollision bool
	target          int

	running   bool
	warmup    int
	remaining uint32
	collision uint32
	dout      uint32

	stats Stats
}

func New(cfg Config) *Device {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.StepsPerTick == 0 {
		cfg.StepsPerTick = 1
	}
	return &Device{
		cfg:       cfg,
		bodies:    make([]physics.Body, cfg.Capacity),
		collision: NoCollision,
	}
}

func (d *Device) Write64(reg accel.Register, v uint64) error {
	if reg != accel.RegDIN {
		return fmt.Errorf("%w: write64 %s", ErrBadRegister, reg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Packets++
	p := accel.Packet(v)

	if !d.accept(p) {
		d.stats.Dropped++
		return nil
	}

	d.tick()
	d.apply(p)
	return nil
}

func (d *Device) Read8(reg accel.Register) (uint8, error) {
	if reg != accel.RegLocked {
		return 0, fmt.Errorf("%w: read8 %s", ErrBadRegister, reg)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return 1, nil
	}
	return 0, nil
}

func (d *Device) Read32(reg accel.Register) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch reg {
	case accel.RegDOUT:
		return d.dout, nil
	case accel.RegIteration:
		if !d.running || d.warmup > 0 {
			return 0, nil
		}
		return d.remaining, nil
	default:
		return 0, fmt.Errorf("%w: read32 %s", ErrBadRegister, reg)
	}
}

// accept enforces the lock: only the holder's packets pass, and Lock only
// passes while the device is free.
func (d *Device) accept(p accel.Packet) bool {
	cmd := p.Command()
	if !cmd.Valid() {
		return false
	}
	if cmd == accel.CmdLock {
		return !d.locked
	}
	if !d.locked || p.Token() != d.token {
		return false
	}
	if d.running {
		switch cmd {
		case accel.CmdIdle, accel.CmdKeepAlive, accel.CmdStop:
		default:
			return false
		}
	}
	return true
}

func (d *Device) apply(p accel.Packet) {
	data := p.Data()
	f := physics.Float32FromBits(data)

	switch p.Command() {
	case accel.CmdLock:
		d.locked = true
		d.token = p.Token()
	case accel.CmdUnlock:
		d.locked = false
		d.token = 0
	case accel.CmdSetX:
		d.staged.x = f
	case accel.CmdSetY:
		d.staged.y = f
	case accel.CmdSetZ:
		d.staged.z = f
	case accel.CmdSetMass:
		d.staged.mass = f
	case accel.CmdSetSize:
		d.staged.size = f
	case accel.CmdSetTimestep:
		d.dt = f
	case accel.CmdForwardPosition:
		if b := d.bpe(data); b != nil {
			b.X, b.Y, b.Z = d.staged.x, d.staged.y, d.staged.z
			b.Mass, b.Size = d.staged.mass, d.staged.size
		}
	case accel.CmdForwardVelocity:
		if b := d.bpe(data); b != nil {
			b.VX, b.VY, b.VZ = d.staged.x, d.staged.y, d.staged.z
		}
	case accel.CmdStopOnCollision:
		d.stopOnCollision = data != 0
	case accel.CmdStart:
		d.start()
	case accel.CmdStop:
		d.running = false
		d.warmup = 0
	case accel.CmdSetMaxIterations:
		d.maxIterations = data
	case accel.CmdSetActiveBodies:
		d.active = int(data)
	case accel.CmdKeepAlive:
		d.stats.KeepAlives++
	case accel.CmdSetTarget:
		d.target = int(data)
	case accel.CmdOutputX, accel.CmdOutputY, accel.CmdOutputZ,
		accel.CmdOutputDX, accel.CmdOutputDY, accel.CmdOutputDZ:
		d.dout = accel.Obfuscate(d.output(p.Command()), data)
	case accel.CmdOutputCollisionID:
		d.dout = d.collision
	}
}

func (d *Device) bpe(index uint32) *physics.Body {
	if int(index) >= len(d.bodies) {
		return nil
	}
	return &d.bodies[index]
}

func (d *Device) output(cmd accel.Command) float32 {
	b := d.bpe(uint32(d.target))
	if b == nil {
		return 0
	}
	switch cmd {
	case accel.CmdOutputX:
		return b.X
	case accel.CmdOutputY:
		return b.Y
	case accel.CmdOutputZ:
		return b.Z
	case accel.CmdOutputDX:
		return b.VX
	case accel.CmdOutputDY:
		return b.VY
	default:
		return b.VZ
	}
}

func (d *Device) start() {
	if d.active < 1 || d.active > len(d.bodies) {
		return
	}
	d.running = true
	d.warmup = d.active
	d.remaining = d.maxIterations
	d.collision = NoCollision
	d.stats.Runs++
	if d.remaining == 0 {
		d.running = false
	}
}

// tick advances a running simulation by one clock.
func (d *Device) tick() {
	if !d.running {
		return
	}
	if d.warmup > 0 {
		d.warmup--
		return
	}

	kernel := physics.Kernel{G: 1, Refinements: d.cfg.Refinements}
	active := d.bodies[:d.active]

	for n := uint32(0); n < d.cfg.StepsPerTick && d.remaining > 0; n++ {
		sim.Step(active, d.dt, kernel)
		d.remaining--
		d.stats.Steps++

		if d.stopOnCollision {
			if id, ok := collide(active); ok {
				d.collision = id
				d.running = false
				return
			}
		}
	}

	if d.remaining == 0 {
		d.running = false
	}
}

// collide returns the first overlapping pair as i<<16 | j with i < j.
func collide(bodies []physics.Body) (uint32, bool) {
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			if physics.Distance(bodies[i], bodies[j]) < float64(bodies[i].Size)+float64(bodies[j].Size) {
				return uint32(i)<<16 | uint32(j), true
			}
		}
	}
	return 0, false
}

func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Holder returns the current lock token and whether the device is locked.
func (d *Device) Holder() (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token, d.locked
}

// Bodies returns a copy of the active BPE state in device units.
func (d *Device) Bodies() []physics.Body {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.active
	if n < 0 || n > len(d.bodies) {
		n = len(d.bodies)
	}
	return physics.Clone(d.bodies[:n])
}

package accel

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/san-kum/celestial/internal/physics"
	"github.com/sirupsen/logrus"
)

// State is the client-side view of the session lifecycle.
type State int

const (
	Unlocked State = iota
	Locked
	Running
	Idle
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "Unlocked"
	case Locked:
		return "Locked"
	case Running:
		return "Running"
	case Idle:
		return "Idle"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MaskSource supplies readback masks. *math/rand.Rand satisfies it.
type MaskSource interface {
	Uint32() uint32
}

type Option func(*Session)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

func WithMaskSource(m MaskSource) Option {
	return func(s *Session) { s.masks = m }
}

func WithScaling(sc Scaling) Option {
	return func(s *Session) { s.scaling = sc }
}

// Session is one exclusive conversation with a device. It is not safe for
// concurrent use; the device allows a single holder anyway.
type Session struct {
	dev     Device
	token   uint32
	state   State
	scaling Scaling
	masks   MaskSource
	log     logrus.FieldLogger

	activeBodies int
	target       int
	sent         int
}

// NewSession prepares a session that will lock dev with token. Nothing is
// written to the device until Lock.
func NewSession(dev Device, token uint32, opts ...Option) *Session {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	s := &Session{
		dev:     dev,
		token:   token & TokenMask,
		state:   Unlocked,
		scaling: DefaultScaling(),
		masks:   rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     quiet,
		target:  -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("token", fmt.Sprintf("%#07x", s.token))
	return s
}

func (s *Session) State() State      { return s.state }
func (s *Session) Token() uint32     { return s.token }
func (s *Session) Scaling() Scaling  { return s.scaling }
func (s *Session) ActiveBodies() int { return s.activeBodies }
func (s *Session) PacketsSent() int  { return s.sent }

func (s *Session) send(cmd Command, data uint32) error {
	p := Encode(cmd, s.token, data)
	s.log.WithFields(logrus.Fields{
		"cmd":  cmd,
		"data": fmt.Sprintf("%#08x", data),
	}).Debug("packet")

	if err := s.dev.Write64(RegDIN, uint64(p)); err != nil {
		return fmt.Errorf("accel: send %s: %w", cmd, err)
	}
	s.sent++
	return nil
}

func (s *Session) require(op string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	wrapped := ErrInvalidState
	if s.state == Running {
		wrapped = ErrSessionRunning
	}
	return &StateError{Op: op, State: s.state, Wrapped: wrapped}
}

// configure gates setters. A finished run may be reconfigured and restarted.
func (s *Session) configure(op string) error {
	if err := s.require(op, Locked, Idle); err != nil {
		return err
	}
	s.state = Locked
	return nil
}

// Lock acquires the device. If LOCKED reads non-zero it returns ErrDeviceBusy
// and leaves both the session and the holder untouched; there is no retry.
// The check and the Lock packet are not atomic: two hosts racing here are
// resolved by the device, which keeps the first token it sees.
func (s *Session) Lock() error {
	if err := s.require("lock", Unlocked); err != nil {
		return err
	}

	busy, err := s.dev.Read8(RegLocked)
	if err != nil {
		return fmt.Errorf("accel: read %s: %w", RegLocked, err)
	}
	if busy != 0 {
		s.log.Warn("device busy")
		return ErrDeviceBusy
	}

	if err := s.send(CmdLock, 0); err != nil {
		return err
	}
	s.state = Locked
	s.log.Info("session locked")
	return nil
}

// Unlock releases the device. A running simulation must finish or be stopped
// first.
func (s *Session) Unlock() error {
	if err := s.require("unlock", Locked, Idle); err != nil {
		return err
	}
	if err := s.send(CmdUnlock, 0); err != nil {
		return err
	}
	s.state = Unlocked
	s.target = -1
	s.log.Info("session unlocked")
	return nil
}

// SetTimestep sets dt in seconds. The timestep is not scaled.
func (s *Session) SetTimestep(dt float32) error {
	if err := s.configure("set timestep"); err != nil {
		return err
	}
	return s.send(CmdSetTimestep, physics.Float32Bits(dt))
}

func (s *Session) SetMaxIterations(n uint32) error {
	if err := s.configure("set max iterations"); err != nil {
		return err
	}
	return s.send(CmdSetMaxIterations, n)
}

// SetActiveBodies sets how many BPEs take part in the run. The count also
// sizes the warm-up phase of Wait.
func (s *Session) SetActiveBodies(n int) error {
	if err := s.configure("set active bodies"); err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("accel: active body count must be positive, got %d", n)
	}
	if err := s.send(CmdSetActiveBodies, uint32(n)); err != nil {
		return err
	}
	s.activeBodies = n
	return nil
}

func (s *Session) SetStopOnCollision(on bool) error {
	if err := s.configure("set stop on collision"); err != nil {
		return err
	}
	var flag uint32
	if on {
		flag = 1
	}
	return s.send(CmdStopOnCollision, flag)
}

// UploadBody scales b and commits it to BPE index: mass, size, then the
// staged position and velocity, each committed with a forward packet.
func (s *Session) UploadBody(index int, b physics.Body) error {
	if err := s.configure("upload body"); err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrBodyIndex, index)
	}

	scaled := s.scaling.Body(b)
	seq := []struct {
		cmd  Command
		data uint32
	}{
		{CmdSetMass, physics.Float32Bits(scaled.Mass)},
		{CmdSetSize, physics.Float32Bits(scaled.Size)},
		{CmdSetX, physics.Float32Bits(scaled.X)},
		{CmdSetY, physics.Float32Bits(scaled.Y)},
		{CmdSetZ, physics.Float32Bits(scaled.Z)},
		{CmdForwardPosition, uint32(index)},
		{CmdSetX, physics.Float32Bits(scaled.VX)},
		{CmdSetY, physics.Float32Bits(scaled.VY)},
		{CmdSetZ, physics.Float32Bits(scaled.VZ)},
		{CmdForwardVelocity, uint32(index)},
	}
	for _, p := range seq {
		if err := s.send(p.cmd, p.data); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the run and immediately follows with an Idle packet, so a
// later poll can never replay the start command.
func (s *Session) Start() error {
	if err := s.require("start", Locked, Idle); err != nil {
		return err
	}
	if err := s.send(CmdStart, 0); err != nil {
		return err
	}
	s.state = Running
	if err := s.send(CmdIdle, 0); err != nil {
		return err
	}
	s.log.WithField("bodies", s.activeBodies).Info("simulation started")
	return nil
}

// Stop aborts a running simulation. Results read afterwards reflect the
// iteration at which the device halted.
func (s *Session) Stop() error {
	if err := s.require("stop", Running); err != nil {
		return err
	}
	if err := s.send(CmdStop, 0); err != nil {
		return err
	}
	s.state = Idle
	s.log.Info("simulation stopped")
	return nil
}

// SetTarget selects the BPE returned by subsequent reads.
func (s *Session) SetTarget(index int) error {
	if err := s.require("set target", Locked, Idle); err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrBodyIndex, index)
	}
	if err := s.send(CmdSetTarget, uint32(index)); err != nil {
		return err
	}
	s.target = index
	return nil
}

// Iteration reads the raw remaining-iteration counter.
func (s *Session) Iteration() (uint32, error) {
	v, err := s.dev.Read32(RegIteration)
	if err != nil {
		return 0, fmt.Errorf("accel: read %s: %w", RegIteration, err)
	}
	return v, nil
}

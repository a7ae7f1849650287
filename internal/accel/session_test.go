package accel_test

import (
	"context"
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
)

// recorder captures every packet on its way to the wrapped device.
type recorder struct {
	accel.Device
	packets []accel.Packet
}

func (r *recorder) Write64(reg accel.Register, v uint64) error {
	r.packets = append(r.packets, accel.Packet(v))
	return r.Device.Write64(reg, v)
}

func (r *recorder) commands() []accel.Command {
	cmds := make([]accel.Command, len(r.packets))
	for i, p := range r.packets {
		cmds[i] = p.Command()
	}
	return cmds
}

func (r *recorder) since(cmd accel.Command) []accel.Packet {
	for i := len(r.packets) - 1; i >= 0; i-- {
		if r.packets[i].Command() == cmd {
			return r.packets[i:]
		}
	}
	return nil
}

const token uint32 = 0x123

var _ = Describe("Session", func() {
	var (
		dev *emulator.Device
		rec *recorder
		s   *accel.Session
		ctx context.Context
	)

	BeforeEach(func() {
		dev = emulator.New(emulator.DefaultConfig())
		rec = &recorder{Device: dev}
		s = accel.NewSession(rec, token, accel.WithMaskSource(rand.New(rand.NewSource(1))))
		ctx = context.Background()
	})

	configure := func(preset string, iterations uint32) []physics.Body {
		spec, ok := scenario.Preset(preset)
		Expect(ok).To(BeTrue())
		bodies, err := scenario.Build(spec, 1)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Lock()).To(Succeed())
		Expect(s.SetTimestep(86400)).To(Succeed())
		Expect(s.SetMaxIterations(iterations)).To(Succeed())
		Expect(s.SetActiveBodies(len(bodies))).To(Succeed())
		for i, b := range bodies {
			Expect(s.UploadBody(i, b)).To(Succeed())
		}
		return bodies
	}

	Describe("locking", func() {
		It("takes a free device with its token", func() {
			Expect(s.Lock()).To(Succeed())
			Expect(s.State()).To(Equal(accel.Locked))

			holder, locked := dev.Holder()
			Expect(locked).To(BeTrue())
			Expect(holder).To(Equal(token))
		})

		It("reports busy without touching the current holder", func() {
			Expect(s.Lock()).To(Succeed())

			other := accel.NewSession(dev, 0x456)
			Expect(other.Lock()).To(MatchError(accel.ErrDeviceBusy))
			Expect(other.State()).To(Equal(accel.Unlocked))
			Expect(other.PacketsSent()).To(BeZero())

			holder, _ := dev.Holder()
			Expect(holder).To(Equal(token))
			Expect(s.State()).To(Equal(accel.Locked))
		})

		It("refuses to lock twice", func() {
			Expect(s.Lock()).To(Succeed())
			err := s.Lock()
			Expect(err).To(MatchError(accel.ErrInvalidState))

			var se *accel.StateError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.State).To(Equal(accel.Locked))
		})

		It("frees the device on unlock", func() {
			Expect(s.Lock()).To(Succeed())
			Expect(s.Unlock()).To(Succeed())
			Expect(s.State()).To(Equal(accel.Unlocked))

			other := accel.NewSession(dev, 0x456)
			Expect(other.Lock()).To(Succeed())
			holder, _ := dev.Holder()
			Expect(holder).To(Equal(uint32(0x456)))
		})

		It("leaves the lock alone when a foreign token tries to unlock", func() {
			Expect(s.Lock()).To(Succeed())
			Expect(dev.Write64(accel.RegDIN, uint64(accel.Encode(accel.CmdUnlock, 0x999, 0)))).To(Succeed())

			holder, locked := dev.Holder()
			Expect(locked).To(BeTrue())
			Expect(holder).To(Equal(token))
			Expect(dev.Stats().Dropped).To(Equal(1))
		})
	})

	Describe("configuration", func() {
		It("requires the lock", func() {
			Expect(s.SetTimestep(1)).To(MatchError(accel.ErrInvalidState))
			Expect(s.UploadBody(0, physics.Body{})).To(MatchError(accel.ErrInvalidState))
			Expect(s.Start()).To(MatchError(accel.ErrInvalidState))
		})

		It("rejects an empty body set", func() {
			Expect(s.Lock()).To(Succeed())
			Expect(s.SetActiveBodies(0)).NotTo(Succeed())
		})

		It("uploads a body as mass, size, staged position and staged velocity", func() {
			body := physics.Body{X: 1e11, Y: 2e11, Z: 3e9, VX: 100, VY: 200, VZ: 300, Mass: 6e24, Size: 6371}

			Expect(s.Lock()).To(Succeed())
			Expect(s.SetActiveBodies(3)).To(Succeed())
			rec.packets = nil
			Expect(s.UploadBody(2, body)).To(Succeed())

			Expect(rec.commands()).To(Equal([]accel.Command{
				accel.CmdSetMass, accel.CmdSetSize,
				accel.CmdSetX, accel.CmdSetY, accel.CmdSetZ, accel.CmdForwardPosition,
				accel.CmdSetX, accel.CmdSetY, accel.CmdSetZ, accel.CmdForwardVelocity,
			}))
			for _, p := range rec.packets {
				Expect(p.Token()).To(Equal(token))
			}
			Expect(rec.packets[5].Data()).To(Equal(uint32(2)))
			Expect(rec.packets[9].Data()).To(Equal(uint32(2)))

			scaled := accel.DefaultScaling().Body(body)
			Expect(rec.packets[0].Data()).To(Equal(physics.Float32Bits(scaled.Mass)))
			Expect(dev.Bodies()[2]).To(Equal(scaled))
		})
	})

	Describe("start and wait", func() {
		It("guards Start with an Idle packet", func() {
			configure("two-body", 10)
			Expect(s.Start()).To(Succeed())
			Expect(s.State()).To(Equal(accel.Running))

			cmds := rec.commands()
			Expect(cmds[len(cmds)-2:]).To(Equal([]accel.Command{accel.CmdStart, accel.CmdIdle}))
		})

		It("runs to completion and goes idle", func() {
			configure("two-body", 10)
			Expect(s.Start()).To(Succeed())

			res, err := s.Wait(ctx, accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(accel.Completed))
			Expect(res.Polls).To(Equal(5))
			Expect(res.KeepAlives).To(Equal(res.Polls))
			Expect(s.State()).To(Equal(accel.Idle))
			Expect(dev.Stats().Steps).To(Equal(10))
		})

		It("feeds activeBodies-1 warm-up idles before polling", func() {
			configure("inner", 10)
			Expect(s.Start()).To(Succeed())
			_, err := s.Wait(ctx, accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())

			idles := 0
			for _, p := range rec.since(accel.CmdStart)[1:] {
				if p.Command() != accel.CmdIdle {
					break
				}
				idles++
			}
			Expect(idles).To(Equal(4))
		})

		It("sees a false completion when the warm-up is skipped", func() {
			configure("inner", 10)
			Expect(s.Start()).To(Succeed())

			policy := accel.DefaultPollPolicy()
			policy.WarmupIdles = 0
			res, err := s.Wait(ctx, policy)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Polls).To(BeZero())
			Expect(dev.Stats().Steps).To(BeZero())
		})

		It("sends keep-alives at the configured cadence", func() {
			configure("two-body", 10)
			Expect(s.Start()).To(Succeed())

			policy := accel.DefaultPollPolicy()
			policy.KeepAliveEvery = 2
			res, err := s.Wait(ctx, policy)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Polls).To(Equal(7))
			Expect(res.KeepAlives).To(Equal(3))
			Expect(dev.Stats().KeepAlives).To(Equal(3))
		})

		It("reports an explicit timeout and stays running", func() {
			configure("two-body", 1000)
			Expect(s.Start()).To(Succeed())

			policy := accel.DefaultPollPolicy()
			policy.MaxWait = 3
			res, err := s.Wait(ctx, policy)
			Expect(err).To(MatchError(accel.ErrTimeout))
			Expect(res.Outcome).To(Equal(accel.TimedOut))
			Expect(res.Polls).To(Equal(3))
			Expect(res.LastIteration).To(BeNumerically(">", 0))
			Expect(s.State()).To(Equal(accel.Running))

			Expect(s.Unlock()).To(MatchError(accel.ErrSessionRunning))
			Expect(s.Stop()).To(Succeed())
			Expect(s.State()).To(Equal(accel.Idle))
			Expect(s.Unlock()).To(Succeed())
		})

		It("stops polling when the context ends", func() {
			configure("two-body", 10)
			Expect(s.Start()).To(Succeed())

			canceled, cancel := context.WithCancel(ctx)
			cancel()
			res, err := s.Wait(canceled, accel.DefaultPollPolicy())
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Outcome).To(Equal(accel.Interrupted))
			Expect(s.State()).To(Equal(accel.Running))
		})

		It("refuses to wait without a running simulation", func() {
			Expect(s.Lock()).To(Succeed())
			_, err := s.Wait(ctx, accel.DefaultPollPolicy())
			Expect(err).To(MatchError(accel.ErrInvalidState))
		})

		It("can be reconfigured and restarted after completion", func() {
			configure("two-body", 4)
			Expect(s.Start()).To(Succeed())
			_, err := s.Wait(ctx, accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SetMaxIterations(2)).To(Succeed())
			Expect(s.State()).To(Equal(accel.Locked))
			Expect(s.Start()).To(Succeed())
			_, err = s.Wait(ctx, accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())
			Expect(dev.Stats().Steps).To(Equal(6))
		})
	})

	Describe("readback", func() {
		It("returns the device state of the target body", func() {
			configure("two-body", 10)
			Expect(s.Start()).To(Succeed())
			_, err := s.Wait(ctx, accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())

			got, err := s.ReadBody(1, accel.DefaultMaskPolicy())
			Expect(err).NotTo(HaveOccurred())

			want := dev.Bodies()[1]
			want.Mass, want.Size = 0, 0
			Expect(got).To(Equal(want))
		})

		It("reads the uploaded state before the run starts", func() {
			bodies := configure("two-body", 10)
			Expect(s.SetTarget(1)).To(Succeed())
			x, y, z, err := s.ReadPosition(accel.DefaultMaskPolicy())
			Expect(err).NotTo(HaveOccurred())

			sc := s.Scaling()
			Expect(x).To(Equal(sc.Length(bodies[1].X)))
			Expect(y).To(Equal(sc.Length(bodies[1].Y)))
			Expect(z).To(Equal(sc.Length(bodies[1].Z)))
		})

		It("sends a zero mask only where the policy says so", func() {
			configure("two-body", 10)
			Expect(s.SetTarget(1)).To(Succeed())
			rec.packets = nil

			_, _, _, err := s.ReadVelocity(accel.LegacyMaskPolicy())
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.commands()).To(Equal([]accel.Command{accel.CmdOutputDX, accel.CmdOutputDY, accel.CmdOutputDZ}))
			Expect(rec.packets[0].Data()).To(BeZero())
			Expect(rec.packets[1].Data()).NotTo(BeZero())
			Expect(rec.packets[2].Data()).NotTo(BeZero())
		})

		It("reads with and without a mask to the same value", func() {
			configure("two-body", 10)
			Expect(s.SetTarget(1)).To(Succeed())

			masked, err := s.Read(accel.ChannelDX, true)
			Expect(err).NotTo(HaveOccurred())
			plain, err := s.Read(accel.ChannelDX, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(masked).To(Equal(plain))
		})

		It("reports no collision after a clean run", func() {
			configure("two-body", 4)
			Expect(s.SetStopOnCollision(true)).To(Succeed())
			Expect(s.Start()).To(Succeed())
			_, err := s.Wait(ctx, accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())

			id, err := s.ReadCollisionID()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(emulator.NoCollision))
		})

		It("is refused while running", func() {
			configure("two-body", 1000)
			Expect(s.Start()).To(Succeed())
			_, err := s.Read(accel.ChannelX, true)
			Expect(err).To(MatchError(accel.ErrSessionRunning))
		})
	})
})

package emulator_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
	"github.com/san-kum/celestial/internal/sim"
)

const token uint32 = 0x42

var _ = Describe("Device", func() {
	var dev *emulator.Device

	BeforeEach(func() {
		dev = emulator.New(emulator.DefaultConfig())
	})

	write := func(cmd accel.Command, tok, data uint32) {
		Expect(dev.Write64(accel.RegDIN, uint64(accel.Encode(cmd, tok, data)))).To(Succeed())
	}

	iteration := func() uint32 {
		v, err := dev.Read32(accel.RegIteration)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	Describe("registers", func() {
		It("only accepts writes on DIN", func() {
			Expect(dev.Write64(accel.RegDOUT, 0)).To(MatchError(emulator.ErrBadRegister))
			_, err := dev.Read8(accel.RegDIN)
			Expect(err).To(MatchError(emulator.ErrBadRegister))
			_, err = dev.Read32(accel.RegLocked)
			Expect(err).To(MatchError(emulator.ErrBadRegister))
		})

		It("reports the lock flag", func() {
			v, err := dev.Read8(accel.RegLocked)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeZero())

			write(accel.CmdLock, token, 0)
			v, _ = dev.Read8(accel.RegLocked)
			Expect(v).To(Equal(uint8(1)))
		})
	})

	Describe("lock enforcement", func() {
		It("drops everything but Lock while free", func() {
			write(accel.CmdSetActiveBodies, token, 2)
			write(accel.CmdStart, token, 0)
			Expect(dev.Stats().Dropped).To(Equal(2))
			Expect(dev.Stats().Runs).To(BeZero())
		})

		It("keeps the first token and drops a second Lock", func() {
			write(accel.CmdLock, token, 0)
			write(accel.CmdLock, 0x77, 0)

			holder, locked := dev.Holder()
			Expect(locked).To(BeTrue())
			Expect(holder).To(Equal(token))
			Expect(dev.Stats().Dropped).To(Equal(1))
		})

		It("releases only for the holder", func() {
			write(accel.CmdLock, token, 0)
			write(accel.CmdUnlock, 0x77, 0)
			_, locked := dev.Holder()
			Expect(locked).To(BeTrue())

			write(accel.CmdUnlock, token, 0)
			_, locked = dev.Holder()
			Expect(locked).To(BeFalse())
		})

		It("drops packets with unknown opcodes", func() {
			write(accel.CmdLock, token, 0)
			Expect(dev.Write64(accel.RegDIN, uint64(30)<<59|uint64(token)<<32)).To(Succeed())
			Expect(dev.Stats().Dropped).To(Equal(1))
		})
	})

	Describe("pipeline", func() {
		BeforeEach(func() {
			write(accel.CmdLock, token, 0)
			write(accel.CmdSetTimestep, token, physics.Float32Bits(1))
			write(accel.CmdSetMaxIterations, token, 5)
			write(accel.CmdSetActiveBodies, token, 3)
		})

		It("reads zero iterations until every BPE has been fed", func() {
			write(accel.CmdStart, token, 0)
			for i := 0; i < 3; i++ {
				Expect(iteration()).To(BeZero())
				write(accel.CmdIdle, token, 0)
			}
			Expect(iteration()).To(Equal(uint32(5)))

			write(accel.CmdIdle, token, 0)
			Expect(iteration()).To(Equal(uint32(4)))
			Expect(dev.Stats().Steps).To(Equal(1))
		})

		It("finishes after the configured iterations", func() {
			write(accel.CmdStart, token, 0)
			for i := 0; i < 3+5; i++ {
				write(accel.CmdKeepAlive, token, 0)
			}
			Expect(iteration()).To(BeZero())
			Expect(dev.Stats().Steps).To(Equal(5))
			Expect(dev.Stats().KeepAlives).To(Equal(8))

			write(accel.CmdIdle, token, 0)
			Expect(dev.Stats().Steps).To(Equal(5))
		})

		It("runs several steps per tick when configured", func() {
			dev = emulator.New(emulator.Config{StepsPerTick: 4})
			write(accel.CmdLock, token, 0)
			write(accel.CmdSetTimestep, token, physics.Float32Bits(1))
			write(accel.CmdSetMaxIterations, token, 10)
			write(accel.CmdSetActiveBodies, token, 1)
			write(accel.CmdStart, token, 0)
			write(accel.CmdIdle, token, 0)

			write(accel.CmdIdle, token, 0)
			Expect(iteration()).To(Equal(uint32(6)))
			write(accel.CmdIdle, token, 0)
			write(accel.CmdIdle, token, 0)
			Expect(iteration()).To(BeZero())
			Expect(dev.Stats().Steps).To(Equal(10))
		})

		It("ignores configuration while running", func() {
			write(accel.CmdStart, token, 0)
			write(accel.CmdSetMaxIterations, token, 100)
			write(accel.CmdUnlock, token, 0)
			Expect(dev.Stats().Dropped).To(Equal(2))

			_, locked := dev.Holder()
			Expect(locked).To(BeTrue())
		})

		It("halts on Stop", func() {
			write(accel.CmdStart, token, 0)
			for i := 0; i < 4; i++ {
				write(accel.CmdIdle, token, 0)
			}
			write(accel.CmdStop, token, 0)
			Expect(iteration()).To(BeZero())
			steps := dev.Stats().Steps
			write(accel.CmdIdle, token, 0)
			Expect(dev.Stats().Steps).To(Equal(steps))
		})
	})

	Describe("integration", func() {
		It("matches the software kernel on scaled bodies bit for bit", func() {
			spec, _ := scenario.Preset("inner")
			bodies, err := scenario.Build(spec, 1)
			Expect(err).NotTo(HaveOccurred())

			s := accel.NewSession(dev, token)
			Expect(s.Lock()).To(Succeed())
			Expect(s.SetTimestep(86400)).To(Succeed())
			Expect(s.SetMaxIterations(30)).To(Succeed())
			Expect(s.SetActiveBodies(len(bodies))).To(Succeed())
			for i, b := range bodies {
				Expect(s.UploadBody(i, b)).To(Succeed())
			}
			Expect(s.Start()).To(Succeed())
			_, err = s.Wait(context.Background(), accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())

			sc := accel.DefaultScaling()
			want := make([]physics.Body, len(bodies))
			for i, b := range bodies {
				want[i] = sc.Body(b)
			}
			kernel := physics.Kernel{G: 1, Refinements: physics.DefaultRefinements}
			for i := 0; i < 30; i++ {
				sim.Step(want, 86400, kernel)
			}

			Expect(dev.Bodies()).To(Equal(want))
		})

		It("stops on the first overlapping pair", func() {
			s := accel.NewSession(dev, token, accel.WithScaling(accel.Scaling{G: 1, MassFactor: 1, LengthFactor: 1}))
			Expect(s.Lock()).To(Succeed())
			Expect(s.SetTimestep(1)).To(Succeed())
			Expect(s.SetMaxIterations(100)).To(Succeed())
			Expect(s.SetActiveBodies(3)).To(Succeed())
			Expect(s.SetStopOnCollision(true)).To(Succeed())
			Expect(s.UploadBody(0, physics.Body{X: 1000, Mass: 1e-6, Size: 0.75})).To(Succeed())
			Expect(s.UploadBody(1, physics.Body{Mass: 1e-6, Size: 0.75})).To(Succeed())
			Expect(s.UploadBody(2, physics.Body{X: 10, VX: -1, Mass: 1e-6, Size: 0.75})).To(Succeed())
			Expect(s.Start()).To(Succeed())

			res, err := s.Wait(context.Background(), accel.DefaultPollPolicy())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(accel.Completed))
			Expect(dev.Stats().Steps).To(Equal(9))

			id, err := s.ReadCollisionID()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(uint32(1<<16 | 2)))
		})
	})
})

// Package emulator is a deterministic software model of the N-body
// accelerator. It speaks the same register protocol as the hardware, so a
// Session can be exercised end to end without a device.
//
// The model advances on DIN writes rather than wall time: each accepted
// packet is one clock tick. After Start the pipeline needs one tick per
// active body before ITERATION reports progress; until then it reads zero.
// Once filled, every tick runs StepsPerTick integration steps.
package emulator

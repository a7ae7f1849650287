// Package accel is the host-side client for the N-body accelerator.
//
// The accelerator is driven through four memory-mapped registers. Every
// command is a 64-bit packet written to DIN:
//
//	63      59 58                      32 31                       0
//	+---------+--------------------------+--------------------------+
//	| command |  lock token (27 bits)    |  data (int or f32 bits)  |
//	+---------+--------------------------+--------------------------+
//
// A Session owns the lock token and walks the device through
//
//	Unlocked -> Locked -> Running -> Idle -> Unlocked
//
// Bodies are uploaded in scaled units (see Scaling), the run is started and
// polled to completion with keep-alives (see PollPolicy), and results are read
// back one channel at a time.
//
// # Readback masking
//
// Output commands carry a 32-bit mask that the device XORs into DOUT. The mask
// travels in the clear on the same bus, so this only hides raw values from a
// casual observer of DOUT. It is obfuscation, not confidentiality, and must not
// be relied on as a security boundary.
//
// Mutual exclusion is enforced by the device through the LOCKED register and
// the token. The client cannot detect another host that ignores the protocol.
package accel

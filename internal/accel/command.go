package accel

import "fmt"

// Command is the 5-bit opcode of a packet.
type Command uint8

const (
	CmdIdle Command = iota
	CmdLock
	CmdUnlock
	CmdSetX
	CmdSetY
	CmdSetZ
	CmdSetMass
	CmdSetSize
	CmdSetTimestep
	CmdForwardPosition
	CmdForwardVelocity
	CmdStopOnCollision
	CmdStart
	CmdStop
	CmdSetMaxIterations
	CmdSetActiveBodies
	CmdKeepAlive
	CmdSetTarget
	CmdOutputX
	CmdOutputY
	CmdOutputZ
	CmdOutputDX
	CmdOutputDY
	CmdOutputDZ
	CmdOutputCollisionID

	numCommands
)

var commandNames = [numCommands]string{
	"Idle",
	"Lock",
	"Unlock",
	"SetX",
	"SetY",
	"SetZ",
	"SetMass",
	"SetSize",
	"SetTimestep",
	"ForwardPosition",
	"ForwardVelocity",
	"StopOnCollision",
	"Start",
	"Stop",
	"SetMaxIterations",
	"SetActiveBodies",
	"KeepAlive",
	"SetTarget",
	"OutputX",
	"OutputY",
	"OutputZ",
	"OutputDX",
	"OutputDY",
	"OutputDZ",
	"OutputCollisionID",
}

// Valid reports whether c is one of the defined opcodes.
func (c Command) Valid() bool { return c < numCommands }

func (c Command) String() string {
	if c.Valid() {
		return commandNames[c]
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

// ParseCommand looks a command up by name, case-sensitively.
func ParseCommand(name string) (Command, error) {
	for i, n := range commandNames {
		if n == name {
			return Command(i), nil
		}
	}
	return 0, fmt.Errorf("accel: unknown command %q", name)
}

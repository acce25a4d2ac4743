package registry

import "github.com/webitel/benefit-solver/internal/domain/packet"

type Outcome int8

const (
	// Skipped means the handler looked at the packet and chose not to answer it.
	Skipped Outcome = iota
	Solved
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Result is what a handler hands back to the dispatcher. Exactly one of Packet
// (Solved) and Cause (Failed) is set.
type Result struct {
	Outcome Outcome
	Packet  *packet.Packet
	Cause   error
}

func Solve(p *packet.Packet) Result { return Result{Outcome: Solved, Packet: p} }

func Fail(cause error) Result { return Result{Outcome: Failed, Cause: cause} }

func Skip() Result { return Result{Outcome: Skipped} }

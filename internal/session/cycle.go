package session

import (
	"fmt"

	"github.com/sopheakchan/trash-classification/internal/fault"
)

// CycleState is one stage of a capture->classify->actuate cycle.
type CycleState int

const (
	CycleIdle CycleState = iota
	CycleCapturing
	CycleClassifying
	CycleActuating
	CycleDone
	CycleFailed
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "IDLE"
	case CycleCapturing:
		return "CAPTURING"
	case CycleClassifying:
		return "CLASSIFYING"
	case CycleActuating:
		return "ACTUATING"
	case CycleDone:
		return "DONE"
	case CycleFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// cycle tracks the state machine of a single item's run:
// IDLE -> CAPTURING -> CLASSIFYING -> ACTUATING -> DONE, with a failure
// transition from any non-terminal state to FAILED(kind). States are
// never re-entered; every cycle starts a fresh instance from IDLE.
type cycle struct {
	state   CycleState
	failure fault.Kind
}

func newCycle() *cycle {
	return &cycle{state: CycleIdle}
}

// advance moves the cycle forward by exactly one stage.
func (c *cycle) advance(next CycleState) error {
	if c.terminal() {
		return fmt.Errorf("cycle: cannot leave terminal state %s", c.state)
	}
	if next != c.state+1 || next == CycleFailed {
		return fmt.Errorf("cycle: invalid transition %s -> %s", c.state, next)
	}
	c.state = next
	return nil
}

// fail moves any non-terminal state to FAILED with the given kind.
func (c *cycle) fail(kind fault.Kind) error {
	if c.terminal() {
		return fmt.Errorf("cycle: cannot fail terminal state %s", c.state)
	}
	c.state = CycleFailed
	c.failure = kind
	return nil
}

func (c *cycle) terminal() bool {
	return c.state == CycleDone || c.state == CycleFailed
}

package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/fault"
	"github.com/sopheakchan/trash-classification/internal/hw/gpio"
)

// Command describes one actuation: which class triggered it, which
// channel to energize and for how long. Channel and Duration always come
// from configuration, never from a request payload.
type Command struct {
	Label    string // "can" or "plastic"
	Channel  int    // GPIO pin (BCM) of the output channel
	Duration time.Duration
}

// Controller is the actuation capability. Local and remote variants
// expose the identical contract: Activate is synchronous and not
// cancellable. Once a channel is energized it stays so for exactly
// Command.Duration and is then deactivated unconditionally before the
// call returns, on every exit path. A second activation while one is in
// progress fails with Busy rather than queuing.
type Controller interface {
	Activate(ctx context.Context, cmd Command) error
}

// GPIO drives output channels on a local gpio.Driver. Only one channel
// may be active at a time; the set of valid channels is fixed at
// construction.
type GPIO struct {
	gpio     gpio.Driver
	channels map[int]struct{}
	mu       sync.Mutex
}

// NewGPIO creates a local actuator controller over the given pins.
// All pins are configured as outputs and driven low (motors off).
func NewGPIO(g gpio.Driver, pins ...int) *GPIO {
	channels := make(map[int]struct{}, len(pins))
	for _, pin := range pins {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePin(pin, gpio.Low)
		channels[pin] = struct{}{}
	}
	return &GPIO{
		gpio:     g,
		channels: channels,
	}
}

// Activate energizes cmd.Channel for exactly cmd.Duration.
//
// The run is a blocking critical section: a cancellation arriving while
// the motor is energized is deferred until after de-energization, so the
// hardware is never left mid-travel. The channel is driven low on every
// exit path, including faults raised after energization.
func (a *GPIO) Activate(ctx context.Context, cmd Command) error {
	if !a.mu.TryLock() {
		return fault.New(fault.Busy, "actuator.activate", "a channel is already active")
	}
	defer a.mu.Unlock()

	if _, ok := a.channels[cmd.Channel]; !ok {
		return fault.Newf(fault.ActuationError, "actuator.activate", "unknown channel %d", cmd.Channel)
	}
	if cmd.Duration <= 0 {
		return fault.Newf(fault.ActuationError, "actuator.activate", "non-positive duration %v", cmd.Duration)
	}

	debug.Motor(cmd.Label, cmd.Channel, cmd.Duration)

	if err := a.gpio.WritePin(cmd.Channel, gpio.High); err != nil {
		// Nothing energized; still force the safe state.
		_ = a.gpio.WritePin(cmd.Channel, gpio.Low)
		return fault.Wrap(fault.ActuationError, "actuator.activate", err)
	}

	energized := true
	defer func() {
		if energized {
			_ = a.gpio.WritePin(cmd.Channel, gpio.Low)
		}
	}()

	// The full duration elapses regardless of ctx. Cancellation is
	// observed only after de-energization.
	time.Sleep(cmd.Duration)

	if err := a.gpio.WritePin(cmd.Channel, gpio.Low); err != nil {
		// The deferred write retries the safe state.
		return fault.Wrap(fault.ActuationError, "actuator.activate", err)
	}
	energized = false

	debug.Trace("actuator: channel %d de-energized", cmd.Channel)

	if err := ctx.Err(); err != nil {
		return fault.Wrap(fault.ActuationError, "actuator.activate", err)
	}
	return nil
}

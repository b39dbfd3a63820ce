package gpio

import (
	"sync"

	"github.com/sopheakchan/trash-classification/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(), nil
	}
	return NewRPiRealDriver()
}

// PinWrite records a single WritePin call on the mock driver.
type PinWrite struct {
	Pin   int
	Level Level
}

// MockDriver is a test implementation that logs actions and records
// pin writes so tests can assert on energize/de-energize ordering.
type MockDriver struct {
	mu     sync.Mutex
	writes []PinWrite

	// FailWrite, when set, makes WritePin return its result for the
	// matching pin/level. Used to inject faults mid-activation.
	FailWrite func(pin int, level Level) error
}

// NewMockDriver returns an empty recording mock.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.mu.Lock()
	m.writes = append(m.writes, PinWrite{Pin: pin, Level: level})
	fail := m.FailWrite
	m.mu.Unlock()
	if fail != nil {
		return fail(pin, level)
	}
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	m.mu.Lock()
	defer m.mu.Unlock()
	// Report the last written level, Low if never written.
	for i := len(m.writes) - 1; i >= 0; i-- {
		if m.writes[i].Pin == pin {
			return m.writes[i].Level, nil
		}
	}
	return Low, nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}

// Writes returns a copy of all recorded pin writes.
func (m *MockDriver) Writes() []PinWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PinWrite, len(m.writes))
	copy(out, m.writes)
	return out
}

// LastLevel returns the last written level for pin, Low if never written.
func (m *MockDriver) LastLevel(pin int) Level {
	lvl, _ := m.ReadPin(pin)
	return lvl
}

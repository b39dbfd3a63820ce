package peripheral

import (
	"context"
	"sync"
	"time"

	"github.com/sopheakchan/trash-classification/internal/classify"
	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/fault"
	"github.com/sopheakchan/trash-classification/internal/hw/actuator"
	"github.com/sopheakchan/trash-classification/internal/hw/camera"
)

// Status reports the health of the peripheral's hardware.
type Status struct {
	CameraAvailable bool
	GPIOInitialized bool
	LastSeen        time.Time
}

// Service exposes the peripheral's capture and actuate capabilities.
//
// The underlying camera and motor set are single physical resources, so
// capture, actuate and repeated calls to either are mutually exclusive
// behind one resource lock. A request arriving while the lock is held is
// rejected immediately with Busy rather than blocked, so callers can
// distinguish "still running" from "unreachable".
type Service struct {
	id     string
	cam    camera.Source
	act    actuator.Controller
	routes map[classify.Label]actuator.Command

	mu sync.Mutex // the per-peripheral resource lock

	statusMu        sync.Mutex
	cameraAvailable bool
	gpioInitialized bool
	lastSeen        time.Time
}

// New creates the peripheral service. routes fixes the channel and
// duration for each accepted class label.
func New(id string, cam camera.Source, act actuator.Controller, routes map[classify.Label]actuator.Command) *Service {
	return &Service{
		id:              id,
		cam:             cam,
		act:             act,
		routes:          routes,
		gpioInitialized: act != nil,
	}
}

// Capture grabs one frame from the local camera.
func (s *Service) Capture(ctx context.Context) (*camera.Frame, error) {
	if !s.mu.TryLock() {
		return nil, fault.New(fault.Busy, "peripheral.capture", "camera or motor in use")
	}
	defer s.mu.Unlock()

	frame, err := s.cam.Capture(ctx)
	s.touch(err == nil)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// Actuate runs the motor mapped to the given class label. The channel
// and duration come from the service's route table, never from the
// request.
func (s *Service) Actuate(ctx context.Context, label classify.Label) (actuator.Command, error) {
	cmd, ok := s.routes[label]
	if !ok {
		return actuator.Command{}, fault.Newf(fault.ActuationError, "peripheral.actuate", "unknown prediction %q", label)
	}

	if !s.mu.TryLock() {
		return actuator.Command{}, fault.New(fault.Busy, "peripheral.actuate", "camera or motor in use")
	}
	defer s.mu.Unlock()

	debug.Live("peripheral %s: actuating %s", s.id, label)
	if err := s.act.Activate(ctx, cmd); err != nil {
		s.touch(s.cameraOK())
		return actuator.Command{}, err
	}
	s.touch(s.cameraOK())
	return cmd, nil
}

// SelfTest probes the camera and reports the frame shape, confirming
// both capabilities are ready. No motor is moved.
func (s *Service) SelfTest(ctx context.Context) ([3]int, error) {
	if !s.mu.TryLock() {
		return [3]int{}, fault.New(fault.Busy, "peripheral.test", "camera or motor in use")
	}
	defer s.mu.Unlock()

	frame, err := s.cam.Capture(ctx)
	s.touch(err == nil)
	if err != nil {
		return [3]int{}, err
	}
	// Shape mirrors the classifier's expected layout: rows, cols, channels.
	return [3]int{frame.Height, frame.Width, 3}, nil
}

// Status returns the current hardware health snapshot.
func (s *Service) Status() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return Status{
		CameraAvailable: s.cameraAvailable,
		GPIOInitialized: s.gpioInitialized,
		LastSeen:        s.lastSeen,
	}
}

func (s *Service) touch(cameraOK bool) {
	s.statusMu.Lock()
	s.cameraAvailable = cameraOK
	s.lastSeen = time.Now().UTC()
	s.statusMu.Unlock()
}

func (s *Service) cameraOK() bool {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.cameraAvailable
}

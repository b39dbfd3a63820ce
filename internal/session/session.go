package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sopheakchan/trash-classification/internal/classify"
	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/fault"
	"github.com/sopheakchan/trash-classification/internal/hw/actuator"
	"github.com/sopheakchan/trash-classification/internal/hw/camera"
)

// Status is the lifecycle state of a classification session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Session holds the per-session counters. Counters are monotonically
// non-decreasing while running and reset only when a new session starts.
type Session struct {
	ID           string
	Status       Status
	CanCount     int
	PlasticCount int
	StartedAt    time.Time
}

// Route maps a class label to its actuation parameters. Both values are
// fixed by configuration; a request payload can never influence them.
type Route struct {
	Channel  int
	Duration time.Duration
}

// Routes is the per-label actuation table.
type Routes map[classify.Label]Route

// CycleResult is returned after a cycle reaches DONE.
type CycleResult struct {
	Label        classify.Label
	Confidence   float64
	CanCount     int
	PlasticCount int
}

// slot is one registered peripheral. Its mutex enforces that exactly one
// cycle is in flight for this peripheral at any time.
type slot struct {
	id     string
	source camera.Source
	act    actuator.Controller
	mu     sync.Mutex
}

// Controller is the top-level orchestrator: it owns the session state
// and drives one full capture->classify->actuate cycle per request,
// serializing cycles per peripheral. Distinct peripherals run
// concurrently; there is no cross-peripheral locking.
type Controller struct {
	engine classify.Engine
	routes Routes

	mu   sync.RWMutex // guards sess; status reads never see a torn update
	sess Session

	slotMu    sync.Mutex
	slots     map[string]*slot
	defaultID string
}

// New creates a controller in the idle state.
func New(engine classify.Engine, routes Routes) *Controller {
	return &Controller{
		engine: engine,
		routes: routes,
		sess:   Session{Status: StatusIdle},
		slots:  make(map[string]*slot),
	}
}

// Register adds a peripheral's capture and actuation capabilities.
// The first registered peripheral becomes the default target for
// ClassifyFrame.
func (c *Controller) Register(id string, source camera.Source, act actuator.Controller) {
	c.slotMu.Lock()
	defer c.slotMu.Unlock()
	c.slots[id] = &slot{id: id, source: source, act: act}
	if c.defaultID == "" {
		c.defaultID = id
	}
}

// Start begins a fresh session: new id, zeroed counters, running status.
func (c *Controller) Start() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = Session{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	debug.Info("Session %s started", c.sess.ID)
	return c.sess
}

// Stop halts the session, keeping the final counters readable.
func (c *Controller) Stop() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Status == StatusRunning {
		c.sess.Status = StatusStopped
	}
	debug.Info("Session %s stopped", c.sess.ID)
	debug.Counts(c.sess.CanCount, c.sess.PlasticCount)
	return c.sess
}

// Snapshot returns a consistent copy of the session state.
func (c *Controller) Snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

// RunCycle drives one full cycle against the given peripheral using its
// registered capture source. Rejected with InvalidState when the session
// is not running and with Busy while the peripheral's previous cycle is
// unresolved. On success exactly one counter is incremented; on any
// stage failure the counters are untouched.
func (c *Controller) RunCycle(ctx context.Context, peripheralID string) (*CycleResult, error) {
	sl, err := c.slot(peripheralID)
	if err != nil {
		return nil, err
	}
	return c.runOn(ctx, sl, sl.source)
}

// ClassifyFrame runs the cycle machinery over a caller-supplied frame
// instead of a physical capture, targeting the default peripheral's
// actuator. Counter and serialization semantics are identical to
// RunCycle.
func (c *Controller) ClassifyFrame(ctx context.Context, frame *camera.Frame) (*CycleResult, error) {
	c.slotMu.Lock()
	id := c.defaultID
	c.slotMu.Unlock()

	sl, err := c.slot(id)
	if err != nil {
		return nil, err
	}
	return c.runOn(ctx, sl, staticSource{frame: frame})
}

func (c *Controller) slot(id string) (*slot, error) {
	c.slotMu.Lock()
	defer c.slotMu.Unlock()
	sl, ok := c.slots[id]
	if !ok {
		return nil, fault.Newf(fault.InvalidState, "session.cycle", "unknown peripheral %q", id)
	}
	return sl, nil
}

func (c *Controller) runOn(ctx context.Context, sl *slot, source camera.Source) (*CycleResult, error) {
	const op = "session.cycle"

	c.mu.RLock()
	running := c.sess.Status == StatusRunning
	c.mu.RUnlock()
	if !running {
		return nil, fault.New(fault.InvalidState, op, "session is not running")
	}

	if !sl.mu.TryLock() {
		return nil, fault.Newf(fault.Busy, op, "peripheral %s has a cycle in flight", sl.id)
	}
	defer sl.mu.Unlock()

	cy := newCycle()

	// CAPTURING
	debug.Stage(sl.id, CycleCapturing.String())
	_ = cy.advance(CycleCapturing)
	frame, err := source.Capture(ctx)
	if err != nil {
		return nil, c.failCycle(cy, fault.CaptureUnavailable, op, err)
	}

	// CLASSIFYING
	debug.Stage(sl.id, CycleClassifying.String())
	_ = cy.advance(CycleClassifying)
	p, err := c.engine.Predict(ctx, frame.Image)
	if err != nil {
		return nil, c.failCycle(cy, fault.ClassificationError, op, err)
	}
	res := classify.Derive(p)
	debug.Prediction(string(res.Label), res.Confidence)

	// ACTUATING
	debug.Stage(sl.id, CycleActuating.String())
	_ = cy.advance(CycleActuating)
	route, ok := c.routes[res.Label]
	if !ok {
		err := fault.Newf(fault.ActuationError, op, "no route for label %q", res.Label)
		_ = cy.fail(fault.ActuationError)
		return nil, err
	}
	err = sl.act.Activate(ctx, actuator.Command{
		Label:    string(res.Label),
		Channel:  route.Channel,
		Duration: route.Duration,
	})
	if err != nil {
		return nil, c.failCycle(cy, fault.ActuationError, op, err)
	}

	// DONE: apply exactly one counter increment atomically.
	_ = cy.advance(CycleDone)
	debug.Stage(sl.id, CycleDone.String())

	c.mu.Lock()
	switch res.Label {
	case classify.LabelCan:
		c.sess.CanCount++
	case classify.LabelPlastic:
		c.sess.PlasticCount++
	}
	out := &CycleResult{
		Label:        res.Label,
		Confidence:   res.Confidence,
		CanCount:     c.sess.CanCount,
		PlasticCount: c.sess.PlasticCount,
	}
	c.mu.Unlock()

	debug.Counts(out.CanCount, out.PlasticCount)
	return out, nil
}

// failCycle records the failure on the state machine and returns the
// stage error. Errors already tagged with a kind pass through
// unmodified; untagged ones get the stage's default kind.
func (c *Controller) failCycle(cy *cycle, def fault.Kind, op string, err error) error {
	kind, ok := fault.KindOf(err)
	if !ok {
		kind = def
		err = fault.Wrap(def, op, err)
	}
	_ = cy.fail(kind)
	debug.Error(err)
	return err
}

// staticSource wraps an already-captured frame so a caller-supplied
// image flows through the same cycle machinery as a physical capture.
type staticSource struct {
	frame *camera.Frame
}

func (s staticSource) Capture(ctx context.Context) (*camera.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.CaptureUnavailable, "session.static_capture", err)
	}
	return s.frame, nil
}

package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/fault"
)

// Local captures frames from a directly attached USB camera.
//
// Each capture walks the configuration-ordered candidate device list
// exactly once (bounded retry, not unbounded polling). The first device
// that yields a decodable JPEG wins; if none does, the capture fails
// with CaptureUnavailable.
type Local struct {
	peripheralID string
	devices      []string
	width        int
	height       int
	command      []string
	run          runFunc
}

// runFunc executes a frame-grab command and returns its stdout.
// Swappable in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// NewLocal creates a local capture source. command is the grab command
// template with {device}, {width} and {height} placeholders; it must
// write a single JPEG frame to stdout.
func NewLocal(peripheralID string, devices []string, width, height int, command []string) *Local {
	return &Local{
		peripheralID: peripheralID,
		devices:      devices,
		width:        width,
		height:       height,
		command:      command,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Capture probes the candidate devices in order and returns the first
// successfully grabbed frame.
func (l *Local) Capture(ctx context.Context) (*Frame, error) {
	if len(l.command) == 0 {
		return nil, fault.New(fault.CaptureUnavailable, "camera.capture", "no capture command configured")
	}

	var lastErr error
	for _, device := range l.devices {
		if err := ctx.Err(); err != nil {
			return nil, fault.Wrap(fault.CaptureUnavailable, "camera.capture", err)
		}

		frame, err := l.grab(ctx, device)
		if err != nil {
			debug.Probe(device, false)
			lastErr = err
			continue
		}
		debug.Probe(device, true)
		debug.Capture(l.peripheralID, frame.Width, frame.Height, len(frame.Image))
		return frame, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate devices configured")
	}
	return nil, fault.Wrap(fault.CaptureUnavailable, "camera.capture", lastErr)
}

func (l *Local) grab(ctx context.Context, device string) (*Frame, error) {
	args := make([]string, 0, len(l.command)-1)
	name := l.expand(l.command[0], device)
	for _, a := range l.command[1:] {
		args = append(args, l.expand(a, device))
	}

	out, err := l.run(ctx, name, args...)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", device, err)
	}

	width, height, err := DecodeDims(out)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", device, err)
	}

	return &Frame{
		Image:      out,
		Width:      width,
		Height:     height,
		Peripheral: l.peripheralID,
		CapturedAt: time.Now().UTC(),
	}, nil
}

func (l *Local) expand(arg, device string) string {
	arg = strings.ReplaceAll(arg, "{device}", device)
	arg = strings.ReplaceAll(arg, "{width}", strconv.Itoa(l.width))
	arg = strings.ReplaceAll(arg, "{height}", strconv.Itoa(l.height))
	return arg
}

// DecodeDims validates that data is a decodable image and returns its
// dimensions.
func DecodeDims(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode frame: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("decode frame: empty dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

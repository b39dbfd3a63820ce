package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/sopheakchan/trash-classification/internal/fault"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewGray(image.Rect(0, 0, width, height))
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// fakeRunner scripts the outcome of frame-grab commands per device.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]struct {
		out []byte
		err error
	}
	calls []string
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// The device was expanded into one of the args.
	for device, res := range f.results {
		for _, a := range args {
			if a == device {
				f.calls = append(f.calls, device)
				return res.out, res.err
			}
		}
	}
	f.calls = append(f.calls, "unknown")
	return nil, errors.New("no scripted result")
}

func newLocalWithRunner(devices []string, f *fakeRunner) *Local {
	l := NewLocal("pi", devices, 640, 480, []string{"grab", "-d", "{device}", "-r", "{width}x{height}"})
	l.run = f.run
	return l
}

func TestLocal_FirstWorkingDeviceWins(t *testing.T) {
	frame := testJPEG(t, 640, 480)
	f := &fakeRunner{results: map[string]struct {
		out []byte
		err error
	}{
		"/dev/video1": {nil, errors.New("no such device")},
		"/dev/video0": {frame, nil},
		"/dev/video2": {frame, nil},
	}}

	local := newLocalWithRunner([]string{"/dev/video1", "/dev/video0", "/dev/video2"}, f)
	got, err := local.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got.Width != 640 || got.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", got.Width, got.Height)
	}
	if got.Peripheral != "pi" {
		t.Errorf("peripheral = %q, want pi", got.Peripheral)
	}

	// Probing stops at the first success: video2 is never touched.
	want := []string{"/dev/video1", "/dev/video0"}
	if len(f.calls) != len(want) {
		t.Fatalf("probe calls = %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Errorf("probe order[%d] = %q, want %q", i, f.calls[i], want[i])
		}
	}
}

func TestLocal_AllDevicesFail(t *testing.T) {
	f := &fakeRunner{results: map[string]struct {
		out []byte
		err error
	}{
		"/dev/video0": {nil, errors.New("busy")},
		"/dev/video1": {[]byte("not a jpeg"), nil},
	}}

	local := newLocalWithRunner([]string{"/dev/video0", "/dev/video1"}, f)
	_, err := local.Capture(context.Background())
	if !fault.Is(err, fault.CaptureUnavailable) {
		t.Errorf("expected CaptureUnavailable, got %v", err)
	}
	// The probe list is walked exactly once, no unbounded polling.
	if len(f.calls) != 2 {
		t.Errorf("probe calls = %d, want 2", len(f.calls))
	}
}

func TestLocal_EmptyDeviceList(t *testing.T) {
	local := newLocalWithRunner(nil, &fakeRunner{})
	_, err := local.Capture(context.Background())
	if !fault.Is(err, fault.CaptureUnavailable) {
		t.Errorf("expected CaptureUnavailable, got %v", err)
	}
}

func TestLocal_PlaceholderExpansion(t *testing.T) {
	var gotName string
	var gotArgs []string
	l := NewLocal("pi", []string{"/dev/video0"}, 640, 480,
		[]string{"fswebcam", "-d", "{device}", "-r", "{width}x{height}", "-"})
	l.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return nil, errors.New("stop here")
	}

	_, _ = l.Capture(context.Background())

	if gotName != "fswebcam" {
		t.Errorf("command = %q, want fswebcam", gotName)
	}
	want := []string{"-d", "/dev/video0", "-r", "640x480", "-"}
	if fmt.Sprint(gotArgs) != fmt.Sprint(want) {
		t.Errorf("args = %v, want %v", gotArgs, want)
	}
}

func TestMock_ProducesDecodableFrames(t *testing.T) {
	mock := NewMock("dev", 320, 240)

	frame, err := mock.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if frame.Width != 320 || frame.Height != 240 {
		t.Errorf("declared dimensions = %dx%d, want 320x240", frame.Width, frame.Height)
	}

	w, h, err := DecodeDims(frame.Image)
	if err != nil {
		t.Fatalf("mock frame not decodable: %v", err)
	}
	if w != 320 || h != 240 {
		t.Errorf("decoded dimensions = %dx%d, want 320x240", w, h)
	}
	if mock.Captures() != 1 {
		t.Errorf("captures = %d, want 1", mock.Captures())
	}
}

func TestMock_Fail(t *testing.T) {
	mock := NewMock("dev", 320, 240)
	mock.Fail = true

	_, err := mock.Capture(context.Background())
	if !fault.Is(err, fault.CaptureUnavailable) {
		t.Errorf("expected CaptureUnavailable, got %v", err)
	}
}

func TestDecodeDims_Invalid(t *testing.T) {
	if _, _, err := DecodeDims([]byte("garbage")); err == nil {
		t.Error("expected error for undecodable data, got nil")
	}
}

package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/fault"
)

// Mock is a capture source that produces synthetic frames.
// Used for development on PC or testing, like the mock GPIO driver.
type Mock struct {
	peripheralID string
	width        int
	height       int

	mu       sync.Mutex
	captures int
	// Fail, when set, makes every capture fail with CaptureUnavailable.
	Fail bool
}

// NewMock creates a synthetic capture source with the given frame size.
func NewMock(peripheralID string, width, height int) *Mock {
	return &Mock{
		peripheralID: peripheralID,
		width:        width,
		height:       height,
	}
}

// Capture returns a synthetic gray JPEG frame of the configured size.
func (m *Mock) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.CaptureUnavailable, "camera.capture", err)
	}

	m.mu.Lock()
	fail := m.Fail
	m.captures++
	n := m.captures
	m.mu.Unlock()

	if fail {
		return nil, fault.New(fault.CaptureUnavailable, "camera.capture", "mock camera set to fail")
	}

	img := image.NewGray(image.Rect(0, 0, m.width, m.height))
	// Vary the shade per capture so consecutive frames differ.
	shade := uint8(64 + (n*31)%128)
	for i := range img.Pix {
		img.Pix[i] = shade
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fault.Wrap(fault.CaptureUnavailable, "camera.capture", err)
	}

	debug.Capture(m.peripheralID, m.width, m.height, buf.Len())
	return &Frame{
		Image:      buf.Bytes(),
		Width:      m.width,
		Height:     m.height,
		Peripheral: m.peripheralID,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// Captures returns how many frames were requested.
func (m *Mock) Captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

package camera

import (
	"context"
	"time"
)

// Frame is a single captured image with its dimensions.
type Frame struct {
	Image      []byte // JPEG bytes
	Width      int
	Height     int
	Peripheral string // identifier of the capturing node
	CapturedAt time.Time
}

// Source is the high-level capture interface used by the rest of the
// application. It represents an abstract camera, regardless of how it's
// reached (local device, remote peripheral over the wire protocol, etc.).
type Source interface {
	// Capture grabs a single frame. It never retries a successful
	// physical capture; a second frame within one logical cycle would
	// be semantically wrong.
	Capture(ctx context.Context) (*Frame, error)
}

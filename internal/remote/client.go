package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/fault"
	"github.com/sopheakchan/trash-classification/internal/hw/actuator"
	"github.com/sopheakchan/trash-classification/internal/hw/camera"
)

// Client reaches a peripheral's capability surface over HTTP. It
// implements both camera.Source and actuator.Controller, so the
// orchestrator treats a remote peripheral exactly like local hardware.
//
// Every call is a single wire round-trip with a bounded timeout. There
// is no automatic retry: re-running a capture or an actuation could
// double-trigger hardware or double-count an item.
type Client struct {
	peripheralID string
	baseURL      string
	http         *http.Client
}

// NewClient creates a wire client for the peripheral at baseURL.
func NewClient(peripheralID, baseURL string, timeout time.Duration) *Client {
	return &Client{
		peripheralID: peripheralID,
		baseURL:      baseURL,
		http:         &http.Client{Timeout: timeout},
	}
}

// PeripheralID returns the configured identifier of the peer.
func (c *Client) PeripheralID() string {
	return c.peripheralID
}

// StatusInfo is the peer's self-reported health.
type StatusInfo struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	CameraAvailable bool   `json:"camera_available"`
	GPIOInitialized bool   `json:"gpio_initialized"`
}

type captureResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Image   string `json:"image"`
}

type motorResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Prediction string `json:"prediction"`
}

// TestReport is the peer's combined camera/GPIO test result.
type TestReport struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	CameraShape     []int  `json:"camera_shape"`
	GPIOInitialized bool   `json:"gpio_initialized"`
}

// Capture issues one request to the peer's capture endpoint.
func (c *Client) Capture(ctx context.Context) (*camera.Frame, error) {
	const op = "remote.capture"

	var out captureResponse
	code, err := c.get(ctx, op, "/api/capture", &out)
	if err != nil {
		return nil, err
	}
	if err := peerError(op, code, out.Status, out.Message, fault.CaptureUnavailable); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, fault.Wrap(fault.ProtocolError, op, err)
	}
	width, height, err := camera.DecodeDims(raw)
	if err != nil {
		return nil, fault.Wrap(fault.ProtocolError, op, err)
	}

	debug.Capture(c.peripheralID, width, height, len(raw))
	return &camera.Frame{
		Image:      raw,
		Width:      width,
		Height:     height,
		Peripheral: c.peripheralID,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// Activate maps one actuation to one wire round-trip. Only the class
// label crosses the wire; the peripheral owns its channel pins and
// durations.
func (c *Client) Activate(ctx context.Context, cmd actuator.Command) error {
	const op = "remote.activate"

	body, err := json.Marshal(map[string]string{"prediction": cmd.Label})
	if err != nil {
		return fault.Wrap(fault.ProtocolError, op, err)
	}

	var out motorResponse
	code, err := c.post(ctx, op, "/api/motor", body, &out)
	if err != nil {
		return err
	}
	if err := peerError(op, code, out.Status, out.Message, fault.ActuationError); err != nil {
		return err
	}

	debug.Live("remote %s: %s", c.peripheralID, out.Message)
	return nil
}

// Status probes the peer's health endpoint.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	const op = "remote.status"

	var out StatusInfo
	code, err := c.get(ctx, op, "/api/status", &out)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fault.Newf(fault.ProtocolError, op, "unexpected status code %d", code)
	}
	return &out, nil
}

// SelfTest invokes the peer's combined camera/GPIO test.
func (c *Client) SelfTest(ctx context.Context) (*TestReport, error) {
	const op = "remote.test"

	var out TestReport
	code, err := c.get(ctx, op, "/api/test", &out)
	if err != nil {
		return nil, err
	}
	if err := peerError(op, code, out.Status, out.Message, fault.CaptureUnavailable); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, op, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fault.Wrap(fault.TransportError, op, err)
	}
	return c.do(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string, body []byte, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fault.Wrap(fault.TransportError, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

// do executes the round-trip and decodes the JSON body. Network-level
// failures (refused, timed out) are TransportError; a body that is not
// the expected JSON shape is ProtocolError.
func (c *Client) do(op string, req *http.Request, out interface{}) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fault.Wrap(fault.TransportError, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return 0, fault.Wrap(fault.TransportError, op, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return 0, fault.Wrap(fault.ProtocolError, op, fmt.Errorf("undecodable body: %w", err))
	}
	return resp.StatusCode, nil
}

// peerError converts a peer-reported failure into the right kind:
// 409 means the peripheral's resource lock is held (Busy); any other
// error report keeps the stage's kind.
func peerError(op string, code int, status, message string, def fault.Kind) error {
	if code == http.StatusConflict {
		return fault.New(fault.Busy, op, message)
	}
	if code != http.StatusOK || status != "success" {
		if message == "" {
			return fault.Newf(def, op, "peer reported status %q (http %d)", status, code)
		}
		return fault.New(def, op, message)
	}
	return nil
}

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/fault"
)

// HTTPEngine reaches a model service over HTTP. The frame is posted as a
// multipart JPEG to <endpoint>/predict; the service answers
// {"probability": p} with p in [0, 1].
type HTTPEngine struct {
	endpoint string
	client   *http.Client
}

// NewHTTPEngine creates an engine client with a bounded request timeout.
func NewHTTPEngine(endpoint string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type predictResponse struct {
	Probability *float64 `json:"probability"`
}

// Predict posts the frame and returns the reported probability.
// Unreachable or timed-out service, as well as a malformed response,
// fail with ClassificationError; there is no retry.
func (e *HTTPEngine) Predict(ctx context.Context, image []byte) (float64, error) {
	const op = "engine.predict"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return 0, fault.Wrap(fault.ClassificationError, op, err)
	}
	if _, err := part.Write(image); err != nil {
		return 0, fault.Wrap(fault.ClassificationError, op, err)
	}
	if err := writer.Close(); err != nil {
		return 0, fault.Wrap(fault.ClassificationError, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/predict", &buf)
	if err != nil {
		return 0, fault.Wrap(fault.ClassificationError, op, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fault.Wrap(fault.ClassificationError, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fault.Newf(fault.ClassificationError, op, "bad status %s: %s", resp.Status, body)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fault.Wrap(fault.ClassificationError, op, err)
	}
	if out.Probability == nil {
		return 0, fault.New(fault.ClassificationError, op, "response missing probability")
	}
	p := *out.Probability
	if p < 0 || p > 1 {
		return 0, fault.Wrap(fault.ClassificationError, op, fmt.Errorf("probability %g outside [0, 1]", p))
	}

	debug.Verbose("engine: p=%g from %s", p, e.endpoint)
	return p, nil
}

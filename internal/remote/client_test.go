package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sopheakchan/trash-classification/internal/fault"
	"github.com/sopheakchan/trash-classification/internal/hw/actuator"
	"github.com/sopheakchan/trash-classification/internal/hw/camera"
)

func peerStub(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("pi", srv.URL, time.Second)
}

func frameBase64(t *testing.T) string {
	t.Helper()
	mock := camera.NewMock("pi", 640, 480)
	frame, err := mock.Capture(context.Background())
	if err != nil {
		t.Fatalf("mock capture: %v", err)
	}
	return base64.StdEncoding.EncodeToString(frame.Image)
}

func TestCapture_DecodesFrame(t *testing.T) {
	img := frameBase64(t)
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/capture" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "success",
			"image":  img,
		})
	})

	frame, err := client.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if frame.Width != 640 || frame.Height != 480 {
		t.Errorf("frame = %dx%d, want 640x480", frame.Width, frame.Height)
	}
	if frame.Peripheral != "pi" {
		t.Errorf("peripheral = %q, want pi", frame.Peripheral)
	}
}

func TestCapture_PeerFailureKeepsStageKind(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "camera or motor in use",
		})
	})

	_, err := client.Capture(context.Background())
	if !fault.Is(err, fault.CaptureUnavailable) {
		t.Errorf("expected CaptureUnavailable for peer-reported failure, got %v", err)
	}
}

func TestCapture_BadBase64IsProtocolError(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "success",
			"image":  "not base64 at all!!!",
		})
	})

	_, err := client.Capture(context.Background())
	if !fault.Is(err, fault.ProtocolError) {
		t.Errorf("expected ProtocolError for bad base64, got %v", err)
	}
}

func TestCapture_UndecodableImageIsProtocolError(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "success",
			"image":  base64.StdEncoding.EncodeToString([]byte("not a jpeg")),
		})
	})

	_, err := client.Capture(context.Background())
	if !fault.Is(err, fault.ProtocolError) {
		t.Errorf("expected ProtocolError for undecodable image, got %v", err)
	}
}

func TestActivate_SendsLabelOnly(t *testing.T) {
	var got map[string]interface{}
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/motor" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":     "success",
			"message":    "motor can activated for 1s",
			"prediction": "can",
		})
	})

	cmd := actuator.Command{Label: "can", Channel: 17, Duration: time.Second}
	if err := client.Activate(context.Background(), cmd); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// The peer owns pins and durations; only the label crosses the wire.
	if got["prediction"] != "can" {
		t.Errorf("wire prediction = %v, want can", got["prediction"])
	}
	if len(got) != 1 {
		t.Errorf("wire body has %d fields %v, want prediction only", len(got), got)
	}
}

func TestActivate_ConflictIsBusy(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "camera or motor in use",
		})
	})

	err := client.Activate(context.Background(), actuator.Command{Label: "can"})
	if !fault.Is(err, fault.Busy) {
		t.Errorf("expected Busy for 409, got %v", err)
	}
}

func TestActivate_PeerErrorIsActuationError(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": `unknown prediction "glass"`,
		})
	})

	err := client.Activate(context.Background(), actuator.Command{Label: "glass"})
	if !fault.Is(err, fault.ActuationError) {
		t.Errorf("expected ActuationError, got %v", err)
	}
}

func TestClient_UnreachablePeerIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening anymore
	client := NewClient("pi", srv.URL, 100*time.Millisecond)

	if _, err := client.Capture(context.Background()); !fault.Is(err, fault.TransportError) {
		t.Errorf("Capture: expected TransportError, got %v", err)
	}
	if err := client.Activate(context.Background(), actuator.Command{Label: "can"}); !fault.Is(err, fault.TransportError) {
		t.Errorf("Activate: expected TransportError, got %v", err)
	}
	if _, err := client.Status(context.Background()); !fault.Is(err, fault.TransportError) {
		t.Errorf("Status: expected TransportError, got %v", err)
	}
}

func TestClient_NonJSONBodyIsProtocolError(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	})

	if _, err := client.Capture(context.Background()); !fault.Is(err, fault.ProtocolError) {
		t.Errorf("expected ProtocolError for non-JSON body, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":           "online",
			"message":          "peripheral is ready",
			"camera_available": true,
			"gpio_initialized": false,
		})
	})

	info, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if info.Status != "online" || !info.CameraAvailable || info.GPIOInitialized {
		t.Errorf("status info = %+v", info)
	}
}

func TestSelfTest(t *testing.T) {
	client := peerStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/test" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":           "success",
			"message":          "camera and GPIO ready",
			"camera_shape":     []int{480, 640, 3},
			"gpio_initialized": true,
		})
	})

	report, err := client.SelfTest(context.Background())
	if err != nil {
		t.Fatalf("SelfTest: %v", err)
	}
	if len(report.CameraShape) != 3 || report.CameraShape[0] != 480 {
		t.Errorf("camera_shape = %v, want [480 640 3]", report.CameraShape)
	}
}

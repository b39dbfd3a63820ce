package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sopheakchan/trash-classification/internal/fault"
	"github.com/sopheakchan/trash-classification/internal/hw/camera"
	"github.com/sopheakchan/trash-classification/internal/session"
)

// Handlers holds dependencies for the orchestrator's HTTP handlers.
type Handlers struct {
	Sessions *session.Controller
}

// NewHandlers creates handlers over the given session controller.
func NewHandlers(sessions *session.Controller) *Handlers {
	return &Handlers{Sessions: sessions}
}

// HandleStatus reports that the orchestrator is up, with the session
// state in the message.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.Sessions.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "online",
		"message": fmt.Sprintf("orchestrator ready, session %s", snap.Status),
	})
}

// HandleClassify accepts {image: base64}, runs the full cycle over the
// supplied frame (classify, count, actuate) and returns the result with
// updated counters.
func (h *Handlers) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
		writeError(w, http.StatusBadRequest, "missing image, expected {\"image\": \"<base64>\"}")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is not valid base64")
		return
	}
	width, height, err := camera.DecodeDims(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is not a decodable frame")
		return
	}

	result, err := h.Sessions.ClassifyFrame(r.Context(), &camera.Frame{
		Image:      raw,
		Width:      width,
		Height:     height,
		Peripheral: "caller",
		CapturedAt: time.Now().UTC(),
	})
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"prediction":    string(result.Label),
		"confidence":    result.Confidence,
		"can_count":     result.CanCount,
		"plastic_count": result.PlasticCount,
	})
}

// HandleStart begins a fresh session with zeroed counters.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	snap := h.Sessions.Start()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "session started",
		"data": map[string]interface{}{
			"session_id":    snap.ID,
			"can_count":     snap.CanCount,
			"plastic_count": snap.PlasticCount,
			"is_active":     snap.Status == session.StatusRunning,
		},
	})
}

// HandleStop halts the session and returns the final scores.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	snap := h.Sessions.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "session stopped",
		"final_scores": map[string]interface{}{
			"can_count":     snap.CanCount,
			"plastic_count": snap.PlasticCount,
		},
	})
}

// HandleScores returns the current counters.
func (h *Handlers) HandleScores(w http.ResponseWriter, r *http.Request) {
	snap := h.Sessions.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"can_count":     snap.CanCount,
		"plastic_count": snap.PlasticCount,
		"is_active":     snap.Status == session.StatusRunning,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}

// writeFault maps cycle failures onto HTTP statuses. InvalidState (no
// running session) mirrors the original service's 400; Busy is 409; the
// remaining stage failures are 500s with the tagged message.
func writeFault(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if kind, ok := fault.KindOf(err); ok {
		switch kind {
		case fault.InvalidState:
			code = http.StatusBadRequest
		case fault.Busy:
			code = http.StatusConflict
		}
	}
	writeError(w, code, err.Error())
}

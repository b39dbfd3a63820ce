package peripheral

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sopheakchan/trash-classification/internal/classify"
	"github.com/sopheakchan/trash-classification/internal/fault"
)

// Server wraps the peripheral capability HTTP surface.
type Server struct {
	addr    string
	service *Service
}

// NewServer creates a server for the given bind address and service.
func NewServer(addr string, service *Service) *Server {
	return &Server{
		addr:    addr,
		service: service,
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/capture", s.handleCapture)
	mux.HandleFunc("POST /api/motor", s.handleMotor)
	mux.HandleFunc("GET /api/test", s.handleTest)

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("peripheral server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "online",
		"message":          "peripheral is ready",
		"camera_available": st.CameraAvailable,
		"gpio_initialized": st.GPIOInitialized,
	})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	frame, err := s.service.Capture(r.Context())
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"image":  base64.StdEncoding.EncodeToString(frame.Image),
	})
}

func (s *Server) handleMotor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prediction string `json:"prediction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prediction == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": `missing prediction, expected {"prediction": "can"/"plastic"}`,
		})
		return
	}

	cmd, err := s.service.Actuate(r.Context(), classify.Label(req.Prediction))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"message":    "motor " + req.Prediction + " activated for " + cmd.Duration.String(),
		"prediction": req.Prediction,
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	shape, err := s.service.SelfTest(r.Context())
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "success",
		"message":          "camera and GPIO ready",
		"camera_shape":     []int{shape[0], shape[1], shape[2]},
		"gpio_initialized": s.service.Status().GPIOInitialized,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFault maps error kinds to HTTP statuses: Busy is 409 so callers
// can tell "still running" from "unreachable", contract violations are
// 400, everything else is 500.
func writeFault(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if kind, ok := fault.KindOf(err); ok {
		switch kind {
		case fault.Busy:
			code = http.StatusConflict
		case fault.ActuationError, fault.InvalidState:
			code = http.StatusBadRequest
		}
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  "error",
		"message": err.Error(),
	})
}

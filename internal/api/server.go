package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AaronLay10/SentientStage/internal/events"
	"github.com/AaronLay10/SentientStage/internal/orchestrator"
)

// SessionController is the live engine as seen by operator endpoints.
type SessionController interface {
	Start() bool
	Restart() bool
	AdvanceDialogue() bool
	Status() orchestrator.SessionStatus
	Active() bool
	Ticks() uint64
	Tasks() int
	Elapsed() time.Duration
}

var (
	controllerMu sync.RWMutex
	controller   SessionController
)

// SetController sets the engine used by session and operator endpoints.
// Nil serves the history-only API.
func SetController(c SessionController) {
	controllerMu.Lock()
	controller = c
	controllerMu.Unlock()
}

func getController() SessionController {
	controllerMu.RLock()
	defer controllerMu.RUnlock()
	return controller
}

// readinessState tracks dependency health for /ready.
type readinessState struct {
	mu                sync.RWMutex
	orchestratorReady bool
	mqttConnected     bool
	mqttOptional      bool
	storeConnected    bool
	storeOptional     bool
}

var readiness = &readinessState{}

// SetOrchestratorReady marks the engine (or the history API) as serving.
func SetOrchestratorReady(ready bool) {
	readiness.mu.Lock()
	readiness.orchestratorReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records broker connectivity and whether it is required.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetStoreState records event store connectivity and whether it is required.
func SetStoreState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.storeConnected = connected
	readiness.storeOptional = optional
	readiness.mu.Unlock()
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

// ReadinessCheck is the state of one dependency.
type ReadinessCheck struct {
	Status   string `json:"status"` // ok, not_ready or unavailable
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                      `json:"ready"`
	Checks      map[string]ReadinessCheck `json:"checks"`
	NotReadyMsg string                    `json:"message,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "stage",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func dependencyCheck(name string, connected, optional bool, reasons *[]string) ReadinessCheck {
	switch {
	case connected:
		return ReadinessCheck{Status: "ok", Optional: optional}
	case optional:
		return ReadinessCheck{Status: "unavailable", Optional: true}
	default:
		*reasons = append(*reasons, name+" not connected")
		return ReadinessCheck{Status: "not_ready"}
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	orchestratorReady := readiness.orchestratorReady
	mqttConnected, mqttOptional := readiness.mqttConnected, readiness.mqttOptional
	storeConnected, storeOptional := readiness.storeConnected, readiness.storeOptional
	readiness.mu.RUnlock()

	var reasons []string
	checks := make(map[string]ReadinessCheck)

	if orchestratorReady {
		checks["orchestrator"] = ReadinessCheck{Status: "ok"}
	} else {
		checks["orchestrator"] = ReadinessCheck{Status: "not_ready"}
		reasons = append(reasons, "orchestrator not ready")
	}
	checks["mqtt"] = dependencyCheck("mqtt", mqttConnected, mqttOptional, &reasons)
	checks["store"] = dependencyCheck("store", storeConnected, storeOptional, &reasons)

	resp := ReadinessResponse{
		Ready:       len(reasons) == 0,
		Checks:      checks,
		NotReadyMsg: strings.Join(reasons, "; "),
	}

	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

type OperatorResponse struct {
	OK      bool                       `json:"ok"`
	Error   string                     `json:"error,omitempty"`
	Role    Role                       `json:"role,omitempty"`
	Session *orchestrator.SessionStatus `json:"session,omitempty"`
}

func writeOperator(w http.ResponseWriter, code int, resp OperatorResponse) {
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func sessionHandler(w http.ResponseWriter, r *http.Request) {
	c := getController()
	if c == nil {
		writeOperator(w, http.StatusServiceUnavailable, OperatorResponse{Error: "no engine attached"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Status())
}

// operatorHandler wraps one engine operation as a POST endpoint. The
// operation returns false when it did not apply; that is a 409.
func operatorHandler(op func(SessionController) bool, conflict string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeOperator(w, http.StatusMethodNotAllowed, OperatorResponse{Error: "method not allowed"})
			return
		}

		c := getController()
		if c == nil {
			writeOperator(w, http.StatusServiceUnavailable, OperatorResponse{Error: "no engine attached"})
			return
		}

		ok := op(c)
		st := c.Status()
		role := RoleFromContext(r.Context())
		if !ok {
			writeOperator(w, http.StatusConflict, OperatorResponse{Error: conflict, Role: role, Session: &st})
			return
		}
		writeOperator(w, http.StatusOK, OperatorResponse{OK: true, Role: role, Session: &st})
	}
}

var (
	operatorStartHandler   = operatorHandler(SessionController.Start, "session already running or no scenes configured")
	operatorRestartHandler = operatorHandler(SessionController.Restart, "no scenes configured")
	operatorAdvanceHandler = operatorHandler(SessionController.AdvanceDialogue, "no dialogue line to advance")
)

// historyHandler returns recent stored events, newest first.
func historyHandler(w http.ResponseWriter, r *http.Request) {
	store := events.GetStore()
	if store == nil {
		writeOperator(w, http.StatusServiceUnavailable, OperatorResponse{Error: "event store not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := store.Query(limit)
	if err != nil {
		writeOperator(w, http.StatusInternalServerError, OperatorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// sessionHistoryHandler rebuilds one session from the event store.
func sessionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	store := events.GetStore()
	if store == nil {
		writeOperator(w, http.StatusServiceUnavailable, OperatorResponse{Error: "event store not configured"})
		return
	}

	id := r.PathValue("session_id")
	rows, err := store.QuerySession(id)
	if err != nil {
		writeOperator(w, http.StatusInternalServerError, OperatorResponse{Error: err.Error()})
		return
	}
	summary := orchestrator.SummarizeSession(rows)
	if summary == nil {
		writeOperator(w, http.StatusNotFound, OperatorResponse{Error: "session not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

// NewMux builds the API routes.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/ws/events", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("/session", RequireAnyRole(sessionHandler))
	mux.HandleFunc("/operator/start", RequireAnyRole(operatorStartHandler))
	mux.HandleFunc("/operator/restart", RequireAdmin(operatorRestartHandler))
	mux.HandleFunc("/operator/dialogue/advance", RequireAnyRole(operatorAdvanceHandler))
	mux.HandleFunc("GET /history", RequireAnyRole(historyHandler))
	mux.HandleFunc("GET /history/{session_id}", RequireAnyRole(sessionHistoryHandler))
	return mux
}

// NewServer creates the HTTP server on port, with TLS when configured.
func NewServer(port int) (*http.Server, error) {
	tlsCfg, err := LoadTLSConfig()
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewMux(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Serve runs srv until it is shut down.
func Serve(srv *http.Server) error {
	if srv.TLSConfig != nil {
		log.Printf("API listening on %s (TLS)\n", srv.Addr)
		return srv.ListenAndServeTLS("", "")
	}
	log.Printf("API listening on %s\n", srv.Addr)
	return srv.ListenAndServe()
}

// ListenAndServe starts the API server on the given port.
// It blocks until the server exits.
func ListenAndServe(port int) error {
	srv, err := NewServer(port)
	if err != nil {
		return err
	}
	return Serve(srv)
}

// Start starts the API server in a goroutine and returns it for shutdown.
// Serve errors after startup are logged.
func Start(port int) (*http.Server, error) {
	srv, err := NewServer(port)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := Serve(srv); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()
	return srv, nil
}

package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/SentientStage/internal/events"
	"github.com/AaronLay10/SentientStage/internal/version"
)

var (
	metricsState = &MetricsState{}
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu             sync.RWMutex
	startTime      time.Time
	experienceName string
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetExperienceName sets the experience label on every metric.
func SetExperienceName(name string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.experienceName = name
}

// GetExperienceName returns the current experience label.
func GetExperienceName() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.experienceName
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	experienceName := metricsState.experienceName
	metricsState.mu.RUnlock()

	uptime := time.Since(startTime).Seconds()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	storeConnected := readiness.storeConnected
	readiness.mu.RUnlock()

	var (
		sessionActive bool
		score         int
		scenesPlayed  int
		ticks         uint64
		tasks         int
		elapsed       float64
	)
	if c := getController(); c != nil {
		st := c.Status()
		sessionActive = c.Active()
		score = st.Score
		scenesPlayed = len(st.Visited)
		ticks = c.Ticks()
		tasks = c.Tasks()
		elapsed = c.Elapsed().Seconds()
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		if labels != "" {
			fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
		} else {
			fmt.Fprintf(w, "%s %v\n", name, value)
		}
	}

	labels := fmt.Sprintf(`experience="%s",instance="%s",version="%s"`, experienceName, hostname, version.Version)

	writeMetric("sentient_uptime_seconds", "gauge",
		"Number of seconds since the stage process started", uptime, labels)

	writeMetric("sentient_session_active", "gauge",
		"Whether a session is running (1) or not (0)", boolGauge(sessionActive), labels)

	writeMetric("sentient_session_score", "gauge",
		"Cumulative score of the current or last session", score, labels)

	writeMetric("sentient_session_scenes_played", "gauge",
		"Scenes entered in the current or last session", scenesPlayed, labels)

	writeMetric("sentient_engine_ticks_total", "counter",
		"Engine ticks since startup", ticks, labels)

	writeMetric("sentient_engine_tasks", "gauge",
		"Tasks waiting on the engine timeline", tasks, labels)

	writeMetric("sentient_engine_elapsed_seconds", "counter",
		"Timeline seconds advanced by the engine", elapsed, labels)

	writeMetric("sentient_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)

	writeMetric("sentient_mqtt_connected", "gauge",
		"Whether MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected), labels)

	writeMetric("sentient_store_connected", "gauge",
		"Whether the event store is connected (1) or not (0)", boolGauge(storeConnected), labels)

	writeMetric("sentient_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)

	writeMetric("sentient_ws_dropped_total", "counter",
		"Events dropped for WebSocket clients that fell behind", events.DroppedCount(), labels)
}

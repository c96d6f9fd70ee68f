package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/SentientStage/internal/storage"
)

var buffer = NewRing(256)

var totalEmitted atomic.Int64

var (
	store            storage.Store
	sessionID        string
	logOutput        io.Writer
	storeMu          sync.RWMutex
	storeErrorLogged bool
)

// SetStore sets the event store used for persistence. Nil disables persistence.
func SetStore(s storage.Store) {
	storeMu.Lock()
	store = s
	storeErrorLogged = false
	storeMu.Unlock()
}

// GetStore returns the current event store (for API queries).
func GetStore() storage.Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return store
}

// SetSessionID tags every following event with the given session.
func SetSessionID(id string) {
	storeMu.Lock()
	sessionID = id
	storeMu.Unlock()
}

// SessionID returns the session events are currently tagged with.
func SessionID() string {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return sessionID
}

// SetLogOutput mirrors every event as a JSON line to w. Nil disables it.
func SetLogOutput(w io.Writer) {
	storeMu.Lock()
	logOutput = w
	storeMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	storeMu.RLock()
	client := store
	session := sessionID
	out := logOutput
	errorLogged := storeErrorLogged
	storeMu.RUnlock()

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		SessionID: session,
		Fields:    fields,
	}

	buffer.Add(e)
	totalEmitted.Add(1)
	broadcast(e)

	if client != nil {
		if err := client.Append(ts, level, name, msg, fields, session); err != nil && !errorLogged {
			// Added straight to the buffer, not through Emit, so a failing
			// store cannot recurse.
			storeMu.Lock()
			first := !storeErrorLogged
			storeErrorLogged = true
			storeMu.Unlock()
			if first {
				buffer.Add(Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Name:      "system.error",
					Message:   "event store append failed",
					Fields: map[string]interface{}{
						"error": err.Error(),
					},
				})
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	if out != nil {
		fmt.Fprintln(out, string(b))
	}

	return b, nil
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// Named returns the buffered events with the given name, oldest first.
func Named(name string) []Event {
	return buffer.Select(func(e Event) bool { return e.Name == name }, 0)
}

// TotalCount returns the number of events emitted since startup.
func TotalCount() int64 {
	return totalEmitted.Load()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Reset()
}

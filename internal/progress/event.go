package progress

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// EventType names a progress event on the wire.
type EventType string

// Event types.
const (
	EventConnected             EventType = "connected"
	EventLog                   EventType = "log"
	EventAnalysisStarted       EventType = "analysis-started"
	EventGridStarted           EventType = "grid-started"
	EventGridProgress          EventType = "grid-progress"
	EventYearCompleted         EventType = "year-completed"
	EventHistoricalStarted     EventType = "historical-started"
	EventHistoricalYearStarted EventType = "historical-year-started"
	EventHistoricalCompleted   EventType = "historical-completed"
	EventAnalysisCompleted     EventType = "analysis-completed"
	EventAnalysisError         EventType = "analysis-error"
)

// Terminal reports whether the type ends a session's stream.
func (t EventType) Terminal() bool {
	return t == EventAnalysisCompleted || t == EventAnalysisError
}

// Event is one message published to a session.
type Event struct {
	Session   string
	Type      EventType
	Data      map[string]any
	Timestamp time.Time
}

// MarshalJSON encodes the wire form {"type": ..., "data": {..., "timestamp": ...}}.
func (e Event) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(struct {
		Type EventType      `json:"type"`
		Data map[string]any `json:"data"`
	}{e.Type, data})
}

// toData flattens a payload into the event's data object. Structs are
// encoded through their JSON tags; non-object payloads land under "value".
func toData(payload any) (map[string]any, error) {
	switch p := payload.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return p, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "progress: encode payload")
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{"value": json.RawMessage(raw)}, nil
	}
	return data, nil
}

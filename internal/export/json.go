package export

import (
	"encoding/json"
	"time"

	"github.com/kcenon/cleanupengine/internal/core"
)

// jsonEvent mirrors core.Event with RFC-3339-nanosecond timestamps and a
// stable field order (Go's encoding/json already sorts map keys, and
// struct fields marshal in declaration order; jsonDocument below declares
// its fields in sorted key order, while jsonEvent's keys follow the order
// declared here and are not alphabetical).
type jsonEvent struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Category  core.EventCategory `json:"category"`
	Action    string            `json:"action"`
	Actor     string            `json:"actor"`
	Target    string            `json:"target"`
	Result    core.EventResult  `json:"result"`
	Severity  core.Severity     `json:"severity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	Hostname  string            `json:"hostname"`
	Username  string            `json:"username"`
}

func toJSONEvent(e core.Event) jsonEvent {
	return jsonEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Category:  e.Category,
		Action:    e.Action,
		Actor:     e.Actor,
		Target:    e.Target,
		Result:    e.Result,
		Severity:  e.Severity,
		Metadata:  e.Metadata,
		SessionID: e.SessionID,
		Hostname:  e.Hostname,
		Username:  e.Username,
	}
}

// jsonDocument is the JSON export's top-level envelope (§4.7).
type jsonDocument struct {
	EventCount int         `json:"eventCount"`
	Events     []jsonEvent `json:"events"`
	ExportDate string      `json:"exportDate"`
	Hostname   string      `json:"hostname"`
}

// WriteJSON renders events as a single JSON document and writes it
// atomically to path.
func WriteJSON(path string, events []core.Event, hostname string, now time.Time) error {
	doc := jsonDocument{
		ExportDate: now.UTC().Format(time.RFC3339Nano),
		Hostname:   hostname,
		EventCount: len(events),
		Events:     make([]jsonEvent, len(events)),
	}
	for i, e := range events {
		doc.Events[i] = toJSONEvent(e)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return core.ErrEncodingFailed
	}
	return writeFileAtomic(path, data)
}

// WriteJSONL renders events as one JSON object per line and writes the
// result atomically to path.
func WriteJSONL(path string, events []core.Event) error {
	var buf []byte
	for _, e := range events {
		line, err := json.Marshal(toJSONEvent(e))
		if err != nil {
			return core.ErrEncodingFailed
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return writeFileAtomic(path, buf)
}

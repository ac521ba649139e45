package audit

import (
	"context"
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"

	"github.com/kcenon/cleanupengine/internal/core"
)

// SessionManager correlates a logical batch of events under one session id
// (§3 Session). It wraps a Store and stamps every emitted event with
// hostname/username captured once when the manager is constructed, matching the invariant that
// these fields are never re-derived at query time.
type SessionManager struct {
	store    *Store
	hostname string
	username string
	now      func() time.Time
}

// NewSessionManager wraps store with session tracking, resolving the local
// hostname and username once at construction.
func NewSessionManager(store *Store) *SessionManager {
	host, _ := os.Hostname()
	name := ""
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return &SessionManager{store: store, hostname: host, username: name, now: time.Now}
}

// StartSession opens a new session and records its opening Event.
func (m *SessionManager) StartSession(ctx context.Context, kind core.TriggerKind) (string, error) {
	sessionID := uuid.NewString()
	evt := core.Event{
		Timestamp: m.now().UTC(),
		Category:  core.EventSystem,
		Action:    "session_start",
		Actor:     string(kind),
		Target:    sessionID,
		Result:    core.ResultSuccess,
		Severity:  core.SeverityInfo,
		SessionID: sessionID,
		Hostname:  m.hostname,
		Username:  m.username,
	}
	if err := m.store.Insert(ctx, evt); err != nil {
		return "", err
	}
	return sessionID, nil
}

// EndSession closes sessionID with the given terminal result.
func (m *SessionManager) EndSession(ctx context.Context, sessionID string, result core.EventResult) error {
	evt := core.Event{
		Timestamp: m.now().UTC(),
		Category:  core.EventSystem,
		Action:    "session_end",
		Actor:     "engine",
		Target:    sessionID,
		Result:    result,
		Severity:  core.SeverityInfo,
		SessionID: sessionID,
		Hostname:  m.hostname,
		Username:  m.username,
	}
	return m.store.Insert(ctx, evt)
}

// Ensure SessionManager implements core.SessionManager.
var _ core.SessionManager = (*SessionManager)(nil)

package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kcenon/cleanupengine/internal/core"
)

func TestSessionStartAndEndRecordsEvents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(Config{Path: dbPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	mgr := NewSessionManager(store)
	ctx := context.Background()

	sessionID, err := mgr.StartSession(ctx, core.TriggerManual)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if sessionID == "" {
		t.Fatal("expected non-empty session id")
	}

	if err := mgr.EndSession(ctx, sessionID, core.ResultSuccess); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	events, err := store.Query(ctx, core.AuditQuery{SessionID: sessionID, OrderAsc: true})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events for session, want 2", len(events))
	}
	if events[0].Action != "session_start" || events[1].Action != "session_end" {
		t.Errorf("unexpected event actions: %q, %q", events[0].Action, events[1].Action)
	}
}

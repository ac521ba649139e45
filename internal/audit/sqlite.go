// Package audit implements the append-only, query-capable audit store
// (C6 in the component table) backed by SQLite.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration

	"github.com/kcenon/cleanupengine/internal/core"
)

// localHostname and localUsername are resolved once and used to stamp any
// event that arrives at Insert without them set — §3's invariant that
// "hostname and username are captured at insertion, not at query" binds the
// store, not just callers that happen to set these fields themselves.
var (
	localHostname string
	localUsername string
)

func init() {
	localHostname, _ = os.Hostname()
	if u, err := user.Current(); err == nil {
		localUsername = u.Username
	}
}

// timeLayout is the sortable textual timestamp format the schema stores
// (§4.6: "sortable textual format with sub-second precision"). The fraction
// is fixed at nine digits so that string order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists audit events to a SQLite database. Inserts are serialized
// through a single writer (mu); readers may proceed concurrently since
// database/sql pools its own read connections.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Config configures the audit Store.
type Config struct {
	Path string // database file path; ":memory:" is valid for tests
}

// Open creates or opens a SQLite-backed audit store at cfg.Path, enabling
// WAL mode and creating the schema if absent.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuditOpenFailed, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", core.ErrAuditOpenFailed, err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set synchronous mode: %v", core.ErrAuditOpenFailed, err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrAuditSchemaFailed, err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

func createSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		target TEXT NOT NULL,
		result TEXT NOT NULL,
		severity TEXT NOT NULL,
		metadata_json TEXT NOT NULL,
		session_id TEXT,
		hostname TEXT NOT NULL,
		username TEXT NOT NULL,
		checksum TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_events_category ON audit_events(category);
	CREATE INDEX IF NOT EXISTS idx_audit_events_session_id ON audit_events(session_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_result ON audit_events(result);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DatabasePath returns the path this store was opened with.
func (s *Store) DatabasePath() string {
	return s.path
}

// DatabaseSize returns the on-disk size of the database via SQLite's page
// accounting pragmas; for ":memory:" databases it returns 0.
func (s *Store) DatabaseSize() (int64, error) {
	if s.path == ":memory:" || s.path == "" {
		return 0, nil
	}
	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, err
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, err
	}
	return pageCount * pageSize, nil
}

// Insert appends one event. If evt.ID is empty, a uuid is assigned. A
// duplicate id is rejected by the primary key constraint and surfaced as
// core.ErrAuditInsertFailed.
func (s *Store) Insert(ctx context.Context, evt core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Hostname == "" {
		evt.Hostname = localHostname
	}
	if evt.Username == "" {
		evt.Username = localUsername
	}

	metadataJSON, err := json.Marshal(evt.Metadata)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", core.ErrAuditInsertFailed, err)
	}

	tsStr := evt.Timestamp.UTC().Format(timeLayout)
	checksum := computeChecksum(evt.ID, tsStr, string(evt.Category), evt.Action, evt.Actor, evt.Target,
		string(evt.Result), string(evt.Severity), string(metadataJSON), evt.SessionID, evt.Hostname, evt.Username)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, timestamp, category, action, actor, target, result, severity, metadata_json, session_id, hostname, username, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, tsStr, string(evt.Category), evt.Action, evt.Actor, evt.Target,
		string(evt.Result), string(evt.Severity), string(metadataJSON), nullable(evt.SessionID), evt.Hostname, evt.Username, checksum)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuditInsertFailed, err)
	}
	return nil
}

// Clear deletes every event. Used by tests and by explicit operator reset.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM audit_events")
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
	}
	return nil
}

// ApplyRetention deletes rows strictly older than now - retentionDays
// (default 365 when retentionDays <= 0) and optionally runs VACUUM.
func (s *Store) ApplyRetention(ctx context.Context, retentionDays int, autoVacuum bool) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	cutoff := time.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour).Format(timeLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
	}

	if autoVacuum && n > 0 {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			return n, fmt.Errorf("%w: vacuum: %v", core.ErrAuditQueryFailed, err)
		}
	}
	return n, nil
}

// VerifyIntegrity recomputes each row's checksum and returns the ids whose
// stored checksum no longer matches — evidence of tampering or corruption.
func (s *Store) VerifyIntegrity(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, category, action, actor, target, result, severity, metadata_json, session_id, hostname, username, checksum
		FROM audit_events ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
	}
	defer rows.Close()

	var tampered []string
	for rows.Next() {
		var id, ts, category, action, actor, target, result, severity, metadataJSON, hostname, username, checksum string
		var sessionID sql.NullString
		if err := rows.Scan(&id, &ts, &category, &action, &actor, &target, &result, &severity, &metadataJSON, &sessionID, &hostname, &username, &checksum); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
		}
		expected := computeChecksum(id, ts, category, action, actor, target, result, severity, metadataJSON, sessionID.String, hostname, username)
		if expected != checksum {
			tampered = append(tampered, id)
		}
	}
	return tampered, rows.Err()
}

func computeChecksum(fields ...string) string {
	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure Store implements core.Auditor.
var _ core.Auditor = (*Store)(nil)

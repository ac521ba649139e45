package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kcenon/cleanupengine/internal/core"
)

// buildWhere renders q into a parameterized SQL WHERE clause (conjunctive,
// §3 AuditQuery) and its bound arguments.
func buildWhere(q core.AuditQuery) (string, []any) {
	var clauses []string
	var args []any

	if !q.Since.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, q.Since.UTC().Format(timeLayout))
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, q.Until.UTC().Format(timeLayout))
	}
	if q.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(q.Category))
	}
	if q.ActionContains != "" {
		clauses = append(clauses, "action LIKE ?")
		args = append(args, "%"+q.ActionContains+"%")
	}
	if q.TargetContains != "" {
		clauses = append(clauses, "target LIKE ?")
		args = append(args, "%"+q.TargetContains+"%")
	}
	if q.Result != "" {
		clauses = append(clauses, "result = ?")
		args = append(args, string(q.Result))
	}
	if q.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, string(q.Severity))
	}
	if q.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.Actor != "" {
		clauses = append(clauses, "actor = ?")
		args = append(args, q.Actor)
	}

	if len(clauses) == 0 {
		return "1=1", args
	}
	return strings.Join(clauses, " AND "), args
}

// Query returns events matching q, ordered by timestamp (ascending when
// q.OrderAsc, descending otherwise), applying Limit/Offset when set.
func (s *Store) Query(ctx context.Context, q core.AuditQuery) ([]core.Event, error) {
	where, args := buildWhere(q)
	order := "DESC"
	if q.OrderAsc {
		order = "ASC"
	}

	sqlStr := fmt.Sprintf(`
		SELECT id, timestamp, category, action, actor, target, result, severity, metadata_json, session_id, hostname, username
		FROM audit_events WHERE %s ORDER BY timestamp %s`, where, order)

	if q.Limit > 0 {
		sqlStr += " LIMIT " + strconv.Itoa(q.Limit)
	} else if q.Offset > 0 {
		sqlStr += " LIMIT -1"
	}
	if q.Offset > 0 {
		sqlStr += " OFFSET " + strconv.Itoa(q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Count returns the number of events matching q without materializing them.
func (s *Store) Count(ctx context.Context, q core.AuditQuery) (int64, error) {
	where, args := buildWhere(q)
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events WHERE "+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrAuditQueryFailed, err)
	}
	return n, nil
}

// Statistics summarizes the query-selected set: total count, per-category
// and per-result counts, summed metadata.freed_bytes, and the min/max
// timestamp (§4.6).
func (s *Store) Statistics(ctx context.Context, q core.AuditQuery) (core.Statistics, error) {
	events, err := s.Query(ctx, core.AuditQuery{
		Since: q.Since, Until: q.Until, Category: q.Category, ActionContains: q.ActionContains,
		TargetContains: q.TargetContains, Result: q.Result, Severity: q.Severity, SessionID: q.SessionID, Actor: q.Actor,
	})
	if err != nil {
		return core.Statistics{}, err
	}

	stats := core.Statistics{
		ByCategory: make(map[core.EventCategory]int64),
		ByResult:   make(map[core.EventResult]int64),
	}

	for _, evt := range events {
		stats.TotalCount++
		stats.ByCategory[evt.Category]++
		stats.ByResult[evt.Result]++

		if raw, ok := evt.Metadata["freed_bytes"]; ok {
			if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
				stats.TotalFreedBytes += n
			}
		}

		if stats.EarliestEvent.IsZero() || evt.Timestamp.Before(stats.EarliestEvent) {
			stats.EarliestEvent = evt.Timestamp
		}
		if evt.Timestamp.After(stats.LatestEvent) {
			stats.LatestEvent = evt.Timestamp
		}
	}

	return stats, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(rows scannable) (core.Event, error) {
	var id, ts, category, action, actor, target, result, severity, metadataJSON, hostname, username string
	var sessionID sql.NullString

	if err := rows.Scan(&id, &ts, &category, &action, &actor, &target, &result, &severity, &metadataJSON, &sessionID, &hostname, &username); err != nil {
		return core.Event{}, err
	}

	timestamp, _ := time.Parse(timeLayout, ts)

	var metadata map[string]string
	if metadataJSON != "" {
		_ = json.Unmarshal([]byte(metadataJSON), &metadata)
	}

	return core.Event{
		ID:        id,
		Timestamp: timestamp,
		Category:  core.EventCategory(category),
		Action:    action,
		Actor:     actor,
		Target:    target,
		Result:    core.EventResult(result),
		Severity:  core.Severity(severity),
		Metadata:  metadata,
		SessionID: sessionID.String,
		Hostname:  hostname,
		Username:  username,
	}, nil
}

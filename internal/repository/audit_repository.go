package repository

import (
	"context"
	"database/sql"
	"time"
)

// AuditEntry mirrors the 'roster_audit' table: one row per pipeline action
// (import, refresh, row save, export, clear) recorded for an event.
//
//	CREATE TABLE roster_audit (
//	  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	  session_id VARCHAR(36) NOT NULL,
//	  event_id VARCHAR(64) NOT NULL,
//	  action VARCHAR(32) NOT NULL,
//	  actor VARCHAR(128) NOT NULL,
//	  row_count INT NOT NULL DEFAULT 0,
//	  unresolved_count INT NOT NULL DEFAULT 0,
//	  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	  KEY idx_roster_audit_session (session_id),
//	  KEY idx_roster_audit_event (event_id)
//	);
type AuditEntry struct {
	ID              uint64
	SessionID       string
	EventID         string
	Action          string
	Actor           string
	RowCount        int
	UnresolvedCount int
	CreatedAt       time.Time
}

type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert records one pipeline action and returns its ID.
func (r *AuditRepo) Insert(ctx context.Context, e AuditEntry) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roster_audit (session_id, event_id, action, actor, row_count, unresolved_count) VALUES (?,?,?,?,?,?)",
		e.SessionID, e.EventID, e.Action, e.Actor, e.RowCount, e.UnresolvedCount)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListBySession returns the audit trail for one session, oldest first.
func (r *AuditRepo) ListBySession(ctx context.Context, sessionID string) ([]AuditEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, session_id, event_id, action, actor, row_count, unresolved_count, created_at FROM roster_audit WHERE session_id=? ORDER BY id ASC",
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventID, &e.Action, &e.Actor, &e.RowCount, &e.UnresolvedCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

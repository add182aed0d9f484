// Package queue defines the roster activity events exchanged over the
// message broker, and the background consumer that turns them into audit
// rows.
package queue

// Actions carried by RosterActivityEvent.
const (
	ActionImport  = "import"
	ActionRefresh = "refresh"
	ActionRowSave = "row_save"
	ActionExport  = "export"
	ActionClear   = "clear"
)

// RosterActivityEvent is published after every pipeline action.  It carries
// enough for downstream consumers to audit or notify without touching the
// session store.
type RosterActivityEvent struct {
	SessionID       string `json:"session_id"`
	EventID         string `json:"event_id"`
	Action          string `json:"action"`
	Actor           string `json:"actor"`
	RowCount        int    `json:"row_count"`
	UnresolvedCount int    `json:"unresolved_count"`
	OccurredAt      string `json:"occurred_at"` // RFC 3339, UTC
}

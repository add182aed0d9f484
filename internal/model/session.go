package model

import "time"

// ScrollFocusSnapshot captures the transient UI state of the grid at the
// instant before a table mutation: scroll offsets of the grid's scroll
// container, the identity of the focused cell, and the caret selection for
// free-text inputs.  It is created right before an edit is applied and
// consumed by the restore pass that follows the next render; it is never
// persisted beyond the session record.
type ScrollFocusSnapshot struct {
	ScrollTop    int    `json:"scrollTop"`
	ScrollLeft   int    `json:"scrollLeft"`
	FocusedCell  string `json:"focusedCell,omitempty"` // "<rowIndex>:<field>", empty when nothing is focused
	SelStart     int    `json:"selStart"`
	SelEnd       int    `json:"selEnd"`
	HasSelection bool   `json:"hasSelection"`
}

// ImportSession is one upload/review session: the working table plus the
// metadata needed to talk to the planner core and to restore the client's
// viewport between edits.  Sessions live in the session store under their ID
// and disappear on Clear All or TTL expiry.
type ImportSession struct {
	ID        string              `json:"id"`
	EventID   string              `json:"eventId"`
	EventName string              `json:"eventName"`
	Table     WorkingTable        `json:"table"`
	Viewport  ScrollFocusSnapshot `json:"viewport"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

package handler

import (
	"strconv"
	"strings"

	"github.com/utsavhq/guestsheet/internal/model"
)

// rowView is one rendered grid row: the guest record plus its 1-based serial
// number, which is positional and never stored on the record itself.
type rowView struct {
	SNo int `json:"sNo"`
	model.GuestRecord
}

// sessionView is the JSON rendering of an import session.
type sessionView struct {
	ID        string                    `json:"id"`
	EventID   string                    `json:"eventId"`
	EventName string                    `json:"eventName"`
	Rows      []rowView                 `json:"rows"`
	Viewport  model.ScrollFocusSnapshot `json:"viewport"`
}

func buildRows(table model.WorkingTable) []rowView {
	rows := make([]rowView, 0, len(table))
	for i, rec := range table {
		rows = append(rows, rowView{SNo: i + 1, GuestRecord: rec})
	}
	return rows
}

func buildSessionView(sess model.ImportSession) sessionView {
	return sessionView{
		ID:        sess.ID,
		EventID:   sess.EventID,
		EventName: sess.EventName,
		Rows:      buildRows(sess.Table),
		Viewport:  sess.Viewport,
	}
}

// sessionViewport adapts the client-reported UI state to the grid's Viewport
// interface.  The frontend reports its scroll offsets and focused cell with
// each edit; after the re-render the grid hands the snapshot back through
// Apply, and the restored state is echoed to the client so it can reposition
// the real viewport.  Apply reports failure when the focused cell no longer
// exists in the rendered table.
type sessionViewport struct {
	current model.ScrollFocusSnapshot
	rows    int
}

func (v *sessionViewport) Snapshot() model.ScrollFocusSnapshot { return v.current }

func (v *sessionViewport) Apply(s model.ScrollFocusSnapshot) bool {
	v.current = s
	if s.FocusedCell == "" {
		return true
	}
	row, field, ok := parseCellRef(s.FocusedCell)
	if !ok || row < 0 || row >= v.rows {
		return false
	}
	return validField(field)
}

// parseCellRef splits a "<rowIndex>:<field>" cell reference.
func parseCellRef(ref string) (row int, field string, ok bool) {
	i := strings.IndexByte(ref, ':')
	if i <= 0 || i == len(ref)-1 {
		return 0, "", false
	}
	row, err := strconv.Atoi(ref[:i])
	if err != nil {
		return 0, "", false
	}
	return row, ref[i+1:], true
}

func validField(field string) bool {
	for _, f := range model.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// digitCount counts ASCII digits in a phone number; separators and spaces do
// not count toward the minimum length checked at point of use.
func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// Package reconcile matches the local working table against the
// authoritative participant list fetched from the planner core and decides,
// row by row, whether a record already exists on the server.  The server is
// the source of truth once an identifier exists; until then matching falls
// back to a best-effort composite identity of exact name plus phone number.
package reconcile

import (
	"errors"

	"github.com/utsavhq/guestsheet/internal/model"
)

// ErrIdentityUnresolved is returned by RequireID for rows whose server
// identity could not be established.  Callers surface it as "cannot resolve
// identity, please refresh" instead of guessing.
var ErrIdentityUnresolved = errors.New("reconcile: row has no resolved server identity")

// Result is the outcome of one merge pass.
type Result struct {
	Table      model.WorkingTable // the new working table
	Adopted    int                // local rows that adopted a server ID this pass
	Unresolved []int              // indices into Table still lacking an ID
}

// identityKey is the fallback composite identity for rows without an ID.
// Name and phone are matched exactly; this is a heuristic, not a unique key,
// so anything other than exactly one candidate leaves the row unresolved.
type identityKey struct {
	name  string
	phone string
}

// Merge produces a new working table from the previous one and a freshly
// fetched authoritative list.
//
// Rules, in order:
//   - a local row whose ID appears in the authoritative list is replaced by
//     the authoritative copy (server state wins once it exists);
//   - a local row without an ID that matches exactly one authoritative record
//     on (name, phoneNumber) adopts that record's ID but keeps every locally
//     edited field (identity adoption, not overwrite);
//   - a local row matching zero or several authoritative records keeps an
//     empty ID and is reported in Unresolved;
//   - authoritative records no local row claimed are appended in server order
//     so the table reflects the full roster.
func Merge(local model.WorkingTable, authoritative []model.GuestRecord) Result {
	byID := make(map[string]int, len(authoritative))
	byKey := make(map[identityKey][]int, len(authoritative))
	for i, a := range authoritative {
		if a.ID != "" {
			byID[a.ID] = i
		}
		k := identityKey{name: a.Name, phone: a.PhoneNumber}
		byKey[k] = append(byKey[k], i)
	}

	claimed := make([]bool, len(authoritative))
	res := Result{Table: make(model.WorkingTable, 0, len(local)+len(authoritative))}

	for _, row := range local {
		switch {
		case row.ID != "":
			if i, ok := byID[row.ID]; ok {
				claimed[i] = true
				res.Table = append(res.Table, authoritative[i])
			} else {
				// Server no longer knows this ID; keep the local copy visible
				// rather than dropping the row.
				res.Table = append(res.Table, row)
			}
		default:
			k := identityKey{name: row.Name, phone: row.PhoneNumber}
			if cands := byKey[k]; len(cands) == 1 && !claimed[cands[0]] {
				claimed[cands[0]] = true
				row.ID = authoritative[cands[0]].ID
				res.Adopted++
			}
			res.Table = append(res.Table, row)
			if row.ID == "" {
				res.Unresolved = append(res.Unresolved, len(res.Table)-1)
			}
		}
	}

	for i, a := range authoritative {
		if !claimed[i] {
			res.Table = append(res.Table, a)
			if a.ID == "" {
				res.Unresolved = append(res.Unresolved, len(res.Table)-1)
			}
		}
	}
	return res
}

// RequireID guards actions that need a server identity (per-row update,
// document upload).  It fails with ErrIdentityUnresolved for unsaved rows.
func RequireID(row model.GuestRecord) error {
	if row.ID == "" {
		return ErrIdentityUnresolved
	}
	return nil
}

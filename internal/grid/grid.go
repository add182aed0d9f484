// Package grid holds the editable working table for one import/review
// session.  It is a pure state container: no field validation happens here.
//
// Its one non-obvious job is keeping the user's viewport stable while they
// type.  Every edit re-renders the whole table, which in any rendering
// environment can reset scroll offsets and steal input focus.  The manager
// therefore runs an explicit protocol around each mutation: capture a
// ScrollFocusSnapshot from the viewport, apply the edit, render, then restore
// the snapshot strictly after the render.  Restoration is attempted on two
// schedules — an immediate deferred callback and a follow-up frame-aligned
// callback — because hosts differ in when they finish committing the render.
// Both attempts consume the same snapshot; the second is a no-op when the
// first succeeded, and re-applying the same offsets and caret is harmless.
package grid

import (
	"errors"
	"fmt"

	"github.com/utsavhq/guestsheet/internal/model"
)

// Viewport is the rendering-technology-neutral face of the user's screen.
// Snapshot is taken immediately before a mutation; Apply re-establishes the
// captured state after the next render and reports whether it took effect
// (a focused element that no longer exists makes Apply return false).
type Viewport interface {
	Snapshot() model.ScrollFocusSnapshot
	Apply(model.ScrollFocusSnapshot) bool
}

// Renderer is invoked with the new table after every mutation.  The host
// decides what rendering means: building a JSON view, patching a DOM, or
// nothing at all in tests.
type Renderer interface {
	Render(model.WorkingTable)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(model.WorkingTable)

func (f RendererFunc) Render(t model.WorkingTable) { f(t) }

// Scheduler orders the two restore attempts relative to the host's render
// commit.  Defer runs a callback as soon as the current pass unwinds;
// NextFrame runs one aligned with the host's next paint.  Implementations
// must run callbacks after Render has returned, never before.
type Scheduler interface {
	Defer(func())
	NextFrame(func())
}

// ImmediateScheduler runs both callbacks synchronously, in order.  It fits
// hosts whose render is synchronous too — such as an HTTP handler that has
// already built its response view by the time UpdateField returns.
type ImmediateScheduler struct{}

func (ImmediateScheduler) Defer(fn func())     { fn() }
func (ImmediateScheduler) NextFrame(fn func()) { fn() }

var (
	// ErrRowOutOfRange reports an edit addressed to a row the table does not have.
	ErrRowOutOfRange = errors.New("grid: row index out of range")
	// ErrUnknownField reports an edit addressed to a field outside the canonical schema.
	ErrUnknownField = errors.New("grid: unknown field")
)

// Manager owns the working table for the lifetime of one session.  All
// mutation goes through UpdateField and Clear; the table is never shared
// mutably with callers (Table returns a copy).
type Manager struct {
	table    model.WorkingTable
	viewport Viewport
	renderer Renderer
	sched    Scheduler
}

// NewManager wraps an existing table.  viewport, renderer and sched may not
// be nil; the table may be (an empty session).
func NewManager(table model.WorkingTable, viewport Viewport, renderer Renderer, sched Scheduler) *Manager {
	if viewport == nil || renderer == nil || sched == nil {
		panic("grid: nil dependency passed to NewManager")
	}
	return &Manager{table: table.Clone(), viewport: viewport, renderer: renderer, sched: sched}
}

// Table returns a copy of the current working table.
func (m *Manager) Table() model.WorkingTable { return m.table.Clone() }

// Len returns the number of rows.
func (m *Manager) Len() int { return len(m.table) }

// UpdateField writes value into one cell and runs the snapshot/restore
// protocol around the re-render.  Only the addressed row and field change;
// every other cell is untouched.
func (m *Manager) UpdateField(rowIndex int, field, value string) error {
	if rowIndex < 0 || rowIndex >= len(m.table) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, rowIndex)
	}
	snap := m.viewport.Snapshot()

	row := m.table[rowIndex]
	if !model.SetField(&row, field, value) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	m.table[rowIndex] = row

	m.renderer.Render(m.table)
	m.scheduleRestore(snap)
	return nil
}

// Clear discards the whole table (Clear All, or reset after an error) and
// renders the empty state.  No snapshot is restored: there is nothing left
// to focus.
func (m *Manager) Clear() {
	m.table = nil
	m.renderer.Render(m.table)
}

// scheduleRestore queues both restore attempts for one snapshot.  The frame-
// aligned attempt is skipped once the deferred one reports success, and a
// second Apply of the same snapshot is idempotent by contract, so running
// both never moves the viewport twice.
func (m *Manager) scheduleRestore(snap model.ScrollFocusSnapshot) {
	restored := false
	attempt := func() {
		if restored {
			return
		}
		restored = m.viewport.Apply(snap)
	}
	m.sched.Defer(attempt)
	m.sched.NextFrame(attempt)
}

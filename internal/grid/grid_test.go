package grid

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/utsavhq/guestsheet/internal/model"
)

// fakeViewport records Apply calls and can be told to reject the first N.
type fakeViewport struct {
	snap       model.ScrollFocusSnapshot
	applied    []model.ScrollFocusSnapshot
	failFirstN int
}

func (v *fakeViewport) Snapshot() model.ScrollFocusSnapshot { return v.snap }

func (v *fakeViewport) Apply(s model.ScrollFocusSnapshot) bool {
	v.applied = append(v.applied, s)
	if v.failFirstN > 0 {
		v.failFirstN--
		return false
	}
	return true
}

// queueScheduler records callbacks instead of running them so tests control
// when each restore attempt fires.
type queueScheduler struct {
	deferred []func()
	frames   []func()
}

func (s *queueScheduler) Defer(fn func())     { s.deferred = append(s.deferred, fn) }
func (s *queueScheduler) NextFrame(fn func()) { s.frames = append(s.frames, fn) }

func (s *queueScheduler) runAll() {
	for _, fn := range s.deferred {
		fn()
	}
	for _, fn := range s.frames {
		fn()
	}
	s.deferred, s.frames = nil, nil
}

// eventLog tags renders and restores so ordering can be asserted.
type eventLog struct{ events []string }

func (l *eventLog) add(e string) { l.events = append(l.events, e) }

func bigTable(n int) model.WorkingTable {
	table := make(model.WorkingTable, n)
	for i := range table {
		table[i] = model.GuestRecord{
			ID:          fmt.Sprintf("p%03d", i),
			Name:        fmt.Sprintf("Guest %03d", i),
			PhoneNumber: fmt.Sprintf("55500%05d", i),
			City:        "Jaipur",
		}
	}
	return table
}

func TestUpdateFieldTouchesOnlyAddressedCell(t *testing.T) {
	before := bigTable(100)
	vp := &fakeViewport{}
	m := NewManager(before, vp, RendererFunc(func(model.WorkingTable) {}), ImmediateScheduler{})

	if err := m.UpdateField(42, model.FieldHotelName, "Taj Palace"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	after := m.Table()
	for i := range before {
		if i == 42 {
			want := before[i]
			want.HotelName = "Taj Palace"
			if after[i] != want {
				t.Errorf("row 42 = %+v, want %+v", after[i], want)
			}
			continue
		}
		if after[i] != before[i] {
			t.Errorf("row %d changed: %+v != %+v", i, after[i], before[i])
		}
	}
}

func TestUpdateFieldErrors(t *testing.T) {
	m := NewManager(bigTable(3), &fakeViewport{}, RendererFunc(func(model.WorkingTable) {}), ImmediateScheduler{})

	if err := m.UpdateField(3, model.FieldName, "x"); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("err = %v, want ErrRowOutOfRange", err)
	}
	if err := m.UpdateField(-1, model.FieldName, "x"); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("err = %v, want ErrRowOutOfRange", err)
	}
	if err := m.UpdateField(0, "favouriteColour", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
	// A failed edit must not leave partial state behind.
	if got := m.Table(); !reflect.DeepEqual(got, bigTable(3)) {
		t.Errorf("table mutated by failed edits")
	}
}

func TestRestoreRunsAfterRender(t *testing.T) {
	log := &eventLog{}
	vp := &fakeViewport{snap: model.ScrollFocusSnapshot{ScrollTop: 120, FocusedCell: "1:name"}}
	sched := &queueScheduler{}
	m := NewManager(bigTable(5), vp, RendererFunc(func(model.WorkingTable) { log.add("render") }), sched)

	if err := m.UpdateField(1, model.FieldName, "Edited"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	// Nothing restored yet: both attempts are still queued.
	if len(vp.applied) != 0 {
		t.Fatalf("Apply ran before the scheduler fired")
	}
	if !reflect.DeepEqual(log.events, []string{"render"}) {
		t.Fatalf("events = %v, want render first", log.events)
	}

	sched.runAll()
	if len(vp.applied) != 1 {
		t.Fatalf("Apply calls = %d, want 1 (second attempt is a no-op after success)", len(vp.applied))
	}
	if vp.applied[0] != vp.snap {
		t.Errorf("restored %+v, want the pre-edit snapshot %+v", vp.applied[0], vp.snap)
	}
}

func TestSecondAttemptRetriesWhenFirstFails(t *testing.T) {
	vp := &fakeViewport{snap: model.ScrollFocusSnapshot{ScrollTop: 40}, failFirstN: 1}
	sched := &queueScheduler{}
	m := NewManager(bigTable(2), vp, RendererFunc(func(model.WorkingTable) {}), sched)

	if err := m.UpdateField(0, model.FieldCity, "Udaipur"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	sched.runAll()

	if len(vp.applied) != 2 {
		t.Fatalf("Apply calls = %d, want 2 (deferred attempt failed, frame attempt retried)", len(vp.applied))
	}
	if vp.applied[0] != vp.applied[1] {
		t.Errorf("both attempts must consume the same snapshot: %+v vs %+v", vp.applied[0], vp.applied[1])
	}
}

func TestEachEditGetsItsOwnSnapshot(t *testing.T) {
	vp := &fakeViewport{}
	sched := &queueScheduler{}
	m := NewManager(bigTable(3), vp, RendererFunc(func(model.WorkingTable) {}), sched)

	vp.snap = model.ScrollFocusSnapshot{ScrollTop: 10}
	if err := m.UpdateField(0, model.FieldName, "A"); err != nil {
		t.Fatal(err)
	}
	sched.runAll()

	vp.snap = model.ScrollFocusSnapshot{ScrollTop: 300}
	if err := m.UpdateField(2, model.FieldName, "B"); err != nil {
		t.Fatal(err)
	}
	sched.runAll()

	if len(vp.applied) != 2 {
		t.Fatalf("Apply calls = %d, want 2", len(vp.applied))
	}
	if vp.applied[0].ScrollTop != 10 || vp.applied[1].ScrollTop != 300 {
		t.Errorf("snapshots = %+v, each edit must restore its own capture", vp.applied)
	}
}

func TestClearRendersEmptyWithoutRestore(t *testing.T) {
	vp := &fakeViewport{snap: model.ScrollFocusSnapshot{ScrollTop: 999}}
	sched := &queueScheduler{}
	var rendered model.WorkingTable = bigTable(1)
	m := NewManager(bigTable(4), vp, RendererFunc(func(t model.WorkingTable) { rendered = t }), sched)

	m.Clear()
	if m.Len() != 0 || len(rendered) != 0 {
		t.Errorf("table not cleared: len=%d rendered=%d", m.Len(), len(rendered))
	}
	sched.runAll()
	if len(vp.applied) != 0 {
		t.Errorf("Clear must not schedule a restore, got %d Apply calls", len(vp.applied))
	}
}

func TestManagerCopiesTableOnBothEnds(t *testing.T) {
	src := bigTable(2)
	m := NewManager(src, &fakeViewport{}, RendererFunc(func(model.WorkingTable) {}), ImmediateScheduler{})

	src[0].Name = "mutated outside"
	if m.Table()[0].Name == "mutated outside" {
		t.Error("manager shares backing array with its input")
	}

	out := m.Table()
	out[1].Name = "mutated output"
	if m.Table()[1].Name == "mutated output" {
		t.Error("Table() exposes internal state")
	}
}

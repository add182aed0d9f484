package normalize

import (
	"fmt"
	"testing"

	"github.com/utsavhq/guestsheet/internal/model"
)

func TestRowMapsSynonymHeaders(t *testing.T) {
	raw := RawRow{
		"Full Name":  "Alice",
		"Mobile No.": "5550001111",
	}
	rec := Row(raw, 1)

	if rec.Name != "Alice" {
		t.Errorf("name = %q, want Alice", rec.Name)
	}
	if rec.PhoneNumber != "5550001111" {
		t.Errorf("phoneNumber = %q, want 5550001111", rec.PhoneNumber)
	}
	// Unmatched fields come back as empty strings, never as failures.
	if rec.Category != "" || rec.City != "" || rec.HotelName != "" {
		t.Errorf("expected empty fields, got category=%q city=%q hotel=%q", rec.Category, rec.City, rec.HotelName)
	}
	// Boolean-like fields default to No.
	if rec.CheckIn != "No" || rec.CheckOut != "No" || rec.Attending != "No" {
		t.Errorf("expected No defaults, got %q/%q/%q", rec.CheckIn, rec.CheckOut, rec.Attending)
	}
}

func TestRowPrefersFirstSynonym(t *testing.T) {
	// "Name" outranks "Full Name" in priority order.
	rec := Row(RawRow{"Full Name": "Alias", "Name": "Primary"}, 1)
	if rec.Name != "Primary" {
		t.Errorf("name = %q, want Primary", rec.Name)
	}
}

func TestRowCaseInsensitiveFallback(t *testing.T) {
	rec := Row(RawRow{"NAME": "Bob", "phone number": "5550002222"}, 1)
	if rec.Name != "Bob" {
		t.Errorf("name = %q, want Bob", rec.Name)
	}
	if rec.PhoneNumber != "5550002222" {
		t.Errorf("phoneNumber = %q, want 5550002222", rec.PhoneNumber)
	}
}

func TestRowSynthesizesMissingName(t *testing.T) {
	rec := Row(RawRow{"City": "Jaipur"}, 7)
	if rec.Name != "Guest 7" {
		t.Errorf("name = %q, want Guest 7", rec.Name)
	}
}

func TestRowsIsTotalAndOrderPreserving(t *testing.T) {
	var raw []RawRow
	for i := 0; i < 25; i++ {
		raw = append(raw, RawRow{
			"Name":           fmt.Sprintf("G%02d", i),
			"Unknown Header": "ignored",
			"":               "also ignored",
		})
	}
	table := Rows(raw)
	if len(table) != len(raw) {
		t.Fatalf("len = %d, want %d", len(table), len(raw))
	}
	for i, rec := range table {
		if want := fmt.Sprintf("G%02d", i); rec.Name != want {
			t.Errorf("row %d: name = %q, want %q", i, rec.Name, want)
		}
	}
}

func TestYesNo(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"yes", "Yes"},
		{"Yes", "Yes"},
		{"YES", "Yes"},
		{" yes ", "Yes"},
		{"", "No"},
		{"no", "No"},
		{"maybe", "No"},
		{"y", "No"},
	}
	for _, tc := range cases {
		if got := YesNo(tc.in); got != tc.want {
			t.Errorf("YesNo(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-06-15", "2024-06-15"},
		{"15/06/2024", "2024-06-15"},
		{"Jun 15, 2024", "2024-06-15"},
		{"45458", "2024-06-15"}, // Excel serial for 2024-06-15
		{"", ""},
		{"soonish", "soonish"}, // unparseable input is kept, not rejected
	}
	for _, tc := range cases {
		if got := Date(tc.in); got != tc.want {
			t.Errorf("Date(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScenarioFullNameMobileNo(t *testing.T) {
	table := Rows([]RawRow{{"Full Name": "Alice", "Mobile No.": "5550001111"}})
	if len(table) != 1 {
		t.Fatalf("len = %d, want 1", len(table))
	}
	want := model.GuestRecord{
		Name:        "Alice",
		PhoneNumber: "5550001111",
		CheckIn:     "No",
		CheckOut:    "No",
		Attending:   "No",
	}
	if table[0] != want {
		t.Errorf("got %+v, want %+v", table[0], want)
	}
}

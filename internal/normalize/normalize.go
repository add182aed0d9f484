// Package normalize maps raw, header-labeled spreadsheet rows into the
// canonical GuestRecord shape.  Header matching works off per-field synonym
// lists so that sheets exported by different tools (or typed by hand) all
// land in the same schema.  Normalization is total: a row never fails, an
// unrecognized header simply contributes nothing, and a row without any
// recognizable name is kept with a synthesized one.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/utsavhq/guestsheet/internal/model"
)

// fieldSynonyms lists, per canonical field, the accepted header spellings in
// priority order.  The first entry is also the label the exporter writes, so
// an exported sheet re-imports onto the same fields.
var fieldSynonyms = []struct {
	field   string
	headers []string
}{
	{model.FieldName, []string{"Name", "Full Name", "Guest Name"}},
	{model.FieldCategory, []string{"Category", "Guest Category", "Type"}},
	{model.FieldPhoneNumber, []string{"Mobile No.", "Phone Number", "Phone", "Mobile", "Contact No."}},
	{model.FieldCity, []string{"City", "Town"}},
	{model.FieldArrivalDate, []string{"Date Of Arrival", "Date of Arrival", "Arrival Date", "Date"}},
	{model.FieldModeOfArrival, []string{"Mode of Arrival", "Mode Of Arrival", "Mode"}},
	{model.FieldTrainFlightNumber, []string{"Train/Flight Number", "Train / Flight No.", "Flight Number", "Train Number"}},
	{model.FieldTime, []string{"Time", "Arrival Time"}},
	{model.FieldHotelName, []string{"Hotel Name", "Hotel"}},
	{model.FieldRoomType, []string{"Room Type", "Room"}},
	{model.FieldCheckIn, []string{"Check-in", "Check In", "Checkin"}},
	{model.FieldCheckOut, []string{"Check-out", "Check Out", "Checkout"}},
	{model.FieldAttending, []string{"Attending", "Attending?", "RSVP"}},
	{model.FieldRemarks, []string{"Remarks", "Notes", "Comments"}},
	{model.FieldRemarksRound2, []string{"Remarks (round 2)", "Remarks Round 2", "Remarks 2"}},
}

// yesNoFields are coerced to exactly "Yes" or "No" regardless of input.
var yesNoFields = map[string]bool{
	model.FieldCheckIn:   true,
	model.FieldCheckOut:  true,
	model.FieldAttending: true,
}

// RawRow is one parsed spreadsheet row: header string -> cell value.
type RawRow map[string]string

// Row normalizes a single raw row.  pos is the 1-based row position within
// the import and is used to synthesize a name ("Guest 7") when no name column
// matched; rows are never dropped for missing data.
func Row(raw RawRow, pos int) model.GuestRecord {
	var rec model.GuestRecord
	for _, fs := range fieldSynonyms {
		val := lookup(raw, fs.headers)
		if fs.field == model.FieldArrivalDate {
			val = Date(val)
		}
		if yesNoFields[fs.field] {
			val = YesNo(val)
		}
		model.SetField(&rec, fs.field, val)
	}
	if strings.TrimSpace(rec.Name) == "" {
		rec.Name = fmt.Sprintf("Guest %d", pos)
	}
	return rec
}

// Rows normalizes every raw row in input order.  The result is one-to-one and
// order-preserving with the input.
func Rows(raw []RawRow) model.WorkingTable {
	table := make(model.WorkingTable, 0, len(raw))
	for i, r := range raw {
		table = append(table, Row(r, i+1))
	}
	return table
}

// lookup resolves a cell by synonym priority: an exact header match wins over
// a case-insensitive one, and earlier synonyms win over later ones.
func lookup(raw RawRow, headers []string) string {
	for _, h := range headers {
		if v, ok := raw[h]; ok {
			return strings.TrimSpace(v)
		}
	}
	for _, h := range headers {
		for k, v := range raw {
			if strings.EqualFold(strings.TrimSpace(k), h) {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// YesNo coerces a cell to the two-value domain used by checkIn, checkOut and
// attending.  Any case-insensitive "yes" becomes "Yes"; everything else,
// including empty input, becomes "No".
func YesNo(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "yes") {
		return "Yes"
	}
	return "No"
}

// dateLayouts are tried in order when a cell is not an Excel serial number.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2/1/2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02 15:04:05",
}

// Date normalizes a date-like cell to an ISO calendar date (YYYY-MM-DD).
// Excel stores dates as day serial numbers, so numeric cells in the plausible
// serial range are converted through the Excel epoch.  Unparseable input is
// returned trimmed rather than rejected; the grid keeps it editable.
func Date(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if serial >= 20000 && serial <= 80000 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return trimmed
}

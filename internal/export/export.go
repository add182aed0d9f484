// Package export serializes the current working table back into a
// spreadsheet.  The column order and header labels are the canonical schema's
// display form, fixed regardless of what the original import looked like, and
// every header is among the normalizer's accepted synonyms so an exported
// sheet re-imports losslessly.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/utsavhq/guestsheet/internal/model"
)

// Headers is the fixed export column order.  S.No is synthesized from row
// position and is not a GuestRecord field.
var Headers = []string{
	"S.No", "Name", "Category", "Mobile No.", "City", "Date Of Arrival",
	"Mode of Arrival", "Train/Flight Number", "Time", "Hotel Name",
	"Room Type", "Check-in", "Check-out", "Attending", "Remarks",
	"Remarks (round 2)",
}

// Write renders the table as an xlsx workbook on w.  It is a pure read of
// the table: no mutation, no network.
func Write(w io.Writer, table model.WorkingTable) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i, rec := range table {
		row := []interface{}{
			i + 1, // S.No, 1-based
			rec.Name, rec.Category, rec.PhoneNumber, rec.City,
			rec.ArrivalDate, rec.ModeOfArrival, rec.TrainFlightNumber,
			rec.Time, rec.HotelName, rec.RoomType, rec.CheckIn,
			rec.CheckOut, rec.Attending, rec.Remarks, rec.RemarksRound2,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// Filename derives the download name from the event's display name and the
// current date.  Runs of non-alphanumeric characters collapse to a single
// underscore, so repeated exports on the same day overwrite each other
// predictably instead of piling up near-duplicates.
func Filename(eventName string, now time.Time) string {
	var b []rune
	pendingSep := false
	for _, r := range eventName {
		alnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if alnum {
			if pendingSep && len(b) > 0 {
				b = append(b, '_')
			}
			pendingSep = false
			b = append(b, r)
		} else {
			pendingSep = true
		}
	}
	name := string(b)
	if name == "" {
		name = "Event"
	}
	return fmt.Sprintf("%s_Guests_%s.xlsx", name, now.Format("2006-01-02"))
}

package model

// GuestRecord is the canonical shape every imported spreadsheet row is
// normalized into and the shape the planner core API returns.  All fields
// are plain strings; empty string means "not provided".  The json tags match
// the planner core participant schema.
//
// Fields:
//  ID                – server-assigned identifier; empty while the row is unsaved.
//  Name              – guest display name.
//  Category          – guest grouping (family, friends, vendor, ...).
//  PhoneNumber       – contact number as entered; validated only at point of use.
//  City              – city of origin.
//  ArrivalDate       – ISO calendar date (YYYY-MM-DD), no timezone.
//  ModeOfArrival     – train/flight/car and similar free text.
//  TrainFlightNumber – carrier identifier when travelling by train or flight.
//  Time              – free-text clock time of arrival.
//  HotelName         – assigned hotel.
//  RoomType          – assigned room category.
//  CheckIn           – always "Yes" or "No".
//  CheckOut          – always "Yes" or "No".
//  Attending         – always "Yes" or "No".
//  Remarks           – free-text notes.
//  RemarksRound2     – second round of notes.
type GuestRecord struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	PhoneNumber       string `json:"phoneNumber"`
	City              string `json:"city"`
	ArrivalDate       string `json:"arrivalDate"`
	ModeOfArrival     string `json:"modeOfArrival"`
	TrainFlightNumber string `json:"trainFlightNumber"`
	Time              string `json:"time"`
	HotelName         string `json:"hotelName"`
	RoomType          string `json:"roomType"`
	CheckIn           string `json:"checkIn"`
	CheckOut          string `json:"checkOut"`
	Attending         string `json:"attending"`
	Remarks           string `json:"remarks"`
	RemarksRound2     string `json:"remarksRound2"`
}

// Saved reports whether the planner core has assigned an identifier to this
// record.  The client never invents an ID; a record without one is unsaved.
func (g GuestRecord) Saved() bool { return g.ID != "" }

// WorkingTable is the ordered in-memory guest list for one import/review
// session.  Position in the slice is the row number shown to the user.
type WorkingTable []GuestRecord

// Clone returns a deep copy of the table.  GuestRecord holds only value
// fields, so copying the slice is enough.
func (t WorkingTable) Clone() WorkingTable {
	if t == nil {
		return nil
	}
	out := make(WorkingTable, len(t))
	copy(out, t)
	return out
}

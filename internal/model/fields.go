package model

// Canonical field names used to address GuestRecord fields by string.  These
// are the names the grid edit API and the normalizer both speak.
const (
	FieldName              = "name"
	FieldCategory          = "category"
	FieldPhoneNumber       = "phoneNumber"
	FieldCity              = "city"
	FieldArrivalDate       = "arrivalDate"
	FieldModeOfArrival     = "modeOfArrival"
	FieldTrainFlightNumber = "trainFlightNumber"
	FieldTime              = "time"
	FieldHotelName         = "hotelName"
	FieldRoomType          = "roomType"
	FieldCheckIn           = "checkIn"
	FieldCheckOut          = "checkOut"
	FieldAttending         = "attending"
	FieldRemarks           = "remarks"
	FieldRemarksRound2     = "remarksRound2"
)

// Fields lists every editable field in canonical order.  The record ID is
// deliberately absent: it is assigned by the planner core and never edited.
var Fields = []string{
	FieldName, FieldCategory, FieldPhoneNumber, FieldCity, FieldArrivalDate,
	FieldModeOfArrival, FieldTrainFlightNumber, FieldTime, FieldHotelName,
	FieldRoomType, FieldCheckIn, FieldCheckOut, FieldAttending,
	FieldRemarks, FieldRemarksRound2,
}

// SetField writes value into the named field of g.  It returns false when the
// field name is not part of the canonical schema, leaving g untouched.
func SetField(g *GuestRecord, field, value string) bool {
	switch field {
	case FieldName:
		g.Name = value
	case FieldCategory:
		g.Category = value
	case FieldPhoneNumber:
		g.PhoneNumber = value
	case FieldCity:
		g.City = value
	case FieldArrivalDate:
		g.ArrivalDate = value
	case FieldModeOfArrival:
		g.ModeOfArrival = value
	case FieldTrainFlightNumber:
		g.TrainFlightNumber = value
	case FieldTime:
		g.Time = value
	case FieldHotelName:
		g.HotelName = value
	case FieldRoomType:
		g.RoomType = value
	case FieldCheckIn:
		g.CheckIn = value
	case FieldCheckOut:
		g.CheckOut = value
	case FieldAttending:
		g.Attending = value
	case FieldRemarks:
		g.Remarks = value
	case FieldRemarksRound2:
		g.RemarksRound2 = value
	default:
		return false
	}
	return true
}

// FieldValue reads the named field from g.  Unknown names yield ("", false).
func FieldValue(g GuestRecord, field string) (string, bool) {
	switch field {
	case FieldName:
		return g.Name, true
	case FieldCategory:
		return g.Category, true
	case FieldPhoneNumber:
		return g.PhoneNumber, true
	case FieldCity:
		return g.City, true
	case FieldArrivalDate:
		return g.ArrivalDate, true
	case FieldModeOfArrival:
		return g.ModeOfArrival, true
	case FieldTrainFlightNumber:
		return g.TrainFlightNumber, true
	case FieldTime:
		return g.Time, true
	case FieldHotelName:
		return g.HotelName, true
	case FieldRoomType:
		return g.RoomType, true
	case FieldCheckIn:
		return g.CheckIn, true
	case FieldCheckOut:
		return g.CheckOut, true
	case FieldAttending:
		return g.Attending, true
	case FieldRemarks:
		return g.Remarks, true
	case FieldRemarksRound2:
		return g.RemarksRound2, true
	}
	return "", false
}

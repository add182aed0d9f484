// Package client talks to the planner core REST API, the authoritative store
// for event participants.  The session API passes the caller's bearer token
// straight through, so this client holds no credentials of its own.  Calls
// are never retried automatically: a failed action is reported to the caller
// exactly once and the user decides what to do next.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/utsavhq/guestsheet/internal/model"
	"github.com/utsavhq/guestsheet/internal/normalize"
)

// APIError is a non-2xx answer from the planner core.  Transport failures
// stay ordinary wrapped errors; handlers use the distinction to pick between
// 502 and forwarding the backend's own status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("planner core: status %d: %s", e.Status, e.Body)
}

// Planner is the HTTP client for the planner core.
type Planner struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New builds a Planner against baseURL (no trailing slash needed).
func New(baseURL string, log zerolog.Logger) *Planner {
	return &Planner{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "planner-client").Logger(),
	}
}

// participant is the wire shape of one guest.  The arrival moment crosses
// the boundary as a single UTC timestamp; the split date and time fields are
// a client-side presentation concern.
type participant struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Category          string `json:"category,omitempty"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	City              string `json:"city,omitempty"`
	ArrivalAt         string `json:"arrivalAt,omitempty"` // RFC 3339, UTC
	ModeOfArrival     string `json:"modeOfArrival,omitempty"`
	TrainFlightNumber string `json:"trainFlightNumber,omitempty"`
	HotelName         string `json:"hotelName,omitempty"`
	RoomType          string `json:"roomType,omitempty"`
	CheckIn           string `json:"checkIn,omitempty"`
	CheckOut          string `json:"checkOut,omitempty"`
	Attending         string `json:"attending,omitempty"`
	Remarks           string `json:"remarks,omitempty"`
	RemarksRound2     string `json:"remarksRound2,omitempty"`
}

func toWire(rec model.GuestRecord) participant {
	p := participant{
		ID:                rec.ID,
		Name:              rec.Name,
		Category:          rec.Category,
		PhoneNumber:       rec.PhoneNumber,
		City:              rec.City,
		ModeOfArrival:     rec.ModeOfArrival,
		TrainFlightNumber: rec.TrainFlightNumber,
		HotelName:         rec.HotelName,
		RoomType:          rec.RoomType,
		CheckIn:           rec.CheckIn,
		CheckOut:          rec.CheckOut,
		Attending:         rec.Attending,
		Remarks:           rec.Remarks,
		RemarksRound2:     rec.RemarksRound2,
	}
	if ts, ok := normalize.CombineArrival(rec.ArrivalDate, rec.Time); ok {
		p.ArrivalAt = ts.Format(time.RFC3339)
	}
	return p
}

func fromWire(p participant) model.GuestRecord {
	rec := model.GuestRecord{
		ID:                p.ID,
		Name:              p.Name,
		Category:          p.Category,
		PhoneNumber:       p.PhoneNumber,
		City:              p.City,
		ModeOfArrival:     p.ModeOfArrival,
		TrainFlightNumber: p.TrainFlightNumber,
		HotelName:         p.HotelName,
		RoomType:          p.RoomType,
		CheckIn:           normalize.YesNo(p.CheckIn),
		CheckOut:          normalize.YesNo(p.CheckOut),
		Attending:         normalize.YesNo(p.Attending),
		Remarks:           p.Remarks,
		RemarksRound2:     p.RemarksRound2,
	}
	if p.ArrivalAt != "" {
		if ts, err := time.Parse(time.RFC3339, p.ArrivalAt); err == nil {
			rec.ArrivalDate, rec.Time = normalize.SplitArrival(ts)
		}
	}
	return rec
}

// EventInfo is the slice of the planner core event object this service needs.
type EventInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event fetches the event's display metadata (used for export filenames).
func (p *Planner) Event(ctx context.Context, token, eventID string) (EventInfo, error) {
	var info EventInfo
	err := p.do(ctx, token, http.MethodGet, fmt.Sprintf("/api/events/%s", eventID), nil, &info)
	return info, err
}

// ListParticipants fetches the authoritative roster for an event.  This is
// the sole input to the reconciler's authoritative side.
func (p *Planner) ListParticipants(ctx context.Context, token, eventID string) ([]model.GuestRecord, error) {
	var wire []participant
	if err := p.do(ctx, token, http.MethodGet, fmt.Sprintf("/api/events/%s/participants", eventID), nil, &wire); err != nil {
		return nil, err
	}
	out := make([]model.GuestRecord, 0, len(wire))
	for _, w := range wire {
		out = append(out, fromWire(w))
	}
	return out, nil
}

// CreateParticipant submits one unsaved row and returns the authoritative
// copy, including the server-assigned ID.
func (p *Planner) CreateParticipant(ctx context.Context, token, eventID string, rec model.GuestRecord) (model.GuestRecord, error) {
	var saved participant
	body := toWire(rec)
	body.ID = "" // the server assigns identity, never the client
	if err := p.do(ctx, token, http.MethodPost, fmt.Sprintf("/api/events/%s/participants", eventID), body, &saved); err != nil {
		return model.GuestRecord{}, err
	}
	return fromWire(saved), nil
}

// UpdateParticipant submits one saved row and returns the authoritative copy.
func (p *Planner) UpdateParticipant(ctx context.Context, token, eventID string, rec model.GuestRecord) (model.GuestRecord, error) {
	var saved participant
	path := fmt.Sprintf("/api/events/%s/participants/%s", eventID, rec.ID)
	if err := p.do(ctx, token, http.MethodPatch, path, toWire(rec), &saved); err != nil {
		return model.GuestRecord{}, err
	}
	return fromWire(saved), nil
}

// BulkUpload forwards the raw spreadsheet to the planner core's bulk create
// endpoint as multipart form data.
func (p *Planner) BulkUpload(ctx context.Context, token, eventID, filename string, file io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("planner core: build multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("planner core: copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("planner core: close multipart: %w", err)
	}

	url := fmt.Sprintf("%s/api/events/%s/participants/bulk", p.baseURL, eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return p.apiError(resp)
	}
	return nil
}

// DocumentUploadURL is where the frontend sends travel documents for one
// saved participant.  Requires a resolved server ID; the handler enforces
// that before calling.
func (p *Planner) DocumentUploadURL(eventID, participantID string) string {
	return fmt.Sprintf("%s/api/events/%s/participants/%s/documents", p.baseURL, eventID, participantID)
}

// do runs one JSON round trip.  body may be nil; out may be nil for calls
// whose response body is irrelevant.
func (p *Planner) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("planner core: marshal request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return p.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("planner core: decode response: %w", err)
	}
	return nil
}

func (p *Planner) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	p.log.Warn().Int("status", resp.StatusCode).Str("url", resp.Request.URL.Path).Msg("planner core call failed")
	return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/utsavhq/guestsheet/internal/client"
	"github.com/utsavhq/guestsheet/internal/config"
	"github.com/utsavhq/guestsheet/internal/metrics"
	"github.com/utsavhq/guestsheet/internal/model"
	"github.com/utsavhq/guestsheet/internal/session"
	"github.com/utsavhq/guestsheet/internal/spreadsheet"
)

// One registration per test binary; promauto uses the global registry.
var testMetrics = metrics.New("guestsheet_handler_test")

func newTestHandler(plannerURL string) (*ImportHandler, *session.MemoryStore) {
	store := session.NewMemoryStore()
	log := zerolog.New(io.Discard)
	h := NewImportHandler(config.Config{Env: "test"}, store, client.New(plannerURL, log), nil, testMetrics, log)
	return h, store
}

func newContext(e *echo.Echo, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("token", "tok123")
	c.Set("user_id", "planner-7")
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(part, content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func plannerStub(handler http.HandlerFunc) *httptest.Server {
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}
	}
	return httptest.NewServer(handler)
}

func seedSession(t *testing.T, store *session.MemoryStore, table model.WorkingTable) model.ImportSession {
	t.Helper()
	sess, err := store.Create(context.Background(), "ev1", "Mehta Wedding", table)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess
}

func TestCreateSessionFromCSV(t *testing.T) {
	srv := plannerStub(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events/ev1" {
			io.WriteString(w, `{"id":"ev1","name":"Mehta Wedding"}`)
			return
		}
		http.NotFound(w, r)
	})
	defer srv.Close()
	h, _ := newTestHandler(srv.URL)

	body, ctype := multipartUpload(t, "guests.csv",
		"Full Name,Mobile No.\nAlice,5550001111\nBob,5550002222\n")
	req := httptest.NewRequest(http.MethodPost, "/v1/events/ev1/import-sessions", body)
	req.Header.Set(echo.HeaderContentType, ctype)

	c, rec := newContext(echo.New(), req)
	c.SetParamNames("eventID")
	c.SetParamValues("ev1")
	if err := h.CreateSession(c); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Session struct {
			ID        string `json:"id"`
			EventName string `json:"eventName"`
			Rows      []struct {
				SNo  int    `json:"sNo"`
				Name string `json:"name"`
			} `json:"rows"`
		} `json:"session"`
	}
	decodeBody(t, rec, &resp)
	if resp.Session.ID == "" {
		t.Fatal("no session id in response")
	}
	if resp.Session.EventName != "Mehta Wedding" {
		t.Errorf("eventName = %q", resp.Session.EventName)
	}
	if len(resp.Session.Rows) != 2 || resp.Session.Rows[0].Name != "Alice" || resp.Session.Rows[0].SNo != 1 {
		t.Errorf("rows = %+v", resp.Session.Rows)
	}
}

func TestCreateSessionRejectsMalformedUpload(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, _ := newTestHandler(srv.URL)

	body, ctype := multipartUpload(t, "guests.xlsx", "definitely not a workbook")
	req := httptest.NewRequest(http.MethodPost, "/v1/events/ev1/import-sessions", body)
	req.Header.Set(echo.HeaderContentType, ctype)

	c, rec := newContext(echo.New(), req)
	c.SetParamNames("eventID")
	c.SetParamValues("ev1")
	if err := h.CreateSession(c); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateCell(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{
		{Name: "Alice", PhoneNumber: "5550001111"},
		{Name: "Bob", PhoneNumber: "5550002222"},
	})

	payload := `{"field":"hotelName","value":"Taj Palace","viewport":{"scrollTop":240,"focusedCell":"1:hotelName"}}`
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id", "index")
	c.SetParamValues(sess.ID, "1")
	if err := h.UpdateCell(c); err != nil {
		t.Fatalf("UpdateCell: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Rows []struct {
			Name      string `json:"name"`
			HotelName string `json:"hotelName"`
		} `json:"rows"`
		Viewport model.ScrollFocusSnapshot `json:"viewport"`
	}
	decodeBody(t, rec, &resp)
	if resp.Rows[1].HotelName != "Taj Palace" {
		t.Errorf("rows = %+v", resp.Rows)
	}
	if resp.Rows[0].Name != "Alice" {
		t.Errorf("other row disturbed: %+v", resp.Rows[0])
	}
	// The captured viewport comes back so the client can reapply it.
	if resp.Viewport.ScrollTop != 240 || resp.Viewport.FocusedCell != "1:hotelName" {
		t.Errorf("viewport = %+v", resp.Viewport)
	}

	stored, err := store.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Table[1].HotelName != "Taj Palace" {
		t.Errorf("edit not persisted: %+v", stored.Table[1])
	}
	if stored.Viewport.ScrollTop != 240 {
		t.Errorf("viewport not persisted: %+v", stored.Viewport)
	}
}

func TestUpdateCellErrors(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{{Name: "Alice"}})

	cases := []struct {
		name    string
		index   string
		payload string
		want    int
	}{
		{"row out of range", "5", `{"field":"name","value":"x"}`, http.StatusNotFound},
		{"unknown field", "0", `{"field":"favouriteColour","value":"x"}`, http.StatusBadRequest},
		{"bad index", "notanumber", `{"field":"name","value":"x"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(tc.payload))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c, rec := newContext(echo.New(), req)
			c.SetParamNames("id", "index")
			c.SetParamValues(sess.ID, tc.index)
			if err := h.UpdateCell(c); err != nil {
				t.Fatalf("UpdateCell: %v", err)
			}
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}

	// None of the failed edits may have touched the stored table.
	stored, _ := store.Get(context.Background(), sess.ID)
	if stored.Table[0].Name != "Alice" {
		t.Errorf("table mutated by failed edits: %+v", stored.Table)
	}
}

func TestUpdateCellUnknownSession(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, _ := newTestHandler(srv.URL)

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"field":"name","value":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id", "index")
	c.SetParamValues("nope", "0")
	if err := h.UpdateCell(c); err != nil {
		t.Fatalf("UpdateCell: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRefreshSessionMergesRoster(t *testing.T) {
	srv := plannerStub(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events/ev1/participants" {
			io.WriteString(w, `[
				{"id":"p1","name":"Alice","phoneNumber":"5550001111"},
				{"id":"p2","name":"Carol","phoneNumber":"5550003333"}
			]`)
			return
		}
		http.NotFound(w, r)
	})
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{
		{Name: "Alice", PhoneNumber: "5550001111", Remarks: "vegetarian"},
		{Name: "Walk-in", PhoneNumber: "5559998888"},
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id")
	c.SetParamValues(sess.ID)
	if err := h.RefreshSession(c); err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Adopted    int   `json:"adopted"`
		Unresolved []int `json:"unresolved"`
		Session    struct {
			Rows []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Remarks string `json:"remarks"`
			} `json:"rows"`
		} `json:"session"`
	}
	decodeBody(t, rec, &resp)
	if resp.Adopted != 1 {
		t.Errorf("adopted = %d, want 1", resp.Adopted)
	}
	if len(resp.Unresolved) != 1 || resp.Unresolved[0] != 1 {
		t.Errorf("unresolved = %v, want [1]", resp.Unresolved)
	}
	rows := resp.Session.Rows
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (two local + one appended)", len(rows))
	}
	if rows[0].ID != "p1" || rows[0].Remarks != "vegetarian" {
		t.Errorf("row 0 = %+v, want adopted identity with local edits kept", rows[0])
	}
	if rows[2].Name != "Carol" {
		t.Errorf("row 2 = %+v, want appended server record", rows[2])
	}
}

func TestRefreshSessionBackendDownLeavesTable(t *testing.T) {
	srv := plannerStub(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{{Name: "Alice", Remarks: "edited"}})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id")
	c.SetParamValues(sess.ID)
	if err := h.RefreshSession(c); err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}

	stored, _ := store.Get(context.Background(), sess.ID)
	if len(stored.Table) != 1 || stored.Table[0].Remarks != "edited" {
		t.Errorf("table changed on backend failure: %+v", stored.Table)
	}
}

func TestSaveRowCreatesUnsavedRow(t *testing.T) {
	srv := plannerStub(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/events/ev1/participants" {
			io.WriteString(w, `{"id":"p50","name":"Bob","phoneNumber":"5550002222"}`)
			return
		}
		http.NotFound(w, r)
	})
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{
		{ID: "p1", Name: "Alice"},
		{Name: "Bob", PhoneNumber: "5550002222"},
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id", "index")
	c.SetParamValues(sess.ID, "1")
	if err := h.SaveRow(c); err != nil {
		t.Fatalf("SaveRow: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	stored, _ := store.Get(context.Background(), sess.ID)
	if stored.Table[1].ID != "p50" {
		t.Errorf("row 1 = %+v, want server identity p50", stored.Table[1])
	}
	if stored.Table[0].ID != "p1" || stored.Table[0].Name != "Alice" {
		t.Errorf("row 0 disturbed: %+v", stored.Table[0])
	}
}

func TestSaveRowBackendRejectionPassesThrough(t *testing.T) {
	srv := plannerStub(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate participant", http.StatusConflict)
	})
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{{Name: "Bob"}})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id", "index")
	c.SetParamValues(sess.ID, "0")
	if err := h.SaveRow(c); err != nil {
		t.Fatalf("SaveRow: %v", err)
	}
	// Backend 4xx is forwarded, not masked as 502.
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	stored, _ := store.Get(context.Background(), sess.ID)
	if stored.Table[0].ID != "" {
		t.Errorf("failed save must not touch the row: %+v", stored.Table[0])
	}
}

func TestExportSessionStreamsWorkbook(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{
		{Name: "Alice", PhoneNumber: "5550001111", City: "Jaipur"},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id")
	c.SetParamValues(sess.ID)
	if err := h.ExportSession(c); err != nil {
		t.Fatalf("ExportSession: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	disp := rec.Header().Get(echo.HeaderContentDisposition)
	if !strings.Contains(disp, "Mehta_Wedding_Guests_") || !strings.Contains(disp, ".xlsx") {
		t.Errorf("content-disposition = %q", disp)
	}

	raw, err := spreadsheet.Read(bytes.NewReader(rec.Body.Bytes()), "export.xlsx")
	if err != nil {
		t.Fatalf("exported workbook unreadable: %v", err)
	}
	if len(raw) != 1 || raw[0]["Name"] != "Alice" {
		t.Errorf("exported rows = %v", raw)
	}
}

func TestDeleteSessionClearsEverything(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{{Name: "Alice"}, {Name: "Bob"}})

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id")
	c.SetParamValues(sess.ID)
	if err := h.DeleteSession(c); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Rows []json.RawMessage `json:"rows"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Rows) != 0 {
		t.Errorf("rows = %d, want cleared", len(resp.Rows))
	}
	if _, err := store.Get(context.Background(), sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session still present after delete: %v", err)
	}
}

func TestDocumentUploadTarget(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, store := newTestHandler(srv.URL)
	sess := seedSession(t, store, model.WorkingTable{
		{Name: "Unsaved", PhoneNumber: "5550001111"},
		{ID: "p2", Name: "Short Phone", PhoneNumber: "555-01"},
		{ID: "p3", Name: "Ready", PhoneNumber: "+91 555-000-1111"},
	})

	cases := []struct {
		name  string
		index string
		want  int
	}{
		{"unresolved identity", "0", http.StatusConflict},
		{"phone too short", "1", http.StatusUnprocessableEntity},
		{"resolved and dialable", "2", http.StatusOK},
		{"row out of range", "9", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			c, rec := newContext(echo.New(), req)
			c.SetParamNames("id", "index")
			c.SetParamValues(sess.ID, tc.index)
			if err := h.DocumentUploadTarget(c); err != nil {
				t.Fatalf("DocumentUploadTarget: %v", err)
			}
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
			if tc.want == http.StatusOK {
				var resp struct {
					UploadURL string `json:"uploadUrl"`
				}
				decodeBody(t, rec, &resp)
				if !strings.Contains(resp.UploadURL, "/api/events/ev1/participants/p3/documents") {
					t.Errorf("uploadUrl = %q", resp.UploadURL)
				}
			}
		})
	}
}

func TestSessionActivityWithoutAuditStore(t *testing.T) {
	srv := plannerStub(nil)
	defer srv.Close()
	h, _ := newTestHandler(srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c, rec := newContext(echo.New(), req)
	c.SetParamNames("id")
	c.SetParamValues("any")
	if err := h.SessionActivity(c); err != nil {
		t.Fatalf("SessionActivity: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

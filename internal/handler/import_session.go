// Package handler exposes the import-session HTTP surface: spreadsheet
// upload, grid rendering and cell edits, reconciliation against the planner
// core, per-row saves and workbook export.  Handlers own error mapping per
// the pipeline's taxonomy: parse errors are 400 and leave nothing behind,
// backend failures are 502 (or the backend's own 4xx) and leave the stored
// table untouched, identity problems are 409 at the point an action needs an
// ID, and phone format problems are 422 at point of use only.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/utsavhq/guestsheet/internal/client"
	"github.com/utsavhq/guestsheet/internal/config"
	"github.com/utsavhq/guestsheet/internal/export"
	"github.com/utsavhq/guestsheet/internal/grid"
	"github.com/utsavhq/guestsheet/internal/metrics"
	"github.com/utsavhq/guestsheet/internal/model"
	"github.com/utsavhq/guestsheet/internal/normalize"
	"github.com/utsavhq/guestsheet/internal/queue"
	"github.com/utsavhq/guestsheet/internal/reconcile"
	"github.com/utsavhq/guestsheet/internal/repository"
	queue_publisher "github.com/utsavhq/guestsheet/internal/service"
	"github.com/utsavhq/guestsheet/internal/session"
	"github.com/utsavhq/guestsheet/internal/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler bundles the dependencies of the import-session API.
type ImportHandler struct {
	Cfg      config.Config
	Sessions session.Store
	Planner  *client.Planner
	Audit    *repository.AuditRepo // nil when the audit database is unavailable
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

// NewImportHandler constructs the handler and panics on missing hard
// dependencies.  Audit may be nil; the activity endpoint then reports 503.
func NewImportHandler(cfg config.Config, sessions session.Store, planner *client.Planner, audit *repository.AuditRepo, m *metrics.Metrics, log zerolog.Logger) *ImportHandler {
	if sessions == nil || planner == nil || m == nil {
		panic("nil dependency passed to NewImportHandler")
	}
	return &ImportHandler{
		Cfg:      cfg,
		Sessions: sessions,
		Planner:  planner,
		Audit:    audit,
		Metrics:  m,
		Log:      log.With().Str("component", "import-handler").Logger(),
	}
}

// bearerToken returns the raw JWT stashed by the auth middleware, for
// pass-through calls to the planner core.
func bearerToken(c echo.Context) string {
	if s, ok := c.Get("token").(string); ok {
		return s
	}
	return ""
}

// actor returns the authenticated subject for audit events.
func actor(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return "unknown"
}

// publish emits a roster activity event without blocking the request; a
// broker outage only costs the audit entry, never the user action.
func (h *ImportHandler) publish(ev queue.RosterActivityEvent) {
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue_publisher.PublishRosterActivity(ctx, ev); err != nil {
			h.Log.Warn().Err(err).Str("action", ev.Action).Msg("activity publish failed")
		}
	}()
}

// CreateSession handles POST /v1/events/:eventID/import-sessions.  The
// multipart "file" part is parsed (first sheet only), normalized into a
// working table and stored under a fresh session ID.  With ?forward=true the
// raw file is also pushed to the planner core bulk endpoint; a forward
// failure is reported in the response but does not discard the parsed table.
func (h *ImportHandler) CreateSession(c echo.Context) error {
	eventID := c.Param("eventID")

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing file"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
	}
	defer f.Close()

	raw, err := spreadsheet.Read(f, fh.Filename)
	if err != nil {
		// Parse errors are terminal for the import: no session is created.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable spreadsheet"})
	}
	table := normalize.Rows(raw)
	h.Metrics.RowsImported.Add(float64(len(table)))

	token := bearerToken(c)
	eventName := eventID
	if info, err := h.Planner.Event(c.Request().Context(), token, eventID); err == nil && info.Name != "" {
		eventName = info.Name
	} else if err != nil {
		h.Log.Warn().Err(err).Str("event_id", eventID).Msg("event lookup failed, using id as name")
	}

	var forwardErr string
	if c.QueryParam("forward") == "true" {
		src, err := fh.Open()
		if err == nil {
			err = h.Planner.BulkUpload(c.Request().Context(), token, eventID, fh.Filename, src)
			src.Close()
		}
		if err != nil {
			// The local table stays; the user keeps their parsed rows and can
			// retry the upload or save row by row.
			forwardErr = "bulk upload failed"
			h.Log.Warn().Err(err).Str("event_id", eventID).Msg("bulk upload failed")
		}
	}

	sess, err := h.Sessions.Create(c.Request().Context(), eventID, eventName, table)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}

	h.publish(queue.RosterActivityEvent{
		SessionID: sess.ID,
		EventID:   eventID,
		Action:    queue.ActionImport,
		Actor:     actor(c),
		RowCount:  len(table),
	})

	resp := echo.Map{"session": buildSessionView(sess)}
	if forwardErr != "" {
		resp["uploadError"] = forwardErr
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetSession handles GET /v1/import-sessions/:id.
func (h *ImportHandler) GetSession(c echo.Context) error {
	sess, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session": buildSessionView(sess)})
}

type updateCellReq struct {
	Field    string                    `json:"field"`
	Value    string                    `json:"value"`
	Viewport model.ScrollFocusSnapshot `json:"viewport"`
}

// UpdateCell handles PATCH /v1/import-sessions/:id/rows/:index.  The edit
// runs through the grid manager so the snapshot/restore protocol wraps the
// re-render; the response carries both the rendered rows and the restored
// viewport for the client to reapply.  No field validation happens here.
func (h *ImportHandler) UpdateCell(c echo.Context) error {
	sess, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid row index"})
	}
	var req updateCellReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	vp := &sessionViewport{current: req.Viewport, rows: len(sess.Table)}
	var rendered []rowView
	g := grid.NewManager(sess.Table, vp,
		grid.RendererFunc(func(t model.WorkingTable) { rendered = buildRows(t) }),
		grid.ImmediateScheduler{})

	if err := g.UpdateField(idx, req.Field, req.Value); err != nil {
		switch {
		case errors.Is(err, grid.ErrRowOutOfRange):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "row not found"})
		case errors.Is(err, grid.ErrUnknownField):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown field"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	sess.Table = g.Table()
	sess.Viewport = vp.current
	if err := h.Sessions.Save(c.Request().Context(), sess); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save session failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"rows":     rendered,
		"viewport": vp.current,
	})
}

// RefreshSession handles POST /v1/import-sessions/:id/refresh: fetch the
// authoritative roster and reconcile the working table against it.  A fetch
// failure leaves the stored table untouched so in-progress edits survive.
func (h *ImportHandler) RefreshSession(c echo.Context) error {
	sess, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}

	authoritative, err := h.Planner.ListParticipants(c.Request().Context(), bearerToken(c), sess.EventID)
	if err != nil {
		return backendError(c, err)
	}

	start := time.Now()
	res := reconcile.Merge(sess.Table, authoritative)
	h.Metrics.MergeDuration.Observe(time.Since(start).Seconds())
	h.Metrics.MergesRun.Inc()
	h.Metrics.IdentitiesAdopted.Add(float64(res.Adopted))
	h.Metrics.UnresolvedRows.Add(float64(len(res.Unresolved)))

	sess.Table = res.Table
	if err := h.Sessions.Save(c.Request().Context(), sess); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save session failed"})
	}

	h.publish(queue.RosterActivityEvent{
		SessionID:       sess.ID,
		EventID:         sess.EventID,
		Action:          queue.ActionRefresh,
		Actor:           actor(c),
		RowCount:        len(res.Table),
		UnresolvedCount: len(res.Unresolved),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"session":    buildSessionView(sess),
		"adopted":    res.Adopted,
		"unresolved": res.Unresolved,
	})
}

// SaveRow handles POST /v1/import-sessions/:id/rows/:index/save.  Rows are
// submitted individually in whatever order the user triggers; a success
// replaces only its own row with the authoritative copy (including the
// server-assigned ID), a failure leaves that row and every other row as-is.
func (h *ImportHandler) SaveRow(c echo.Context) error {
	sess, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 || idx >= len(sess.Table) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "row not found"})
	}

	row := sess.Table[idx]
	token := bearerToken(c)

	var saved model.GuestRecord
	if row.Saved() {
		saved, err = h.Planner.UpdateParticipant(c.Request().Context(), token, sess.EventID, row)
	} else {
		saved, err = h.Planner.CreateParticipant(c.Request().Context(), token, sess.EventID, row)
	}
	if err != nil {
		h.Metrics.RowSaves.WithLabelValues("error").Inc()
		return backendError(c, err)
	}
	h.Metrics.RowSaves.WithLabelValues("ok").Inc()

	sess.Table[idx] = saved
	if err := h.Sessions.Save(c.Request().Context(), sess); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save session failed"})
	}

	h.publish(queue.RosterActivityEvent{
		SessionID: sess.ID,
		EventID:   sess.EventID,
		Action:    queue.ActionRowSave,
		Actor:     actor(c),
		RowCount:  1,
	})

	return c.JSON(http.StatusOK, echo.Map{"row": rowView{SNo: idx + 1, GuestRecord: saved}})
}

// ExportSession handles GET /v1/import-sessions/:id/export: a pure read of
// the working table streamed as an xlsx attachment.
func (h *ImportHandler) ExportSession(c echo.Context) error {
	sess, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}

	name := export.Filename(sess.EventName, time.Now().UTC())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, name))
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().WriteHeader(http.StatusOK)

	if err := export.Write(c.Response(), sess.Table); err != nil {
		// Headers are already out; all we can do is log and cut the stream.
		h.Log.Error().Err(err).Str("session_id", sess.ID).Msg("export failed mid-stream")
		return err
	}
	h.Metrics.Exports.Inc()

	h.publish(queue.RosterActivityEvent{
		SessionID: sess.ID,
		EventID:   sess.EventID,
		Action:    queue.ActionExport,
		Actor:     actor(c),
		RowCount:  len(sess.Table),
	})
	return nil
}

// DeleteSession handles DELETE /v1/import-sessions/:id (Clear All).  The
// table is cleared through the grid manager and the session removed from the
// store; the response shows the cleared state.
func (h *ImportHandler) DeleteSession(c echo.Context) error {
	sess, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}

	var rendered []rowView
	g := grid.NewManager(sess.Table, &sessionViewport{rows: len(sess.Table)},
		grid.RendererFunc(func(t model.WorkingTable) { rendered = buildRows(t) }),
		grid.ImmediateScheduler{})
	g.Clear()

	if err := h.Sessions.Delete(c.Request().Context(), sess.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clear session failed"})
	}

	h.publish(queue.RosterActivityEvent{
		SessionID: sess.ID,
		EventID:   sess.EventID,
		Action:    queue.ActionClear,
		Actor:     actor(c),
	})

	return c.JSON(http.StatusOK, echo.Map{"rows": rendered})
}

// DocumentUploadTarget handles GET /v1/import-sessions/:id/rows/:index/document-upload.
// Document upload needs a resolved server identity and a dialable phone
// number; both are checked here, at the point of use, never at import or
// edit time.
func (h *ImportHandler) DocumentUploadTarget(c echo.Context) error {
	sess, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 || idx >= len(sess.Table) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "row not found"})
	}
	row := sess.Table[idx]

	if err := reconcile.RequireID(row); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot resolve identity, please refresh"})
	}
	if digitCount(row.PhoneNumber) < 10 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid phone number"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"uploadUrl": h.Planner.DocumentUploadURL(sess.EventID, row.ID),
	})
}

// SessionActivity handles GET /v1/import-sessions/:id/activity: the audit
// trail the queue consumer has written for this session.
func (h *ImportHandler) SessionActivity(c echo.Context) error {
	if h.Audit == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "audit unavailable"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Audit.ListBySession(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load activity failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": entries})
}

// ListParticipants handles GET /v1/events/:eventID/participants, a read-only
// proxy of the authoritative roster.  This route sits behind the response
// cache middleware.
func (h *ImportHandler) ListParticipants(c echo.Context) error {
	recs, err := h.Planner.ListParticipants(c.Request().Context(), bearerToken(c), c.Param("eventID"))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"participants": recs})
}

// sessionError maps session store failures onto responses.
func sessionError(c echo.Context, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session load failed"})
}

// backendError maps planner core failures: the backend's own 4xx statuses
// pass through so the user sees what the server rejected; everything else
// (5xx, transport) is a 502.
func backendError(c echo.Context, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return c.JSON(apiErr.Status, echo.Map{"error": apiErr.Body})
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "planner core unavailable"})
}

/*
handlers.go - HTTP API handlers for the SKU budget allocator

PURPOSE:
  Exposes the allocation planner via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the planner.

ENDPOINTS:
  Sessions:
    GET    /api/sessions                    List sessions
    POST   /api/sessions                    Create session
    GET    /api/sessions/{id}               Get session
    PUT    /api/sessions/{id}/budget        Change total budget
    DELETE /api/sessions/{id}               Delete session and its data

  Catalog:
    POST   /api/sessions/{id}/import        JSON, text/csv or xlsx upload

  Allocation (all take ?period=, empty for the default period):
    GET    /api/sessions/{id}/periods       List periods
    GET    /api/sessions/{id}/tree          Tree with amounts and warnings
    PUT    /api/sessions/{id}/allocations   Set one node's percentage
    POST   /api/sessions/{id}/distribute    Equal split under a parent
    GET    /api/sessions/{id}/export        ?format=csv|xlsx

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (go-playground/validator)
  3. Call the planner
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Session or node not found
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - planner/planner.go: Workflow behind every mutation
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/sku-allocator/export"
	"github.com/warp/sku-allocator/factory"
	"github.com/warp/sku-allocator/hierarchy"
	"github.com/warp/sku-allocator/planner"
)

// maxUploadBytes bounds catalog uploads.
const maxUploadBytes = 32 << 20

const xlsxMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Planner  *planner.Planner
	Log      *logrus.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler over the given store.
func NewHandler(store hierarchy.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Planner:  planner.New(store, log),
		Log:      log,
		validate: validator.New(),
	}
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// ListSessions returns all sessions.
// GET /api/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Planner.ListSessions(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list sessions", err)
		return
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSession creates a new session.
// POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.Planner.CreateSession(r.Context(), req.Name, req.TotalBudget)
	if err != nil {
		h.writeDomainError(w, "Failed to create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(session))
}

// GetSession returns one session.
// GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Planner.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(session))
}

// UpdateBudget changes the total budget and re-propagates every period.
// PUT /api/sessions/{id}/budget
func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req UpdateBudgetRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.Planner.SetBudget(r.Context(), chi.URLParam(r, "id"), req.TotalBudget)
	if err != nil {
		h.writeDomainError(w, "Failed to update budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(session))
}

// DeleteSession removes a session with its catalog and allocations.
// DELETE /api/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ImportCatalog replaces the session's catalog.
// POST /api/sessions/{id}/import
//
// JSON bodies carry the import spec and the rows. text/csv and xlsx bodies carry
// only the file; the import spec comes from the sku_column, price_column and
// hierarchy_columns (comma separated) query parameters.
func (h *Handler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		spec   factory.ImportSpec
		header []string
		rows   [][]string
		err    error
	)
	switch mediaType {
	case "text/csv":
		spec = specFromQuery(r)
		header, rows, err = factory.ReadCSV(body)
	case xlsxMediaType:
		spec = specFromQuery(r)
		header, rows, err = factory.ReadXLSX(body, r.URL.Query().Get("sheet"))
	default:
		var req ImportRequest
		if !h.decodeFrom(w, body, &req) {
			return
		}
		spec, header, rows = req.ImportSpec, req.Header, req.Rows
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}

	res, err := h.Planner.ImportCatalog(r.Context(), chi.URLParam(r, "id"), header, rows, spec)
	if err != nil {
		h.writeDomainError(w, "Failed to import catalog", err)
		return
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, ImportResponse{
		Columns:  toColumnDTOs(res.Columns),
		Skus:     res.Skus,
		Warnings: warnings,
	})
}

func specFromQuery(r *http.Request) factory.ImportSpec {
	q := r.URL.Query()
	var columns []string
	for _, c := range strings.Split(q.Get("hierarchy_columns"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	return factory.ImportSpec{
		SkuColumn:        q.Get("sku_column"),
		PriceColumn:      q.Get("price_column"),
		HierarchyColumns: columns,
	}
}

// =============================================================================
// ALLOCATION ENDPOINTS
// =============================================================================

// ListPeriods returns the session's periods, default first.
// GET /api/sessions/{id}/periods
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Planner.ListPeriods(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to list periods", err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodsResponse{Periods: periods})
}

// GetTree returns the allocation tree of a period.
// GET /api/sessions/{id}/tree?period=
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	view, err := h.Planner.View(r.Context(), chi.URLParam(r, "id"), period(r))
	if err != nil {
		h.writeDomainError(w, "Failed to load allocation tree", err)
		return
	}
	writeJSON(w, http.StatusOK, toTreeResponse(view))
}

// SetAllocation assigns a percentage to one node.
// PUT /api/sessions/{id}/allocations?period=
func (h *Handler) SetAllocation(w http.ResponseWriter, r *http.Request) {
	var req SetAllocationRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.Planner.SetPercentage(r.Context(), chi.URLParam(r, "id"), period(r), req.Path, *req.Percentage)
	if err != nil {
		h.writeDomainError(w, "Failed to set allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, toTreeResponse(view))
}

// Distribute splits 100% equally across the children of a parent.
// POST /api/sessions/{id}/distribute?period=
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req DistributeRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.Planner.DistributeEqually(r.Context(), chi.URLParam(r, "id"), period(r), req.ParentPath, req.Level)
	if err != nil {
		h.writeDomainError(w, "Failed to distribute", err)
		return
	}
	writeJSON(w, http.StatusOK, toTreeResponse(view))
}

// Export streams the per-SKU export as CSV or XLSX.
// GET /api/sessions/{id}/export?period=&format=
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid format", err)
		return
	}

	id := chi.URLParam(r, "id")
	header, rows, err := h.Planner.Export(r.Context(), id, period(r))
	if err != nil {
		h.writeDomainError(w, "Failed to export", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, header, rows); err != nil {
		h.writeDomainError(w, "Failed to write export", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(id, period(r), format)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func exportFilename(id, period string, format export.Format) string {
	name := "allocation-" + id
	if period != "" {
		name += "-" + period
	}
	return name + "." + string(format)
}

// =============================================================================
// HELPERS
// =============================================================================

func period(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("period"))
}

func toTreeResponse(v planner.View) TreeResponse {
	return TreeResponse{
		Session:  toSessionDTO(v.Session),
		Period:   v.Period,
		Columns:  toColumnDTOs(v.Columns),
		Tree:     toNodeDTOs(v.Tree),
		Warnings: toWarningDTOs(v.Warnings),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decodeFrom(w, r.Body, dst)
}

// decodeFrom decodes JSON into dst and validates it. It writes a 400 and
// returns false on failure.
func (h *Handler) decodeFrom(w http.ResponseWriter, body io.Reader, dst any) bool {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		parts = append(parts, ve.Field()+": "+ve.Tag())
	}
	return fmt.Errorf("%s", strings.Join(parts, ", "))
}

// writeDomainError maps planner and store errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case hierarchy.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case hierarchy.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

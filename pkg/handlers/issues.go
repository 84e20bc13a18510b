package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/services"
)

// UpdateIssueStatusRequest for PATCH /api/issues/{id}/status and
// PATCH /api/issues/groups/{gid}/status
type UpdateIssueStatusRequest struct {
	Status string `json:"status"`
}

// GroupStatusResponse reports which issues a group transition touched.
type GroupStatusResponse struct {
	GroupID  string  `json:"group_id"`
	Status   string  `json:"status"`
	IssueIDs []int64 `json:"issue_ids"`
	Updated  int     `json:"updated"`
}

// QueryRequest for POST /api/issues/query
type QueryRequest struct {
	Question string `json:"question"`
}

// IssueHandler handles issue HTTP requests, including the public
// unauthenticated reporting path.
type IssueHandler struct {
	issueService services.IssueService
	queryService services.QueryService
	logger       *zap.Logger
}

// NewIssueHandler creates a new issue handler.
func NewIssueHandler(issueService services.IssueService, queryService services.QueryService, logger *zap.Logger) *IssueHandler {
	return &IssueHandler{
		issueService: issueService,
		queryService: queryService,
		logger:       logger,
	}
}

// RegisterRoutes registers the issue handler's routes on the given mux.
// The public report route takes a different middleware chain: no auth, and
// a database scope without tenant context so the item UID can be resolved
// before the owning org is known.
func (h *IssueHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware, publicMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/issues",
		authMiddleware.RequireAuth(tenantMiddleware(h.List)))
	mux.HandleFunc("POST /api/issues",
		authMiddleware.RequireAuth(tenantMiddleware(h.Create)))
	mux.HandleFunc("GET /api/issues/metrics",
		authMiddleware.RequireAuth(tenantMiddleware(h.Metrics)))
	mux.HandleFunc("POST /api/issues/query",
		authMiddleware.RequireAuth(tenantMiddleware(h.Query)))
	mux.HandleFunc("PATCH /api/issues/{id}/status",
		authMiddleware.RequireAuth(tenantMiddleware(h.UpdateStatus)))
	mux.HandleFunc("PATCH /api/issues/groups/{gid}/status",
		authMiddleware.RequireAuth(tenantMiddleware(h.UpdateGroupStatus)))
	mux.HandleFunc("POST /api/public/items/{uid}/issues",
		publicMiddleware(h.ReportPublic))
}

// List handles GET /api/issues. Filter criteria come from query
// parameters; with none set, the default open-and-in-progress filter
// applies. Pass all=true for the unfiltered list.
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	spec := filterFromQuery(r)

	result, err := h.issueService.List(r.Context(), spec)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/issues
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateIssueInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	issue, err := h.issueService.Create(r.Context(), input)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: issue}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ReportPublic handles POST /api/public/items/{uid}/issues, the QR-code
// reporting path. No authentication; the item is addressed by its public
// UID and the issue lands in the owning org.
func (h *IssueHandler) ReportPublic(w http.ResponseWriter, r *http.Request) {
	uid, ok := ParseItemUID(w, r, h.logger)
	if !ok {
		return
	}

	var input services.CreateIssueInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	issue, err := h.issueService.ReportPublic(r.Context(), uid, input)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	// Public responses expose only what the reporter needs.
	response := map[string]any{
		"uid":         issue.UID,
		"status":      issue.Status,
		"reported_at": issue.ReportedAt,
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStatus handles PATCH /api/issues/{id}/status
func (h *IssueHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	issueID, ok := ParseIssueID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateIssueStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	issue, err := h.issueService.Transition(r.Context(), issueID, req.Status)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: issue}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateGroupStatus handles PATCH /api/issues/groups/{gid}/status
func (h *IssueHandler) UpdateGroupStatus(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("gid")
	if groupID == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_group_id", "Missing group ID"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req UpdateIssueStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	updated, err := h.issueService.TransitionGroup(r.Context(), groupID, req.Status)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	response := GroupStatusResponse{
		GroupID:  groupID,
		Status:   req.Status,
		IssueIDs: updated,
		Updated:  len(updated),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Metrics handles GET /api/issues/metrics. The aggregation runs over the
// full issue history regardless of the dashboard's default filter.
func (h *IssueHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	result, err := h.issueService.List(r.Context(), models.FilterSpec{})
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result.Metrics}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Query handles POST /api/issues/query, the natural-language issue search.
func (h *IssueHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "empty_question", "Question must not be empty"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.queryService.Query(r.Context(), req.Question)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// filterFromQuery builds a FilterSpec from list query parameters. Comma
// separation gives OR within a criterion; combining parameters gives AND
// across criteria.
func filterFromQuery(r *http.Request) models.FilterSpec {
	q := r.URL.Query()

	if q.Get("all") == "true" {
		return models.FilterSpec{}
	}

	spec := models.FilterSpec{
		Statuses:   splitParam(q.Get("status")),
		Urgencies:  splitParam(q.Get("urgency")),
		Types:      splitParam(q.Get("type")),
		SearchText: strings.TrimSpace(q.Get("search")),
	}

	if daysStr := q.Get("days"); daysStr != "" {
		if days, err := strconv.Atoi(daysStr); err == nil && days > 0 {
			spec.DateWindow = &models.DateWindow{Days: days}
		}
	}

	if spec.IsZero() {
		return models.DefaultIssueFilter()
	}
	return spec
}

func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

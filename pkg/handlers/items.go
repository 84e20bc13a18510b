package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/services"
)

// TenantMiddleware wraps a handler with tenant database scoping.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ItemListResponse for GET /api/items
type ItemListResponse struct {
	Items []*models.Item `json:"items"`
	Total int            `json:"total"`
}

// UpdateItemStatusRequest for PATCH /api/items/{id}/status
type UpdateItemStatusRequest struct {
	Status string `json:"status"`
}

// ItemHandler handles item HTTP requests.
type ItemHandler struct {
	itemService services.ItemService
	logger      *zap.Logger
}

// NewItemHandler creates a new item handler.
func NewItemHandler(itemService services.ItemService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		itemService: itemService,
		logger:      logger,
	}
}

// RegisterRoutes registers the item handler's routes on the given mux.
func (h *ItemHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/items",
		authMiddleware.RequireAuth(tenantMiddleware(h.List)))
	mux.HandleFunc("POST /api/items",
		authMiddleware.RequireAuth(tenantMiddleware(h.Create)))
	mux.HandleFunc("GET /api/items/{id}",
		authMiddleware.RequireAuth(tenantMiddleware(h.Get)))
	mux.HandleFunc("PATCH /api/items/{id}/status",
		authMiddleware.RequireAuth(tenantMiddleware(h.UpdateStatus)))
	mux.HandleFunc("POST /api/items/{id}/maintenance",
		authMiddleware.RequireAuth(tenantMiddleware(h.RecordMaintenance)))
}

// List handles GET /api/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	response := ItemListResponse{
		Items: items,
		Total: len(items),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, ok := ParseItemID(w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.itemService.Get(r.Context(), itemID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: item}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	item, err := h.itemService.Create(r.Context(), input)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: item}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStatus handles PATCH /api/items/{id}/status
func (h *ItemHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	itemID, ok := ParseItemID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	item, err := h.itemService.UpdateStatus(r.Context(), itemID, req.Status)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: item}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RecordMaintenance handles POST /api/items/{id}/maintenance
func (h *ItemHandler) RecordMaintenance(w http.ResponseWriter, r *http.Request) {
	itemID, ok := ParseItemID(w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.itemService.RecordMaintenance(r.Context(), itemID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: item}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/services"
)

// ItemTypeListResponse for GET /api/item-types
type ItemTypeListResponse struct {
	Types []*models.ItemType `json:"types"`
	Total int                `json:"total"`
}

// ItemTypeHandler handles item type catalog HTTP requests.
type ItemTypeHandler struct {
	typeService services.ItemTypeService
	logger      *zap.Logger
}

// NewItemTypeHandler creates a new item type handler.
func NewItemTypeHandler(typeService services.ItemTypeService, logger *zap.Logger) *ItemTypeHandler {
	return &ItemTypeHandler{
		typeService: typeService,
		logger:      logger,
	}
}

// RegisterRoutes registers the item type handler's routes on the given mux.
func (h *ItemTypeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/item-types",
		authMiddleware.RequireAuth(tenantMiddleware(h.List)))
	mux.HandleFunc("POST /api/item-types",
		authMiddleware.RequireAuth(tenantMiddleware(h.CreateCustom)))
	mux.HandleFunc("POST /api/item-types/{id}/adopt",
		authMiddleware.RequireAuth(tenantMiddleware(h.Adopt)))
}

// List handles GET /api/item-types. Returns system types alongside the
// org's adopted and custom types.
func (h *ItemTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.typeService.List(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	response := ItemTypeListResponse{
		Types: types,
		Total: len(types),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Adopt handles POST /api/item-types/{id}/adopt
func (h *ItemTypeHandler) Adopt(w http.ResponseWriter, r *http.Request) {
	typeID, ok := ParseTypeID(w, r, h.logger)
	if !ok {
		return
	}

	adopted, err := h.typeService.Adopt(r.Context(), typeID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: adopted}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CreateCustom handles POST /api/item-types
func (h *ItemTypeHandler) CreateCustom(w http.ResponseWriter, r *http.Request) {
	var input services.CreateItemTypeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	itemType, err := h.typeService.CreateCustom(r.Context(), input)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: itemType}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

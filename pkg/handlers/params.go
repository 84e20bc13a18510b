package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseItemID extracts and validates the numeric item ID from the request
// path. Returns the ID and true on success, or 0 and false after writing
// an error response. Expects path parameter: id
func ParseItemID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parseInt64(w, r, "id", "invalid_item_id", "Invalid item ID", logger)
}

// ParseIssueID extracts and validates the numeric issue ID from the
// request path. Expects path parameter: id
func ParseIssueID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parseInt64(w, r, "id", "invalid_issue_id", "Invalid issue ID", logger)
}

// ParseTypeID extracts and validates the numeric item type ID from the
// request path. Expects path parameter: id
func ParseTypeID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parseInt64(w, r, "id", "invalid_type_id", "Invalid item type ID", logger)
}

// ParseItemUID extracts and validates the public item UID from the request
// path. Expects path parameter: uid
func ParseItemUID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	uidStr := r.PathValue("uid")
	uid, err := uuid.Parse(uidStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_item_uid", "Invalid item UID format"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return uid, true
}

func parseInt64(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (int64, bool) {
	idStr := r.PathValue(pathParam)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/services"
)

// SummaryFrame is one SSE frame of the streamed fleet summary.
type SummaryFrame struct {
	Type        string            `json:"type"` // "chunk", "complete" or "error"
	Content     string            `json:"content,omitempty"`
	Accumulated string            `json:"accumulated,omitempty"`
	Data        *services.Summary `json:"data,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// InsightHandler handles insight and summary HTTP requests.
type InsightHandler struct {
	insightService services.InsightService
	summaryService services.SummaryService
	logger         *zap.Logger
}

// NewInsightHandler creates a new insight handler.
func NewInsightHandler(insightService services.InsightService, summaryService services.SummaryService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		insightService: insightService,
		summaryService: summaryService,
		logger:         logger,
	}
}

// RegisterRoutes registers the insight handler's routes on the given mux.
func (h *InsightHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/insights",
		authMiddleware.RequireAuth(tenantMiddleware(h.List)))
	mux.HandleFunc("POST /api/insights/summary",
		authMiddleware.RequireAuth(tenantMiddleware(h.StreamSummary)))
}

// List handles GET /api/insights
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.insightService.Generate(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// StreamSummary handles POST /api/insights/summary using Server-Sent
// Events. Text chunks stream as they arrive from the model, followed by a
// terminal frame with the parsed summary. Model failures still produce a
// terminal "complete" frame carrying the fallback summary.
func (h *InsightHandler) StreamSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("SSE not supported")
		if err := ErrorResponse(w, http.StatusInternalServerError, "sse_unsupported", "SSE not supported"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	chunks := make(chan string, 100)

	type streamResult struct {
		summary *services.Summary
		err     error
	}
	resultChan := make(chan streamResult, 1)

	go func() {
		summary, err := h.summaryService.Stream(r.Context(), chunks)
		resultChan <- streamResult{summary: summary, err: err}
	}()

	var accumulated string
	for chunk := range chunks {
		accumulated += chunk
		h.writeFrame(w, flusher, SummaryFrame{
			Type:        "chunk",
			Content:     chunk,
			Accumulated: accumulated,
		})
	}

	result := <-resultChan
	if result.err != nil {
		h.logger.Error("Summary stream failed", zap.Error(result.err))
		h.writeFrame(w, flusher, SummaryFrame{
			Type:  "error",
			Error: "failed to generate summary",
		})
		return
	}

	h.writeFrame(w, flusher, SummaryFrame{
		Type: "complete",
		Data: result.summary,
	})
}

func (h *InsightHandler) writeFrame(w http.ResponseWriter, flusher http.Flusher, frame SummaryFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to marshal SSE frame", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

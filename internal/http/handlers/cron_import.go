package handlers

import (
	"net/http"
	"strings"
	"time"

	"courier-reconciliation-service/internal/queue"
	"courier-reconciliation-service/pkg/response"

	"go.uber.org/zap"
)

// CronImportOrders pulls storefront orders. With a job queue configured the
// run is handed to the import worker, otherwise it runs inline.
func (h *Handler) CronImportOrders(w http.ResponseWriter, r *http.Request) {
	startedAt := h.now().UTC()

	var since *time.Time
	if v := strings.TrimSpace(r.URL.Query().Get("since")); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "since must be RFC3339")
			return
		}
		since = &parsed
	}

	if h.Queue != nil && r.URL.Query().Get("inline") != "true" {
		job := queue.ImportJob{Kind: queue.ImportJobKind, CreatedAt: startedAt.Format(time.RFC3339), Attempt: 1}
		if since != nil {
			job.Since = since.UTC().Format(time.RFC3339)
		}
		if err := h.Queue.PublishJSON(r.Context(), queue.ImportJobsExchange, queue.ImportJobsRK, job); err != nil {
			h.logger().Error("import job enqueue failed", zap.Error(err))
			response.Error(w, http.StatusBadGateway, "QUEUE_ERROR", "Failed to enqueue import job")
			return
		}
		response.JSON(w, http.StatusAccepted, map[string]any{
			"success":   true,
			"queued":    true,
			"startedAt": startedAt,
		})
		return
	}

	if h.Importer == nil {
		response.JSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"disabled":  true,
			"startedAt": startedAt,
			"endedAt":   h.now().UTC(),
		})
		return
	}

	summary, err := h.Importer.Run(r.Context(), since)
	if err != nil {
		h.logger().Error("order import failed", zap.Error(err))
		response.Error(w, http.StatusBadGateway, "IMPORT_FAILED", "Order import failed")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"success":   summary.Failed == 0,
		"disabled":  false,
		"summary":   summary,
		"startedAt": startedAt,
		"endedAt":   h.now().UTC(),
	})
}

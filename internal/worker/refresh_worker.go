package worker

import (
	"context"
	"fmt"
	"log/slog"

	"grantcuts/internal/amqp"
	"grantcuts/internal/services"
)

// RefreshWorker re-runs the pipeline whenever a refresh request arrives.
type RefreshWorker struct {
	service *services.PipelineService
}

func NewRefreshWorker(service *services.PipelineService) *RefreshWorker {
	return &RefreshWorker{service: service}
}

// HandleRefreshRequest processes a single refresh request from AMQP.
func (w *RefreshWorker) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequest) error {
	slog.InfoContext(ctx, "Processing refresh request",
		"request_id", msg.RequestID,
		"requested_by", msg.RequestedBy,
		"reason", msg.Reason)

	report, err := w.service.Run(ctx)
	if err != nil {
		return fmt.Errorf("run pipeline for request %s: %w", msg.RequestID, err)
	}

	slog.InfoContext(ctx, "Refresh request completed",
		"request_id", msg.RequestID,
		"run_id", report.RunID,
		"awards", report.AwardsTotal,
		"degraded", report.Degraded)

	return nil
}

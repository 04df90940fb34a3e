package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/martpedro/Admin-CRM-sub000/internal/quotations"
)

// ViewsWarmupJob re-primes the cached quotation list views by reading
// them through the service, which repopulates any view dropped by a
// coordinator invalidation.
type ViewsWarmupJob struct {
	Service *quotations.Service
	Logger  *slog.Logger
}

// NewViewsWarmupJob initialises the warmup handler.
func NewViewsWarmupJob(service *quotations.Service, logger *slog.Logger) *ViewsWarmupJob {
	return &ViewsWarmupJob{Service: service, Logger: logger}
}

// Handle executes the warmup.
func (j *ViewsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("views warmup: handler not configured")
	}
	var payload ViewsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(slog.String("scope", payload.Scope))
	start := time.Now()

	warmed := 0
	if payload.Scope == "" || payload.Scope == "all" {
		if _, _, err := j.Service.List(ctx, quotations.ListQuotationsRequest{}); err != nil {
			logger.Warn("warm unfiltered list", slog.Any("error", err))
		} else {
			warmed++
		}
	}
	for _, status := range quotations.AllStatuses {
		if payload.Scope != "" && payload.Scope != "all" && payload.Scope != string(status) {
			continue
		}
		status := status
		if _, _, err := j.Service.List(ctx, quotations.ListQuotationsRequest{Status: &status}); err != nil {
			logger.Warn("warm status list", slog.String("status", string(status)), slog.Any("error", err))
			continue
		}
		warmed++
	}

	logger.Info("completed views warmup",
		slog.Int("views", warmed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *ViewsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

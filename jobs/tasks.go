// Package jobs contains the background worker harness and task handlers.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every task is enqueued on.
	QueueDefault = "default"

	// TaskViewsWarmup re-primes the cached quotation list views after a
	// bulk invalidation, so the first reader does not pay the refetch.
	TaskViewsWarmup = "quotations:views:warmup"
)

// ViewsWarmupPayload selects which views to warm. An empty scope warms
// the unfiltered list and every per-status list.
type ViewsWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewViewsWarmupTask constructs an Asynq task for view warmup.
func NewViewsWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(ViewsWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskViewsWarmup, data, asynq.Queue(QueueDefault)), nil
}

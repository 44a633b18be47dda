package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLookupWarmup loads every product, tax and currency into the lookup cache.
	TaskLookupWarmup = "lookup:warmup"
	// TaskLookupCacheBump invalidates cached lookups after master data changes.
	TaskLookupCacheBump = "lookup:cache_bump"
)

// LookupWarmupPayload configures a warmup run.
type LookupWarmupPayload struct {
	// Invalidate bumps the cache version before warming.
	Invalidate bool `json:"invalidate,omitempty"`
}

// LookupCacheBumpPayload records why master data caches are being dropped.
type LookupCacheBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewLookupWarmupTask constructs a warmup task.
func NewLookupWarmupTask(invalidate bool) (*asynq.Task, error) {
	data, err := json.Marshal(LookupWarmupPayload{Invalidate: invalidate})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLookupWarmup, data), nil
}

// NewLookupCacheBumpTask constructs a cache bump task.
func NewLookupCacheBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(LookupCacheBumpPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLookupCacheBump, data), nil
}

package telegram

import (
	"context"
	"sync"

	"coach-planner/internal/planner"
	"coach-planner/internal/shared"
)

// ContextBloatThreshold is the prompt size that triggers an admin alert.
const ContextBloatThreshold = 4000

// AlertingRecorder forwards generator metadata to a recorder and raises an
// admin alert when a prompt grows past the threshold. The notifier is
// attached once the bot exists.
type AlertingRecorder struct {
	next      planner.MetaRecorder
	threshold int

	mu     sync.RWMutex
	notify func(text string)
}

// NewAlertingRecorder wraps next.
func NewAlertingRecorder(next planner.MetaRecorder, threshold int) *AlertingRecorder {
	return &AlertingRecorder{next: next, threshold: threshold}
}

// Attach sets the function alerts are delivered to.
func (r *AlertingRecorder) Attach(notify func(text string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
}

// RecordMeta implements planner.MetaRecorder.
func (r *AlertingRecorder) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	err := r.next.RecordMeta(ctx, meta)
	if meta.Usage.PromptTokens > r.threshold {
		r.mu.RLock()
		notify := r.notify
		r.mu.RUnlock()
		if notify != nil {
			notify(formatBloatAlert(meta))
		}
	}
	return err
}

var _ planner.MetaRecorder = (*AlertingRecorder)(nil)

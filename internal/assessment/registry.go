package assessment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
)

type entry struct {
	mu         sync.Mutex
	assessment *Assessment
}

// Registry holds the open assessments of a server process. Each assessment
// is guarded by its own lock, so one request at a time edits a given draft.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Add registers a and returns its view.
func (r *Registry) Add(a *Assessment) View {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[a.ID()] = &entry{assessment: a}
	return a.View()
}

// View returns the current state of the assessment with id.
func (r *Registry) View(id string) (View, error) {
	var v View
	err := r.Do(id, func(a *Assessment) error {
		v = a.View()
		return nil
	})
	return v, err
}

// Do runs fn with exclusive access to the assessment with id.
func (r *Registry) Do(id string, fn func(a *Assessment) error) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return apperrors.NewNotFoundError(apperrors.CodeAssessmentNotFound, "assessment", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.assessment)
}

// Remove discards the assessment with id. Persisted snapshots are not affected.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Len returns the number of open assessments.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes finalized assessments whose snapshot was taken before cutoff
// and returns how many it removed. Drafts are never swept.
func (r *Registry) Sweep(cutoff time.Time) int {
	r.mu.RLock()
	candidates := make(map[string]*entry, len(r.entries))
	for id, e := range r.entries {
		candidates[id] = e
	}
	r.mu.RUnlock()

	expired := make([]string, 0)
	for id, e := range candidates {
		e.mu.Lock()
		snapshot := e.assessment.snapshot
		e.mu.Unlock()
		if snapshot != nil && snapshot.FinalizedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, id := range expired {
		if r.entries[id] == candidates[id] {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps finalized assessments older than retention every interval
// until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := r.Sweep(now().Add(-retention)); removed > 0 {
				slog.Debug("Swept finalized assessments", "removed", removed, "remaining", r.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}

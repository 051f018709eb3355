// Package history records finished conversion jobs for operator
// inspection. Sessions themselves are never persisted; history is an
// audit log, not session state.
package history

import (
	"context"
	"time"
)

// JobRecord describes one completed (or failed) conversion.
type JobRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "audiobook", "storybook", "storybook_session"
	Outcome    string    `json:"outcome"`
	SceneCount int       `json:"scene_count,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists and retrieves job records.
type Store interface {
	SaveJob(ctx context.Context, record JobRecord) error
	RecentJobs(ctx context.Context, limit int) ([]JobRecord, error)
	Close() error
}

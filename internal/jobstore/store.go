// Package jobstore persists conversion and update run history.
package jobstore

import (
	"context"
	"time"
)

// Job kinds.
const (
	KindConvert = "convert"
	KindUpdate  = "update"
)

// Job statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is one conversion or update run.
type Record struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Version     string    `json:"version,omitempty"`
	Objects     int       `json:"objects"`
	Rows        int       `json:"rows"`
	Edits       int       `json:"edits"`
	Status      string    `json:"status"`
	Warning     string    `json:"warning,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	ArtifactKey string    `json:"artifact_key,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the persistence interface for job records. Implementations
// return apperr.ErrNotFound for unknown ids.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, int, error)
	Close() error
}

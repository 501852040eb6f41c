// Package storage records window runs so that concatenation only ingests partitions
// whose run completed.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/radlabel/internal/models"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("run not found")

// Ledger defines window run persistence operations.
type Ledger interface {
	// BeginRun records a run in the running state.
	BeginRun(ctx context.Context, run *models.WindowRun) error
	// CompleteRun marks a run completed with the partition it wrote and that file's digest.
	CompleteRun(ctx context.Context, id, partitionPath, digest string) error
	// FailRun marks a run failed with the reason.
	FailRun(ctx context.Context, id, reason string) error

	GetRun(ctx context.Context, id string) (*models.WindowRun, error)
	// LatestRun returns the most recently begun run of a window.
	LatestRun(ctx context.Context, inputPath string, windowIndex int) (*models.WindowRun, error)
	// ListLatestRuns returns the most recent run of every window of an input, by window index.
	ListLatestRuns(ctx context.Context, inputPath string) ([]*models.WindowRun, error)

	Close() error
}

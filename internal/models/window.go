package models

import "time"

// Window is a contiguous half-open row range [Start, End) of the source table.
type Window struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows in the window.
func (w Window) Len() int { return w.End - w.Start }

// Chunk is a contiguous half-open range of a window. Offset equals Start and is relative to the window.
type Chunk struct {
	Offset int `json:"offset"`
	End    int `json:"end"`
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int { return c.End - c.Offset }

// RunStatus is the lifecycle state of a window run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// WindowRun records one labeling run of a window.
type WindowRun struct {
	ID            string     `json:"id" db:"id"`
	InputPath     string     `json:"input_path" db:"input_path"`
	WindowIndex   int        `json:"window_index" db:"window_index"`
	RowStart      int        `json:"row_start" db:"row_start"`
	RowEnd        int        `json:"row_end" db:"row_end"`
	ChunkCount    int        `json:"chunk_count" db:"chunk_count"`
	Status        RunStatus  `json:"status" db:"status"`
	PartitionPath string     `json:"partition_path,omitempty" db:"partition_path"`
	Digest        string     `json:"digest,omitempty" db:"digest"`
	Error         string     `json:"error,omitempty" db:"error"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// Rows returns the number of rows covered by the run.
func (r *WindowRun) Rows() int { return r.RowEnd - r.RowStart }

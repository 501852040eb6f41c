// Package job runs one labeling window end to end and concatenates finished windows.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/radlabel/internal/config"
	"github.com/hyperjump/radlabel/internal/merge"
	"github.com/hyperjump/radlabel/internal/metrics"
	"github.com/hyperjump/radlabel/internal/models"
	"github.com/hyperjump/radlabel/internal/pipeline"
	"github.com/hyperjump/radlabel/internal/storage"
	"github.com/hyperjump/radlabel/internal/table"
	"go.uber.org/zap"
)

// Job labels windows of the configured input table and records every run in the ledger.
type Job struct {
	cfg       *config.Config
	scheduler *pipeline.Scheduler
	ledger    storage.Ledger
	metrics   *metrics.Metrics
	logger    *zap.Logger // optional; when set, logs run events
}

// Option configures a Job.
type Option func(*Job)

// WithLogger sets a logger for run events.
func WithLogger(l *zap.Logger) Option {
	return func(j *Job) { j.logger = l }
}

// WithMetrics records window runs, chunk outcomes and written labels.
func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// New creates a job over cfg. cfg must pass Validate.
func New(cfg *config.Config, engines pipeline.Engines, ledger storage.Ledger, opts ...Option) (*Job, error) {
	if ledger == nil {
		return nil, errors.New("job: ledger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	j := &Job{cfg: cfg, ledger: ledger}
	for _, opt := range opts {
		opt(j)
	}
	sched, err := pipeline.NewScheduler(engines, cfg.Batch.ChunkSize,
		pipeline.WithWorkers(cfg.Batch.Workers),
		pipeline.WithLogger(j.logger),
		pipeline.WithMetrics(j.metrics),
	)
	if err != nil {
		return nil, err
	}
	j.scheduler = sched
	return j, nil
}

// RunWindow labels window index and persists its partition. An index outside the table
// fails with pipeline.ErrWindowOutOfRange before any labeling starts. On any later failure
// the run is marked failed in the ledger and no partition is written.
func (j *Job) RunWindow(ctx context.Context, index int) (*models.WindowRun, error) {
	tbl, err := table.Read(j.cfg.Input.Path)
	if err != nil {
		return nil, err
	}
	w, err := pipeline.SelectWindow(tbl.Len(), j.cfg.Batch.WindowSize, index)
	if err != nil {
		return nil, err
	}
	window := tbl.Window(w)
	reports, err := window.Reports(j.cfg.Input.IDColumn, j.cfg.Input.ReportColumn)
	if err != nil {
		return nil, err
	}

	run := &models.WindowRun{
		ID:          uuid.New().String(),
		InputPath:   j.cfg.Input.Path,
		WindowIndex: w.Index,
		RowStart:    w.Start,
		RowEnd:      w.End,
		ChunkCount:  len(pipeline.Chunks(w.Len(), j.cfg.Batch.ChunkSize)),
	}
	if err := j.ledger.BeginRun(ctx, run); err != nil {
		return nil, err
	}
	if j.logger != nil {
		j.logger.Info("window run started",
			zap.String("run", run.ID), zap.Int("window", w.Index),
			zap.Int("row_start", w.Start), zap.Int("row_end", w.End), zap.Int("chunks", run.ChunkCount))
	}

	lt, err := j.label(ctx, window, reports)
	if err == nil {
		run.PartitionPath = merge.PartitionPath(j.cfg.Input.Path, w.Index)
		run.Digest, err = merge.WritePartition(run.PartitionPath, lt)
	}
	if err != nil {
		return nil, j.fail(ctx, run, err)
	}

	if err := j.ledger.CompleteRun(ctx, run.ID, run.PartitionPath, run.Digest); err != nil {
		return nil, err
	}
	finished := time.Now().UTC()
	run.Status, run.FinishedAt = models.RunCompleted, &finished
	j.metrics.ObserveWindowRun(string(models.RunCompleted))
	j.observeLabels(lt)
	if j.logger != nil {
		j.logger.Info("window run completed",
			zap.String("run", run.ID), zap.Int("window", w.Index),
			zap.String("partition", run.PartitionPath), zap.Duration("elapsed", finished.Sub(run.StartedAt)))
	}
	return run, nil
}

func (j *Job) label(ctx context.Context, window *table.Table, reports []models.Report) (*merge.LabeledTable, error) {
	results, err := j.scheduler.Run(ctx, reports)
	if err != nil {
		return nil, err
	}
	lt, err := merge.Fill(window, j.scheduler.Categories(), results)
	if err != nil {
		return nil, err
	}
	normalized := pipeline.NormalizeReports(reports)
	texts := make([]string, len(normalized))
	for i, r := range normalized {
		texts[i] = r.Text
	}
	if err := lt.SetColumn(j.cfg.Input.ReportColumn, texts); err != nil {
		return nil, err
	}
	return lt, nil
}

// fail records the failure and returns cause. The ledger update ignores ctx cancellation
// so that an interrupted run is still marked failed.
func (j *Job) fail(ctx context.Context, run *models.WindowRun, cause error) error {
	j.metrics.ObserveWindowRun(string(models.RunFailed))
	if err := j.ledger.FailRun(context.WithoutCancel(ctx), run.ID, cause.Error()); err != nil && j.logger != nil {
		j.logger.Error("failed to record run failure", zap.String("run", run.ID), zap.Error(err))
	}
	if j.logger != nil {
		j.logger.Error("window run failed", zap.String("run", run.ID), zap.Int("window", run.WindowIndex), zap.Error(cause))
	}
	return cause
}

func (j *Job) observeLabels(lt *merge.LabeledTable) {
	if j.metrics == nil {
		return
	}
	categories := j.scheduler.Categories()
	for i := 0; i < lt.Len(); i++ {
		for ci, l := range lt.Labels(i) {
			j.metrics.ObserveLabel(categories[ci], l.Name())
		}
	}
}

// Concatenate writes the final table from every partition whose latest run completed.
func (j *Job) Concatenate(ctx context.Context) (*merge.ConcatResult, error) {
	res, err := merge.Concatenate(ctx, merge.ConcatOptions{
		InputPath:    j.cfg.Input.Path,
		OutputPath:   j.cfg.Output.Path,
		ReportColumn: j.cfg.Input.ReportColumn,
		IDColumn:     j.cfg.Input.IDColumn,
		Categories:   j.cfg.Categories,
		Runs:         j.ledger,
		Logger:       j.logger,
	})
	if err != nil {
		return nil, err
	}
	if j.logger != nil {
		j.logger.Info("partitions concatenated",
			zap.String("output", res.OutputPath), zap.Int("partitions", len(res.Partitions)),
			zap.Int("skipped", len(res.Skipped)), zap.Int("rows", res.Rows))
	}
	return res, nil
}

// FlushMetrics writes the metrics textfile when one is configured.
func (j *Job) FlushMetrics() error {
	if j.metrics == nil || j.cfg.Metrics.TextfilePath == "" {
		return nil
	}
	return j.metrics.WriteTextfile(j.cfg.Metrics.TextfilePath)
}

// Plan describes how the input table splits into windows.
type Plan struct {
	InputPath  string          `json:"input_path"`
	TotalRows  int             `json:"total_rows"`
	WindowSize int             `json:"window_size"`
	ChunkSize  int             `json:"chunk_size"`
	Windows    []models.Window `json:"windows"`
}

// Plan reads the input table and returns its window layout.
func (j *Job) Plan() (*Plan, error) {
	tbl, err := table.Read(j.cfg.Input.Path)
	if err != nil {
		return nil, err
	}
	return &Plan{
		InputPath:  j.cfg.Input.Path,
		TotalRows:  tbl.Len(),
		WindowSize: j.cfg.Batch.WindowSize,
		ChunkSize:  j.cfg.Batch.ChunkSize,
		Windows:    pipeline.Windows(tbl.Len(), j.cfg.Batch.WindowSize),
	}, nil
}

// WindowStatus joins a planned window with its latest run and partition file.
type WindowStatus struct {
	Window          models.Window     `json:"window"`
	Run             *models.WindowRun `json:"run,omitempty"`
	PartitionPath   string            `json:"partition_path"`
	PartitionExists bool              `json:"partition_exists"`
}

// Status returns the state of every window of the plan.
func (j *Job) Status(ctx context.Context) ([]WindowStatus, error) {
	plan, err := j.Plan()
	if err != nil {
		return nil, err
	}
	runs, err := j.ledger.ListLatestRuns(ctx, j.cfg.Input.Path)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]*models.WindowRun, len(runs))
	for _, r := range runs {
		byIndex[r.WindowIndex] = r
	}
	out := make([]WindowStatus, len(plan.Windows))
	for i, w := range plan.Windows {
		out[i] = j.windowStatus(w, byIndex[w.Index])
	}
	return out, nil
}

// WindowStatus returns the state of one window.
func (j *Job) WindowStatus(ctx context.Context, index int) (*WindowStatus, error) {
	plan, err := j.Plan()
	if err != nil {
		return nil, err
	}
	w, err := pipeline.SelectWindow(plan.TotalRows, plan.WindowSize, index)
	if err != nil {
		return nil, err
	}
	run, err := j.ledger.LatestRun(ctx, j.cfg.Input.Path, index)
	if err != nil && !errors.Is(err, storage.ErrRunNotFound) {
		return nil, err
	}
	st := j.windowStatus(w, run)
	return &st, nil
}

func (j *Job) windowStatus(w models.Window, run *models.WindowRun) WindowStatus {
	path := merge.PartitionPath(j.cfg.Input.Path, w.Index)
	_, err := os.Stat(path)
	return WindowStatus{Window: w, Run: run, PartitionPath: path, PartitionExists: err == nil}
}

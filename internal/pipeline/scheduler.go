package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/hyperjump/radlabel/internal/metrics"
	"github.com/hyperjump/radlabel/internal/models"
	"github.com/hyperjump/radlabel/internal/normalize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scheduler labels the reports of one window chunk by chunk.
type Scheduler struct {
	engines   Engines
	chunkSize int
	workers   int
	logger    *zap.Logger // optional; when set, logs debug events
	metrics   *metrics.Metrics
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets a logger for per-chunk debug output.
func WithLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithWorkers sets how many chunks run concurrently. n <= 0 uses runtime.NumCPU().
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) { s.workers = n }
}

// WithMetrics records chunk outcomes and durations.
func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a scheduler over the given engines. All four engines are required.
func NewScheduler(engines Engines, chunkSize int, opts ...SchedulerOption) (*Scheduler, error) {
	if engines.Splitter == nil || engines.Extractor == nil || engines.Classifier == nil || engines.Aggregator == nil {
		return nil, errors.New("scheduler: splitter, extractor, classifier and aggregator are required")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("scheduler: chunk size must be positive, got %d", chunkSize)
	}
	s := &Scheduler{engines: engines, chunkSize: chunkSize}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.NumCPU()
	}
	return s, nil
}

// Categories returns the aggregator's fixed category order.
func (s *Scheduler) Categories() []string {
	return s.engines.Aggregator.Categories()
}

// Run labels reports (one window, in row order) and returns one result per chunk in offset order.
// Chunks run concurrently; the first failure cancels the remaining chunks and is returned.
func (s *Scheduler) Run(ctx context.Context, reports []models.Report) ([]models.ChunkResult, error) {
	chunks := Chunks(len(reports), s.chunkSize)
	results := make([]models.ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.RunChunk(gctx, c, reports[c.Offset:c.End])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunChunk labels the reports of a single chunk. reports must be the chunk's rows.
func (s *Scheduler) RunChunk(ctx context.Context, chunk models.Chunk, reports []models.Report) (models.ChunkResult, error) {
	start := time.Now()
	res, err := s.runChunk(ctx, chunk, reports)
	s.metrics.ObserveChunk(len(reports), time.Since(start), err)
	if s.logger != nil {
		if err != nil {
			s.logger.Debug("chunk failed", zap.Int("offset", chunk.Offset), zap.Int("reports", len(reports)), zap.Error(err))
		} else {
			s.logger.Debug("chunk labeled", zap.Int("offset", chunk.Offset), zap.Int("reports", len(reports)), zap.Duration("elapsed", time.Since(start)))
		}
	}
	return res, err
}

func (s *Scheduler) runChunk(ctx context.Context, chunk models.Chunk, reports []models.Report) (models.ChunkResult, error) {
	if len(reports) != chunk.Len() {
		return models.ChunkResult{}, &ChunkError{Offset: chunk.Offset, Stage: "gather",
			Err: fmt.Errorf("got %d reports for a chunk of %d rows", len(reports), chunk.Len())}
	}
	docs := make([]*models.Document, len(reports))
	for i, r := range reports {
		doc := s.engines.Splitter.Split(strconv.Itoa(i), normalize.Normalize(r.Text))
		if n := len(doc.Passages); n != 1 {
			return models.ChunkResult{}, &StructuralError{Offset: chunk.Offset, Row: chunk.Offset + i, ReportID: r.ID, Passages: n}
		}
		docs[i] = doc
	}
	if err := ctx.Err(); err != nil {
		return models.ChunkResult{}, err
	}
	if err := s.engines.Extractor.Extract(docs); err != nil {
		return models.ChunkResult{}, &ChunkError{Offset: chunk.Offset, Stage: "extract", Err: err}
	}
	if err := s.engines.Classifier.Classify(docs); err != nil {
		return models.ChunkResult{}, &ChunkError{Offset: chunk.Offset, Stage: "classify", Err: err}
	}
	if s.logger != nil {
		mentions := 0
		for _, d := range docs {
			mentions += d.AnnotationCount()
		}
		s.logger.Debug("chunk classified", zap.Int("offset", chunk.Offset), zap.Int("mentions", mentions))
	}
	labels, err := s.engines.Aggregator.Aggregate(docs)
	if err != nil {
		return models.ChunkResult{}, &ChunkError{Offset: chunk.Offset, Stage: "aggregate", Err: err}
	}
	if err := checkShape(labels, len(docs), len(s.engines.Aggregator.Categories())); err != nil {
		return models.ChunkResult{}, &ChunkError{Offset: chunk.Offset, Stage: "aggregate", Err: err}
	}
	return models.ChunkResult{Offset: chunk.Offset, Labels: labels}, nil
}

func checkShape(m models.LabelMatrix, rows, cols int) error {
	if r, _ := m.Shape(); r != rows {
		return fmt.Errorf("label matrix has %d rows, want %d", r, rows)
	}
	for i, v := range m {
		if len(v) != cols {
			return fmt.Errorf("label row %d has %d categories, want %d", i, len(v), cols)
		}
	}
	return nil
}

// NormalizeReports returns a copy of reports with normalized text.
func NormalizeReports(reports []models.Report) []models.Report {
	out := make([]models.Report, len(reports))
	for i, r := range reports {
		r.Text = normalize.Normalize(r.Text)
		out[i] = r
	}
	return out
}

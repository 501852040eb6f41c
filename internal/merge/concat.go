package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperjump/radlabel/internal/models"
	"github.com/hyperjump/radlabel/internal/storage"
	"github.com/hyperjump/radlabel/internal/table"
	"go.uber.org/zap"
)

// RunLookup finds the latest run of a window. *storage.SQLiteLedger satisfies it.
type RunLookup interface {
	LatestRun(ctx context.Context, inputPath string, windowIndex int) (*models.WindowRun, error)
}

// ConcatOptions configures Concatenate.
type ConcatOptions struct {
	InputPath    string
	OutputPath   string
	ReportColumn string
	IDColumn     string
	Categories   []string
	// Runs, when set, restricts concatenation to partitions whose latest run completed
	// and whose content still matches the recorded digest.
	Runs   RunLookup
	Logger *zap.Logger
}

// ConcatResult describes a concatenation.
type ConcatResult struct {
	OutputPath string   `json:"output_path"`
	Partitions []string `json:"partitions"`
	Skipped    []string `json:"skipped,omitempty"`
	Rows       int      `json:"rows"`
	Digest     string   `json:"digest"`
}

// Concatenate unions all partitions of opts.InputPath in window index order and writes the
// report, id and category columns to opts.OutputPath.
func Concatenate(ctx context.Context, opts ConcatOptions) (*ConcatResult, error) {
	if len(opts.Categories) == 0 {
		return nil, errors.New("concatenate: no categories")
	}
	paths, err := DiscoverPartitions(opts.InputPath)
	if err != nil {
		return nil, err
	}

	header := append([]string{opts.ReportColumn, opts.IDColumn}, opts.Categories...)
	out := &table.Table{Header: header}
	res := &ConcatResult{OutputPath: opts.OutputPath}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Runs != nil {
			ok, err := verifyPartition(ctx, opts, path)
			if err != nil {
				return nil, err
			}
			if !ok {
				res.Skipped = append(res.Skipped, path)
				continue
			}
		}
		part, err := table.Read(path)
		if err != nil {
			return nil, fmt.Errorf("partition %s: %w", filepath.Base(path), err)
		}
		cols := make([]int, len(header))
		for i, name := range header {
			if cols[i], err = part.Column(name); err != nil {
				return nil, fmt.Errorf("partition %s: %w", filepath.Base(path), err)
			}
		}
		for _, row := range part.Rows {
			selected := make([]string, len(cols))
			for i, c := range cols {
				selected[i] = row[c]
			}
			out.Rows = append(out.Rows, selected)
		}
		res.Partitions = append(res.Partitions, path)
		if opts.Logger != nil {
			opts.Logger.Debug("partition appended", zap.String("path", path), zap.Int("rows", part.Len()))
		}
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, out); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(opts.OutputPath, buf.Bytes()); err != nil {
		return nil, err
	}
	res.Rows = out.Len()
	res.Digest = digest(buf.Bytes())
	return res, nil
}

// DiscoverPartitions returns the partition files of input ordered by window index, then file name.
// Files in the input directory whose name does not carry a window index are ignored.
func DiscoverPartitions(input string) ([]string, error) {
	dir := filepath.Dir(input)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read partition directory: %w", err)
	}
	type partition struct {
		index int
		path  string
	}
	var found []partition
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if index, ok := PartitionIndex(input, path); ok {
			found = append(found, partition{index: index, path: path})
		}
	}
	sort.Slice(found, func(a, b int) bool {
		if found[a].index != found[b].index {
			return found[a].index < found[b].index
		}
		return found[a].path < found[b].path
	})
	paths := make([]string, len(found))
	for i, p := range found {
		paths[i] = p.path
	}
	return paths, nil
}

func verifyPartition(ctx context.Context, opts ConcatOptions, path string) (bool, error) {
	index, _ := PartitionIndex(opts.InputPath, path)
	run, err := opts.Runs.LatestRun(ctx, opts.InputPath, index)
	if errors.Is(err, storage.ErrRunNotFound) {
		if opts.Logger != nil {
			opts.Logger.Warn("skipping partition without a recorded run", zap.String("path", path))
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up run for window %d: %w", index, err)
	}
	if run.Status != models.RunCompleted {
		if opts.Logger != nil {
			opts.Logger.Warn("skipping partition of unfinished run",
				zap.String("path", path), zap.String("run", run.ID), zap.String("status", string(run.Status)))
		}
		return false, nil
	}
	if run.Digest == "" {
		return true, nil
	}
	got, err := FileDigest(path)
	if err != nil {
		return false, err
	}
	if got != run.Digest {
		return false, fmt.Errorf("partition %s does not match run %s: digest %s, recorded %s",
			filepath.Base(path), run.ID, got, run.Digest)
	}
	return true, nil
}

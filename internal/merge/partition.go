package merge

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/radlabel/internal/table"
)

const partitionSuffix = "_labeled.csv"

// PartitionPath returns the partition file for window index of input:
// <dir>/<stem>_<index>_labeled.csv with the index zero-padded to five digits.
func PartitionPath(input string, index int) string {
	dir, stem := splitInput(input)
	return filepath.Join(dir, fmt.Sprintf("%s_%05d%s", stem, index, partitionSuffix))
}

// PartitionIndex parses the window index from a partition file name of input.
func PartitionIndex(input, path string) (int, bool) {
	_, stem := splitInput(input)
	name := filepath.Base(path)
	if !strings.HasPrefix(name, stem+"_") || !strings.HasSuffix(name, partitionSuffix) {
		return 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, stem+"_"), partitionSuffix)
	if middle == "" {
		return 0, false
	}
	for _, r := range middle {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(middle)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitInput(input string) (dir, stem string) {
	base := filepath.Base(input)
	return filepath.Dir(input), strings.TrimSuffix(base, filepath.Ext(base))
}

// WritePartition persists a complete labeled table as CSV and returns the SHA-256 of the written bytes.
// Incomplete tables are refused. The file appears at path only once fully written.
func WritePartition(path string, lt *LabeledTable) (string, error) {
	if gaps := lt.Gaps(); len(gaps) > 0 {
		return "", fmt.Errorf("%w: %d of %d rows unlabeled (first at row %d)", ErrIncomplete, len(gaps), lt.Len(), gaps[0])
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, lt.Table()); err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return digest(buf.Bytes()), nil
}

// FileDigest returns the SHA-256 of the file at path in hex.
func FileDigest(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return digest(b), nil
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes data to a temp file in the destination directory, syncs it,
// renames it over path and syncs the directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

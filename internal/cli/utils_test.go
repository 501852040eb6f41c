package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/radlabel/internal/job"
	"github.com/hyperjump/radlabel/internal/merge"
	"github.com/hyperjump/radlabel/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteRun(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	run := &models.WindowRun{
		ID: "run-1", WindowIndex: 3, RowStart: 15, RowEnd: 20, ChunkCount: 3,
		Status: models.RunCompleted, PartitionPath: "/d/r_00003_labeled.csv", Digest: "abc",
		StartedAt: start, FinishedAt: &end,
	}

	var buf bytes.Buffer
	if err := WriteRun(&buf, run, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Window 3 labeled: rows 15-19 (5 reports, 3 chunks)", "run-1", "/d/r_00003_labeled.csv", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteRun(&buf, run, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.WindowRun
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.ID != "run-1" || decoded.Status != models.RunCompleted {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWritePlan(t *testing.T) {
	plan := &job.Plan{
		InputPath: "/d/r.csv", TotalRows: 7, WindowSize: 4, ChunkSize: 2,
		Windows: []models.Window{{Index: 0, Start: 0, End: 4}, {Index: 1, Start: 4, End: 7}},
	}
	var buf bytes.Buffer
	if err := WritePlan(&buf, plan, OutputText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := strings.Fields(lines[len(lines)-1])
	if strings.Join(last, " ") != "1 4 7 3" {
		t.Errorf("last plan row = %v", last)
	}
}

func TestWriteStatus(t *testing.T) {
	report := &StatusReport{
		InputPath: "/d/r.csv", LedgerPath: "/d/r_runs.db", LedgerSizeBytes: 4096,
		Windows: []job.WindowStatus{
			{Window: models.Window{Index: 0, Start: 0, End: 4}, Run: &models.WindowRun{ID: "a", Status: models.RunCompleted}, PartitionExists: true},
			{Window: models.Window{Index: 1, Start: 4, End: 7}, Run: &models.WindowRun{ID: "b", Status: models.RunFailed, Error: "boom"}},
			{Window: models.Window{Index: 2, Start: 7, End: 9}},
		},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Completed 1 of 3 windows", "failed", "boom", "pending", "4096 bytes"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteConcat(t *testing.T) {
	res := &merge.ConcatResult{OutputPath: "/d/final.csv", Partitions: []string{"a", "b"}, Skipped: []string{"c"}, Rows: 9, Digest: "ff"}
	var buf bytes.Buffer
	if err := WriteConcat(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Wrote 9 rows from 2 partitions") || !strings.Contains(buf.String(), "skipped") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

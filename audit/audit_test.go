package audit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/castellan/extract/types"
)

func TestLogger_OpenLogEventVerify(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "job-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	events := []types.ExtractionEvent{
		types.NewJobStateChange("job-1", time.Now(), types.JobRunning, ""),
		types.NewAssetIndexingProgress("job-1", time.Now(), 1, 2),
		types.NewJobStateChange("job-1", time.Now(), types.JobCompleted, ""),
	}
	for _, e := range events {
		if err := logger.LogEvent(e); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	logPath := filepath.Join(dir, "extraction-job-1.jsonl")
	if err := Verify(logPath); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_EmptyLogIsValid(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "job-empty")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	logPath := filepath.Join(dir, "extraction-job-empty.jsonl")
	if err := Verify(logPath); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "job-tamper")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := logger.LogEvent(types.NewAssetIndexingProgress("job-tamper", time.Now(), i, 3)); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}
	logger.Close()

	logPath := filepath.Join(dir, "extraction-job-tamper.jsonl")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tampered := append(data, []byte(`{"job_id":"injected"}`+"\n")...)
	if err := os.WriteFile(logPath, tampered, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err = Verify(logPath)
	if err == nil {
		t.Fatal("expected Verify to detect the appended, unsigned line")
	}
}

func TestVerify_HaltsAtFirstBrokenIndex(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "job-break")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 5; i++ {
		logger.LogEvent(types.NewAssetIndexingProgress("job-break", time.Now(), i, 5))
	}
	logger.Close()

	sidePath := filepath.Join(dir, "extraction-job-break.jsonl.blake3")
	lines, err := os.ReadFile(sidePath)
	if err != nil {
		t.Fatalf("ReadFile sidecar: %v", err)
	}
	// Corrupt the hash recorded at index 2.
	sideLines := strings.Split(strings.TrimSuffix(string(lines), "\n"), "\n")
	sideLines[2] = "2 " + strings.Repeat("0", 64)
	corrupted := []byte(strings.Join(sideLines, "\n") + "\n")
	if err := os.WriteFile(sidePath, corrupted, 0o644); err != nil {
		t.Fatalf("WriteFile sidecar: %v", err)
	}

	err = Verify(filepath.Join(dir, "extraction-job-break.jsonl"))
	var cb *ChainBreak
	if !errors.As(err, &cb) {
		t.Fatalf("expected a ChainBreak, got %v", err)
	}
	if cb.Index != 2 {
		t.Fatalf("ChainBreak.Index = %d, want 2", cb.Index)
	}
}

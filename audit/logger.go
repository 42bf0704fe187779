// Package audit implements the Audit Logger (C9): a hash-chained,
// append-only JSONL log mirroring every event durably, plus an offline
// verifier that detects tampering and a log and sidecar of different
// lengths; a log and sidecar truncated at the same line verify as a valid
// prefix.
// The single-mutex synchronous write discipline is grounded on the
// teacher's StrictPolicy: no buffering, no drops, caller blocks on sink
// latency, sink errors fail the run.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lukechampine.com/blake3"

	"github.com/castellan/extract/failure"
	"github.com/castellan/extract/iox"
	"github.com/castellan/extract/types"
)

// emptyHash is BLAKE3(∅), the chain's genesis previous-hash value.
var emptyHash = func() string {
	h := blake3.New(32, nil)
	return fmt.Sprintf("%x", h.Sum(nil))
}()

// Logger owns one job's log and sidecar hash-chain files for its lifetime.
// All writes are serialized under mu so concurrent emitters produce a
// totally ordered log.
type Logger struct {
	mu       sync.Mutex
	logFile  *os.File
	sideFile *os.File
	prevHash string
	index    int64
}

// Open creates extraction-{jobID}.jsonl and its .blake3 sidecar under dir,
// initializing prev_hash = BLAKE3(∅) and index = 0.
func Open(dir, jobID string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, failure.WrapInitError(err, dir)
	}

	logPath := filepath.Join(dir, fmt.Sprintf("extraction-%s.jsonl", jobID))
	sidePath := logPath + ".blake3"

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, failure.WrapInitError(err, logPath)
	}
	sideFile, err := os.OpenFile(sidePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		iox.DiscardClose(logFile)
		return nil, failure.WrapInitError(err, sidePath)
	}

	return &Logger{
		logFile:  logFile,
		sideFile: sideFile,
		prevHash: emptyHash,
		index:    0,
	}, nil
}

// LogEvent serializes event as a single-line JSON document, appends it to
// the main log, extends the hash chain, and appends the chain state to
// the sidecar. The line, the hash, and the state update are performed
// under one lock so concurrent callers produce a totally ordered log.
func (l *Logger) LogEvent(event types.ExtractionEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.logFile.Write(append(line, '\n')); err != nil {
		return failure.WrapWriteError(err, l.logFile.Name())
	}

	h := blake3.New(32, nil)
	h.Write([]byte(l.prevHash))
	h.Write(line)
	hash := fmt.Sprintf("%x", h.Sum(nil))

	sideLine := fmt.Sprintf("%d %s\n", l.index, hash)
	if _, err := l.sideFile.Write([]byte(sideLine)); err != nil {
		return failure.WrapWriteError(err, l.sideFile.Name())
	}

	l.prevHash = hash
	l.index++
	return nil
}

// Close flushes and closes both file handles.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	logErr := l.logFile.Close()
	sideErr := l.sideFile.Close()
	if logErr != nil {
		return logErr
	}
	return sideErr
}

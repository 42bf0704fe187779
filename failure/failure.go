// Package failure defines the closed error-kind taxonomy the extraction
// pipeline surfaces, per the propagation policy: decode/decompress errors
// bubble up as per-entry warnings and the extractor continues, except for
// MemoryLimitExceeded, ComplianceViolation, and a missing source file,
// which abort the job.
package failure

import (
	"errors"
	"fmt"
)

// Sentinel errors for the closed taxonomy. Use errors.Is(err, ErrXxx).
var (
	// Input
	ErrFileNotFound     = errors.New("file not found")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrNoSuitablePlugin = errors.New("no suitable plugin")

	// Policy
	ErrComplianceViolation = errors.New("extraction refused by compliance profile")

	// Resource
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// Decode
	ErrExceedsMaxSize       = errors.New("declared size exceeds maximum")
	ErrSuspiciousRatio      = errors.New("suspicious compression ratio")
	ErrSizeMismatch         = errors.New("size mismatch")
	ErrTimeoutExceeded      = errors.New("decompression timeout exceeded")
	ErrDecompressionFailed  = errors.New("decompression failed")
	ErrDataCorruption       = errors.New("data corruption")

	// Recipe
	ErrHashMismatch       = errors.New("source hash mismatch")
	ErrOutputHashMismatch = errors.New("delta output hash mismatch")
)

// ChainBroken reports an audit-chain verification failure at a specific
// line index.
type ChainBroken struct {
	Index int
}

func (e *ChainBroken) Error() string { return fmt.Sprintf("audit chain broken at index %d", e.Index) }

// IndexMismatch reports that the sidecar-reported index didn't match the
// expected line position during audit verification.
type IndexMismatch struct {
	Index    int
	Reported int
}

func (e *IndexMismatch) Error() string {
	return fmt.Sprintf("audit index mismatch at line %d: sidecar reports %d", e.Index, e.Reported)
}

// PluginError reports a failure originating inside a specific plugin.
type PluginError struct {
	PluginName string
	Message    string
}

func (e *PluginError) Error() string { return fmt.Sprintf("plugin %q: %s", e.PluginName, e.Message) }

// Fatal reports whether err should abort the job per the propagation
// policy, rather than being recorded as a per-entry warning.
func Fatal(err error) bool {
	return errors.Is(err, ErrMemoryLimitExceeded) ||
		errors.Is(err, ErrComplianceViolation) ||
		errors.Is(err, ErrFileNotFound)
}

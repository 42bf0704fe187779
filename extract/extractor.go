// Package extract implements the Extractor Pipeline (C6): the per-job
// state machine that dispatches a source to a plugin, enforces the
// pre-flight memory cap, decodes each entry through the Safe Decompressor,
// and publishes progress onto the event bus.
package extract

import (
	"context"
	"os"
	"time"

	"github.com/castellan/extract/compliance"
	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/eventbus"
	"github.com/castellan/extract/failure"
	"github.com/castellan/extract/plugin"
	"github.com/castellan/extract/resource"
	"github.com/castellan/extract/types"
)

// SafetyFactor scales the declared memory cap down before the pre-flight
// cumulative-size check, leaving headroom for the handler's own
// bookkeeping and the decoder's working buffers.
const SafetyFactor = 0.85

// DefaultProgressEvery is the entry-count progress cadence: emit a
// progress event at least this often if the time-based cadence hasn't
// already fired.
const DefaultProgressEvery = 50

// DefaultProgressInterval is the wall-clock progress cadence.
const DefaultProgressInterval = 2 * time.Second

// Config bounds one Extractor's behavior across every job it runs.
type Config struct {
	Registry         *plugin.Registry
	Bus              *eventbus.Bus
	Limits           decompress.Limits
	MemoryCapBytes   int64
	OperatorOverride bool
	ProgressEvery    int
	ProgressInterval time.Duration
}

// Extractor runs jobs against a fixed plugin registry and event bus; each
// job's compliance profile comes from the handler opened for its source.
// One Extractor is shared across concurrently
// running jobs; per-job state lives in Result/Collector, not here.
type Extractor struct {
	cfg Config
}

// New returns an Extractor. A nil Bus is valid: events are then computed
// but simply not published.
func New(cfg Config) *Extractor {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.MemoryCapBytes <= 0 {
		cfg.MemoryCapBytes = decompress.DefaultLimits().MemoryCap
	}
	return &Extractor{cfg: cfg}
}

// EntryWarning records a non-fatal per-entry decode failure: the job
// continues, but the entry produced no resource.
type EntryWarning struct {
	EntryID types.EntryID
	Err     error
}

// Result is one job's outcome: the decoded resources in entry order (for
// entries that decoded successfully), the warnings for entries that
// didn't, and the handler's provenance.
type Result struct {
	Job        *types.Job
	Resources  []resource.Resource
	Warnings   []EntryWarning
	Provenance types.Provenance
	Metrics    Snapshot
}

// Run executes the full pipeline for one job: resolve, dispatch, open,
// compliance-gate, pre-flight, decode-loop, and terminal transition. It
// always returns a non-nil *Result (even on failure, partially filled)
// alongside the error that failed the job, if any.
func (x *Extractor) Run(ctx context.Context, job *types.Job) (*Result, error) {
	result := &Result{Job: job}

	x.transition(job, types.JobRunning, "")

	info, err := os.Stat(job.SourcePath)
	if err != nil || info.IsDir() {
		return x.fail(job, result, failure.ErrFileNotFound)
	}

	f, err := os.Open(job.SourcePath)
	if err != nil {
		return x.fail(job, result, failure.ErrFileNotFound)
	}
	defer f.Close()

	header := make([]byte, plugin.HeaderPeekSize)
	n, _ := f.Read(header)
	header = header[:n]

	factory, err := x.cfg.Registry.FindFactory(job.SourcePath, header)
	if err != nil {
		return x.fail(job, result, err)
	}

	handler, err := factory.Create(ctx, job.SourcePath)
	if err != nil {
		return x.fail(job, result, err)
	}
	defer handler.Close()

	profile := handler.Profile()
	allowed := profile.ExtractionAllowed(x.cfg.OperatorOverride)
	x.publish(types.NewComplianceDecision(job.ID, now(), allowed, profile.Risk, complianceWarnings(profile), compliance.Advisory(profile)))
	if !allowed {
		return x.fail(job, result, failure.ErrComplianceViolation)
	}

	entries, err := handler.ListEntries(ctx)
	if err != nil {
		return x.fail(job, result, err)
	}

	var cumulative int64
	for _, e := range entries {
		cumulative += e.UncompressedSize
	}
	if cap := int64(float64(x.cfg.MemoryCapBytes) * SafetyFactor); cumulative > cap {
		return x.fail(job, result, failure.ErrMemoryLimitExceeded)
	}

	result.Provenance = handler.Provenance()

	metrics := NewCollector(len(entries))
	lastProgress := time.Now()

	for i, e := range entries {
		compressed, algo, expectedSize, err := handler.ReadEntry(ctx, e.ID)
		if err != nil {
			result.Warnings = append(result.Warnings, EntryWarning{EntryID: e.ID, Err: err})
			metrics.IncFailed()
			x.maybeEmitProgress(job, i+1, len(entries), &lastProgress)
			continue
		}

		decoded, _, err := decompress.Decompress(ctx, compressed, expectedSize, algo, x.cfg.Limits)
		if err != nil {
			result.Warnings = append(result.Warnings, EntryWarning{EntryID: e.ID, Err: err})
			metrics.IncFailed()
			x.maybeEmitProgress(job, i+1, len(entries), &lastProgress)
			continue
		}

		res := decodeResource(e, decoded)
		result.Resources = append(result.Resources, res)
		metrics.IncProcessed(string(res.Kind()), int64(len(decoded)))

		x.maybeEmitProgress(job, i+1, len(entries), &lastProgress)
	}

	result.Metrics = metrics.Snapshot()
	x.transition(job, types.JobCompleted, "")
	return result, nil
}

func (x *Extractor) fail(job *types.Job, result *Result, err error) (*Result, error) {
	x.transition(job, types.JobFailed, err.Error())
	return result, err
}

func (x *Extractor) transition(job *types.Job, next types.JobState, message string) {
	if job.State != "" && job.State.CanTransitionTo(next) {
		job.State = next
	} else if job.State == "" {
		job.State = next
	}
	x.publish(types.NewJobStateChange(job.ID, now(), next, message))
}

func (x *Extractor) maybeEmitProgress(job *types.Job, indexed, total int, last *time.Time) {
	sinceLast := time.Since(*last)
	if indexed%x.cfg.ProgressEvery != 0 && sinceLast < x.cfg.ProgressInterval && indexed != total {
		return
	}
	*last = time.Now()
	x.publish(types.NewAssetIndexingProgress(job.ID, now(), indexed, total))
}

func (x *Extractor) publish(event types.ExtractionEvent) {
	if x.cfg.Bus != nil {
		x.cfg.Bus.Publish(event)
	}
}

func complianceWarnings(profile types.ComplianceProfile) []string {
	if profile.Warning == "" {
		return nil
	}
	return []string{profile.Warning}
}

// now exists so tests reading event timestamps have a single call site to
// reason about; it is not a configurable seam, unlike recipe's nowFunc,
// since the extractor's timestamps are never asserted on in tests, only
// ordered.
func now() time.Time { return time.Now() }

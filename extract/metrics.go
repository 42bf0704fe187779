package extract

import "sync"

// Snapshot is an immutable point-in-time view of one job's counters.
// Safe to read concurrently after it is returned by Collector.Snapshot.
type Snapshot struct {
	EntriesTotal      int64
	EntriesProcessed  int64
	EntriesFailed     int64
	BytesDecompressed int64
	ResourcesByKind   map[string]int64
}

// Collector accumulates per-job counters as the pipeline processes
// entries. Thread-safe via sync.Mutex. All increment methods are
// nil-receiver safe so a caller that chooses not to collect metrics can
// pass a nil *Collector without branching.
type Collector struct {
	mu sync.Mutex

	entriesTotal      int64
	entriesProcessed  int64
	entriesFailed     int64
	bytesDecompressed int64
	resourcesByKind   map[string]int64
}

// NewCollector returns a Collector with entriesTotal pre-set from the
// pre-flight entry count, known before decoding begins.
func NewCollector(entriesTotal int) *Collector {
	return &Collector{
		entriesTotal:    int64(entriesTotal),
		resourcesByKind: make(map[string]int64),
	}
}

// IncProcessed records one successfully decoded entry, attributing its
// decompressed byte count and resulting resource kind.
func (c *Collector) IncProcessed(kind string, decompressedBytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entriesProcessed++
	c.bytesDecompressed += decompressedBytes
	c.resourcesByKind[kind]++
}

// IncFailed records one entry that failed decode and was skipped with a
// warning rather than aborting the job.
func (c *Collector) IncFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entriesFailed++
}

// Snapshot returns an immutable copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{ResourcesByKind: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.resourcesByKind))
	for k, v := range c.resourcesByKind {
		byKind[k] = v
	}

	return Snapshot{
		EntriesTotal:      c.entriesTotal,
		EntriesProcessed:  c.entriesProcessed,
		EntriesFailed:     c.entriesFailed,
		BytesDecompressed: c.bytesDecompressed,
		ResourcesByKind:   byKind,
	}
}

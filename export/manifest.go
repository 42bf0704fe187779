package export

import "github.com/castellan/extract/types"

// ManifestEntry describes one written output file.
type ManifestEntry struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Format       string `json:"format"`
	SourceName   string `json:"source_name"`
}

// Manifest enumerates every output produced for one job, plus the
// provenance that applies to all of them, embedded verbatim.
type Manifest struct {
	JobID      string            `json:"job_id"`
	Provenance types.Provenance  `json:"provenance"`
	Entries    []ManifestEntry   `json:"entries"`
}

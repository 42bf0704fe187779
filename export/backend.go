// Package export implements the Exporter (C10): per-variant output
// encoding, manifest generation, and pluggable storage backends for
// where the encoded files land.
package export

import "context"

// Backend persists one named blob. A single Put call, content-type carried
// alongside the bytes, no directory-listing or delete surface since the
// exporter only ever appends new output files.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

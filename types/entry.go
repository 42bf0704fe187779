package types

import "time"

// EntryID is an opaque stable identifier for an entry within an archive,
// unique within one open handler's lifetime.
type EntryID string

// EntryMetadata describes one logical item inside a container.
// UncompressedSize must be known before ReadEntry is called so the
// decompressor's bomb defences can bound allocation ahead of time.
type EntryMetadata struct {
	ID               EntryID    `json:"id"`
	Name             string     `json:"name"`
	LogicalPath      string     `json:"logical_path"`
	CompressedSize   *int64     `json:"compressed_size,omitempty"`
	UncompressedSize int64      `json:"uncompressed_size"`
	ContentType      string     `json:"content_type,omitempty"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
	Checksum         string     `json:"checksum,omitempty"`
}

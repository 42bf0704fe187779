// Package recipe implements the Patch-Recipe Engine (C7): building and
// reapplying byte-delta recipes against a hash-pinned, untouched source
// file. This is the module's Non-goal-compliant
// alternative to redistributing extracted assets directly.
package recipe

import (
	"encoding/json"
	"fmt"
	"time"

	"lukechampine.com/blake3"

	"github.com/castellan/extract/types"
)

// OperationKind discriminates the Operation closed sum type.
type OperationKind string

const (
	OpCopy         OperationKind = "copy"
	OpDecompress   OperationKind = "decompress"
	OpConvert      OperationKind = "convert"
	OpInsertHeader OperationKind = "insert_header"
	OpAppendFooter OperationKind = "append_footer"
	OpXor          OperationKind = "xor"
)

// Operation is one step in a DeltaPatch's transformation pipeline. Exactly
// the fields relevant to Kind are populated; Apply (see apply.go) switches
// on Kind to interpret them.
type Operation struct {
	Kind OperationKind `json:"kind"`

	// Copy: narrows the buffer to [Offset, Offset+Length).
	Offset int64 `json:"offset,omitempty"`
	Length int64 `json:"length,omitempty"`

	// InsertHeader/AppendFooter: bytes to concatenate.
	Bytes []byte `json:"bytes,omitempty"`

	// Xor: keystream key, repeated (wrapped modulo key length).
	Key []byte `json:"key,omitempty"`

	// Decompress: declared algorithm and output size.
	Algorithm    string `json:"algorithm,omitempty"`
	ExpectedSize int64  `json:"expected_size,omitempty"`
}

// DeltaPatch describes one reconstructed output file: a byte range read
// from the pinned source, transformed by Operations in order, verified
// against ExpectedOutputHash/ExpectedOutputSize.
type DeltaPatch struct {
	TargetFilename     string      `json:"target_filename"`
	SourceOffset       int64       `json:"source_offset"`
	SourceLength       int64       `json:"source_length"`
	Operations         []Operation `json:"operations"`
	ExpectedOutputHash string      `json:"expected_output_hash"`
	ExpectedOutputSize int64       `json:"expected_output_size"`
}

// Recipe is the persisted, immutable document reconstructing a job's
// outputs from its hash-pinned source.
type Recipe struct {
	FormatVersion  int                    `json:"format_version"`
	SourceHash     string                 `json:"source_hash"`
	SourceSize     int64                  `json:"source_size"`
	Provenance     types.Provenance       `json:"provenance"`
	Deltas         []DeltaPatch           `json:"deltas"`
	AssetMetadata  []types.EntryMetadata  `json:"asset_metadata"`
	CreatedAt      time.Time              `json:"created_at"`
}

// FormatVersion is the current on-disk recipe schema version.
const FormatVersion = 1

// Builder accumulates deltas for one job; Build freezes them into an
// immutable Recipe.
type Builder struct {
	provenance    types.Provenance
	deltas        []DeltaPatch
	assetMetadata []types.EntryMetadata
	sourceHash    string
	sourceSize    int64
}

// NewBuilder starts accumulating deltas for a job whose provenance has
// already been established (source hash, plugin, compliance snapshot).
func NewBuilder(provenance types.Provenance, sourceSize int64) *Builder {
	return &Builder{
		provenance: provenance,
		sourceHash: provenance.SourceHash,
		sourceSize: sourceSize,
	}
}

// AddDelta appends one reconstructed-output description.
func (b *Builder) AddDelta(delta DeltaPatch) {
	b.deltas = append(b.deltas, delta)
}

// AddAssetMetadata records one entry's metadata alongside the deltas, for
// the recipe document's asset_metadata list.
func (b *Builder) AddAssetMetadata(meta types.EntryMetadata) {
	b.assetMetadata = append(b.assetMetadata, meta)
}

// Build freezes the accumulated deltas into a Recipe. sourceBytes, if
// non-nil, is hashed to populate SourceHash when the builder was not
// constructed with one already known; if sourceHash was pre-supplied (the
// common case — the handler already computed it at open time) sourceBytes
// is ignored.
func (b *Builder) Build(sourceBytes []byte) Recipe {
	hash := b.sourceHash
	if hash == "" && sourceBytes != nil {
		h := blake3.New(32, nil)
		h.Write(sourceBytes)
		hash = fmt.Sprintf("%x", h.Sum(nil))
	}

	return Recipe{
		FormatVersion: FormatVersion,
		SourceHash:    hash,
		SourceSize:    b.sourceSize,
		Provenance:    b.provenance,
		Deltas:        append([]DeltaPatch(nil), b.deltas...),
		AssetMetadata: append([]types.EntryMetadata(nil), b.assetMetadata...),
		CreatedAt:     nowFunc(),
	}
}

// nowFunc is a seam for deterministic tests.
var nowFunc = time.Now

// MarshalDocument renders r as the pretty-printed, snake_case JSON document
// used for on-disk recipes.
func MarshalDocument(r Recipe) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalDocument parses a recipe document previously written by
// MarshalDocument.
func UnmarshalDocument(data []byte) (Recipe, error) {
	var r Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return Recipe{}, err
	}
	return r, nil
}

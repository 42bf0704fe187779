// Package genericpak implements a second reference archive format, laid
// out sequentially rather than flatpack's index-then-blobs layout, so the
// plugin registry's dispatch genuinely branches on content rather than on
// a type switch over known formats. Layout:
//
//	"GPAK"                      4-byte magic
//	uint8       version         currently 1
//	uint16 LE   game_id_len
//	game_id_len bytes           game id (may be empty)
//	uint32 LE   entry_count
//	entry_count * {
//	    uint16 LE name_len
//	    name_len bytes          logical path
//	    uint8   algo            decompress.Algorithm code, see algoCodes
//	    uint64 LE uncompressed_size
//	    uint64 LE compressed_size
//	    compressed_size bytes   compressed blob, inline, immediately following
//	}
package genericpak

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"github.com/castellan/extract/archive"
	"github.com/castellan/extract/compliance"
	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/failure"
	"github.com/castellan/extract/plugin"
	"github.com/castellan/extract/types"
)

var magic = [4]byte{'G', 'P', 'A', 'K'}

const formatVersion = 1

var algoCodes = map[byte]decompress.Algorithm{
	0: decompress.AlgorithmNone,
	1: decompress.AlgorithmLz4,
	2: decompress.AlgorithmLzma,
	3: decompress.AlgorithmZlib,
	4: decompress.AlgorithmDeflate,
	5: decompress.AlgorithmGzip,
}

var algoToCode = map[decompress.Algorithm]byte{
	decompress.AlgorithmNone:    0,
	decompress.AlgorithmLz4:     1,
	decompress.AlgorithmLzma:    2,
	decompress.AlgorithmZlib:    3,
	decompress.AlgorithmDeflate: 4,
	decompress.AlgorithmGzip:    5,
}

type entryRecord struct {
	name             string
	algo             decompress.Algorithm
	uncompressedSize int64
	data             []byte
}

// Factory detects and opens genericpak containers.
type Factory struct {
	compliance *compliance.Registry
}

// NewFactory builds a Factory resolving compliance profiles via registry.
func NewFactory(registry *compliance.Registry) *Factory {
	return &Factory{compliance: registry}
}

func (f *Factory) Name() string                  { return "genericpak" }
func (f *Factory) Version() string               { return "1.0.0" }
func (f *Factory) SupportedExtensions() []string { return []string{".gpk", ".gpak"} }

func (f *Factory) Detect(header []byte) bool {
	if len(header) < 5 {
		return false
	}
	return header[0] == magic[0] && header[1] == magic[1] && header[2] == magic[2] && header[3] == magic[3] && header[4] == formatVersion
}

func (f *Factory) ComplianceInfo() types.PluginInfo {
	return types.PluginInfo{Name: f.Name(), Version: f.Version()}
}

func (f *Factory) Create(ctx context.Context, path string) (plugin.Handler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, failure.ErrFileNotFound
		}
		return nil, err
	}

	h := blake3.New(32, nil)
	h.Write(raw)
	sourceHash := fmt.Sprintf("%x", h.Sum(nil))

	gameID, records, err := parse(raw)
	if err != nil {
		return nil, err
	}

	registry := f.compliance
	if registry == nil {
		registry = compliance.NewRegistry()
	}
	profile := registry.Resolve(gameID)

	return &Handler{
		entries: records,
		profile: profile,
		provenance: types.Provenance{
			SessionID:   uuid.NewString(),
			GameID:      gameID,
			SourceHash:  sourceHash,
			SourcePath:  path,
			Profile:     profile,
			Timestamp:   time.Now().UTC(),
			CoreVersion: types.CoreVersion,
			PluginInfo:  f.ComplianceInfo(),
		},
	}, nil
}

func parse(raw []byte) (gameID string, entries []entryRecord, err error) {
	r := bufio.NewReader(bytes.NewReader(raw))

	var hdrMagic [4]byte
	if _, err = io.ReadFull(r, hdrMagic[:]); err != nil {
		return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
	}
	if hdrMagic != magic {
		return "", nil, failure.ErrInvalidFormat
	}

	version, err := r.ReadByte()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
	}
	if version != formatVersion {
		return "", nil, failure.ErrInvalidFormat
	}

	var gameIDLen uint16
	if err = binary.Read(r, binary.LittleEndian, &gameIDLen); err != nil {
		return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
	}
	gameIDBytes := make([]byte, gameIDLen)
	if _, err = io.ReadFull(r, gameIDBytes); err != nil {
		return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
	}

	var count uint32
	if err = binary.Read(r, binary.LittleEndian, &count); err != nil {
		return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
	}

	entries = make([]entryRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err = binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err = io.ReadFull(r, nameBytes); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		name := string(nameBytes)
		if verr := archive.ValidateEntryPath(name); verr != nil {
			return "", nil, verr
		}

		algoCode, err2 := r.ReadByte()
		if err2 != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err2)
		}
		algo, ok := algoCodes[algoCode]
		if !ok {
			return "", nil, failure.ErrInvalidFormat
		}

		var uncompressed, compressedSz uint64
		if err = binary.Read(r, binary.LittleEndian, &uncompressed); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		if err = binary.Read(r, binary.LittleEndian, &compressedSz); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}

		blob := make([]byte, compressedSz)
		if _, err = io.ReadFull(r, blob); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}

		entries = append(entries, entryRecord{
			name:             name,
			algo:             algo,
			uncompressedSize: int64(uncompressed),
			data:             blob,
		})
	}

	return string(gameIDBytes), entries, nil
}

// Handler reads entries from one opened genericpak container, fully
// materialized in memory (the format has no offset table to seek against).
type Handler struct {
	entries    []entryRecord
	profile    types.ComplianceProfile
	provenance types.Provenance
}

func (h *Handler) ListEntries(ctx context.Context) ([]types.EntryMetadata, error) {
	out := make([]types.EntryMetadata, 0, len(h.entries))
	for _, e := range h.entries {
		compressedSize := int64(len(e.data))
		out = append(out, types.EntryMetadata{
			ID:               types.EntryID(e.name),
			Name:             e.name,
			LogicalPath:      e.name,
			CompressedSize:   &compressedSize,
			UncompressedSize: e.uncompressedSize,
		})
	}
	return out, nil
}

func (h *Handler) ReadEntry(ctx context.Context, id types.EntryID) ([]byte, decompress.Algorithm, int64, error) {
	for _, e := range h.entries {
		if types.EntryID(e.name) == id {
			return e.data, e.algo, e.uncompressedSize, nil
		}
	}
	return nil, "", 0, failure.ErrFileNotFound
}

func (h *Handler) Profile() types.ComplianceProfile { return h.profile }
func (h *Handler) Provenance() types.Provenance     { return h.provenance }
func (h *Handler) Close() error                     { return nil }

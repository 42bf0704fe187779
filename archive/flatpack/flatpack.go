// Package flatpack implements a reference archive format: a flat,
// offset-indexed container used as the module's own test fixture format
// and as a template other handlers follow. Layout:
//
//	"FPK1"                      4-byte magic
//	uint16 LE   game_id_len
//	game_id_len bytes           game id (may be empty)
//	uint32 LE   entry_count
//	entry_count * {
//	    uint16 LE name_len
//	    name_len bytes          logical path, "/"-separated
//	    uint8   algo            decompress.Algorithm code, see algoCodes
//	    uint64 LE uncompressed_size
//	    uint64 LE compressed_size
//	    uint64 LE offset        absolute file offset of the compressed blob
//	}
//	... compressed blobs, one per entry, at the offsets above ...
package flatpack

import (
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

var magic = [4]byte{'F', 'P', 'K', '1'}

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

type indexEntry struct {
	name             string
	algo             decompress.Algorithm
	uncompressedSize int64
	compressedSize   int64
	offset           int64
}

// Factory detects and opens flatpack containers.
type Factory struct {
	compliance *compliance.Registry
}

// NewFactory builds a Factory resolving compliance profiles via registry.
func NewFactory(registry *compliance.Registry) *Factory {
	return &Factory{compliance: registry}
}

func (f *Factory) Name() string                  { return "flatpack" }
func (f *Factory) Version() string               { return "1.0.0" }
func (f *Factory) SupportedExtensions() []string { return []string{".fpk"} }

func (f *Factory) Detect(header []byte) bool {
	if len(header) < 4 {
		return false
	}
	return header[0] == magic[0] && header[1] == magic[1] && header[2] == magic[2] && header[3] == magic[3]
}

func (f *Factory) ComplianceInfo() types.PluginInfo {
	return types.PluginInfo{Name: f.Name(), Version: f.Version()}
}

func (f *Factory) Create(ctx context.Context, path string) (plugin.Handler, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, failure.ErrFileNotFound
		}
		return nil, err
	}

	sourceHash, err := hashFile(path)
	if err != nil {
		file.Close()
		return nil, err
	}

	gameID, entries, err := readIndex(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	registry := f.compliance
	if registry == nil {
		registry = compliance.NewRegistry()
	}

	return &Handler{
		file:       file,
		entries:    entries,
		profile:    registry.Resolve(gameID),
		provenance: buildProvenance(gameID, path, sourceHash, f.ComplianceInfo(), registry.Resolve(gameID)),
	}, nil
}

func buildProvenance(gameID, path, sourceHash string, info types.PluginInfo, profile types.ComplianceProfile) types.Provenance {
	return types.Provenance{
		SessionID:   uuid.NewString(),
		GameID:      gameID,
		SourceHash:  sourceHash,
		SourcePath:  path,
		Profile:     profile,
		Timestamp:   time.Now().UTC(),
		CoreVersion: types.CoreVersion,
		PluginInfo:  info,
	}
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func readIndex(r io.ReadSeeker) (gameID string, entries []indexEntry, err error) {
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return "", nil, err
	}

	var hdrMagic [4]byte
	if err = binary.Read(r, binary.LittleEndian, &hdrMagic); err != nil {
		return "", nil, fmt.Errorf("%w: %v", failure.ErrInvalidFormat, err)
	}
	if hdrMagic != magic {
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

	entries = make([]indexEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err = binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err = io.ReadFull(r, nameBytes); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}

		var algoCode uint8
		var uncompressed, compressedSz, offset uint64
		if err = binary.Read(r, binary.LittleEndian, &algoCode); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		if err = binary.Read(r, binary.LittleEndian, &uncompressed); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		if err = binary.Read(r, binary.LittleEndian, &compressedSz); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		if err = binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return "", nil, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}

		name := string(nameBytes)
		if verr := archive.ValidateEntryPath(name); verr != nil {
			return "", nil, verr
		}

		algo, ok := algoCodes[algoCode]
		if !ok {
			return "", nil, failure.ErrInvalidFormat
		}

		entries = append(entries, indexEntry{
			name:             name,
			algo:             algo,
			uncompressedSize: int64(uncompressed),
			compressedSize:   int64(compressedSz),
			offset:           int64(offset),
		})
	}

	return string(gameIDBytes), entries, nil
}

// Handler reads entries from one opened flatpack container.
type Handler struct {
	file       *os.File
	entries    []indexEntry
	profile    types.ComplianceProfile
	provenance types.Provenance
}

func (h *Handler) ListEntries(ctx context.Context) ([]types.EntryMetadata, error) {
	out := make([]types.EntryMetadata, 0, len(h.entries))
	for _, e := range h.entries {
		compressedSize := e.compressedSize
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

// EntryOffset implements plugin.OffsetReporter: flatpack's index records
// each entry's absolute offset and compressed length directly.
func (h *Handler) EntryOffset(id types.EntryID) (offset, compressedSize int64, ok bool) {
	for _, e := range h.entries {
		if types.EntryID(e.name) == id {
			return e.offset, e.compressedSize, true
		}
	}
	return 0, 0, false
}

func (h *Handler) ReadEntry(ctx context.Context, id types.EntryID) ([]byte, decompress.Algorithm, int64, error) {
	for _, e := range h.entries {
		if types.EntryID(e.name) != id {
			continue
		}
		buf := make([]byte, e.compressedSize)
		if _, err := h.file.ReadAt(buf, e.offset); err != nil {
			return nil, "", 0, fmt.Errorf("%w: %v", failure.ErrDataCorruption, err)
		}
		return buf, e.algo, e.uncompressedSize, nil
	}
	return nil, "", 0, failure.ErrFileNotFound
}

func (h *Handler) Profile() types.ComplianceProfile { return h.profile }
func (h *Handler) Provenance() types.Provenance     { return h.provenance }
func (h *Handler) Close() error                     { return h.file.Close() }

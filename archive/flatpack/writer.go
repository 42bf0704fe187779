package flatpack

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/castellan/extract/decompress"
)

// WriteEntry is one entry to encode via Write; CompressedData must already
// be compressed under Algo.
type WriteEntry struct {
	Name             string
	Algo             decompress.Algorithm
	UncompressedSize int64
	CompressedData   []byte
}

// Write serializes gameID and entries into the flatpack container format.
// Used by tests to build sample containers without depending on a real
// game archive.
func Write(gameID string, entries []WriteEntry) ([]byte, error) {
	var index bytes.Buffer
	var data bytes.Buffer

	if err := binary.Write(&index, binary.LittleEndian, magic); err != nil {
		return nil, err
	}
	if err := binary.Write(&index, binary.LittleEndian, uint16(len(gameID))); err != nil {
		return nil, err
	}
	index.WriteString(gameID)
	if err := binary.Write(&index, binary.LittleEndian, uint32(len(entries))); err != nil {
		return nil, err
	}

	headerSize := index.Len()
	indexEntrySize := func(nameLen int) int { return 2 + nameLen + 1 + 8 + 8 + 8 }
	for _, e := range entries {
		headerSize += indexEntrySize(len(e.Name))
	}

	offset := int64(headerSize)
	for _, e := range entries {
		code, ok := algoToCode[e.Algo]
		if !ok {
			return nil, fmt.Errorf("flatpack: unsupported algorithm %q", e.Algo)
		}

		if err := binary.Write(&index, binary.LittleEndian, uint16(len(e.Name))); err != nil {
			return nil, err
		}
		index.WriteString(e.Name)
		if err := binary.Write(&index, binary.LittleEndian, code); err != nil {
			return nil, err
		}
		if err := binary.Write(&index, binary.LittleEndian, uint64(e.UncompressedSize)); err != nil {
			return nil, err
		}
		if err := binary.Write(&index, binary.LittleEndian, uint64(len(e.CompressedData))); err != nil {
			return nil, err
		}
		if err := binary.Write(&index, binary.LittleEndian, uint64(offset)); err != nil {
			return nil, err
		}

		data.Write(e.CompressedData)
		offset += int64(len(e.CompressedData))
	}

	out := append(index.Bytes(), data.Bytes()...)
	return out, nil
}

package genericpak

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

// Write serializes gameID and entries into the genericpak container
// format. Used by tests.
func Write(gameID string, entries []WriteEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(magic[:])
	buf.WriteByte(formatVersion)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(gameID))); err != nil {
		return nil, err
	}
	buf.WriteString(gameID)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(entries))); err != nil {
		return nil, err
	}

	for _, e := range entries {
		code, ok := algoToCode[e.Algo]
		if !ok {
			return nil, fmt.Errorf("genericpak: unsupported algorithm %q", e.Algo)
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint16(len(e.Name))); err != nil {
			return nil, err
		}
		buf.WriteString(e.Name)
		buf.WriteByte(code)
		if err := binary.Write(&buf, binary.LittleEndian, uint64(e.UncompressedSize)); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint64(len(e.CompressedData))); err != nil {
			return nil, err
		}
		buf.Write(e.CompressedData)
	}

	return buf.Bytes(), nil
}

package recipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"lukechampine.com/blake3"

	"github.com/castellan/extract/failure"
	"github.com/castellan/extract/types"
)

func blake3Hex(data []byte) string {
	h := blake3.New(32, nil)
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// TestApply_RoundTrip covers a 13-byte source, one Copy
// delta spanning the whole file, reconstructed bit-for-bit.
func TestApply_RoundTrip(t *testing.T) {
	source := []byte("Hello, World!")
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	if err := os.WriteFile(sourcePath, source, 0o644); err != nil {
		t.Fatalf("fixture setup: %v", err)
	}

	r := Recipe{
		FormatVersion: FormatVersion,
		SourceHash:    blake3Hex(source),
		SourceSize:    int64(len(source)),
		Deltas: []DeltaPatch{
			{
				TargetFilename:     "out.bin",
				SourceOffset:       0,
				SourceLength:       int64(len(source)),
				Operations:         []Operation{{Kind: OpCopy, Offset: 0, Length: int64(len(source))}},
				ExpectedOutputHash: blake3Hex(source),
				ExpectedOutputSize: int64(len(source)),
			},
		},
	}

	outDir := t.TempDir()
	result, err := Apply(context.Background(), r, sourcePath, outDir)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}
	if len(result.Written) != 1 {
		t.Fatalf("expected 1 written file, got %d", len(result.Written))
	}

	got, err := os.ReadFile(result.Written[0])
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(got) != string(source) {
		t.Fatalf("output = %q, want %q", got, source)
	}
}

func TestApply_SourceSizeMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	os.WriteFile(sourcePath, []byte("short"), 0o644)

	r := Recipe{SourceHash: blake3Hex([]byte("short")), SourceSize: 999}
	_, err := Apply(context.Background(), r, sourcePath, t.TempDir())
	if err != failure.ErrSizeMismatch {
		t.Fatalf("got %v, want ErrSizeMismatch", err)
	}
}

func TestApply_SourceHashMismatchIsFatal(t *testing.T) {
	source := []byte("Hello, World!")
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	os.WriteFile(sourcePath, source, 0o644)

	r := Recipe{SourceHash: "0000000000000000000000000000000000000000000000000000000000000000", SourceSize: int64(len(source))}
	_, err := Apply(context.Background(), r, sourcePath, t.TempDir())
	if err != failure.ErrHashMismatch {
		t.Fatalf("got %v, want ErrHashMismatch", err)
	}
}

func TestApply_PerDeltaFailureIsWarningNotFatal(t *testing.T) {
	source := []byte("Hello, World!")
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	os.WriteFile(sourcePath, source, 0o644)

	r := Recipe{
		SourceHash: blake3Hex(source),
		SourceSize: int64(len(source)),
		Deltas: []DeltaPatch{
			{
				TargetFilename:     "bad.bin",
				SourceOffset:       0,
				SourceLength:       int64(len(source)),
				Operations:         []Operation{{Kind: OpCopy, Offset: 0, Length: int64(len(source))}},
				ExpectedOutputHash: "deadbeef",
				ExpectedOutputSize: int64(len(source)),
			},
			{
				TargetFilename:     "good.bin",
				SourceOffset:       0,
				SourceLength:       int64(len(source)),
				Operations:         []Operation{{Kind: OpCopy, Offset: 0, Length: int64(len(source))}},
				ExpectedOutputHash: blake3Hex(source),
				ExpectedOutputSize: int64(len(source)),
			},
		},
	}

	result, err := Apply(context.Background(), r, sourcePath, t.TempDir())
	if err != nil {
		t.Fatalf("Apply must not fail the whole run: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(result.Warnings), result.Warnings)
	}
	if len(result.Written) != 1 {
		t.Fatalf("expected 1 written file despite the bad delta, got %d", len(result.Written))
	}
}

func TestApply_XorRoundTrip(t *testing.T) {
	source := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	key := []byte{0xff, 0x0f}
	xored := make([]byte, len(source))
	for i, b := range source {
		xored[i] = b ^ key[i%len(key)]
	}

	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	os.WriteFile(sourcePath, source, 0o644)

	r := Recipe{
		SourceHash: blake3Hex(source),
		SourceSize: int64(len(source)),
		Deltas: []DeltaPatch{
			{
				TargetFilename: "xored.bin",
				SourceOffset:   0,
				SourceLength:   int64(len(source)),
				Operations: []Operation{
					{Kind: OpXor, Key: key},
				},
				ExpectedOutputHash: blake3Hex(xored),
				ExpectedOutputSize: int64(len(xored)),
			},
		},
	}

	result, err := Apply(context.Background(), r, sourcePath, t.TempDir())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, _ := os.ReadFile(result.Written[0])
	if string(got) != string(xored) {
		t.Fatalf("xor output = %v, want %v", got, xored)
	}
}

func TestBuilder_BuildFreezesDeltas(t *testing.T) {
	b := NewBuilder(types.Provenance{SourceHash: "abc123"}, 42)
	b.AddDelta(DeltaPatch{TargetFilename: "a.bin"})

	r := b.Build(nil)
	b.AddDelta(DeltaPatch{TargetFilename: "b.bin"})

	if len(r.Deltas) != 1 {
		t.Fatalf("expected Build() to freeze a snapshot, got %d deltas after a later AddDelta", len(r.Deltas))
	}
	if r.SourceHash != "abc123" {
		t.Fatalf("SourceHash = %q, want abc123 (pre-supplied via provenance)", r.SourceHash)
	}
}

func TestMarshalUnmarshalDocument_RoundTrip(t *testing.T) {
	r := Recipe{FormatVersion: FormatVersion, SourceHash: "deadbeef", SourceSize: 10}
	data, err := MarshalDocument(r)
	if err != nil {
		t.Fatalf("MarshalDocument: %v", err)
	}
	got, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument: %v", err)
	}
	if got.SourceHash != r.SourceHash || got.SourceSize != r.SourceSize {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

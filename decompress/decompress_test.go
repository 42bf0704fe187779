package decompress

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/castellan/extract/failure"
)

func TestDecompress_ExceedsMaxSize(t *testing.T) {
	limits := DefaultLimits()
	_, _, err := Decompress(context.Background(), []byte{0x01}, limits.MaxDecompressed+1, AlgorithmNone, limits)
	if !errors.Is(err, failure.ErrExceedsMaxSize) {
		t.Fatalf("got %v, want ErrExceedsMaxSize", err)
	}
}

func TestDecompress_EmptyCompressedIsDataCorruption(t *testing.T) {
	_, _, err := Decompress(context.Background(), nil, 100, AlgorithmLz4, DefaultLimits())
	if !errors.Is(err, failure.ErrDataCorruption) {
		t.Fatalf("got %v, want ErrDataCorruption", err)
	}
}

func TestDecompress_ZeroExpectedSizeIsOK(t *testing.T) {
	out, warning, err := Decompress(context.Background(), []byte{0x00}, 0, AlgorithmNone, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != nil {
		t.Fatalf("unexpected warning: %v", warning)
	}
	_ = out
}

// TestDecompress_SuspiciousRatioWithoutAllocating covers a
// single compressed byte claiming to expand to 1,000,000 bytes must be
// rejected by the ratio check before any output buffer is allocated.
func TestDecompress_SuspiciousRatioWithoutAllocating(t *testing.T) {
	limits := DefaultLimits()
	_, _, err := Decompress(context.Background(), []byte{0x01}, 1_000_000, AlgorithmLz4, limits)
	if !errors.Is(err, failure.ErrSuspiciousRatio) {
		t.Fatalf("got %v, want ErrSuspiciousRatio", err)
	}
}

func TestDecompress_RatioExactlyAtLimitPasses(t *testing.T) {
	limits := DefaultLimits()
	compressed := bytes.Repeat([]byte{0x02}, 1)
	expected := limits.MaxRatio // ratio == limit, not exceeding it
	_, _, err := Decompress(context.Background(), compressed, expected, AlgorithmLz4, limits)
	// A 1-byte LZ4 block cannot actually hold that much payload; the decode
	// itself will fail, but it must fail past the ratio gate, not at it.
	if errors.Is(err, failure.ErrSuspiciousRatio) {
		t.Fatal("ratio exactly at the limit must not trip SuspiciousRatio")
	}
}

func TestDecompress_RatioOneOverLimitFails(t *testing.T) {
	limits := DefaultLimits()
	compressed := []byte{0x02}
	expected := limits.MaxRatio + 1
	_, _, err := Decompress(context.Background(), compressed, expected, AlgorithmLz4, limits)
	if !errors.Is(err, failure.ErrSuspiciousRatio) {
		t.Fatalf("got %v, want ErrSuspiciousRatio", err)
	}
}

func TestDecompress_MemoryCapEnforced(t *testing.T) {
	limits := SmallFileLimits()
	limits.MaxRatio = 1 << 40 // disable the ratio gate so MemoryCap is what trips
	// Raise the size ceiling to the cap so the max-size gate, checked first,
	// passes as well.
	limits.MaxDecompressed = limits.MemoryCap
	compressed := bytes.Repeat([]byte{0x03}, 10)
	expected := limits.MemoryCap
	_, _, err := Decompress(context.Background(), compressed, expected, AlgorithmNone, limits)
	if !errors.Is(err, failure.ErrMemoryLimitExceeded) {
		t.Fatalf("got %v, want ErrMemoryLimitExceeded", err)
	}
}

func TestDecompress_NoneRoundTrip(t *testing.T) {
	payload := []byte("uncompressed passthrough payload")
	out, warning, err := Decompress(context.Background(), payload, int64(len(payload)), AlgorithmNone, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != nil {
		t.Fatalf("unexpected warning: %v", warning)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("round trip mismatch: got %q, want %q", out, payload)
	}
}

func TestDecompress_Lz4RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("castellan-extract-lz4-roundtrip "), 64)
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	var c lz4.Compressor
	n, err := c.CompressBlock(payload, compressed)
	if err != nil {
		t.Fatalf("failed to prepare fixture: %v", err)
	}
	compressed = compressed[:n]

	out, warning, err := Decompress(context.Background(), compressed, int64(len(payload)), AlgorithmLz4, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != nil {
		t.Fatalf("unexpected warning: %v", warning)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("lz4 round trip produced different bytes")
	}
}

func TestDecompress_ZlibRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("castellan-extract-zlib-roundtrip "), 64)
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("failed to prepare fixture: %v", err)
	}
	w.Close()

	out, _, err := Decompress(context.Background(), buf.Bytes(), int64(len(payload)), AlgorithmZlib, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("zlib round trip produced different bytes")
	}
}

func TestDecompress_GzipRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("castellan-extract-gzip-roundtrip "), 64)
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("failed to prepare fixture: %v", err)
	}
	w.Close()

	out, _, err := Decompress(context.Background(), buf.Bytes(), int64(len(payload)), AlgorithmGzip, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("gzip round trip produced different bytes")
	}
}

func TestDecompress_UnknownAlgorithmExactSizePassesThrough(t *testing.T) {
	payload := []byte("opaque region, size matches exactly")
	out, warning, err := Decompress(context.Background(), payload, int64(len(payload)), Algorithm("vendor-proprietary"), DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning == nil {
		t.Fatal("unknown-algorithm passthrough must carry a warning")
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("unknown-algorithm passthrough must preserve bytes")
	}
}

func TestDecompress_UnknownAlgorithmSizeMismatchFails(t *testing.T) {
	payload := []byte("opaque region, size does not match")
	_, _, err := Decompress(context.Background(), payload, int64(len(payload))+5, Algorithm("vendor-proprietary"), DefaultLimits())
	if !errors.Is(err, failure.ErrDecompressionFailed) {
		t.Fatalf("got %v, want ErrDecompressionFailed", err)
	}
}

func TestDecompress_CustomAlgorithmRegistered(t *testing.T) {
	RegisterCustom("test-rot13", func(compressed []byte, expectedSize int64) ([]byte, error) {
		out := make([]byte, len(compressed))
		copy(out, compressed)
		return out, nil
	})

	payload := []byte("custom-codec-fixture")
	out, _, err := Decompress(context.Background(), payload, int64(len(payload)), CustomAlgorithm("test-rot13"), DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("custom algorithm must round trip via the registered function")
	}
}

func TestDecompress_LzmaHeaderTooShortIsDataCorruption(t *testing.T) {
	_, _, err := Decompress(context.Background(), []byte{0x5d, 0x00, 0x00}, 100, AlgorithmLzma, DefaultLimits())
	if !errors.Is(err, failure.ErrDataCorruption) {
		t.Fatalf("got %v, want ErrDataCorruption", err)
	}
}

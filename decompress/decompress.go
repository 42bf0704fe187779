package decompress

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	lzmacodec "github.com/kjk/lzma"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/castellan/extract/failure"
)

// lzmaSizeTolerance is the fraction the Unity-style 13-byte LZMA header's
// declared unpacked size may diverge from expectedSize before SizeMismatch,
// bomb-defence checks below.
const lzmaSizeTolerance = 0.10

// Decompress runs the bounded decode pipeline:
// pre-checks in order, then a deadline-bound decode, then an exact
// output-size assertion. A non-nil warning with a nil err indicates the
// unknown-algorithm passthrough degraded path.
func Decompress(ctx context.Context, compressed []byte, expectedSize int64, algo Algorithm, limits Limits) (out []byte, warning error, err error) {
	if expectedSize > limits.MaxDecompressed {
		return nil, nil, failure.ErrExceedsMaxSize
	}
	if len(compressed) == 0 {
		return nil, nil, failure.ErrDataCorruption
	}
	if expectedSize/int64(len(compressed)) > limits.MaxRatio {
		return nil, nil, failure.ErrSuspiciousRatio
	}
	if int64(len(compressed))+expectedSize > limits.MemoryCap {
		return nil, nil, failure.ErrMemoryLimitExceeded
	}
	if expectedSize == 0 {
		return []byte{}, nil, nil
	}

	deadline := limits.Timeout
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)

	go func() {
		o, e := decodeOne(compressed, expectedSize, algo)
		done <- result{o, e}
	}()

	select {
	case <-dctx.Done():
		return nil, nil, failure.ErrTimeoutExceeded
	case r := <-done:
		if r.err != nil {
			return nil, nil, r.err
		}
		if int64(len(r.out)) != expectedSize {
			return nil, nil, failure.ErrSizeMismatch
		}
		switch algo {
		case AlgorithmNone, AlgorithmLz4, AlgorithmLzma, AlgorithmZlib, AlgorithmDeflate, AlgorithmGzip:
			return r.out, nil, nil
		}
		if name, isCustom := strings.CutPrefix(string(algo), "custom:"); isCustom {
			if _, ok := customRegistry[name]; ok {
				return r.out, nil, nil
			}
		}
		return r.out, fmt.Errorf("decompress: unknown algorithm %q passed through unchanged", algo), nil
	}
}

func decodeOne(compressed []byte, expectedSize int64, algo Algorithm) ([]byte, error) {
	if strings.HasPrefix(string(algo), "custom:") {
		name := strings.TrimPrefix(string(algo), "custom:")
		if fn, ok := customRegistry[name]; ok {
			return fn(compressed, expectedSize)
		}
		return passthroughOrFail(compressed, expectedSize)
	}

	switch algo {
	case AlgorithmNone:
		if int64(len(compressed)) != expectedSize {
			return nil, failure.ErrSizeMismatch
		}
		out := make([]byte, len(compressed))
		copy(out, compressed)
		return out, nil
	case AlgorithmLz4:
		return decodeLz4(compressed, expectedSize)
	case AlgorithmLzma:
		return decodeLzmaUnity(compressed, expectedSize)
	case AlgorithmZlib:
		return decodeZlib(compressed, expectedSize)
	case AlgorithmDeflate:
		return decodeDeflate(compressed, expectedSize)
	case AlgorithmGzip:
		return decodeGzip(compressed, expectedSize)
	default:
		return passthroughOrFail(compressed, expectedSize)
	}
}

// passthroughOrFail implements the unknown-algorithm rule: an exact size
// match degrades to passthrough, a mismatch fails.
func passthroughOrFail(compressed []byte, expectedSize int64) ([]byte, error) {
	if int64(len(compressed)) != expectedSize {
		return nil, failure.ErrDecompressionFailed
	}
	out := make([]byte, len(compressed))
	copy(out, compressed)
	return out, nil
}

func decodeLz4(compressed []byte, expectedSize int64) ([]byte, error) {
	out := make([]byte, expectedSize)
	n, err := lz4.UncompressBlock(compressed, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	return out[:n], nil
}

// decodeLzmaUnity decodes a Unity-style LZMA region: a 13-byte header of
// 5 LZMA property bytes followed by an 8-byte little-endian unpacked size,
// then the raw LZMA stream. The header's declared size must agree with
// expectedSize within a 10% tolerance.
func decodeLzmaUnity(compressed []byte, expectedSize int64) ([]byte, error) {
	const headerSize = 13
	if len(compressed) < headerSize {
		return nil, failure.ErrDataCorruption
	}

	declared := int64(binary.LittleEndian.Uint64(compressed[5:13]))
	diff := declared - expectedSize
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > float64(expectedSize)*lzmaSizeTolerance {
		return nil, failure.ErrSizeMismatch
	}

	r, err := lzmacodec.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, expectedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	return out, nil
}

func decodeZlib(compressed []byte, expectedSize int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, expectedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	return out, nil
}

func decodeDeflate(compressed []byte, expectedSize int64) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, expectedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	return out, nil
}

func decodeGzip(compressed []byte, expectedSize int64) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, expectedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrDecompressionFailed, err)
	}
	return out, nil
}

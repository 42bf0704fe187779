package recipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"

	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/failure"
)

// DeltaWarning reports a single delta that failed verification but did not
// abort the rest of the apply run.
type DeltaWarning struct {
	TargetFilename string
	Err            error
}

func (w DeltaWarning) Error() string {
	return fmt.Sprintf("delta %q: %v", w.TargetFilename, w.Err)
}

// ApplyResult summarizes one Apply call: which deltas were written
// successfully and which were skipped with a warning.
type ApplyResult struct {
	Written  []string
	Warnings []DeltaWarning
}

// Apply reconstructs r's outputs from sourcePath into outputDir, per
// the apply algorithm: source size and hash are verified once
// up front (fatal on mismatch); each delta is then read, transformed, and
// hash/size-checked independently (non-fatal on mismatch — the delta is
// skipped with a warning and the run continues).
func Apply(ctx context.Context, r Recipe, sourcePath, outputDir string) (ApplyResult, error) {
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return ApplyResult{}, failure.WrapReadError(err, sourcePath)
	}

	if int64(len(source)) != r.SourceSize {
		return ApplyResult{}, failure.ErrSizeMismatch
	}

	h := blake3.New(32, nil)
	h.Write(source)
	actualHash := fmt.Sprintf("%x", h.Sum(nil))
	if actualHash != r.SourceHash {
		return ApplyResult{}, failure.ErrHashMismatch
	}

	var result ApplyResult
	for _, delta := range r.Deltas {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		out, applyErr := applyDelta(source, delta)
		if applyErr != nil {
			result.Warnings = append(result.Warnings, DeltaWarning{TargetFilename: delta.TargetFilename, Err: applyErr})
			continue
		}

		outPath := filepath.Join(outputDir, delta.TargetFilename)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			result.Warnings = append(result.Warnings, DeltaWarning{TargetFilename: delta.TargetFilename, Err: err})
			continue
		}
		if err := os.WriteFile(outPath, out, 0o644); err != nil {
			result.Warnings = append(result.Warnings, DeltaWarning{TargetFilename: delta.TargetFilename, Err: failure.WrapWriteError(err, outPath)})
			continue
		}
		result.Written = append(result.Written, outPath)
	}

	return result, nil
}

// applyDelta reads one delta's source range, folds its operations
// left-to-right, and verifies the result against the delta's declared
// hash and size.
func applyDelta(source []byte, delta DeltaPatch) ([]byte, error) {
	start := delta.SourceOffset
	end := start + delta.SourceLength
	if start < 0 || end > int64(len(source)) || start > end {
		return nil, failure.ErrDataCorruption
	}

	buf := append([]byte(nil), source[start:end]...)

	for _, op := range delta.Operations {
		var err error
		buf, err = applyOperation(buf, op)
		if err != nil {
			return nil, err
		}
	}

	if int64(len(buf)) != delta.ExpectedOutputSize {
		return nil, failure.ErrSizeMismatch
	}

	h := blake3.New(32, nil)
	h.Write(buf)
	actual := fmt.Sprintf("%x", h.Sum(nil))
	if actual != delta.ExpectedOutputHash {
		return nil, failure.ErrOutputHashMismatch
	}

	return buf, nil
}

// applyOperation interprets one Operation.
func applyOperation(buf []byte, op Operation) ([]byte, error) {
	switch op.Kind {
	case OpCopy:
		start := op.Offset
		end := start + op.Length
		if start < 0 || end > int64(len(buf)) || start > end {
			return nil, failure.ErrDataCorruption
		}
		return append([]byte(nil), buf[start:end]...), nil

	case OpInsertHeader:
		out := make([]byte, 0, len(op.Bytes)+len(buf))
		out = append(out, op.Bytes...)
		out = append(out, buf...)
		return out, nil

	case OpAppendFooter:
		out := make([]byte, 0, len(buf)+len(op.Bytes))
		out = append(out, buf...)
		out = append(out, op.Bytes...)
		return out, nil

	case OpXor:
		if len(op.Key) == 0 {
			return nil, failure.ErrDataCorruption
		}
		out := make([]byte, len(buf))
		for i, b := range buf {
			out[i] = b ^ op.Key[i%len(op.Key)]
		}
		return out, nil

	case OpDecompress:
		out, _, err := decompress.Decompress(context.Background(), buf, op.ExpectedSize, decompress.Algorithm(op.Algorithm), decompress.DefaultLimits())
		if err != nil {
			return nil, err
		}
		return out, nil

	case OpConvert:
		// Reserved; currently identity.
		return buf, nil

	default:
		return nil, failure.ErrDataCorruption
	}
}

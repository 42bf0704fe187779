package eventbus

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/castellan/extract/types"
)

func TestEncodeFrame_ReadEventRoundTrip(t *testing.T) {
	event := types.NewJobStateChange("job-42", time.Now().UTC(), types.JobCompleted, "done")

	frame, err := EncodeFrame(event)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	reader := NewFrameReader(bytes.NewReader(frame))
	got, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}

	if got.JobID != event.JobID || got.Kind != event.Kind {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, event)
	}
	if got.JobStateChange == nil || got.JobStateChange.State != types.JobCompleted {
		t.Fatalf("round trip lost payload: %+v", got)
	}
}

func TestFrameReader_EOFBetweenFrames(t *testing.T) {
	reader := NewFrameReader(bytes.NewReader(nil))
	_, err := reader.ReadEvent()
	if err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestFrameReader_PartialLengthPrefixIsFatal(t *testing.T) {
	reader := NewFrameReader(bytes.NewReader([]byte{0x00, 0x01}))
	_, err := reader.ReadEvent()
	var frameErr *FrameError
	if err == nil {
		t.Fatal("expected an error for a truncated length prefix")
	}
	if !isFrameError(err, &frameErr) {
		t.Fatalf("expected a *FrameError, got %T: %v", err, err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Fatalf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
}

func isFrameError(err error, target **FrameError) bool {
	fe, ok := err.(*FrameError)
	if !ok {
		return false
	}
	*target = fe
	return true
}

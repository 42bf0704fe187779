// Package eventbus implements the Event Bus (C8): a bounded, non-blocking
// broadcast of ExtractionEvents to any number of subscribers, per
// the in-process event bus, plus a length-prefixed msgpack wire framing for
// relaying events across a process boundary. The control plane's SSE feed
// and the Redis relay encode events as JSON, not with this framing.
package eventbus

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/castellan/extract/types"
)

// Frame size constants for the length-prefixed wire format.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including the
	// length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - prefix).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	FrameErrorPartial FrameErrorKind = iota
	FrameErrorTooLarge
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// EncodeFrame encodes an ExtractionEvent as a msgpack payload wrapped in a
// 4-byte big-endian length prefix.
func EncodeFrame(event types.ExtractionEvent) ([]byte, error) {
	payload, err := msgpack.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("eventbus: encode event: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize)}
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// FrameReader reads length-prefixed msgpack ExtractionEvent frames from a
// stream, mirroring the module's in-process wire format for relayed
// events.
type FrameReader struct {
	r io.Reader
}

// NewFrameReader wraps r for frame-by-frame reads.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadEvent reads and decodes the next frame. Returns io.EOF when the
// stream ends cleanly between frames.
func (fr *FrameReader) ReadEvent() (types.ExtractionEvent, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(fr.r, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return types.ExtractionEvent{}, io.EOF
		}
		return types.ExtractionEvent{}, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return types.ExtractionEvent{}, &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize)}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return types.ExtractionEvent{}, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}

	var event types.ExtractionEvent
	if err := msgpack.Unmarshal(payload, &event); err != nil {
		return types.ExtractionEvent{}, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode event", Err: err}
	}
	return event, nil
}

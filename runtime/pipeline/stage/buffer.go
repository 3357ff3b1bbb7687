package stage

import (
	"bytes"
	"time"
)

// ClockTime is a timestamp or duration in nanoseconds.
type ClockTime int64

// ClockTimeNone marks an unset timestamp.
const ClockTimeNone ClockTime = -1

// IsValid reports whether t is set.
func (t ClockTime) IsValid() bool {
	return t != ClockTimeNone
}

// String formats the time as a duration, or "none".
func (t ClockTime) String() string {
	if !t.IsValid() {
		return "none"
	}
	return time.Duration(t).String()
}

// OffsetNone marks an unset buffer offset.
const OffsetNone int64 = -1

// BufferFlags are metadata bits carried by a buffer.
type BufferFlags uint32

const (
	// BufferFlagDiscont marks a discontinuity in the stream.
	BufferFlagDiscont BufferFlags = 1 << iota
	// BufferFlagDeltaUnit marks a buffer that cannot be decoded on its own.
	BufferFlagDeltaUnit
	// BufferFlagGap marks a buffer with no meaningful content.
	BufferFlagGap
	// BufferFlagHeader marks a stream header buffer.
	BufferFlagHeader
)

// Buffer is a unit of data flowing between pads.
type Buffer struct {
	Data      []byte
	PTS       ClockTime
	DTS       ClockTime
	Duration  ClockTime
	Offset    int64
	OffsetEnd int64
	Flags     BufferFlags
}

// NewBuffer allocates a zeroed buffer of the given size with unset metadata.
func NewBuffer(size int) *Buffer {
	if size < 0 {
		size = 0
	}
	return NewBufferFromBytes(make([]byte, size))
}

// NewBufferFromBytes wraps data in a buffer with unset metadata. The slice is not copied.
func NewBufferFromBytes(data []byte) *Buffer {
	return &Buffer{
		Data:      data,
		PTS:       ClockTimeNone,
		DTS:       ClockTimeNone,
		Duration:  ClockTimeNone,
		Offset:    OffsetNone,
		OffsetEnd: OffsetNone,
	}
}

// Size returns the payload size in bytes.
func (b *Buffer) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Copy returns a deep copy of the buffer.
func (b *Buffer) Copy() *Buffer {
	out := *b
	out.Data = append([]byte(nil), b.Data...)
	return &out
}

// CopyMetadata copies timestamps, offsets and flags from src.
func (b *Buffer) CopyMetadata(src *Buffer) {
	b.PTS = src.PTS
	b.DTS = src.DTS
	b.Duration = src.Duration
	b.Offset = src.Offset
	b.OffsetEnd = src.OffsetEnd
	b.Flags = src.Flags
}

// HasFlags reports whether all of flags are set.
func (b *Buffer) HasFlags(flags BufferFlags) bool {
	return b.Flags&flags == flags
}

// SetFlags sets flags.
func (b *Buffer) SetFlags(flags BufferFlags) {
	b.Flags |= flags
}

// UnsetFlags clears flags.
func (b *Buffer) UnsetFlags(flags BufferFlags) {
	b.Flags &^= flags
}

// Equal reports whether both buffers carry the same bytes and metadata.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	return bytes.Equal(b.Data, other.Data) &&
		b.PTS == other.PTS &&
		b.DTS == other.DTS &&
		b.Duration == other.Duration &&
		b.Offset == other.Offset &&
		b.OffsetEnd == other.OffsetEnd &&
		b.Flags == other.Flags
}

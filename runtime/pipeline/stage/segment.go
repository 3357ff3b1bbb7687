package stage

import "fmt"

// Format is the unit used by a segment's positions.
type Format int

const (
	// FormatUndefined means no format was set.
	FormatUndefined Format = iota
	// FormatDefault is the element-defined default unit (frames, samples).
	FormatDefault
	// FormatBytes counts bytes.
	FormatBytes
	// FormatTime counts nanoseconds.
	FormatTime
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatDefault:
		return "default"
	case FormatBytes:
		return "bytes"
	case FormatTime:
		return "time"
	default:
		return "undefined"
	}
}

// Segment describes the playback range that the following buffers belong to.
// Positions are in Format units; -1 means unset.
type Segment struct {
	Format   Format
	Rate     float64
	Start    int64
	Stop     int64
	Time     int64
	Position int64
	Base     int64
}

// NewSegment returns a segment covering the whole stream at normal rate.
func NewSegment(format Format) *Segment {
	return &Segment{
		Format: format,
		Rate:   1.0,
		Stop:   -1,
	}
}

// Copy returns a copy of the segment.
func (s *Segment) Copy() *Segment {
	out := *s
	return &out
}

// String formats the segment for logs.
func (s *Segment) String() string {
	return fmt.Sprintf("segment(%s rate=%g start=%d stop=%d time=%d position=%d base=%d)",
		s.Format, s.Rate, s.Start, s.Stop, s.Time, s.Position, s.Base)
}

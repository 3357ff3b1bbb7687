package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_NewBuffer(t *testing.T) {
	buf := NewBuffer(4)
	assert.Equal(t, 4, buf.Size())
	assert.Equal(t, ClockTimeNone, buf.PTS)
	assert.Equal(t, OffsetNone, buf.Offset)
	assert.Equal(t, 0, NewBuffer(-1).Size())

	var nilBuf *Buffer
	assert.Equal(t, 0, nilBuf.Size())
}

func TestBuffer_CopyIsDeep(t *testing.T) {
	buf := NewBufferFromBytes([]byte{1, 2, 3})
	buf.PTS = ClockTime(time.Second)
	buf.SetFlags(BufferFlagDiscont)

	cp := buf.Copy()
	assert.True(t, cp.Equal(buf))
	cp.Data[0] = 9
	assert.Equal(t, byte(1), buf.Data[0])
	assert.False(t, cp.Equal(buf))
}

func TestBuffer_CopyMetadata(t *testing.T) {
	src := NewBufferFromBytes([]byte{1})
	src.PTS = 10
	src.DTS = 9
	src.Duration = 5
	src.Offset = 1
	src.OffsetEnd = 2
	src.SetFlags(BufferFlagDeltaUnit | BufferFlagGap)

	dst := NewBuffer(8)
	dst.CopyMetadata(src)
	assert.Equal(t, src.PTS, dst.PTS)
	assert.Equal(t, src.OffsetEnd, dst.OffsetEnd)
	assert.True(t, dst.HasFlags(BufferFlagDeltaUnit|BufferFlagGap))
	assert.Equal(t, 8, dst.Size())

	dst.UnsetFlags(BufferFlagGap)
	assert.False(t, dst.HasFlags(BufferFlagGap))
	assert.True(t, dst.HasFlags(BufferFlagDeltaUnit))
}

func TestBuffer_Equal(t *testing.T) {
	var a, b *Buffer
	assert.True(t, a.Equal(b))
	assert.False(t, NewBuffer(1).Equal(nil))
}

func TestClockTime(t *testing.T) {
	assert.False(t, ClockTimeNone.IsValid())
	assert.Equal(t, "none", ClockTimeNone.String())
	assert.Equal(t, "1.5s", ClockTime(1500*time.Millisecond).String())
}

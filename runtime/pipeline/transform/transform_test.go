package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/stage"
)

var (
	fooBar = stage.MustParseCaps("foo/x-bar")
	fooBaz = stage.MustParseCaps("foo/x-baz")
)

// fixture wires upstream src pad -> transform -> recording downstream sink pad.
type fixture struct {
	tr     *Transform
	src    *stage.Pad
	sink   *stage.Pad
	out    []*stage.Buffer
	events []*stage.Event
}

func newFixture(t *testing.T, cfg *Config, downstream *stage.Caps) *fixture {
	t.Helper()
	tr, err := New("trans", cfg)
	require.NoError(t, err)

	f := &fixture{
		tr:   tr,
		src:  stage.NewPad("src", stage.PadSrc),
		sink: stage.NewPadFromTemplate(stage.NewPadTemplate("sink", stage.PadSink, downstream), ""),
	}
	f.sink.SetChainFunc(func(_ *stage.Pad, buf *stage.Buffer) error {
		f.out = append(f.out, buf)
		return nil
	})
	f.sink.SetEventFunc(func(_ *stage.Pad, ev *stage.Event) error {
		f.events = append(f.events, ev)
		return nil
	})

	require.NoError(t, f.src.Link(tr.SinkPad()))
	require.NoError(t, tr.SrcPad().Link(f.sink))
	require.NoError(t, f.sink.SetActive(true))
	require.NoError(t, tr.Element().SetState(stage.StatePaused))
	require.NoError(t, f.src.SetActive(true))
	require.NoError(t, f.src.PushEvent(stage.NewStreamStartEvent("test")))
	return f
}

func (f *fixture) start(t *testing.T, caps *stage.Caps) {
	t.Helper()
	require.NoError(t, f.src.SetCaps(caps))
	require.NoError(t, f.src.PushEvent(stage.NewSegmentEvent(stage.NewSegment(stage.FormatTime))))
}

// converter maps foo/x-bar on the input to foo/x-baz on the output.
var converter = CapsTransformFunc(func(dir stage.PadDirection, _, filter *stage.Caps) *stage.Caps {
	if dir == stage.PadSink {
		return fooBaz.Intersect(filter)
	}
	return fooBar.Intersect(filter)
})

func TestNew_Defaults(t *testing.T) {
	tr, err := New("identity", nil)
	require.NoError(t, err)

	assert.Equal(t, "identity", tr.Name())
	assert.Equal(t, 0, tr.ActiveHooks().Cardinality())
	assert.Equal(t, "identity:sink", tr.SinkPad().FullName())
	assert.Equal(t, "identity:src", tr.SrcPad().FullName())
	assert.False(t, tr.IsNegotiated())
	assert.False(t, tr.IsInPlace())
	assert.Nil(t, tr.InputCaps())
	assert.Nil(t, tr.OutputCaps())
}

func TestNew_InvalidTemplates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SinkTemplate = stage.NewPadTemplate("sink", stage.PadSrc, nil)
	_, err := New("bad", cfg)
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	cfg = DefaultConfig()
	cfg.SrcTemplate = nil
	_, err = New("bad", cfg)
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestNew_ActiveHooks(t *testing.T) {
	cfg := DefaultConfig().
		WithTransform(TransformFunc(func(_, _ *stage.Buffer) error { return nil })).
		WithSetCaps(DefaultSetCaps).
		WithPassthroughOnSameCaps(true)
	tr, err := New("t", cfg)
	require.NoError(t, err)

	hooks := tr.ActiveHooks()
	assert.True(t, hooks.Contains(HookTransform, HookSetCaps, HookPassthroughOnSameCaps))
	assert.False(t, hooks.Contains(HookTransformIP))
	assert.Equal(t, 3, hooks.Cardinality())

	hooks.Add(HookTransformIP)
	assert.False(t, tr.ActiveHooks().Contains(HookTransformIP), "accessor returns a copy")
}

func TestNegotiation_IdentityKeepsInputCaps(t *testing.T) {
	var gotIn, gotOut *stage.Caps
	cfg := DefaultConfig().WithSetCaps(SetCapsFunc(func(in, out *stage.Caps) error {
		gotIn, gotOut = in, out
		return nil
	}))
	f := newFixture(t, cfg, fooBar)

	require.NoError(t, f.src.SetCaps(fooBar))
	assert.True(t, f.tr.IsNegotiated())
	assert.True(t, gotIn.IsEqual(fooBar))
	assert.True(t, gotOut.IsEqual(fooBar))
	assert.True(t, f.sink.CurrentCaps().IsEqual(fooBar))
	assert.False(t, f.tr.IsPassthrough(), "flag not set")

	require.Len(t, f.events, 2)
	assert.Equal(t, stage.EventStreamStart, f.events[0].Type())
	assert.Equal(t, stage.EventCaps, f.events[1].Type())
}

func TestNegotiation_Converter(t *testing.T) {
	cfg := DefaultConfig().WithCaps(converter).WithPassthroughOnSameCaps(true)
	f := newFixture(t, cfg, fooBaz)

	require.NoError(t, f.src.SetCaps(fooBar))
	assert.True(t, f.tr.InputCaps().IsEqual(fooBar))
	assert.True(t, f.tr.OutputCaps().IsEqual(fooBaz))
	assert.False(t, f.tr.IsPassthrough(), "caps differ")
	assert.True(t, f.sink.CurrentCaps().IsEqual(fooBaz))
}

func TestNegotiation_FixatesPeerCaps(t *testing.T) {
	cfg := DefaultConfig().WithCaps(CapsTransformFunc(func(_ stage.PadDirection, _, filter *stage.Caps) *stage.Caps {
		return stage.MustParseCaps("video/x-raw, format=(string){ I420, NV12 }").Intersect(filter)
	}))
	f := newFixture(t, cfg, stage.MustParseCaps("video/x-raw, format=(string){ NV12, I420 }"))

	require.NoError(t, f.src.SetCaps(fooBar))
	// Downstream order wins.
	assert.Equal(t, "video/x-raw, format=(string)NV12", f.tr.OutputCaps().String())
}

func TestNegotiation_Failures(t *testing.T) {
	t.Run("no common caps with src template", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SrcTemplate = stage.NewPadTemplate(SrcPadName, stage.PadSrc, stage.MustParseCaps("video/x-raw"))
		f := newFixture(t, cfg, nil)

		err := f.src.SetCaps(fooBar)
		var negErr *stage.NegotiationError
		require.ErrorAs(t, err, &negErr)
		assert.ErrorIs(t, err, stage.ErrNoCommonCaps)
		assert.Equal(t, "trans", negErr.Element)
		assert.False(t, f.tr.IsNegotiated())
	})

	t.Run("downstream refuses", func(t *testing.T) {
		f := newFixture(t, DefaultConfig(), stage.MustParseCaps("audio/x-raw"))

		err := f.src.SetCaps(fooBar)
		assert.ErrorIs(t, err, stage.ErrNoCommonCaps)
		assert.Equal(t, stage.FlowNotNegotiated, stage.FlowReturnOf(err))
		assert.Nil(t, f.sink.CurrentCaps())
	})

	t.Run("set caps hook refuses", func(t *testing.T) {
		boom := errors.New("unsupported")
		cfg := DefaultConfig().WithSetCaps(SetCapsFunc(func(_, _ *stage.Caps) error { return boom }))
		f := newFixture(t, cfg, fooBar)

		err := f.src.SetCaps(fooBar)
		var negErr *stage.NegotiationError
		require.ErrorAs(t, err, &negErr)
		assert.ErrorIs(t, err, boom)
		assert.False(t, f.tr.IsNegotiated())
	})

	t.Run("renegotiation failure drops old caps", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SinkTemplate = stage.NewPadTemplate(SinkPadName, stage.PadSink, stage.MustParseCaps("foo/x-bar; audio/x-raw"))
		f := newFixture(t, cfg, fooBar)

		require.NoError(t, f.src.SetCaps(fooBar))
		require.Error(t, f.src.SetCaps(stage.MustParseCaps("audio/x-raw")))
		assert.False(t, f.tr.IsNegotiated())
	})
}

func TestChain_NotNegotiated(t *testing.T) {
	called := 0
	cfg := DefaultConfig().WithTransform(TransformFunc(func(_, _ *stage.Buffer) error {
		called++
		return nil
	}))
	f := newFixture(t, cfg, fooBar)
	require.NoError(t, f.src.PushEvent(stage.NewSegmentEvent(stage.NewSegment(stage.FormatTime))))

	err := f.src.Push(stage.NewBuffer(4))
	var flowErr *stage.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, stage.FlowNotNegotiated, flowErr.Return)
	assert.ErrorIs(t, err, stage.ErrNotNegotiated)
	assert.Zero(t, called)
	assert.Empty(t, f.out)
}

func TestChain_PassthroughSkipsHooks(t *testing.T) {
	transformCalls, inPlaceCalls, sizeCalls := 0, 0, 0
	cfg := DefaultConfig().
		WithTransform(TransformFunc(func(_, _ *stage.Buffer) error { transformCalls++; return nil })).
		WithInPlace(InPlaceFunc(func(_ *stage.Buffer) error { inPlaceCalls++; return nil })).
		WithSize(SizeTransformFunc(func(_ stage.PadDirection, _ *stage.Caps, size int, _ *stage.Caps) (int, error) {
			sizeCalls++
			return size, nil
		})).
		WithPassthroughOnSameCaps(true)
	f := newFixture(t, cfg, fooBar)
	f.start(t, fooBar)
	require.True(t, f.tr.IsPassthrough())

	in := stage.NewBufferFromBytes([]byte{1, 2, 3, 4})
	require.NoError(t, f.src.Push(in))

	require.Len(t, f.out, 1)
	assert.Same(t, in, f.out[0])
	assert.Equal(t, []byte{1, 2, 3, 4}, f.out[0].Data)
	assert.Zero(t, transformCalls)
	assert.Zero(t, inPlaceCalls)
	assert.Zero(t, sizeCalls)
}

func TestChain_ForcedPassthrough(t *testing.T) {
	calls := 0
	cfg := DefaultConfig().WithInPlace(InPlaceFunc(func(_ *stage.Buffer) error { calls++; return nil }))
	f := newFixture(t, cfg, fooBar)
	f.start(t, fooBar)

	f.tr.SetPassthrough(true)
	require.NoError(t, f.src.Push(stage.NewBuffer(1)))
	assert.Zero(t, calls)

	f.tr.SetPassthrough(false)
	require.NoError(t, f.src.Push(stage.NewBuffer(1)))
	assert.Equal(t, 1, calls)
}

func TestChain_CopyMode(t *testing.T) {
	cfg := DefaultConfig().
		WithSize(SizeTransformFunc(func(dir stage.PadDirection, _ *stage.Caps, size int, _ *stage.Caps) (int, error) {
			assert.Equal(t, stage.PadSink, dir)
			return size * 2, nil
		})).
		WithTransform(TransformFunc(func(in, out *stage.Buffer) error {
			copy(out.Data, in.Data)
			copy(out.Data[len(in.Data):], in.Data)
			return nil
		}))
	f := newFixture(t, cfg, fooBar)
	f.start(t, fooBar)

	in := stage.NewBufferFromBytes([]byte{7, 8})
	in.PTS = 42
	in.SetFlags(stage.BufferFlagDiscont)
	require.NoError(t, f.src.Push(in))

	require.Len(t, f.out, 1)
	out := f.out[0]
	assert.NotSame(t, in, out)
	assert.Equal(t, []byte{7, 8, 7, 8}, out.Data)
	assert.Equal(t, stage.ClockTime(42), out.PTS)
	assert.True(t, out.HasFlags(stage.BufferFlagDiscont))
}

func TestChain_InPlaceMode(t *testing.T) {
	cfg := DefaultConfig().WithInPlace(InPlaceFunc(func(buf *stage.Buffer) error {
		for i := range buf.Data {
			buf.Data[i]++
		}
		return nil
	}))
	f := newFixture(t, cfg, fooBar)
	assert.True(t, f.tr.IsInPlace())
	f.start(t, fooBar)

	in := stage.NewBufferFromBytes([]byte{1, 2})
	require.NoError(t, f.src.Push(in))
	require.Len(t, f.out, 1)
	assert.Same(t, in, f.out[0])
	assert.Equal(t, []byte{2, 3}, in.Data)
}

func TestChain_SetInPlace(t *testing.T) {
	var mode string
	cfg := DefaultConfig().
		WithTransform(TransformFunc(func(_, _ *stage.Buffer) error { mode = "copy"; return nil })).
		WithInPlace(InPlaceFunc(func(_ *stage.Buffer) error { mode = "ip"; return nil }))
	f := newFixture(t, cfg, fooBar)
	f.start(t, fooBar)
	assert.False(t, f.tr.IsInPlace(), "copy mode wins when both hooks are set")

	require.NoError(t, f.src.Push(stage.NewBuffer(1)))
	assert.Equal(t, "copy", mode)

	require.NoError(t, f.tr.SetInPlace(true))
	require.NoError(t, f.src.Push(stage.NewBuffer(1)))
	assert.Equal(t, "ip", mode)

	noIP, err := New("x", DefaultConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, noIP.SetInPlace(true), ErrNoInPlaceHook)
}

func TestChain_SetInPlaceWithoutCopyHook(t *testing.T) {
	calls := 0
	cfg := DefaultConfig().WithInPlace(InPlaceFunc(func(_ *stage.Buffer) error { calls++; return nil }))
	f := newFixture(t, cfg, fooBar)
	f.start(t, fooBar)
	require.True(t, f.tr.IsInPlace())

	assert.ErrorIs(t, f.tr.SetInPlace(false), ErrNoTransformHook)
	assert.True(t, f.tr.IsInPlace(), "mode is unchanged after a refused switch")

	require.NoError(t, f.src.Push(stage.NewBuffer(1)))
	assert.Equal(t, 1, calls)
	assert.NoError(t, f.tr.SetInPlace(true))
}

func TestChain_NoHooksForwards(t *testing.T) {
	f := newFixture(t, DefaultConfig(), fooBar)
	f.start(t, fooBar)

	in := stage.NewBuffer(3)
	require.NoError(t, f.src.Push(in))
	require.Len(t, f.out, 1)
	assert.Same(t, in, f.out[0])
}

func TestChain_HookErrors(t *testing.T) {
	boom := errors.New("transform failed")
	cfg := DefaultConfig().WithTransform(TransformFunc(func(_, _ *stage.Buffer) error { return boom }))
	f := newFixture(t, cfg, fooBar)
	f.start(t, fooBar)

	err := f.src.Push(stage.NewBuffer(1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, stage.FlowFailed, stage.FlowReturnOf(err))
	assert.Contains(t, err.Error(), string(HookTransform))

	cfg = DefaultConfig().WithInPlace(InPlaceFunc(func(_ *stage.Buffer) error {
		return stage.NewFlowError("hook", stage.FlowEOS, nil)
	}))
	f = newFixture(t, cfg, fooBar)
	f.start(t, fooBar)
	assert.Equal(t, stage.FlowEOS, stage.FlowReturnOf(f.src.Push(stage.NewBuffer(1))))

	cfg = DefaultConfig().
		WithTransform(TransformFunc(func(_, _ *stage.Buffer) error { return nil })).
		WithSize(SizeTransformFunc(func(stage.PadDirection, *stage.Caps, int, *stage.Caps) (int, error) { return -1, nil }))
	f = newFixture(t, cfg, fooBar)
	f.start(t, fooBar)
	assert.Equal(t, stage.FlowFailed, stage.FlowReturnOf(f.src.Push(stage.NewBuffer(1))))
	assert.Empty(t, f.out)
}

func TestEvents_EOSAndFlush(t *testing.T) {
	f := newFixture(t, DefaultConfig(), fooBar)
	f.start(t, fooBar)

	require.NoError(t, f.src.PushEvent(stage.NewEOSEvent()))
	assert.True(t, f.sink.IsEOS())
	assert.Equal(t, stage.FlowEOS, stage.FlowReturnOf(f.tr.SinkPad().Chain(stage.NewBuffer(1))))

	require.NoError(t, f.src.PushEvent(stage.NewFlushStartEvent()))
	assert.Equal(t, stage.FlowFlushing, stage.FlowReturnOf(f.tr.SinkPad().Chain(stage.NewBuffer(1))))
	require.NoError(t, f.src.PushEvent(stage.NewFlushStopEvent(true)))
	require.NoError(t, f.src.PushEvent(stage.NewSegmentEvent(stage.NewSegment(stage.FormatTime))))
	require.NoError(t, f.src.Push(stage.NewBuffer(1)))

	var types []stage.EventType
	for _, ev := range f.events {
		types = append(types, ev.Type())
	}
	assert.Equal(t, []stage.EventType{
		stage.EventStreamStart, stage.EventCaps, stage.EventSegment,
		stage.EventEOS, stage.EventFlushStart, stage.EventFlushStop, stage.EventSegment,
	}, types)
	assert.Len(t, f.out, 1)
}

func TestQueryCaps(t *testing.T) {
	f := newFixture(t, DefaultConfig().WithCaps(converter), fooBaz)

	assert.Equal(t, "foo/x-bar", f.tr.SinkPad().QueryCaps(nil).String())
	assert.Equal(t, "foo/x-baz", f.tr.SrcPad().QueryCaps(nil).String())
	assert.True(t, f.tr.SinkPad().QueryCaps(stage.MustParseCaps("audio/x-raw")).IsEmpty())
	assert.Equal(t, "foo/x-bar", f.src.PeerQueryCaps(fooBar).String())
}

func TestLifecycle(t *testing.T) {
	var calls []string
	cfg := DefaultConfig().WithLifecycle(LifecycleFuncs{
		StartFunc: func() error { calls = append(calls, "start"); return nil },
		StopFunc:  func() error { calls = append(calls, "stop"); return nil },
	})
	f := newFixture(t, cfg, fooBar)
	f.start(t, fooBar)
	require.True(t, f.tr.IsNegotiated())

	require.NoError(t, f.tr.Element().SetState(stage.StateNull))
	assert.Equal(t, []string{"start", "stop"}, calls)
	assert.False(t, f.tr.IsNegotiated(), "stop clears negotiated caps")
	assert.False(t, f.tr.SinkPad().IsActive())
}

func TestLifecycle_StartFailure(t *testing.T) {
	boom := errors.New("no device")
	cfg := DefaultConfig().WithLifecycle(LifecycleFuncs{StartFunc: func() error { return boom }})
	tr, err := New("t", cfg)
	require.NoError(t, err)

	err = tr.Element().SetState(stage.StatePaused)
	var stErr *stage.StateTransitionError
	require.ErrorAs(t, err, &stErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, stage.StateReady, tr.Element().State())
	assert.False(t, tr.SinkPad().IsActive())
}

func TestLifecycle_StopFailure(t *testing.T) {
	boom := errors.New("stuck")
	cfg := DefaultConfig().WithLifecycle(LifecycleFuncs{StopFunc: func() error { return boom }})
	tr, err := New("t", cfg)
	require.NoError(t, err)
	require.NoError(t, tr.Element().SetState(stage.StatePaused))

	err = tr.Element().SetState(stage.StateNull)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, stage.StatePaused, tr.Element().State())
}

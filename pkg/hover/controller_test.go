package hover

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/observability"
	"github.com/odvcencio/hoverkit/pkg/ui/markdown"
	"github.com/odvcencio/hoverkit/pkg/ui/runtime"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
	"github.com/odvcencio/hoverkit/pkg/ui/theme"
)

// Offsets into sampleSource:
//
//	19..23 "main" on line 2
//	29..32 "fmt" on line 3
//	41     "x" on line 3
const sampleSource = "package main\n\nfunc main() {\n\tfmt.Println(x)\n}\n"

type fakeView struct {
	buf       *document.Buffer
	cursor    document.Anchor
	exclusive bool

	highlight      *document.Range[document.Anchor]
	highlightStyle style.Style
	notified       int

	gotoCalls int
	gotoGroup int
	gotoAt    document.Anchor
}

func (v *fakeView) Snapshot() Snapshot       { return v.buf.Snapshot() }
func (v *fakeView) Document() DocumentHandle { return v.buf }
func (v *fakeView) Cursor() document.Anchor  { return v.cursor }
func (v *fakeView) InExclusiveMode() bool    { return v.exclusive }
func (v *fakeView) Notify()                  { v.notified++ }
func (v *fakeView) ClearSymbolHighlight()    { v.highlight = nil }

func (v *fakeView) HighlightSymbol(r document.Range[document.Anchor], s style.Style) {
	v.highlight = &r
	v.highlightStyle = s
}

func (v *fakeView) GoToDiagnostic(groupID int, at document.Anchor) {
	v.gotoCalls++
	v.gotoGroup = groupID
	v.gotoAt = at
}

type harness struct {
	t       *testing.T
	view    *fakeView
	backend *MockBackend
	clock   *testingclock.FakeClock
	loop    *runtime.Loop
	ctrl    *Controller
	opened  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		view:    &fakeView{buf: document.NewBuffer("file:///main.go", "go", sampleSource)},
		backend: NewMockBackend(gomock.NewController(t)),
		clock:   testingclock.NewFakeClock(time.Unix(1700000000, 0)),
		loop:    runtime.NewLoop(),
	}
	ctrl, err := NewController(h.view, Options{
		Backend:  h.backend,
		Executor: h.loop,
		Clock:    h.clock,
		Theme:    theme.DefaultTheme(),
		OpenURL: func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		},
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	t.Cleanup(func() { h.ctrl.Dismiss() })
	return h
}

func (h *harness) anchor(offset int) document.Anchor {
	return h.view.buf.Snapshot().AnchorAt(offset, document.BiasLeft)
}

func (h *harness) resolve(r document.Range[document.Anchor]) document.Range[int] {
	return h.view.buf.Snapshot().ResolveRange(r)
}

// drainUntil runs posted work until cond holds.
func (h *harness) drainUntil(cond func() bool) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		h.loop.Drain()
		return cond()
	}, 2*time.Second, 5*time.Millisecond)
}

func mainResult() *Result {
	return &Result{
		Contents: []markdown.Block{markdown.Code("func main()", "go")},
		Range: &document.Range[Position]{
			Start: Position{Line: 2, Character: 5},
			End:   Position{Line: 2, Character: 9},
		},
	}
}

func TestNewController_Validation(t *testing.T) {
	view := &fakeView{buf: document.NewBuffer("file:///a.go", "go", "")}
	backend := NewMockBackend(gomock.NewController(t))

	_, err := NewController(nil, Options{Backend: backend, Executor: runtime.NewLoop()})
	assert.Error(t, err)
	_, err = NewController(view, Options{Executor: runtime.NewLoop()})
	assert.Error(t, err)
	_, err = NewController(view, Options{Backend: backend})
	assert.Error(t, err)

	c, err := NewController(view, Options{Backend: backend, Executor: runtime.NewLoop(), RequestDelay: time.Second})
	require.NoError(t, err)
	assert.Equal(t, DefaultDelay, c.delay)
	assert.Equal(t, DefaultDelay, c.requestDelay, "request delay never exceeds total delay")
	assert.True(t, c.Enabled())
}

func TestController_PointerHoverWaitsForBothDelays(t *testing.T) {
	h := newHarness(t)
	called := make(chan struct{})
	h.backend.EXPECT().
		Hover(gomock.Any(), h.view.buf, Position{Line: 2, Character: 5}).
		DoAndReturn(func(ctx context.Context, doc DocumentHandle, pos Position) (*Result, error) {
			close(called)
			return mainResult(), nil
		})

	h.ctrl.Trigger(h.anchor(19), false)
	assert.False(t, h.ctrl.Visible())

	h.clock.Step(DefaultRequestDelay - time.Millisecond)
	assert.Never(t, func() bool {
		select {
		case <-called:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "backend asked before the request delay")

	h.clock.Step(time.Millisecond)
	require.Eventually(t, func() bool {
		select {
		case <-called:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	// The answer is in, but the total delay has not elapsed.
	assert.Never(t, func() bool { return h.loop.Drain() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Nil(t, h.ctrl.State().Info)

	h.clock.Step(DefaultDelay - DefaultRequestDelay)
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })

	info := h.ctrl.State().Info
	assert.Equal(t, document.Range[int]{Start: 19, End: 23}, h.resolve(info.SymbolRange))
	require.NotNil(t, h.view.highlight)
	assert.Equal(t, document.Range[int]{Start: 19, End: 23}, h.resolve(*h.view.highlight))
	assert.Equal(t, theme.DefaultTheme().Hover.Highlight, h.view.highlightStyle)
	assert.Positive(t, h.view.notified)
}

func TestController_KeyboardHoverSkipsDelays(t *testing.T) {
	h := newHarness(t)
	h.view.cursor = h.anchor(21)
	h.backend.EXPECT().
		Hover(gomock.Any(), h.view.buf, Position{Line: 2, Character: 7}).
		Return(mainResult(), nil)

	before := testutil.ToFloat64(observability.HoverRequests.WithLabelValues(observability.TriggerKeyboard))
	h.ctrl.ShowHoverAtCursor()
	assert.True(t, h.ctrl.Pending())
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })
	assert.False(t, h.ctrl.Pending())

	assert.Equal(t, before+1, testutil.ToFloat64(observability.HoverRequests.WithLabelValues(observability.TriggerKeyboard)))
}

func TestController_RepeatTriggerAtSameLocationIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), gomock.Any()).Return(mainResult(), nil).Times(1)

	h.ctrl.Trigger(h.anchor(19), false)
	first := h.ctrl.pending
	h.ctrl.Trigger(h.anchor(19), false)
	assert.Same(t, first, h.ctrl.pending, "same location keeps the in-flight request")

	h.clock.Step(DefaultDelay)
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })
}

func TestController_PointerInsideSymbolKeepsPopover(t *testing.T) {
	h := newHarness(t)
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), Position{Line: 2, Character: 5}).Return(mainResult(), nil)
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), Position{Line: 3, Character: 1}).Return(nil, nil)

	h.ctrl.Trigger(h.anchor(19), true)
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })
	info := h.ctrl.State().Info

	h.ctrl.Trigger(h.anchor(21), false)
	assert.Same(t, info, h.ctrl.State().Info)
	assert.Nil(t, h.ctrl.pending)

	// Leaving the symbol hides the popover straight away and asks again.
	h.ctrl.Trigger(h.anchor(29), false)
	assert.Nil(t, h.ctrl.State().Info)
	assert.Nil(t, h.view.highlight)
	require.NotNil(t, h.ctrl.pending)

	h.clock.Step(DefaultDelay)
	h.drainUntil(func() bool { return h.ctrl.pending == nil })
	assert.False(t, h.ctrl.Visible())
}

func TestController_PointerSweepSkipsIntermediateLocations(t *testing.T) {
	h := newHarness(t)
	h.backend.EXPECT().
		Hover(gomock.Any(), gomock.Any(), Position{Line: 2, Character: 5}).
		Times(0)
	fmtResult := &Result{Contents: []markdown.Block{markdown.Markdown("package **fmt**")}}
	h.backend.EXPECT().
		Hover(gomock.Any(), gomock.Any(), Position{Line: 3, Character: 1}).
		Return(fmtResult, nil).
		Times(1)

	h.ctrl.Trigger(h.anchor(19), false)
	h.clock.Step(DefaultRequestDelay / 2)
	h.ctrl.Trigger(h.anchor(29), false)

	// The first location's request delay has now elapsed too.
	h.clock.Step(DefaultRequestDelay)
	h.clock.Step(DefaultDelay)
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })
	assert.Equal(t, fmtResult.Contents, h.ctrl.State().Info.Blocks)
	assert.Equal(t, document.Range[int]{Start: 29, End: 29}, h.resolve(h.ctrl.State().Info.SymbolRange))
}

func TestController_NewTriggerCancelsPendingRequest(t *testing.T) {
	h := newHarness(t)
	entered := make(chan struct{})
	cancelled := make(chan error, 1)
	h.backend.EXPECT().
		Hover(gomock.Any(), gomock.Any(), Position{Line: 2, Character: 5}).
		DoAndReturn(func(ctx context.Context, doc DocumentHandle, pos Position) (*Result, error) {
			close(entered)
			<-ctx.Done()
			cancelled <- ctx.Err()
			return mainResult(), nil
		})
	fmtResult := &Result{Contents: []markdown.Block{markdown.Markdown("package **fmt**")}}
	h.backend.EXPECT().
		Hover(gomock.Any(), gomock.Any(), Position{Line: 3, Character: 1}).
		Return(fmtResult, nil)

	before := testutil.ToFloat64(observability.HoverCancellations)
	h.ctrl.Trigger(h.anchor(19), true)
	<-entered

	h.ctrl.Trigger(h.anchor(29), true)
	assert.ErrorIs(t, <-cancelled, context.Canceled)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.HoverCancellations))

	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })
	assert.Equal(t, fmtResult.Contents, h.ctrl.State().Info.Blocks)

	// Without a range the symbol collapses to the trigger point.
	assert.Equal(t, document.Range[int]{Start: 29, End: 29}, h.resolve(h.ctrl.State().Info.SymbolRange))
}

func TestController_ApplyDropsSupersededResult(t *testing.T) {
	h := newHarness(t)
	stale := &request{generation: 1, trigger: h.anchor(19), cancel: func() {}}
	h.ctrl.generation = 2

	before := testutil.ToFloat64(observability.HoverResults.WithLabelValues(observability.OutcomeStale))
	h.ctrl.apply(stale, mainResult(), nil, h.clock.Now())

	assert.Nil(t, h.ctrl.State().Info)
	assert.Nil(t, h.view.highlight)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.HoverResults.WithLabelValues(observability.OutcomeStale)))
}

func TestController_DismissDropsLateResult(t *testing.T) {
	h := newHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.backend.EXPECT().
		Hover(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, doc DocumentHandle, pos Position) (*Result, error) {
			close(entered)
			<-release
			return mainResult(), nil
		})

	h.ctrl.Trigger(h.anchor(19), true)
	req := h.ctrl.pending
	require.NotNil(t, req)
	<-entered

	assert.False(t, h.ctrl.Dismiss())
	close(release)

	// Even if the result made it through, it belongs to a dead request.
	h.ctrl.apply(req, mainResult(), nil, h.clock.Now())
	h.loop.Drain()
	assert.False(t, h.ctrl.Visible())
	assert.Nil(t, h.ctrl.State().TriggeredFrom)
}

func TestController_BackendErrorShowsNothing(t *testing.T) {
	h := newHarness(t)
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("server crashed"))

	before := testutil.ToFloat64(observability.HoverResults.WithLabelValues(observability.OutcomeError))
	h.ctrl.Trigger(h.anchor(19), true)
	h.drainUntil(func() bool { return h.ctrl.pending == nil })

	assert.False(t, h.ctrl.Visible())
	assert.Nil(t, h.view.highlight)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.HoverResults.WithLabelValues(observability.OutcomeError)))
}

func TestController_BlankResultIsEmpty(t *testing.T) {
	h := newHarness(t)
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&Result{Contents: []markdown.Block{markdown.PlainText("  \n")}}, nil)

	h.ctrl.Trigger(h.anchor(19), true)
	h.drainUntil(func() bool { return h.ctrl.pending == nil })
	assert.Nil(t, h.ctrl.State().Info)
}

func TestController_InvalidRangeFallsBackToTrigger(t *testing.T) {
	h := newHarness(t)
	result := mainResult()
	result.Range.End = Position{Line: 99}
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), gomock.Any()).Return(result, nil)

	h.ctrl.Trigger(h.anchor(20), true)
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })
	assert.Equal(t, document.Range[int]{Start: 20, End: 20}, h.resolve(h.ctrl.State().Info.SymbolRange))
}

func withDiagnostics(h *harness) {
	h.view.buf.SetDiagnostics([]diagnostics.Entry[document.Range[int]]{
		{
			Range: document.Range[int]{Start: 28, End: 43},
			Diagnostic: diagnostics.Diagnostic{
				Message: "statement has no effect", Severity: diagnostics.SeverityWarning,
				GroupID: 2, IsPrimary: true,
			},
		},
		{
			Range: document.Range[int]{Start: 29, End: 32},
			Diagnostic: diagnostics.Diagnostic{
				Message: "undefined: fmt", Source: "compiler", Severity: diagnostics.SeverityError,
				GroupID: 1, IsPrimary: true,
			},
		},
		{
			Range: document.Range[int]{Start: 41, End: 42},
			Diagnostic: diagnostics.Diagnostic{
				Message: "used here", Source: "compiler", Severity: diagnostics.SeverityHint,
				GroupID: 1,
			},
		},
	})
}

func TestController_DiagnosticShowsImmediately(t *testing.T) {
	h := newHarness(t)
	withDiagnostics(h)

	h.ctrl.Trigger(h.anchor(41), false)

	diag := h.ctrl.State().Diagnostic
	require.NotNil(t, diag, "diagnostic popover does not wait for the backend")
	assert.Equal(t, "used here", diag.Local.Diagnostic.Message, "narrowest range wins")
	require.NotNil(t, diag.Primary)
	assert.Equal(t, "undefined: fmt", diag.Primary.Diagnostic.Message)
	assert.True(t, h.ctrl.Visible())
	assert.Positive(t, h.view.notified)

	point, elements, ok := h.ctrl.Render(document.Range[int]{Start: 0, End: 10})
	require.True(t, ok)
	assert.Equal(t, document.Point{Row: 3, Column: 13}, point)
	require.Len(t, elements, 1)
	assert.Equal(t, ElementDiagnostic, elements[0].Kind)
	assert.Equal(t, "compiler: used here", elements[0].Text)
	assert.Equal(t, theme.DefaultTheme().Hover.InfoContainer, elements[0].Container)

	_, _, ok = h.ctrl.Render(document.Range[int]{Start: 0, End: 3})
	assert.False(t, ok, "anchor row scrolled out of view")

	assert.True(t, h.ctrl.HandleClick(ElementDiagnostic, 0))
	assert.Equal(t, 1, h.view.gotoCalls)
	assert.Equal(t, 1, h.view.gotoGroup)
	assert.Equal(t, 29, h.view.buf.Snapshot().Resolve(h.view.gotoAt), "click goes to the primary entry")
}

func TestController_DiagnosticTieKeepsFirst(t *testing.T) {
	h := newHarness(t)
	h.view.buf.SetDiagnostics([]diagnostics.Entry[document.Range[int]]{
		{Range: document.Range[int]{Start: 29, End: 32}, Diagnostic: diagnostics.Diagnostic{Message: "first", GroupID: 1, IsPrimary: true}},
		{Range: document.Range[int]{Start: 29, End: 32}, Diagnostic: diagnostics.Diagnostic{Message: "second", GroupID: 2, IsPrimary: true}},
	})

	h.ctrl.Trigger(h.anchor(30), false)
	require.NotNil(t, h.ctrl.State().Diagnostic)
	assert.Equal(t, "first", h.ctrl.State().Diagnostic.Local.Diagnostic.Message)
}

func TestController_DismissIsIdempotent(t *testing.T) {
	h := newHarness(t)
	withDiagnostics(h)

	h.ctrl.Trigger(h.anchor(30), false)
	require.True(t, h.ctrl.Visible())
	notified := h.view.notified

	assert.True(t, h.ctrl.Dismiss())
	assert.Equal(t, notified+1, h.view.notified)
	assert.Nil(t, h.ctrl.pending)
	assert.Nil(t, h.ctrl.State().TriggeredFrom)

	assert.False(t, h.ctrl.Dismiss())
	assert.Equal(t, notified+1, h.view.notified, "nothing to redraw the second time")
}

func TestController_ExclusiveModeSuppressesHover(t *testing.T) {
	h := newHarness(t)
	withDiagnostics(h)
	h.view.exclusive = true

	h.ctrl.Trigger(h.anchor(30), false)
	h.ctrl.ShowHoverAtCursor()
	assert.False(t, h.ctrl.Visible())
	assert.Nil(t, h.ctrl.pending)
}

func TestController_HoverAtRespectsEnabled(t *testing.T) {
	h := newHarness(t)
	withDiagnostics(h)

	h.ctrl.SetEnabled(false)
	a := h.anchor(30)
	h.ctrl.HoverAt(&a)
	assert.False(t, h.ctrl.Visible())

	h.ctrl.SetEnabled(true)
	h.ctrl.HoverAt(&a)
	assert.True(t, h.ctrl.Visible())

	h.ctrl.HoverAt(nil)
	assert.False(t, h.ctrl.Visible())
}

func TestController_LinkClickOpensURL(t *testing.T) {
	h := newHarness(t)
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), gomock.Any()).Return(&Result{
		Contents: []markdown.Block{markdown.Markdown("See [docs](https://pkg.go.dev/fmt).")},
	}, nil)

	h.ctrl.Trigger(h.anchor(29), true)
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })

	assert.False(t, h.ctrl.HandleClick(ElementInfo, 5), "links are unknown until rendered")

	_, elements, ok := h.ctrl.Render(document.Range[int]{Start: 0, End: 5})
	require.True(t, ok)
	require.Len(t, elements, 1)
	assert.Equal(t, "See docs.", elements[0].Text)

	assert.True(t, h.ctrl.HandleClick(ElementInfo, 5))
	assert.Equal(t, []string{"https://pkg.go.dev/fmt"}, h.opened)
	assert.False(t, h.ctrl.HandleClick(ElementInfo, 0))
}

func TestController_SetThemeRehighlights(t *testing.T) {
	h := newHarness(t)
	h.backend.EXPECT().Hover(gomock.Any(), gomock.Any(), gomock.Any()).Return(mainResult(), nil)
	h.ctrl.Trigger(h.anchor(19), true)
	h.drainUntil(func() bool { return h.ctrl.State().Info != nil })

	light, ok := theme.Lookup("light")
	require.True(t, ok)
	h.ctrl.SetTheme(light)
	assert.Same(t, light, h.ctrl.Theme())
	assert.Equal(t, light.Hover.Highlight, h.view.highlightStyle)

	_, elements, ok := h.ctrl.Render(document.Range[int]{Start: 0, End: 5})
	require.True(t, ok)
	assert.Equal(t, light.Hover.Container, elements[0].Container)
}

func TestController_SetDelays(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetDelays(100*time.Millisecond, 500*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, h.ctrl.delay)
	assert.Equal(t, 100*time.Millisecond, h.ctrl.requestDelay)

	h.ctrl.SetDelays(0, 50*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, h.ctrl.delay)
	assert.Equal(t, 50*time.Millisecond, h.ctrl.requestDelay)
}

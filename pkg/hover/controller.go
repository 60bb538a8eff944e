package hover

import (
	"context"
	"time"

	"github.com/pkg/browser"
	"k8s.io/utils/clock"

	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/logging"
	"github.com/odvcencio/hoverkit/pkg/observability"
	"github.com/odvcencio/hoverkit/pkg/ui/markdown"
	"github.com/odvcencio/hoverkit/pkg/ui/theme"
)

// Options configures a Controller. Backend, Executor and View are required.
type Options struct {
	Backend   Backend
	Languages markdown.LanguageResolver
	Executor  Executor
	Clock     clock.Clock
	Logger    *logging.Logger
	Theme     *theme.Theme
	OpenURL   URLOpener

	// BackendName labels backend latency metrics.
	BackendName string

	Delay        time.Duration
	RequestDelay time.Duration
	// Disabled turns off pointer-driven hovering. Keyboard hovering still
	// works.
	Disabled bool
}

// State is the hover state owned by a controller.
type State struct {
	Info       *InfoPopover
	Diagnostic *DiagnosticPopover
	// TriggeredFrom is the location of the last trigger that started a
	// request. Repeat triggers at the same location are ignored.
	TriggeredFrom *document.Anchor
}

// request is one in-flight hover lookup.
type request struct {
	generation uint64
	id         string
	trigger    document.Anchor
	cancel     context.CancelFunc
}

// Controller decides when hover requests start, cancels superseded ones and
// owns the resulting popovers. All methods must be called from the
// goroutine that runs the Executor.
type Controller struct {
	view      View
	backend   Backend
	languages markdown.LanguageResolver
	executor  Executor
	clock     clock.Clock
	logger    *logging.Logger
	openURL   URLOpener

	backendName  string
	theme        *theme.Theme
	delay        time.Duration
	requestDelay time.Duration
	enabled      bool

	state      State
	pending    *request
	generation uint64
}

// NewController builds a controller for view.
func NewController(view View, opts Options) (*Controller, error) {
	if view == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "hover controller requires a view")
	}
	if opts.Backend == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "hover controller requires a backend")
	}
	if opts.Executor == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "hover controller requires an executor")
	}

	c := &Controller{
		view:         view,
		backend:      opts.Backend,
		languages:    opts.Languages,
		executor:     opts.Executor,
		clock:        opts.Clock,
		logger:       opts.Logger,
		openURL:      opts.OpenURL,
		backendName:  opts.BackendName,
		theme:        opts.Theme,
		delay:        opts.Delay,
		requestDelay: opts.RequestDelay,
		enabled:      !opts.Disabled,
	}
	if c.clock == nil {
		c.clock = clock.RealClock{}
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	c.logger = c.logger.WithCategory(logging.CategoryHover)
	if c.openURL == nil {
		c.openURL = browser.OpenURL
	}
	if c.backendName == "" {
		c.backendName = "default"
	}
	if c.theme == nil {
		c.theme = theme.DefaultTheme()
	}
	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if c.requestDelay <= 0 {
		c.requestDelay = DefaultRequestDelay
	}
	if c.requestDelay > c.delay {
		c.requestDelay = c.delay
	}
	return c, nil
}

// State returns a copy of the current hover state.
func (c *Controller) State() State {
	return c.state
}

// Theme returns the theme popovers render with.
func (c *Controller) Theme() *theme.Theme {
	return c.theme
}

// SetTheme switches the theme. Cached renderings built for the previous
// theme are discarded on the next Render.
func (c *Controller) SetTheme(t *theme.Theme) {
	if t == nil || t == c.theme {
		return
	}
	c.theme = t
	if c.state.Info != nil {
		c.view.HighlightSymbol(c.state.Info.SymbolRange, t.Hover.Highlight)
	}
	if c.Visible() {
		c.view.Notify()
	}
}

// SetEnabled toggles pointer hovering. Disabling hides anything visible.
func (c *Controller) SetEnabled(enabled bool) {
	c.enabled = enabled
	if !enabled {
		c.Dismiss()
	}
}

// Enabled reports whether pointer hovering is on.
func (c *Controller) Enabled() bool {
	return c.enabled
}

// SetDelays changes the debounce delays for subsequent triggers.
func (c *Controller) SetDelays(delay, requestDelay time.Duration) {
	if delay > 0 {
		c.delay = delay
	}
	if requestDelay > 0 {
		c.requestDelay = requestDelay
	}
	if c.requestDelay > c.delay {
		c.requestDelay = c.delay
	}
}

// HoverAt handles pointer movement. A nil location means the pointer left
// the text and hides any popover.
func (c *Controller) HoverAt(location *document.Anchor) {
	if !c.enabled {
		return
	}
	if location == nil {
		c.Dismiss()
		return
	}
	c.Trigger(*location, false)
}

// ShowHoverAtCursor requests hover information for the cursor without any
// delay. It works even when pointer hovering is disabled.
func (c *Controller) ShowHoverAtCursor() {
	c.Trigger(c.view.Cursor(), true)
}

// Trigger starts a hover lookup at location. Pointer triggers (immediate
// false) are debounced and ignored while the pointer stays inside the
// symbol already shown.
func (c *Controller) Trigger(location document.Anchor, immediate bool) {
	if c.view.InExclusiveMode() {
		return
	}
	snap := c.view.Snapshot()

	if !immediate && c.state.Info != nil {
		symbol := c.state.Info.SymbolRange
		offset := snap.Resolve(location)
		if offset >= snap.Resolve(symbol.Start) && offset < snap.Resolve(symbol.End) {
			return
		}
		c.Dismiss()
	}

	if c.state.TriggeredFrom != nil && snap.Compare(*c.state.TriggeredFrom, location) == 0 {
		return
	}

	c.cancelPending()
	hadPopover := c.Visible()
	c.state.Info = nil
	c.state.Diagnostic = nil
	c.view.ClearSymbolHighlight()
	c.state.TriggeredFrom = &location

	c.start(snap, location, immediate)
	if hadPopover || c.state.Diagnostic != nil {
		c.view.Notify()
	}
}

// Dismiss hides both popovers, drops the symbol highlight and abandons any
// pending request. It reports whether something was visible.
func (c *Controller) Dismiss() bool {
	visible := c.Visible()
	c.cancelPending()
	c.state = State{}
	c.view.ClearSymbolHighlight()
	if visible {
		c.view.Notify()
	}
	return visible
}

// Visible reports whether either popover is showing.
func (c *Controller) Visible() bool {
	return c.state.Info != nil || c.state.Diagnostic != nil
}

// Pending reports whether a request is waiting on its delays or the backend.
func (c *Controller) Pending() bool {
	return c.pending != nil
}

// Render returns the popovers to draw and the document point they attach
// to: the diagnostic range start when there is one, else the symbol start.
// Nothing is returned when that point's row is outside visibleRows.
func (c *Controller) Render(visibleRows document.Range[int]) (document.Point, []Element, bool) {
	if !c.Visible() {
		return document.Point{}, nil, false
	}

	var anchor document.Anchor
	if c.state.Diagnostic != nil {
		anchor = c.state.Diagnostic.Local.Range.Start
	} else {
		anchor = c.state.Info.SymbolRange.Start
	}
	snap := c.view.Snapshot()
	point := snap.PointAt(snap.Resolve(anchor))
	if point.Row < visibleRows.Start || point.Row >= visibleRows.End {
		return document.Point{}, nil, false
	}

	elements := make([]Element, 0, 2)
	if c.state.Diagnostic != nil {
		elements = append(elements, c.state.Diagnostic.Render(c.theme))
	}
	if c.state.Info != nil {
		elements = append(elements, c.state.Info.Render(c.theme, c.languages))
	}
	return point, elements, true
}

// HandleClick reacts to a click at a byte offset inside a rendered element.
// Links in the info popover open in the browser; anywhere in the
// diagnostic popover jumps to the diagnostic.
func (c *Controller) HandleClick(kind ElementKind, offset int) bool {
	switch kind {
	case ElementInfo:
		if c.state.Info == nil {
			return false
		}
		url, ok := c.state.Info.LinkAt(offset)
		if !ok {
			return false
		}
		if err := c.openURL(url); err != nil {
			c.logger.Warn("failed to open link", "url", url, "error", err)
		}
		return true
	case ElementDiagnostic:
		if c.state.Diagnostic == nil {
			return false
		}
		group, at := c.state.Diagnostic.ActivationInfo()
		c.view.GoToDiagnostic(group, at)
		return true
	}
	return false
}

func (c *Controller) cancelPending() {
	if c.pending == nil {
		return
	}
	c.pending.cancel()
	c.pending = nil
	c.generation++
	observability.HoverCancellations.Inc()
}

func (c *Controller) start(snap Snapshot, location document.Anchor, immediate bool) {
	c.generation++
	ctx, cancel := context.WithCancel(context.Background())
	req := &request{
		generation: c.generation,
		id:         logging.NewRequestID(),
		trigger:    location,
		cancel:     cancel,
	}
	c.pending = req

	offset := snap.Resolve(location)
	pos := snap.PositionAt(offset)
	trigger := observability.TriggerPointer
	if immediate {
		trigger = observability.TriggerKeyboard
	}
	observability.HoverRequests.WithLabelValues(trigger).Inc()
	c.logger.WithRequest(req.id).HoverTriggered(offset, immediate)

	// Diagnostics are local, so they show without waiting on the backend.
	c.state.Diagnostic = diagnosticAt(snap, offset)
	if c.state.Diagnostic != nil {
		severity := c.state.Diagnostic.Local.Diagnostic.Severity.String()
		observability.DiagnosticPopovers.WithLabelValues(severity).Inc()
	}

	// Both timers start now so the total delay counts from the trigger,
	// not from when the backend answered.
	var requestTimer, totalTimer clock.Timer
	if !immediate {
		requestTimer = c.clock.NewTimer(c.requestDelay)
		totalTimer = c.clock.NewTimer(c.delay)
	}

	doc := c.view.Document()
	started := c.clock.Now()
	go c.fetch(ctx, req, doc, pos, immediate, requestTimer, totalTimer, started)
}

// fetch runs off the foreground goroutine and touches no controller state
// except through the executor.
func (c *Controller) fetch(ctx context.Context, req *request, doc DocumentHandle, pos Position, immediate bool, requestTimer, totalTimer clock.Timer, started time.Time) {
	defer func() {
		if requestTimer != nil {
			requestTimer.Stop()
		}
		if totalTimer != nil {
			totalTimer.Stop()
		}
	}()

	if requestTimer != nil {
		select {
		case <-ctx.Done():
			return
		case <-requestTimer.C():
		}
		if ctx.Err() != nil {
			return
		}
	}

	spanCtx, span := observability.StartSpan(ctx, "hover.request")
	observability.SetAttributes(spanCtx,
		observability.AttrRequestID.String(req.id),
		observability.AttrDocument.String(doc.URI()),
		observability.AttrLine.Int(int(pos.Line)),
		observability.AttrCharacter.Int(int(pos.Character)),
		observability.AttrImmediate.Bool(immediate),
	)
	callStart := c.clock.Now()
	result, err := c.backend.Hover(spanCtx, doc, pos)
	observability.ObserveBackend(c.backendName, c.clock.Since(callStart))
	if err != nil {
		observability.RecordError(spanCtx, err)
	} else if result != nil {
		observability.SetAttributes(spanCtx, observability.AttrBlocks.Int(len(result.Contents)))
	}
	span.End()

	if ctx.Err() != nil {
		return
	}

	if totalTimer != nil {
		select {
		case <-ctx.Done():
			return
		case <-totalTimer.C():
		}
	}

	c.executor.Post(func() {
		c.apply(req, result, err, started)
	})
}

// apply installs a finished request's result unless a newer trigger or a
// dismissal superseded it.
func (c *Controller) apply(req *request, result *Result, err error, started time.Time) {
	log := c.logger.WithRequest(req.id)
	elapsed := c.clock.Since(started)
	if c.pending != req || req.generation != c.generation {
		observability.HoverResults.WithLabelValues(observability.OutcomeStale).Inc()
		log.HoverResolved(observability.OutcomeStale, 0, elapsed)
		return
	}
	c.pending = nil
	req.cancel()

	outcome := observability.OutcomeShown
	if err != nil {
		log.HoverFailed(err)
		outcome = observability.OutcomeError
		result = nil
	} else if result.IsEmpty() {
		outcome = observability.OutcomeEmpty
	}

	if outcome != observability.OutcomeShown {
		c.state.Info = nil
		c.view.ClearSymbolHighlight()
		observability.HoverResults.WithLabelValues(outcome).Inc()
		log.HoverResolved(outcome, 0, elapsed)
		c.view.Notify()
		return
	}

	snap := c.view.Snapshot()
	symbol := document.Range[document.Anchor]{Start: req.trigger, End: req.trigger}
	if result.Range != nil {
		start, startErr := snap.OffsetAt(result.Range.Start)
		end, endErr := snap.OffsetAt(result.Range.End)
		if startErr == nil && endErr == nil && start <= end {
			symbol = document.Range[document.Anchor]{
				Start: snap.AnchorAt(start, document.BiasRight),
				End:   snap.AnchorAt(end, document.BiasLeft),
			}
		} else {
			log.Debug("ignoring invalid hover range", "start", result.Range.Start, "end", result.Range.End)
		}
	}

	c.state.Info = &InfoPopover{SymbolRange: symbol, Blocks: result.Contents}
	c.view.HighlightSymbol(symbol, c.theme.Hover.Highlight)
	observability.HoverResults.WithLabelValues(outcome).Inc()
	log.HoverResolved(outcome, len(result.Contents), elapsed)
	c.view.Notify()
}

// diagnosticAt picks the narrowest diagnostic touching offset and resolves
// its group's primary entry.
func diagnosticAt(snap Snapshot, offset int) *DiagnosticPopover {
	local, ok := diagnostics.MostSpecific(snap.DiagnosticsInRange(offset, offset), func(r document.Range[int]) int {
		return r.End - r.Start
	})
	if !ok {
		return nil
	}

	popover := &DiagnosticPopover{Local: anchorEntry(snap, local)}
	if primary, ok := diagnostics.Primary(snap.DiagnosticGroup(local.Diagnostic.GroupID)); ok {
		entry := anchorEntry(snap, primary)
		popover.Primary = &entry
	}
	return popover
}

func anchorEntry(snap Snapshot, e diagnostics.Entry[document.Range[int]]) diagnostics.Entry[document.Range[document.Anchor]] {
	return diagnostics.Entry[document.Range[document.Anchor]]{
		Range: document.Range[document.Anchor]{
			Start: snap.AnchorAt(e.Range.Start, document.BiasRight),
			End:   snap.AnchorAt(e.Range.End, document.BiasLeft),
		},
		Diagnostic: e.Diagnostic,
	}
}

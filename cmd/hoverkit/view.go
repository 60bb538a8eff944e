package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/hoverkit/pkg/config"
	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/ui/hoverview"
)

const tabWidth = 4

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view <file>",
		Short: "Browse a file with mouse hover popovers",
		Long: "Opens the file in a read-only terminal viewer. Point at a symbol to hover it, press K to " +
			"hover at the cursor, click a link to open it and click a diagnostic to jump to its primary " +
			"location. Arrows move the cursor, Esc hides popovers, q quits.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context) error {
				screen, err := tcell.NewScreen()
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeInternal, "opening terminal")
				}
				return a.view(ctx, args[0], screen)
			})
		},
	}
}

// viewer draws one session onto a tcell screen. All fields are owned by
// the session loop.
type viewer struct {
	screen  tcell.Screen
	s       *session
	painter hoverview.Painter
	top     int
	buttons tcell.ButtonMask
	quit    context.CancelFunc
	server  string
}

func (a *app) view(ctx context.Context, path string, screen tcell.Screen) error {
	s, err := a.openSession(ctx, path)
	if err != nil {
		return err
	}
	defer s.close()

	if err := screen.Init(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "initializing terminal")
	}
	defer screen.Fini()
	screen.EnableMouse()

	ctx, quit := context.WithCancel(ctx)
	defer quit()
	v := &viewer{screen: screen, s: s, quit: quit, server: s.client.ServerName()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return nil
			}
			s.loop.Post(func() { v.handle(ev) })
		}
	})
	if path := a.watchedConfigPath(); path != "" {
		w, err := config.NewWatcher(path)
		if err != nil {
			a.logger.Warn("config reload disabled", "path", path, "error", err)
		} else {
			g.Go(func() error {
				return w.Run(gctx, func(cfg *config.Config, err error) {
					s.loop.Post(func() { a.reload(s, cfg, err) })
				})
			})
		}
	}
	g.Go(func() error {
		defer screen.Fini()
		v.draw()
		if err := s.loop.Run(gctx, v.draw); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	return g.Wait()
}

// watchedConfigPath is the file reloaded while viewing: --config when given,
// else the project config if it exists.
func (a *app) watchedConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	path := filepath.Join(".hoverkit", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (a *app) reload(s *session, cfg *config.Config, err error) {
	if err != nil {
		a.logger.Warn("ignoring invalid config", "error", err)
		return
	}
	s.ctrl.SetTheme(cfg.ResolvedTheme())
	s.ctrl.SetDelays(cfg.Hover.Delay, cfg.Hover.RequestDelay)
	s.ctrl.SetEnabled(cfg.Hover.Enabled)
	a.logger.Info("config reloaded", "theme", cfg.Theme, "hover", cfg.Hover.Enabled)
}

func (v *viewer) textRows() int {
	_, h := v.screen.Size()
	return max(h-1, 0)
}

func (v *viewer) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	case *tcell.EventResize:
		v.screen.Sync()
	}
}

func (v *viewer) handleKey(ev *tcell.EventKey) {
	ed, ctrl := v.s.editor, v.s.ctrl
	snap := ed.buf.Snapshot()
	cursor := snap.PointAt(ed.cursor)

	switch ev.Key() {
	case tcell.KeyCtrlC:
		v.quit()
		return
	case tcell.KeyEscape:
		ctrl.Dismiss()
		return
	case tcell.KeyUp:
		cursor.Row--
	case tcell.KeyDown:
		cursor.Row++
	case tcell.KeyLeft:
		cursor.Column--
	case tcell.KeyRight:
		cursor.Column++
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			v.quit()
		case 'K':
			ctrl.ShowHoverAtCursor()
		}
		return
	default:
		return
	}

	cursor.Row = min(max(cursor.Row, 0), snap.LineCount()-1)
	cursor.Column = max(cursor.Column, 0)
	ed.moveTo(cursor)
	ctrl.Dismiss()
}

func (v *viewer) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()
	pressed := buttons&tcell.Button1 != 0 && v.buttons&tcell.Button1 == 0
	v.buttons = buttons

	if kind, offset, ok := v.painter.HitTest(x, y); ok {
		if pressed {
			v.s.ctrl.HandleClick(kind, offset)
		}
		return
	}

	offset, ok := v.offsetAt(x, y)
	if pressed {
		if ok {
			v.s.editor.cursor = offset
		}
		v.s.ctrl.Dismiss()
		return
	}
	if !ok {
		v.s.ctrl.HoverAt(nil)
		return
	}
	anchor := v.s.editor.buf.Snapshot().AnchorAt(offset, document.BiasRight)
	v.s.ctrl.HoverAt(&anchor)
}

// offsetAt maps a screen cell to a text offset, false past the end of a
// line or below the text.
func (v *viewer) offsetAt(x, y int) (int, bool) {
	if y < 0 || y >= v.textRows() {
		return 0, false
	}
	snap := v.s.editor.buf.Snapshot()
	row := v.top + y
	if row >= snap.LineCount() {
		return 0, false
	}
	col, ok := columnAt(snap.Line(row), x)
	if !ok {
		return 0, false
	}
	return snap.OffsetAtPoint(document.Point{Row: row, Column: col}), true
}

func (v *viewer) scrollToCursor(snap *document.Snapshot) {
	row := snap.PointAt(v.s.editor.cursor).Row
	rows := v.textRows()
	if row < v.top {
		v.top = row
	} else if rows > 0 && row >= v.top+rows {
		v.top = row - rows + 1
	}
}

func (v *viewer) draw() {
	ed, ctrl := v.s.editor, v.s.ctrl
	t := ctrl.Theme()
	snap := ed.buf.Snapshot()
	base := t.Editor.Tcell(tcell.StyleDefault)

	v.screen.SetStyle(base)
	v.screen.Clear()
	v.scrollToCursor(snap)

	rows := v.textRows()
	for y := 0; y < rows; y++ {
		row := v.top + y
		if row >= snap.LineCount() {
			break
		}
		v.drawLine(snap, row, y)
	}
	v.drawStatus(snap, rows)

	point, elements, ok := ctrl.Render(document.Range[int]{Start: v.top, End: v.top + rows})
	if ok {
		x := displayX(snap.Line(point.Row), point.Column)
		v.painter.Paint(v.screen, x, point.Row-v.top, elements)
	} else {
		v.painter.Clear()
	}
	v.screen.Show()
}

func (v *viewer) drawLine(snap *document.Snapshot, row, y int) {
	ed, t := v.s.editor, v.s.ctrl.Theme()
	line := snap.Line(row)
	start := snap.OffsetAtPoint(document.Point{Row: row})
	diags := snap.DiagnosticsInRange(start, start+len(line))

	x := 0
	cell := func(offset int, r rune, width int) {
		s := t.Editor
		if ed.highlighted(snap, offset) {
			s = s.Merge(ed.highlightStyle)
		}
		for _, d := range diags {
			if offset >= d.Range.Start && offset < d.Range.End {
				s = s.WithUnderline(true)
				break
			}
		}
		if offset == ed.cursor {
			s = s.Merge(t.Cursor)
		}
		v.screen.SetContent(x, y, r, nil, s.Tcell(tcell.StyleDefault))
		x += width
	}
	for i, r := range line {
		if r == '\t' {
			cell(start+i, ' ', 1)
			for x%tabWidth != 0 {
				v.screen.SetContent(x, y, ' ', nil, t.Editor.Tcell(tcell.StyleDefault))
				x++
			}
			continue
		}
		cell(start+i, r, runewidth.RuneWidth(r))
	}
	if ed.cursor == start+len(line) {
		cell(ed.cursor, ' ', 1)
	}
}

func (v *viewer) drawStatus(snap *document.Snapshot, y int) {
	ed, ctrl := v.s.editor, v.s.ctrl
	t := ctrl.Theme()
	p := snap.PointAt(ed.cursor)

	hoverState := "on"
	if !ctrl.Enabled() {
		hoverState = "off"
	}
	status := fmt.Sprintf(" %s  %s  %d:%d  hover %s  %s", filepath.Base(snap.URI()), snap.LanguageID(),
		p.Row+1, p.Column+1, hoverState, v.server)

	s := t.Muted.Tcell(tcell.StyleDefault)
	x := 0
	for _, r := range status {
		v.screen.SetContent(x, y, r, nil, s)
		x += runewidth.RuneWidth(r)
	}
}

// columnAt maps a screen x to a byte column of line, expanding tabs.
func columnAt(line string, x int) (int, bool) {
	col := 0
	for i, r := range line {
		width := runewidth.RuneWidth(r)
		if r == '\t' {
			width = tabWidth - col%tabWidth
		}
		if x < col+width {
			return i, true
		}
		col += width
	}
	return 0, false
}

// displayX is the screen column where byte column col of line is drawn.
func displayX(line string, col int) int {
	x := 0
	for i, r := range line {
		if i >= col {
			break
		}
		if r == '\t' {
			x += tabWidth - x%tabWidth
			continue
		}
		x += runewidth.RuneWidth(r)
	}
	return x
}

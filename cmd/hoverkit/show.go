package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/ui/hoverview"
)

type showOptions struct {
	wait    time.Duration
	timeout time.Duration
	width   int
}

func newShowCmd(a *app) *cobra.Command {
	var opts showOptions
	cmd := &cobra.Command{
		Use:   "show <file> <line> <col>",
		Short: "Print the hover popovers at a position",
		Long: "Spawns the configured language server, opens the file and prints the diagnostic " +
			"and hover popovers at the 1-based line and byte column.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parsePosition(args[1], args[2])
			if err != nil {
				return withExitCode(err, exitUsage)
			}
			return a.run(cmd.Context(), func(ctx context.Context) error {
				return a.show(ctx, args[0], at, opts)
			})
		},
	}
	cmd.Flags().DurationVar(&opts.wait, "wait", 500*time.Millisecond, "how long to wait for diagnostics before hovering")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "how long to wait for the hover answer")
	cmd.Flags().IntVar(&opts.width, "width", 80, "maximum popover width in columns")
	return cmd
}

func parsePosition(lineArg, colArg string) (document.Point, error) {
	line, err := strconv.Atoi(lineArg)
	if err != nil || line < 1 {
		return document.Point{}, errors.New(errors.ErrCodeInvalidPosition, "line must be a positive integer").
			WithContext("line", lineArg)
	}
	col, err := strconv.Atoi(colArg)
	if err != nil || col < 1 {
		return document.Point{}, errors.New(errors.ErrCodeInvalidPosition, "column must be a positive integer").
			WithContext("column", colArg)
	}
	return document.Point{Row: line - 1, Column: col - 1}, nil
}

func (a *app) show(ctx context.Context, path string, at document.Point, opts showOptions) error {
	s, err := a.openSession(ctx, path)
	if err != nil {
		return err
	}
	defer s.close()

	s.awaitDiagnostics(ctx, opts.wait)
	s.editor.moveTo(at)
	s.ctrl.ShowHoverAtCursor()

	runCtx, stop := context.WithTimeout(ctx, opts.timeout)
	defer stop()
	err = s.loop.Run(runCtx, func() {
		if !s.ctrl.Pending() {
			stop()
		}
	})
	if s.ctrl.Pending() {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.New(errors.ErrCodeBackendUnavailable, "language server did not answer").
				WithContext("timeout", opts.timeout)
		}
		return ctx.Err()
	}

	_, elements, ok := s.ctrl.Render(document.Range[int]{Start: 0, End: math.MaxInt})
	if !ok {
		return withExitCode(errors.New(errors.ErrCodeInvalidPosition, "no hover information").
			WithUserMessage(fmt.Sprintf("nothing to show at %s:%d:%d", path, at.Row+1, at.Column+1)), exitNoHover)
	}
	fmt.Fprintln(a.stdout, hoverview.NewANSI(a.stdout, opts.width).RenderAll(elements))
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/hover"
	"github.com/odvcencio/hoverkit/pkg/syntax"
	"github.com/odvcencio/hoverkit/pkg/ui/hoverview"
	"github.com/odvcencio/hoverkit/pkg/ui/markdown"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		code  string
		plain bool
		width int
	)
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a markdown file the way a hover popover shows it",
		Long:  "Renders markdown (or, with --code, source in the given language) as a hover popover. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return withExitCode(err, exitUsage)
			}

			var block markdown.Block
			switch {
			case code != "":
				block = markdown.Code(text, code)
			case plain:
				block = markdown.PlainText(text)
			default:
				block = markdown.Markdown(text)
			}

			popover := &hover.InfoPopover{Blocks: []markdown.Block{block}}
			el := popover.Render(a.cfg.ResolvedTheme(), syntax.NewRegistry())
			fmt.Fprintln(a.stdout, hoverview.NewANSI(a.stdout, width).Render(el))
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "treat the input as a code block in this language")
	cmd.Flags().BoolVar(&plain, "plain", false, "treat the input as plain text")
	cmd.Flags().IntVar(&width, "width", 80, "maximum popover width in columns")
	cmd.MarkFlagsMutuallyExclusive("code", "plain")
	return cmd
}

func readInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "reading input").
			WithContext("path", path).
			WithUserMessage("cannot read " + path)
	}
	return string(data), nil
}

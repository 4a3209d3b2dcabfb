package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"playvars.dev/pkg/playvars/internal/domain"
	"playvars.dev/pkg/playvars/internal/jinja"
	m "playvars.dev/pkg/playvars/internal/model"
)

const (
	replPrompt         = ">>> "
	replContinuePrompt = "... "
	replTemplateName   = "<stdin>"
)

// lineReader is the part of *readline.Instance the REPL uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

var replFormatFlag string

// replCmd represents the repl command.
var replCmd = newReplCmd()

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Infer templates interactively",
		Long: `Read templates line by line and print the variables each one expects.

A template spanning several lines (an open if or for block) is read until
it parses; an empty line forces evaluation. Ctrl-C discards the current
input and Ctrl-D quits.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := domain.ParseFormat(replFormatFlag)
			if err != nil {
				return err
			}

			rl, err := readline.New(replPrompt)
			if err != nil {
				return fmt.Errorf("start readline: %w", err)
			}

			defer func() {
				_ = rl.Close()
			}()

			return runREPL(rl, cmd.OutOrStdout(), cmd.ErrOrStderr(), inferrer, format)
		},
	}

	cmd.Flags().StringVarP(&replFormatFlag, formatFlagName, "f", string(domain.FormatYAML), "output format: yaml, json or json-schema")

	return cmd
}

// runREPL reads, infers and prints templates until the reader reports io.EOF.
func runREPL(rl lineReader, out, errOut io.Writer, inf domain.Inferrer, format domain.Format) error {
	for {
		err := rep(rl, out, errOut, inf, format)

		switch {
		case err == nil:
		case errors.Is(err, readline.ErrInterrupt):
			_, _ = fmt.Fprintln(out, err)
		case errors.Is(err, io.EOF):
			_, _ = fmt.Fprintln(out)
			return nil
		default:
			return err
		}
	}
}

// rep reads, infers and prints one template. It returns an error only when
// reading failed.
func rep(rl lineReader, out, errOut io.Writer, inf domain.Inferrer, format domain.Format) error {
	var src strings.Builder

	rl.SetPrompt(replPrompt)

	for {
		line, err := rl.Readline()
		if err != nil {
			return err
		}

		rl.SetPrompt(replContinuePrompt)

		blank := strings.TrimSpace(line) == ""
		if blank && src.Len() == 0 {
			return nil
		}

		if !blank {
			src.WriteString(line)
			src.WriteString("\n")
		}

		v, err := inf.Schema(replTemplateName, []byte(src.String()))
		if err != nil {
			if !blank && incomplete(err) {
				continue
			}

			printConflict(errOut, domain.ToConflict(err))

			return nil
		}

		doc, err := domain.RenderSchema(v, format)
		if err != nil {
			printConflict(errOut, domain.ToConflict(err))
			return nil
		}

		_, _ = out.Write(doc)

		return nil
	}
}

// incomplete reports whether more input could still complete the template.
func incomplete(err error) bool {
	var syntaxErr *jinja.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return false
	}

	return strings.HasPrefix(syntaxErr.Msg, "unexpected end of template")
}

func printConflict(w io.Writer, conflict m.Conflict) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", conflict.Kind, conflict.Message)
}

func init() {
	rootCmd.AddCommand(replCmd)
}

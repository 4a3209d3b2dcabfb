package controller

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	m "playvars.dev/pkg/playvars/internal/model"
)

// SimpleUI implements UI by writing plain text to the command's output.
type SimpleUI struct {
	cmd    *cobra.Command
	config StartConfig
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, config: NewStartConfig()}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.config = NewStartConfig(options...)

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayReports prints one table row per report.
func (s *SimpleUI) DisplayReports(ctx context.Context, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(reports) == 0 {
		s.printf(noReportsMessage)
		return nil
	}

	s.printf("%s", renderReportsTable(reports))

	return nil
}

// DisplaySummary prints the run totals.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", formatSummary(summary))
}

// DisplaySchema prints an encoded schema as is.
func (s *SimpleUI) DisplaySchema(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.cmd.OutOrStdout().Write(doc)

	return err
}

// DisplayConflict prints a conflict to the error output.
func (s *SimpleUI) DisplayConflict(ctx context.Context, name string, conflict m.Conflict) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprint(s.cmd.ErrOrStderr(), formatConflict(name, conflict))
}

// DisplayDiff prints a unified diff.
func (s *SimpleUI) DisplayDiff(ctx context.Context, name string, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if diff == "" {
		s.printf("no changes in %s\n", name)
		return nil
	}

	s.printf("%s", colorizeDiff(diff))

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

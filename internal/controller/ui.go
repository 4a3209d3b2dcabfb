// Package controller provides the output adapters that display playvars results.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "playvars.dev/pkg/playvars/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeList StartMode = iota
	ModeView
	ModeInfer
	ModeDiff
)

func (s StartMode) String() string {
	switch s {
	case ModeList:
		return "list"
	case ModeView:
		return "view"
	case ModeInfer:
		return "infer"
	case ModeDiff:
		return "diff"
	}

	return "unknown"
}

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// Mode returns the configured mode.
func (c StartConfig) Mode() StartMode {
	return c.mode
}

// NewStartConfig applies options over the default list mode.
func NewStartConfig(options ...StartOption) StartConfig {
	cfg := StartConfig{mode: ModeList}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// WithListMode sets the UI to list mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithViewMode sets the UI to stored report browsing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// WithInferMode sets the UI to single template mode.
func WithInferMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeInfer
	}
}

// WithDiffMode sets the UI to diff mode.
func WithDiffMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeDiff
	}
}

// UI defines the interface for displaying inference results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayReports(ctx context.Context, reports []m.Report) error
	DisplaySummary(ctx context.Context, summary m.Summary)
	DisplaySchema(ctx context.Context, doc []byte) error
	DisplayConflict(ctx context.Context, name string, conflict m.Conflict)
	DisplayDiff(ctx context.Context, name string, diff string) error
}

// NewUI returns the interactive TUI for terminals and SimpleUI otherwise.
func NewUI(cmd *cobra.Command, isTTY bool) UI {
	if isTTY {
		return NewTUI(cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Package domain implements the playvars workflows on top of the adapters.
package domain

import (
	"context"
	"errors"

	"playvars.dev/pkg/playvars/internal/adapter"
	m "playvars.dev/pkg/playvars/internal/model"
)

// ErrConflict is returned when a single-template command hits a conflict.
var ErrConflict = errors.New("template has a conflict")

// StdinPath names the template read from standard input.
const StdinPath m.Path = "-"

// ListArgs configures a list run.
type ListArgs struct {
	Paths    []m.Path
	Options  adapter.DiscoverOptions
	UseCache bool
	Reports  m.Path
	Threads  int
}

// InferArgs configures the inference of a single template.
type InferArgs struct {
	Path m.Path
	// Content is used instead of reading Path when Path is StdinPath.
	Content []byte
	Format  Format
}

// ViewArgs configures the display of stored reports.
type ViewArgs struct {
	Reports m.Path
}

// DiffArgs configures the comparison of a template with its stored report.
type DiffArgs struct {
	Path    m.Path
	Reports m.Path
}

// Workflow drives the playvars commands.
type Workflow interface {
	List(ctx context.Context, args ListArgs) error
	Infer(ctx context.Context, args InferArgs) error
	View(ctx context.Context, args ViewArgs) error
	Diff(ctx context.Context, args DiffArgs) error
}

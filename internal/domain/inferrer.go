package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"playvars.dev/pkg/playvars/internal/adapter"
	"playvars.dev/pkg/playvars/internal/jinja"
	m "playvars.dev/pkg/playvars/internal/model"
	"playvars.dev/pkg/playvars/internal/schema"
)

// Conflict kinds that do not come from the inference core.
const (
	ConflictSyntax = "syntax-error"
	ConflictOther  = "error"
)

// Inferrer turns templates into schemas and reports.
type Inferrer interface {
	// Schema parses src and infers the schema of its external variables.
	Schema(path m.Path, src []byte) (*schema.Var, error)
	// Report infers src and folds the outcome into a report. Inference
	// failures are embedded as the report's conflict.
	Report(source m.Source, src []byte) m.Report
	// Infer reads the template behind source and reports on it. Only I/O
	// failures are returned as errors.
	Infer(ctx context.Context, source m.Source) (m.Report, error)
	// Fingerprint identifies the inference switches reports are computed with.
	Fingerprint() string
}

type inferrer struct {
	adapter.TemplateFSAdapter
	adapter.TemplateAdapter

	config schema.Config
}

// NewInferrer creates an Inferrer using the provided adapters and switches.
func NewInferrer(fsAdapter adapter.TemplateFSAdapter, templateAdapter adapter.TemplateAdapter, config schema.Config) Inferrer {
	return &inferrer{
		TemplateFSAdapter: fsAdapter,
		TemplateAdapter:   templateAdapter,
		config:            config,
	}
}

func (i *inferrer) Schema(path m.Path, src []byte) (*schema.Var, error) {
	tmpl, err := i.Parse(path, src)
	if err != nil {
		return nil, err
	}

	return schema.Infer(tmpl, i.config)
}

func (i *inferrer) Report(source m.Source, src []byte) m.Report {
	report := m.Report{
		Source:      source,
		Playbook:    source.Name(),
		PlaybookDir: source.Dir(),
		Config:      i.Fingerprint(),
	}

	path := m.Path(source.Name())
	if source.Origin != nil {
		path = source.Origin.Path
	}

	v, err := i.Schema(path, src)
	if err != nil {
		slog.Debug("template has a conflict", "path", path, "error", err)

		conflict := ToConflict(err)
		report.Conflict = &conflict

		return report
	}

	report.Variables = ToVariables(v)

	return report
}

func (i *inferrer) Infer(ctx context.Context, source m.Source) (m.Report, error) {
	if err := ctx.Err(); err != nil {
		return m.Report{}, err
	}

	if source.Origin == nil {
		return m.Report{}, errors.New("source has no file")
	}

	slog.Debug("inferring template", "path", source.Origin.Path)

	src, err := i.ReadFile(source.Origin.Path)
	if err != nil {
		return m.Report{}, fmt.Errorf("read template %s: %w", source.Origin.Path, err)
	}

	return i.Report(source, src), nil
}

func (i *inferrer) Fingerprint() string {
	return i.config.Fingerprint()
}

// ToConflict converts an inference or parse failure into its report form.
func ToConflict(err error) m.Conflict {
	if c, ok := schema.AsConflict(err); ok {
		return m.Conflict{
			Kind:     string(c.Kind),
			Lines:    c.Lines,
			Expected: c.Expected,
			Actual:   c.Actual,
			Message:  c.Message,
		}
	}

	var syntaxErr *jinja.SyntaxError
	if errors.As(err, &syntaxErr) {
		return m.Conflict{
			Kind:    ConflictSyntax,
			Lines:   []int{syntaxErr.Pos.Line},
			Message: err.Error(),
		}
	}

	return m.Conflict{Kind: ConflictOther, Message: err.Error()}
}

// ToVariables flattens the top level fields of an inferred schema.
func ToVariables(v *schema.Var) []m.Variable {
	if v == nil || v.Kind != schema.KindDictionary {
		return nil
	}

	vars := make([]m.Variable, 0, len(v.Fields))
	for _, name := range v.FieldNames() {
		vars = append(vars, toVariable(name, v.Fields[name]))
	}

	return vars
}

func toVariable(name string, v *schema.Var) m.Variable {
	out := m.Variable{
		Name:  name,
		Type:  v.Kind.String(),
		Label: v.Label,
		Flags: v.Flags(),
	}

	if len(v.Lines) > 0 {
		out.Lines = append([]int(nil), v.Lines...)
	}

	switch v.Kind {
	case schema.KindList:
		if v.Elem != nil {
			out.Children = []m.Variable{toVariable("[]", v.Elem)}
		}
	case schema.KindTuple:
		for idx, item := range v.Items {
			out.Children = append(out.Children, toVariable(strconv.Itoa(idx), item))
		}
	case schema.KindDictionary:
		out.Children = ToVariables(v)
	}

	return out
}

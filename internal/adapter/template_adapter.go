package adapter

import (
	"playvars.dev/pkg/playvars/internal/jinja"
	m "playvars.dev/pkg/playvars/internal/model"
)

// TemplateAdapter encapsulates template parsing so the domain layer can focus
// on inference while delegating syntax details to an infrastructure component.
type TemplateAdapter interface {
	// Parse builds the template AST for the provided path/source pair. Syntax
	// errors are returned as *jinja.SyntaxError.
	Parse(path m.Path, src []byte) (*jinja.Template, error)
}

// LocalTemplateAdapter provides a TemplateAdapter backed by the jinja parser.
type LocalTemplateAdapter struct{}

// NewLocalTemplateAdapter constructs a LocalTemplateAdapter.
func NewLocalTemplateAdapter() *LocalTemplateAdapter {
	return &LocalTemplateAdapter{}
}

// Parse builds an AST for the provided path/source pair.
func (a *LocalTemplateAdapter) Parse(path m.Path, src []byte) (*jinja.Template, error) {
	return jinja.Parse(string(path), string(src))
}

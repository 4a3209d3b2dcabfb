package domain

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	m "playvars.dev/pkg/playvars/internal/model"
	"playvars.dev/pkg/playvars/internal/schema"
)

// Format selects how an inferred schema is printed.
type Format string

// Supported formats.
const (
	FormatYAML       Format = "yaml"
	FormatJSON       Format = "json"
	FormatJSONSchema Format = "json-schema"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatYAML, FormatJSON, FormatJSONSchema:
		return f, nil
	case "":
		return FormatYAML, nil
	}

	return "", fmt.Errorf("invalid format %q: must be yaml, json or json-schema", s)
}

// RenderSchema encodes v in the requested format.
func RenderSchema(v *schema.Var, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(schema.ToTree(v))
	case FormatJSONSchema:
		return marshalJSON(schema.ToJSONSchema(v))
	case FormatYAML, "":
		return yaml.Marshal(schema.ToTree(v))
	}

	return nil, fmt.Errorf("unsupported format %q", format)
}

func marshalJSON(doc map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

// reportView is the part of a report compared by diff.
type reportView struct {
	Variables []m.Variable `yaml:"variables"`
	Conflict  *m.Conflict  `yaml:"conflict,omitempty"`
}

// RenderDiff returns a unified diff between two reports of the same template,
// or "" when their schemas are identical.
func RenderDiff(stored, current m.Report) (string, error) {
	a, err := yaml.Marshal(reportView{Variables: stored.Variables, Conflict: stored.Conflict})
	if err != nil {
		return "", fmt.Errorf("encode stored report: %w", err)
	}

	b, err := yaml.Marshal(reportView{Variables: current.Variables, Conflict: current.Conflict})
	if err != nil {
		return "", fmt.Errorf("encode current report: %w", err)
	}

	name := current.Playbook
	if current.Source.Origin != nil {
		name = string(current.Source.Origin.Path)
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: name + " (stored)",
		ToFile:   name + " (current)",
		Context:  3,
	})
}

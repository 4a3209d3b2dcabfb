package model

// Report is the inference result for a single template.
type Report struct {
	Source      Source     `yaml:"source" json:"source"`
	Playbook    string     `yaml:"playbook" json:"playbook"`
	PlaybookDir Path       `yaml:"playbook_dir" json:"playbook_dir"`
	Variables   []Variable `yaml:"variables" json:"variables"`
	Conflict    *Conflict  `yaml:"conflict,omitempty" json:"conflict,omitempty"`
	// Config is the fingerprint of the inference switches used.
	Config      string     `yaml:"config,omitempty" json:"config,omitempty"`
}

// Failed reports whether inference stopped on a conflict.
func (r Report) Failed() bool {
	return r.Conflict != nil
}

// VariableNames returns the names of the top level variables.
func (r Report) VariableNames() []string {
	names := make([]string, 0, len(r.Variables))
	for _, v := range r.Variables {
		names = append(names, v.Name)
	}

	return names
}

// Conflict describes why a template could not be typed.
type Conflict struct {
	// Kind is one of "merge-conflict", "unexpected-expression" or "syntax-error".
	Kind     string `yaml:"kind" json:"kind"`
	Lines    []int  `yaml:"lines,flow,omitempty" json:"lines,omitempty"`
	Expected string `yaml:"expected,omitempty" json:"expected,omitempty"`
	Actual   string `yaml:"actual,omitempty" json:"actual,omitempty"`
	Message  string `yaml:"message" json:"message"`
}

// Summary aggregates a list run.
type Summary struct {
	Templates int
	Cached    int
	Variables int
	Conflicts int
}

// Add folds report into the summary.
func (s *Summary) Add(report Report) {
	s.Templates++
	s.Variables += len(report.Variables)

	if report.Failed() {
		s.Conflicts++
	}
}

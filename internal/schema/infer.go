package schema

import (
	"slices"

	"playvars.dev/pkg/playvars/internal/jinja"
)

// Infer walks t and returns a Dictionary describing every variable the
// template reads from its context. The template is not modified.
func Infer(t *jinja.Template, cfg Config) (*Var, error) {
	in := newInferrer(cfg)
	if err := in.stmts(t.Body); err != nil {
		return nil, err
	}

	return in.scope.external(), nil
}

// InferSource parses src and infers its schema.
func InferSource(src string, cfg Config) (*Var, error) {
	t, err := jinja.Parse("", src)
	if err != nil {
		return nil, err
	}

	return Infer(t, cfg)
}

type inferrer struct {
	cfg       Config
	scope     *scope
	loopDepth int

	// guards collects defined/undefined tests while typing an if condition;
	// nil means tests flag the current scope directly.
	guards *[]guard
	// negated is true under an odd number of "not" operators.
	negated bool
}

func newInferrer(cfg Config) *inferrer {
	if cfg.IndexContainer == "" {
		cfg.IndexContainer = ContainerList
	}

	return &inferrer{cfg: cfg, scope: newScope()}
}

func (in *inferrer) condWant() *Var {
	if in.cfg.ConditionsAsBoolean {
		return Boolean()
	}

	return Unknown()
}

// external returns the root Dictionary of names the template does not bind.
func (s *scope) external() *Var {
	fields := map[string]*Var{}

	for name, v := range s.vars {
		if v.Local {
			continue
		}

		fields[name] = v.Clone()
	}

	return DictOf(fields)
}

// guard is a defined/undefined test found in a branch condition.
type guard struct {
	name    string
	path    []string
	defined bool
	// then is true when the test holds on the truthy branch.
	then bool
}

func guardPath(e jinja.Expr) (string, []string, bool) {
	switch e := e.(type) {
	case *jinja.Name:
		return e.Name, nil, true
	case *jinja.Getattr:
		name, path, ok := guardPath(e.X)
		if !ok {
			return "", nil, false
		}

		return name, append(path, e.Attr), true
	}

	return "", nil, false
}

func (in *inferrer) addGuard(g guard) error {
	if in.guards == nil {
		in.scope.flag(g.name, g.path, g.defined)
		return nil
	}

	for _, other := range *in.guards {
		if other.name == g.name && slices.Equal(other.path, g.path) && other.then == g.then && other.defined != g.defined {
			return in.contradiction(g)
		}
	}

	*in.guards = append(*in.guards, g)

	return nil
}

func (in *inferrer) contradiction(g guard) error {
	v, ok := in.scope.lookup(g.name)
	if !ok {
		v = Unknown()
	}

	for _, k := range g.path {
		if v.Kind != KindDictionary || v.Fields[k] == nil {
			v = Unknown()
			break
		}

		v = v.Fields[k]
	}

	a, b := v.Clone(), v.Clone()
	a.CheckedAsDefined = true
	b.CheckedAsUndefined = true

	return &MergeConflictError{A: a, B: b}
}

// condition types a branch condition and returns the guards it establishes.
func (in *inferrer) condition(e jinja.Expr) ([]guard, error) {
	savedGuards, savedNegated := in.guards, in.negated
	collected := []guard{}
	in.guards, in.negated = &collected, false

	defer func() { in.guards, in.negated = savedGuards, savedNegated }()

	if _, err := in.expr(e, in.condWant()); err != nil {
		return nil, err
	}

	return collected, nil
}

func applyGuards(s *scope, guards []guard, then bool) {
	for _, g := range guards {
		if g.then == then {
			s.flag(g.name, g.path, g.defined)
		}
	}
}

package schema

import "sort"

// scope maps names to descriptors. Descriptors are replaced, never mutated,
// so forking a scope only copies the map.
type scope struct {
	vars map[string]*Var
	// assigned records the names bound since the scope was forked.
	assigned map[string]bool
}

func newScope() *scope {
	return &scope{vars: map[string]*Var{}, assigned: map[string]bool{}}
}

// fork starts a branch: same bindings, no assignments yet.
func (s *scope) fork() *scope {
	vars := make(map[string]*Var, len(s.vars))
	for k, v := range s.vars {
		vars[k] = v
	}

	return &scope{vars: vars, assigned: map[string]bool{}}
}

// clone copies bindings and assignments.
func (s *scope) clone() *scope {
	c := s.fork()
	for k := range s.assigned {
		c.assigned[k] = true
	}

	return c
}

func (s *scope) lookup(name string) (*Var, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// reference records a use of name that requires constraint.
func (s *scope) reference(name string, constraint *Var) (*Var, error) {
	existing, ok := s.vars[name]
	if !ok {
		v := constraint.Clone()
		v.Label = name
		v.Local = false
		v.Constant = false
		s.vars[name] = v

		return v, nil
	}

	merged, err := Merge(existing, constraint)
	if err != nil {
		return nil, err
	}

	merged.Local = existing.Local
	merged.Constant = existing.Constant
	s.vars[name] = merged

	return merged, nil
}

// assign binds name to value. literal reports whether value came from a
// literal expression.
func (s *scope) assign(name string, value *Var, literal bool, line int) error {
	bound := value.Clone()
	bound.Label = name
	bound.Lines = addLine(nil, line)
	bound.MayBeDefined = false
	bound.CheckedAsDefined = false
	bound.CheckedAsUndefined = false
	bound.UsedWithDefault = false

	existing, ok := s.vars[name]
	if !ok {
		bound.Local = true
		bound.Constant = literal
		s.vars[name] = bound
		s.assigned[name] = true

		return nil
	}

	merged, err := Merge(existing, bound)
	if err != nil {
		return err
	}

	merged.Local = existing.Local
	merged.Constant = existing.Constant && literal
	s.vars[name] = merged
	s.assigned[name] = true

	return nil
}

// bind introduces a name the template provides itself, such as a loop
// target, without counting it as an assignment.
func (s *scope) bind(name string, v *Var) {
	b := v.Clone()
	b.Label = name
	b.Local = true
	s.vars[name] = b
}

// restore puts back the binding name had in prev, or removes it.
func (s *scope) restore(name string, prev *scope) {
	if v, ok := prev.vars[name]; ok {
		s.vars[name] = v
	} else {
		delete(s.vars, name)
	}

	delete(s.assigned, name)
}

// flag marks the descriptor at name.path as tested by a defined or
// undefined test.
func (s *scope) flag(name string, path []string, defined bool) {
	v, ok := s.vars[name]
	if !ok {
		return
	}

	s.vars[name] = withFlag(v, path, defined)
}

func withFlag(v *Var, path []string, defined bool) *Var {
	cp := *v

	if len(path) == 0 {
		if defined {
			cp.CheckedAsDefined = true
		} else {
			cp.CheckedAsUndefined = true
		}

		return &cp
	}

	child, ok := v.Fields[path[0]]
	if !ok {
		return v
	}

	cp.Fields = make(map[string]*Var, len(v.Fields))
	for k, f := range v.Fields {
		cp.Fields[k] = f
	}

	cp.Fields[path[0]] = withFlag(child, path[1:], defined)

	return &cp
}

// joinBranches merges the scopes of mutually exclusive branches that all
// started from snapshot. A name assigned on some but not all branches, and
// not already known from before the split, may be undefined afterwards.
func joinBranches(snapshot *scope, branches ...*scope) (*scope, error) {
	out := snapshot.clone()

	names := map[string]struct{}{}
	for _, b := range branches {
		for k := range b.vars {
			names[k] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(names))
	for k := range names {
		sorted = append(sorted, k)
	}

	sort.Strings(sorted)

	for _, name := range sorted {
		var (
			merged     *Var
			local      = true
			constant   = true
			assignedIn int
		)

		for _, b := range branches {
			if b.assigned[name] {
				assignedIn++
			}

			v, ok := b.vars[name]
			if !ok {
				continue
			}

			m, err := Merge(merged, v)
			if err != nil {
				return nil, err
			}

			merged = m
			local = local && v.Local
			constant = constant && v.Constant
		}

		merged.Local = local
		merged.Constant = constant

		if assignedIn > 0 && assignedIn < len(branches) {
			if prior, ok := snapshot.vars[name]; !ok || prior.Kind == KindUnknown {
				merged.MayBeDefined = true
			}
		}

		if assignedIn > 0 {
			out.assigned[name] = true
		}

		out.vars[name] = merged
	}

	return out, nil
}

package schema

import (
	"fmt"

	"playvars.dev/pkg/playvars/internal/jinja"
)

func (in *inferrer) stmts(body []jinja.Stmt) error {
	for _, s := range body {
		if err := in.stmt(s); err != nil {
			return err
		}
	}

	return nil
}

func (in *inferrer) stmt(s jinja.Stmt) error {
	switch s := s.(type) {
	case *jinja.Data, *jinja.Raw:
		return nil
	case *jinja.Output:
		_, err := in.expr(s.X, Scalar())
		return err
	case *jinja.Set:
		return in.set(s)
	case *jinja.SetBlock:
		if err := in.stmts(s.Body); err != nil {
			return err
		}

		return in.scope.assign(s.Name, String(), false, s.Line)
	case *jinja.If:
		return in.ifStmt(s)
	case *jinja.For:
		return in.forStmt(s)
	case *jinja.Block:
		return in.stmts(s.Body)
	case *jinja.Include:
		_, err := in.expr(s.Template, templateWant(s.Template))
		return err
	case *jinja.Extends:
		_, err := in.expr(s.Template, templateWant(s.Template))
		return err
	case *jinja.Import:
		if _, err := in.expr(s.Template, String()); err != nil {
			return err
		}

		for _, name := range s.Names {
			if err := in.scope.assign(name, Unknown(), false, s.Line); err != nil {
				return err
			}
		}

		return nil
	case *jinja.With:
		return in.with(s)
	case *jinja.FilterBlock:
		if err := in.stmts(s.Body); err != nil {
			return err
		}

		_, err := in.filter(s.Filter, Unknown())

		return err
	}

	return fmt.Errorf("unsupported statement %s at line %d", jinja.KindName(s), s.Pos().Line)
}

// templateWant allows include and extends to take a list of candidates.
func templateWant(e jinja.Expr) *Var {
	switch e.(type) {
	case *jinja.List, *jinja.Tuple:
		return Unknown()
	}

	return String()
}

func (in *inferrer) set(s *jinja.Set) error {
	switch t := s.Target.(type) {
	case *jinja.Name:
		v, err := in.expr(s.Value, Unknown())
		if err != nil {
			return err
		}

		return in.scope.assign(t.Name, v, jinja.IsLiteral(s.Value), t.Line)
	case *jinja.Tuple:
		return in.unpack(t, s.Value)
	case *jinja.Getattr:
		v, err := in.expr(s.Value, Unknown())
		if err != nil {
			return err
		}

		_, err = in.field(t, t.X, t.Attr, v.shape())

		return err
	}

	return fmt.Errorf("unsupported assignment target %s at line %d", jinja.KindName(s.Target), s.Line)
}

func (in *inferrer) unpack(target *jinja.Tuple, value jinja.Expr) error {
	names := make([]*jinja.Name, len(target.Items))

	for i, it := range target.Items {
		n, ok := it.(*jinja.Name)
		if !ok {
			return fmt.Errorf("unsupported assignment target %s at line %d", jinja.KindName(it), it.Pos().Line)
		}

		names[i] = n
	}

	var items []jinja.Expr

	switch v := value.(type) {
	case *jinja.Tuple:
		items = v.Items
	case *jinja.List:
		items = v.Items
	}

	if items != nil && len(items) == len(names) {
		for i, n := range names {
			v, err := in.expr(items[i], Unknown())
			if err != nil {
				return err
			}

			if err := in.scope.assign(n.Name, v, jinja.IsLiteral(items[i]), n.Line); err != nil {
				return err
			}
		}

		return nil
	}

	placeholder := make([]*Var, len(names))
	for i := range placeholder {
		placeholder[i] = Unknown()
	}

	v, err := in.expr(value, TupleOf(placeholder...))
	if err != nil {
		return err
	}

	for i, n := range names {
		item := Unknown()
		if v.Kind == KindTuple && i < len(v.Items) {
			item = v.Items[i]
		}

		if err := in.scope.assign(n.Name, item, false, n.Line); err != nil {
			return err
		}
	}

	return nil
}

func (in *inferrer) ifStmt(s *jinja.If) error {
	guards, err := in.condition(s.Test)
	if err != nil {
		return err
	}

	snapshot := in.scope

	then := snapshot.fork()
	applyGuards(then, guards, true)

	other := snapshot.fork()
	applyGuards(other, guards, false)

	in.scope = then
	if err := in.stmts(s.Body); err != nil {
		return err
	}

	then = in.scope

	in.scope = other
	if err := in.stmts(s.Else); err != nil {
		return err
	}

	other = in.scope

	joined, err := joinBranches(snapshot, then, other)
	if err != nil {
		return err
	}

	in.scope = joined

	return nil
}

func loopTargets(target jinja.Expr) ([]*jinja.Name, error) {
	switch t := target.(type) {
	case *jinja.Name:
		return []*jinja.Name{t}, nil
	case *jinja.Tuple:
		names := make([]*jinja.Name, len(t.Items))

		for i, it := range t.Items {
			n, ok := it.(*jinja.Name)
			if !ok {
				return nil, fmt.Errorf("unsupported loop target %s at line %d", jinja.KindName(it), it.Pos().Line)
			}

			names[i] = n
		}

		return names, nil
	}

	return nil, fmt.Errorf("unsupported loop target %s at line %d", jinja.KindName(target), target.Pos().Line)
}

// forStmt infers the body first so that the element structure it needs can
// be pushed onto the iterated expression.
func (in *inferrer) forStmt(s *jinja.For) error {
	targets, err := loopTargets(s.Target)
	if err != nil {
		return err
	}

	snapshot := in.scope
	body := snapshot.fork()

	for _, t := range targets {
		body.bind(t.Name, Unknown())
	}

	in.scope = body
	in.loopDepth++

	if s.Filter != nil {
		if _, err := in.expr(s.Filter, in.condWant()); err != nil {
			return err
		}
	}

	if err := in.stmts(s.Body); err != nil {
		return err
	}

	in.loopDepth--
	body = in.scope

	elems := make([]*Var, len(targets))

	for i, t := range targets {
		v, _ := body.lookup(t.Name)
		elem := v.Clone()
		elem.Local = false
		elem.Constant = false
		elems[i] = elem

		body.restore(t.Name, snapshot)
	}

	other := snapshot.fork()
	in.scope = other

	if err := in.stmts(s.Else); err != nil {
		return err
	}

	other = in.scope

	joined, err := joinBranches(snapshot, body, other)
	if err != nil {
		return err
	}

	in.scope = joined

	iterWant, err := in.iterWant(s.Iter, elems)
	if err != nil {
		return err
	}

	_, err = in.expr(s.Iter, iterWant)

	return err
}

// iterWant is the structure a loop source must have to yield elems.
func (in *inferrer) iterWant(iter jinja.Expr, elems []*Var) (*Var, error) {
	if len(elems) == 1 {
		return ListOf(elems[0]), nil
	}

	if in.yieldsPairs(iter) {
		return ListOf(TupleOf(elems...)), nil
	}

	// Unpacking straight from a mapping walks its keys and values.
	if !compatible(elems[0], String()) {
		return nil, &UnexpectedExpressionError{Node: iter, Expected: elems[0], Actual: String()}
	}

	return DictOf(nil), nil
}

func (in *inferrer) yieldsPairs(iter jinja.Expr) bool {
	switch iter.(type) {
	case *jinja.Filter, *jinja.Call, *jinja.List, *jinja.Tuple:
		return true
	}

	if cur := in.peek(iter); cur != nil {
		return cur.Kind == KindList || cur.Kind == KindTuple
	}

	return false
}

func (in *inferrer) with(s *jinja.With) error {
	values := make([]*Var, len(s.Values))

	for i, v := range s.Values {
		val, err := in.expr(v, Unknown())
		if err != nil {
			return err
		}

		values[i] = val
	}

	outer := in.scope
	inner := outer.clone()

	for i, t := range s.Targets {
		bound := Unknown()
		if i < len(values) {
			bound = values[i].shape()
		}

		bound.Lines = addLine(nil, t.Line)
		inner.bind(t.Name, bound)
	}

	in.scope = inner
	if err := in.stmts(s.Body); err != nil {
		return err
	}

	inner = in.scope

	for _, t := range s.Targets {
		inner.restore(t.Name, outer)

		if outer.assigned[t.Name] {
			inner.assigned[t.Name] = true
		}
	}

	return nil
}

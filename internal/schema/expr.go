package schema

import (
	"fmt"

	"playvars.dev/pkg/playvars/internal/jinja"
)

// expr infers e under the structural requirement want and returns the
// descriptor of its value. want is never nil and never modified.
func (in *inferrer) expr(e jinja.Expr, want *Var) (*Var, error) {
	switch e := e.(type) {
	case *jinja.Name:
		return in.name(e, want)
	case *jinja.Const:
		return in.constant(e, want)
	case *jinja.List:
		return in.list(e, want)
	case *jinja.Tuple:
		return in.tuple(e, want)
	case *jinja.Dict:
		return in.dict(e, want)
	case *jinja.Getattr:
		return in.field(e, e.X, e.Attr, want)
	case *jinja.Getitem:
		return in.getitem(e, want)
	case *jinja.Call:
		return in.call(e, want)
	case *jinja.Filter:
		return in.filter(e, want)
	case *jinja.Test:
		return in.test(e, want)
	case *jinja.BinOp:
		return in.binop(e, want)
	case *jinja.UnaryOp:
		return in.unary(e, want)
	case *jinja.Compare:
		return in.compare(e, want)
	case *jinja.CondExpr:
		return in.condExpr(e, want)
	}

	return nil, fmt.Errorf("unsupported expression %s at line %d", jinja.KindName(e), e.Pos().Line)
}

// meet fails when a node whose own form yields actual is required to
// produce want.
func meet(node jinja.Node, actual, want *Var) error {
	if compatible(actual, want) {
		return nil
	}

	return &UnexpectedExpressionError{Node: node, Expected: want, Actual: actual}
}

func (in *inferrer) name(e *jinja.Name, want *Var) (*Var, error) {
	if e.Name == "loop" && in.loopDepth > 0 {
		if v, ok := in.scope.lookup("loop"); !ok || !v.Local {
			lv := loopVar()
			if err := meet(e, lv, want); err != nil {
				return nil, err
			}

			return Merge(lv, want)
		}
	}

	return in.scope.reference(e.Name, want.at(e.Name, e.Line))
}

// loopVar is the structure of the special loop variable inside a for body.
func loopVar() *Var {
	fields := map[string]*Var{}
	for _, k := range []string{"index", "index0", "revindex", "revindex0", "length", "depth", "depth0"} {
		fields[k] = Number()
	}

	for _, k := range []string{"first", "last"} {
		fields[k] = Boolean()
	}

	for _, k := range []string{"cycle", "previtem", "nextitem", "changed"} {
		fields[k] = Unknown()
	}

	return DictOf(fields)
}

func (in *inferrer) constant(e *jinja.Const, want *Var) (*Var, error) {
	var v *Var

	switch e.Value.(type) {
	case string:
		v = String()
	case int64, float64:
		v = Number()
	case bool:
		v = Boolean()
	default:
		v = Unknown()
	}

	v.Constant = true
	v.Lines = addLine(nil, e.Line)

	if err := meet(e, v, want); err != nil {
		return nil, err
	}

	return Merge(v, want)
}

func (in *inferrer) list(e *jinja.List, want *Var) (*Var, error) {
	if err := meet(e, ListOf(Unknown()), want); err != nil {
		return nil, err
	}

	elemWant := Unknown()
	if want.Kind == KindList {
		elemWant = want.Elem
	}

	elem := Unknown()

	for _, it := range e.Items {
		v, err := in.expr(it, elemWant)
		if err != nil {
			return nil, err
		}

		if elem, err = Merge(elem, v); err != nil {
			return nil, err
		}
	}

	res := ListOf(elem)
	res.Lines = addLine(nil, e.Line)
	res.Constant = jinja.IsLiteral(e)

	return Merge(res, want)
}

func (in *inferrer) tuple(e *jinja.Tuple, want *Var) (*Var, error) {
	// A tuple literal is as good as a list wherever a list is required.
	if want.Kind == KindList {
		return in.list(&jinja.List{Position: e.Position, Items: e.Items}, want)
	}

	placeholder := make([]*Var, len(e.Items))
	for i := range placeholder {
		placeholder[i] = Unknown()
	}

	if err := meet(e, TupleOf(placeholder...), want); err != nil {
		return nil, err
	}

	items := make([]*Var, len(e.Items))

	for i, it := range e.Items {
		itemWant := Unknown()
		if want.Kind == KindTuple && i < len(want.Items) {
			itemWant = want.Items[i]
		}

		v, err := in.expr(it, itemWant)
		if err != nil {
			return nil, err
		}

		items[i] = v
	}

	res := TupleOf(items...)
	res.Lines = addLine(nil, e.Line)
	res.Constant = jinja.IsLiteral(e)

	return Merge(res, want)
}

func (in *inferrer) dict(e *jinja.Dict, want *Var) (*Var, error) {
	if err := meet(e, DictOf(nil), want); err != nil {
		return nil, err
	}

	fields := map[string]*Var{}

	for _, p := range e.Pairs {
		if key, ok := constString(p.Key); ok {
			fieldWant := Unknown()
			if want.Kind == KindDictionary && want.Fields[key] != nil {
				fieldWant = want.Fields[key]
			}

			v, err := in.expr(p.Value, fieldWant)
			if err != nil {
				return nil, err
			}

			v = v.Clone()
			v.Label = key
			fields[key] = v

			continue
		}

		if _, err := in.expr(p.Key, Scalar()); err != nil {
			return nil, err
		}

		if _, err := in.expr(p.Value, Unknown()); err != nil {
			return nil, err
		}
	}

	res := DictOf(fields)
	res.Lines = addLine(nil, e.Line)
	res.Constant = jinja.IsLiteral(e)

	return Merge(res, want)
}

func constString(e jinja.Expr) (string, bool) {
	c, ok := e.(*jinja.Const)
	if !ok {
		return "", false
	}

	s, ok := c.Value.(string)

	return s, ok
}

// field infers x.attr and x['attr'].
func (in *inferrer) field(node jinja.Expr, x jinja.Expr, attr string, want *Var) (*Var, error) {
	f := want.at(attr, node.Pos().Line)

	recv, err := in.expr(x, DictOf(map[string]*Var{attr: f}))
	if err != nil {
		return nil, err
	}

	if recv.Kind == KindDictionary {
		if v, ok := recv.Fields[attr]; ok {
			return v, nil
		}
	}

	return f, nil
}

func (in *inferrer) getitem(e *jinja.Getitem, want *Var) (*Var, error) {
	switch idx := e.Index.(type) {
	case *jinja.Slice:
		for _, bound := range []jinja.Expr{idx.Start, idx.Stop, idx.Step} {
			if bound == nil {
				continue
			}

			if _, err := in.expr(bound, Number()); err != nil {
				return nil, err
			}
		}

		return in.expr(e.X, want)
	case *jinja.Const:
		switch v := idx.Value.(type) {
		case string:
			return in.field(e, e.X, v, want)
		case int64:
			if v >= 0 {
				return in.index(e, v, want)
			}
		}
	}

	if _, err := in.expr(e.Index, Unknown()); err != nil {
		return nil, err
	}

	// A computed key into something already known to be a dictionary.
	if cur := in.peek(e.X); cur != nil && cur.Kind == KindDictionary {
		if _, err := in.expr(e.X, DictOf(nil)); err != nil {
			return nil, err
		}

		return want.at("", e.Line), nil
	}

	return in.listIndex(e, want)
}

// maxTupleIndex bounds the literal indices that describe a tuple position.
// Larger indices are typed as list accesses.
const maxTupleIndex = 1024

// index infers x[i] for a non-negative integer literal i.
func (in *inferrer) index(e *jinja.Getitem, i int64, want *Var) (*Var, error) {
	asTuple := in.cfg.IndexContainer == ContainerTuple
	if cur := in.peek(e.X); cur != nil {
		switch cur.Kind {
		case KindTuple:
			asTuple = true
		case KindList:
			asTuple = false
		}
	}

	if !asTuple || i >= maxTupleIndex {
		return in.listIndex(e, want)
	}

	elem := want.at("", e.Line)

	items := make([]*Var, int(i)+1)
	for j := range items {
		items[j] = Unknown()
	}

	items[i] = elem
	t := TupleOf(items...)
	t.Extensible = true

	recv, err := in.expr(e.X, t)
	if err != nil {
		return nil, err
	}

	switch {
	case recv.Kind == KindTuple && int(i) < len(recv.Items):
		return recv.Items[i], nil
	case recv.Kind == KindList:
		return recv.Elem, nil
	}

	return elem, nil
}

func (in *inferrer) listIndex(e *jinja.Getitem, want *Var) (*Var, error) {
	elem := want.at("", e.Line)

	recv, err := in.expr(e.X, ListOf(elem))
	if err != nil {
		return nil, err
	}

	if recv.Kind == KindList {
		return recv.Elem, nil
	}

	return elem, nil
}

// peek returns the current descriptor of a name or attribute chain without
// recording a reference, or nil.
func (in *inferrer) peek(e jinja.Expr) *Var {
	switch e := e.(type) {
	case *jinja.Name:
		if v, ok := in.scope.lookup(e.Name); ok {
			return v
		}
	case *jinja.Getattr:
		if recv := in.peek(e.X); recv != nil && recv.Kind == KindDictionary {
			return recv.Fields[e.Attr]
		}
	}

	return nil
}

func (in *inferrer) call(e *jinja.Call, want *Var) (*Var, error) {
	switch fn := e.Fn.(type) {
	case *jinja.Name:
		if fn.Name == "loop" && in.loopDepth > 0 {
			return in.opaque(e, nil, e.Args, e.Kwargs, want)
		}

		if r, ok := functions[fn.Name]; ok {
			return in.apply(e, r, nil, e.Args, e.Kwargs, want)
		}

		return in.opaque(e, nil, e.Args, e.Kwargs, want)
	case *jinja.Getattr:
		if r, ok := lookupMethod(fn.Attr, in.peek(fn.X)); ok {
			return in.apply(e, r, fn.X, e.Args, e.Kwargs, want)
		}

		return in.opaque(e, fn.X, e.Args, e.Kwargs, want)
	}

	return in.opaque(e, e.Fn, e.Args, e.Kwargs, want)
}

func (in *inferrer) filter(e *jinja.Filter, want *Var) (*Var, error) {
	if e.Name == "default" || e.Name == "d" {
		return in.defaultFilter(e, want)
	}

	r, ok := filters[e.Name]
	if !ok {
		return in.opaque(e, e.X, e.Args, e.Kwargs, want)
	}

	return in.apply(e, r, e.X, e.Args, e.Kwargs, want)
}

// apply types a registered filter, function or method. recv is nil for
// global functions and filter blocks.
func (in *inferrer) apply(node jinja.Expr, r rule, recv jinja.Expr, args []jinja.Expr, kwargs []jinja.Keyword, want *Var) (*Var, error) {
	if err := meet(node, r.declared(), want); err != nil {
		return nil, err
	}

	recvVal := Unknown()

	if recv != nil {
		base := r.in.build()
		if attr, ok := attributeKwarg(kwargs); ok && r.attribute {
			base = ListOf(DictOf(map[string]*Var{attr: Unknown().at(attr, node.Pos().Line)}))
		}

		recvWant, err := Merge(base, r.receiverWant(want))
		if err != nil {
			return nil, err
		}

		if recvVal, err = in.expr(recv, recvWant); err != nil {
			return nil, err
		}
	}

	argVals := make([]*Var, len(args))

	for i, a := range args {
		v, err := in.expr(a, r.argShape(i).build())
		if err != nil {
			return nil, err
		}

		argVals[i] = v
	}

	kwVals := make(map[string]*Var, len(kwargs))

	for _, kw := range kwargs {
		v, err := in.expr(kw.Value, r.kwargShape(kw.Name).build())
		if err != nil {
			return nil, err
		}

		kwVals[kw.Name] = v
	}

	return Merge(r.result(recvVal, argVals, kwVals), want)
}

func attributeKwarg(kwargs []jinja.Keyword) (string, bool) {
	for _, kw := range kwargs {
		if kw.Name == "attribute" {
			return constString(kw.Value)
		}
	}

	return "", false
}

// defaultFilter passes the receiver through, relaxed by the fallback's
// structure.
func (in *inferrer) defaultFilter(e *jinja.Filter, want *Var) (*Var, error) {
	fallback := Unknown()

	for i, a := range e.Args {
		argWant := Unknown()
		if i > 0 {
			argWant = Boolean()
		}

		v, err := in.expr(a, argWant)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			fallback = v.shape()
		}
	}

	for _, kw := range e.Kwargs {
		if _, err := in.expr(kw.Value, Unknown()); err != nil {
			return nil, err
		}
	}

	if e.X == nil {
		return Merge(fallback, want)
	}

	recvWant, err := Merge(want, fallback)
	if err != nil {
		return nil, err
	}

	recvWant.UsedWithDefault = true

	recv, err := in.expr(e.X, recvWant)
	if err != nil {
		return nil, err
	}

	return Merge(recv, want)
}

// opaque types a call whose signature is unknown. Its result cannot be
// shown to be a container.
func (in *inferrer) opaque(node jinja.Expr, recv jinja.Expr, args []jinja.Expr, kwargs []jinja.Keyword, want *Var) (*Var, error) {
	switch want.Kind {
	case KindList, KindTuple, KindDictionary:
		return nil, &UnexpectedExpressionError{Node: node, Expected: want, Actual: Unknown()}
	}

	if recv != nil {
		if _, err := in.expr(recv, Unknown()); err != nil {
			return nil, err
		}
	}

	for _, a := range args {
		if _, err := in.expr(a, Unknown()); err != nil {
			return nil, err
		}
	}

	for _, kw := range kwargs {
		if _, err := in.expr(kw.Value, Unknown()); err != nil {
			return nil, err
		}
	}

	return Unknown(), nil
}

func (in *inferrer) binop(e *jinja.BinOp, want *Var) (*Var, error) {
	switch e.Op {
	case "and", "or":
		return in.logical(e, want)
	case "~":
		return in.operands(e, String(), String(), want)
	case "+":
		return in.plus(e, want)
	}

	return in.operands(e, Number(), Number(), want)
}

// operands types an operator whose operands and result have fixed kinds.
func (in *inferrer) operands(e *jinja.BinOp, operand, result, want *Var) (*Var, error) {
	if err := meet(e, result, want); err != nil {
		return nil, err
	}

	for _, x := range []jinja.Expr{e.X, e.Y} {
		if _, err := in.expr(x, operand); err != nil {
			return nil, err
		}
	}

	return Merge(result, want)
}

// plus types "+", which adds numbers and concatenates strings and lists.
func (in *inferrer) plus(e *jinja.BinOp, want *Var) (*Var, error) {
	operand := Unknown()
	if want.Kind != KindBoolean && want.Kind != KindDictionary {
		operand = want.shape()
	}

	l, err := in.expr(e.X, operand)
	if err != nil {
		return nil, err
	}

	r, err := in.expr(e.Y, operand)
	if err != nil {
		return nil, err
	}

	res, err := Merge(l.shape(), r.shape())
	if err != nil {
		return nil, err
	}

	// Refine an operand that was less specific than the sum.
	for _, side := range []struct {
		x jinja.Expr
		v *Var
	}{{e.X, l}, {e.Y, r}} {
		if side.v.Kind != res.Kind {
			if _, err := in.expr(side.x, res); err != nil {
				return nil, err
			}
		}
	}

	if err := meet(e, res, want); err != nil {
		return nil, err
	}

	return Merge(res, want)
}

func (in *inferrer) logical(e *jinja.BinOp, want *Var) (*Var, error) {
	operand := want
	if in.cfg.ConditionsAsBoolean {
		operand = Boolean()
	}

	// Either side of "or" may be the one that holds, so its guards cannot
	// narrow a branch.
	if e.Op == "or" {
		saved := in.guards
		in.guards = nil

		defer func() { in.guards = saved }()
	}

	l, err := in.expr(e.X, operand)
	if err != nil {
		return nil, err
	}

	r, err := in.expr(e.Y, operand)
	if err != nil {
		return nil, err
	}

	// The value is one of the operands. Operands of different kinds leave it
	// untyped; each operand has already been checked against want.
	res, err := Merge(l.shape(), r.shape())
	if err != nil {
		return Unknown(), nil
	}

	return res, nil
}

func (in *inferrer) unary(e *jinja.UnaryOp, want *Var) (*Var, error) {
	if e.Op != "not" {
		if err := meet(e, Number(), want); err != nil {
			return nil, err
		}

		if _, err := in.expr(e.X, Number()); err != nil {
			return nil, err
		}

		return Merge(Number(), want)
	}

	if err := meet(e, Boolean(), want); err != nil {
		return nil, err
	}

	in.negated = !in.negated
	_, err := in.expr(e.X, in.condWant())
	in.negated = !in.negated

	if err != nil {
		return nil, err
	}

	return Merge(Boolean(), want)
}

func (in *inferrer) compare(e *jinja.Compare, want *Var) (*Var, error) {
	if err := meet(e, Boolean(), want); err != nil {
		return nil, err
	}

	for _, x := range []jinja.Expr{e.X, e.Y} {
		if _, err := in.expr(x, Unknown()); err != nil {
			return nil, err
		}
	}

	return Merge(Boolean(), want)
}

func (in *inferrer) test(e *jinja.Test, want *Var) (*Var, error) {
	if err := meet(e, Boolean(), want); err != nil {
		return nil, err
	}

	if _, err := in.expr(e.X, Unknown()); err != nil {
		return nil, err
	}

	for _, a := range e.Args {
		if _, err := in.expr(a, Unknown()); err != nil {
			return nil, err
		}
	}

	if e.Name == "defined" || e.Name == "undefined" {
		if name, path, ok := guardPath(e.X); ok {
			g := guard{name: name, path: path, defined: e.Name == "defined", then: e.Negated == in.negated}
			if err := in.addGuard(g); err != nil {
				return nil, err
			}
		}
	}

	return Merge(Boolean(), want)
}

func (in *inferrer) condExpr(e *jinja.CondExpr, want *Var) (*Var, error) {
	savedGuards, savedNegated := in.guards, in.negated
	in.guards, in.negated = nil, false
	_, err := in.expr(e.Test, in.condWant())
	in.guards, in.negated = savedGuards, savedNegated

	if err != nil {
		return nil, err
	}

	then, err := in.expr(e.Then, want)
	if err != nil {
		return nil, err
	}

	other := Unknown()
	if e.Else != nil {
		if other, err = in.expr(e.Else, want); err != nil {
			return nil, err
		}
	}

	res, err := Merge(then, other)
	if err != nil {
		return nil, err
	}

	return res.shape(), nil
}

package schema

// Merge joins two descriptors of the same logical value. Neither operand is
// modified. Incompatible kinds yield a *MergeConflictError that carries the
// innermost pair of descriptors that disagreed.
func Merge(a, b *Var) (*Var, error) {
	switch {
	case a == nil:
		return b.Clone(), nil
	case b == nil:
		return a.Clone(), nil
	}

	var out *Var

	switch {
	case a.Kind == KindUnknown:
		out = b.Clone()
	case b.Kind == KindUnknown:
		out = a.Clone()
	case a.Kind.IsScalar() && b.Kind.IsScalar():
		kind, ok := mergeScalarKinds(a.Kind, b.Kind)
		if !ok {
			return nil, &MergeConflictError{A: a, B: b}
		}

		out = &Var{Kind: kind}
	case a.Kind == KindList && b.Kind == KindList:
		elem, err := Merge(a.Elem, b.Elem)
		if err != nil {
			return nil, err
		}

		out = &Var{Kind: KindList, Elem: elem}
	case a.Kind == KindTuple && b.Kind == KindTuple:
		tuple, err := mergeTuples(a, b)
		if err != nil {
			return nil, err
		}

		out = tuple
	case a.Kind == KindDictionary && b.Kind == KindDictionary:
		dict, err := mergeDicts(a, b)
		if err != nil {
			return nil, err
		}

		out = dict
	case a.Kind == KindTuple && a.Extensible && b.Kind == KindList:
		list, err := indexedIntoList(a, b)
		if err != nil {
			return nil, err
		}

		out = list
	case a.Kind == KindList && b.Kind == KindTuple && b.Extensible:
		list, err := indexedIntoList(b, a)
		if err != nil {
			return nil, err
		}

		out = list
	default:
		return nil, &MergeConflictError{A: a, B: b}
	}

	mergeMeta(out, a, b)

	return out, nil
}

func mergeScalarKinds(a, b Kind) (Kind, bool) {
	switch {
	case a == b:
		return a, true
	case a == KindScalar:
		return b, true
	case b == KindScalar:
		return a, true
	}

	return KindUnknown, false
}

func mergeTuples(a, b *Var) (*Var, error) {
	if len(a.Items) != len(b.Items) {
		shorter := a
		if len(a.Items) > len(b.Items) {
			shorter = b
		}

		// Only a tuple known from index accesses may grow.
		if !shorter.Extensible {
			return nil, &MergeConflictError{A: a, B: b}
		}
	}

	n := max(len(a.Items), len(b.Items))
	items := make([]*Var, n)

	for i := range n {
		merged, err := Merge(itemAt(a, i), itemAt(b, i))
		if err != nil {
			return nil, err
		}

		items[i] = merged
	}

	return &Var{Kind: KindTuple, Items: items, Extensible: a.Extensible && b.Extensible}, nil
}

// indexedIntoList folds the items of a tuple known only from index accesses
// into the element of list.
func indexedIntoList(tuple, list *Var) (*Var, error) {
	elem := list.Elem
	for _, item := range tuple.Items {
		merged, err := Merge(elem, item)
		if err != nil {
			return nil, err
		}

		elem = merged
	}

	return &Var{Kind: KindList, Elem: elem}, nil
}

func itemAt(t *Var, i int) *Var {
	if i < len(t.Items) {
		return t.Items[i]
	}

	return Unknown()
}

func mergeDicts(a, b *Var) (*Var, error) {
	fields := make(map[string]*Var, len(a.Fields)+len(b.Fields))
	for k, f := range a.Fields {
		fields[k] = f.Clone()
	}

	// Sorted so that the reported conflict does not depend on map order.
	for _, k := range b.FieldNames() {
		other := b.Fields[k]

		existing, ok := a.Fields[k]
		if !ok {
			fields[k] = other.Clone()
			continue
		}

		merged, err := Merge(existing, other)
		if err != nil {
			return nil, err
		}

		fields[k] = merged
	}

	return &Var{Kind: KindDictionary, Fields: fields}, nil
}

// mergeMeta combines the metadata of a and b into out. A bare Unknown brings
// no evidence for the conjunctive flags, so the other side decides them.
func mergeMeta(out, a, b *Var) {
	out.Label = mergeLabels(a.Label, b.Label)

	out.Lines = unionLines(a.Lines, b.Lines)
	out.MayBeDefined = a.MayBeDefined || b.MayBeDefined
	out.CheckedAsDefined = a.CheckedAsDefined || b.CheckedAsDefined
	out.CheckedAsUndefined = a.CheckedAsUndefined || b.CheckedAsUndefined

	switch {
	case a.Kind == KindUnknown && b.Kind != KindUnknown:
		out.Constant, out.UsedWithDefault, out.Local = b.Constant, b.UsedWithDefault, b.Local
	case b.Kind == KindUnknown && a.Kind != KindUnknown:
		out.Constant, out.UsedWithDefault, out.Local = a.Constant, a.UsedWithDefault, a.Local
	default:
		out.Constant = a.Constant && b.Constant
		out.UsedWithDefault = a.UsedWithDefault && b.UsedWithDefault
		out.Local = a.Local && b.Local
	}
}

// mergeLabels prefers a non-empty label, then the smaller one.
func mergeLabels(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}

	return min(a, b)
}

// compatible reports whether a value known to have shape actual could ever
// satisfy the shape want. It only looks at kinds.
func compatible(actual, want *Var) bool {
	if actual == nil || want == nil || actual.Kind == KindUnknown || want.Kind == KindUnknown {
		return true
	}

	switch {
	case actual.Kind.IsScalar() && want.Kind.IsScalar():
		_, ok := mergeScalarKinds(actual.Kind, want.Kind)
		return ok
	case actual.Kind == KindList && want.Kind == KindList:
		return compatible(actual.Elem, want.Elem)
	case actual.Kind == KindTuple && want.Kind == KindTuple:
		for i := range min(len(actual.Items), len(want.Items)) {
			if !compatible(actual.Items[i], want.Items[i]) {
				return false
			}
		}

		return true
	case actual.Kind == KindTuple && actual.Extensible && want.Kind == KindList:
		return itemsCompatible(actual.Items, want.Elem)
	case actual.Kind == KindList && want.Kind == KindTuple && want.Extensible:
		return itemsCompatible(want.Items, actual.Elem)
	case actual.Kind == KindDictionary && want.Kind == KindDictionary:
		for k, f := range actual.Fields {
			if w, ok := want.Fields[k]; ok && !compatible(f, w) {
				return false
			}
		}

		return true
	}

	return false
}

func itemsCompatible(items []*Var, elem *Var) bool {
	for _, item := range items {
		if !compatible(item, elem) {
			return false
		}
	}

	return true
}

// Package schema infers the structure of the external variables a template
// expects by walking its AST.
package schema

import (
	"sort"
	"strings"
)

// Kind is the structural kind of a Var.
type Kind int

// Kinds, from the bottom of the lattice up. Scalar is the unrefined parent of
// String, Number and Boolean.
const (
	KindUnknown Kind = iota
	KindScalar
	KindString
	KindNumber
	KindBoolean
	KindList
	KindTuple
	KindDictionary
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindScalar:     "scalar",
	KindString:     "string",
	KindNumber:     "number",
	KindBoolean:    "boolean",
	KindList:       "list",
	KindTuple:      "tuple",
	KindDictionary: "dictionary",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "invalid"
}

// IsScalar reports whether k is Scalar or one of its refinements.
func (k Kind) IsScalar() bool {
	return k >= KindScalar && k <= KindBoolean
}

// Var describes the inferred type of a variable, an attribute or an
// intermediate expression result.
//
// A Var stored in a scope is never modified; updates build a new Var.
type Var struct {
	Kind  Kind
	Label string
	Lines []int

	Constant           bool
	MayBeDefined       bool
	CheckedAsDefined   bool
	CheckedAsUndefined bool
	UsedWithDefault    bool

	// Local marks a name whose value the template binds itself before any
	// external reference. Local names are left out of the inferred schema.
	Local bool

	Elem       *Var            // KindList
	Items      []*Var          // KindTuple
	Extensible bool            // KindTuple grown from index accesses
	Fields     map[string]*Var // KindDictionary
}

// Unknown returns a Var with no structural information.
func Unknown() *Var { return &Var{Kind: KindUnknown} }

// Scalar returns an unrefined scalar.
func Scalar() *Var { return &Var{Kind: KindScalar} }

// String returns a string scalar.
func String() *Var { return &Var{Kind: KindString} }

// Number returns a numeric scalar.
func Number() *Var { return &Var{Kind: KindNumber} }

// Boolean returns a boolean scalar.
func Boolean() *Var { return &Var{Kind: KindBoolean} }

// ListOf returns a homogeneous list of elem.
func ListOf(elem *Var) *Var {
	if elem == nil {
		elem = Unknown()
	}

	return &Var{Kind: KindList, Elem: elem}
}

// TupleOf returns a fixed-arity tuple.
func TupleOf(items ...*Var) *Var {
	return &Var{Kind: KindTuple, Items: items}
}

// DictOf returns an open record with the given fields.
func DictOf(fields map[string]*Var) *Var {
	if fields == nil {
		fields = map[string]*Var{}
	}

	return &Var{Kind: KindDictionary, Fields: fields}
}

// Clone returns a deep copy of v.
func (v *Var) Clone() *Var {
	if v == nil {
		return nil
	}

	cp := *v
	if v.Lines != nil {
		cp.Lines = append([]int(nil), v.Lines...)
	}

	cp.Elem = v.Elem.Clone()

	if v.Items != nil {
		cp.Items = make([]*Var, len(v.Items))
		for i, it := range v.Items {
			cp.Items[i] = it.Clone()
		}
	}

	if v.Fields != nil {
		cp.Fields = make(map[string]*Var, len(v.Fields))
		for k, f := range v.Fields {
			cp.Fields[k] = f.Clone()
		}
	}

	return &cp
}

// shape returns a deep copy of v with all metadata cleared.
func (v *Var) shape() *Var {
	out := &Var{Kind: v.Kind, Extensible: v.Extensible}

	switch v.Kind {
	case KindList:
		out.Elem = v.Elem.shape()
	case KindTuple:
		out.Items = make([]*Var, len(v.Items))
		for i, it := range v.Items {
			out.Items[i] = it.shape()
		}
	case KindDictionary:
		out.Fields = make(map[string]*Var, len(v.Fields))
		for k, f := range v.Fields {
			out.Fields[k] = f.shape()
		}
	}

	return out
}

// at returns a copy of v labelled and located at the given line.
func (v *Var) at(label string, line int) *Var {
	cp := v.Clone()
	cp.Label = label
	cp.Lines = addLine(cp.Lines, line)

	return cp
}

// FieldNames returns the dictionary keys in sorted order.
func (v *Var) FieldNames() []string {
	names := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

// String renders the structure of v, e.g. {a: [<scalar>], b: <string>}.
func (v *Var) String() string {
	var b strings.Builder
	v.render(&b)

	return b.String()
}

func (v *Var) render(b *strings.Builder) {
	if v == nil {
		b.WriteString("<nil>")
		return
	}

	switch v.Kind {
	case KindList:
		b.WriteByte('[')
		v.Elem.render(b)
		b.WriteByte(']')
	case KindTuple:
		b.WriteByte('(')

		for i, it := range v.Items {
			if i > 0 {
				b.WriteString(", ")
			}

			it.render(b)
		}

		if v.Extensible {
			b.WriteString(", ...")
		}

		b.WriteByte(')')
	case KindDictionary:
		b.WriteByte('{')

		for i, k := range v.FieldNames() {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteString(k)
			b.WriteString(": ")
			v.Fields[k].render(b)
		}

		b.WriteByte('}')
	default:
		b.WriteByte('<')
		b.WriteString(v.Kind.String())
		b.WriteByte('>')
	}
}

func addLine(lines []int, line int) []int {
	if line <= 0 {
		return lines
	}

	return unionLines(lines, []int{line})
}

func unionLines(a, b []int) []int {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))

	for _, list := range [][]int{a, b} {
		for _, l := range list {
			if _, ok := seen[l]; ok {
				continue
			}

			seen[l] = struct{}{}
			out = append(out, l)
		}
	}

	sort.Ints(out)

	return out
}

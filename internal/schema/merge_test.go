package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSameVar(t *testing.T, want, got *Var) {
	t.Helper()

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func sampleVars() map[string]*Var {
	return map[string]*Var{
		"unknown": Unknown(),
		"scalar":  {Kind: KindScalar, Label: "s", Lines: []int{1}},
		"string":  {Kind: KindString, Label: "s", Lines: []int{2}, Constant: true},
		"number":  {Kind: KindNumber, UsedWithDefault: true},
		"boolean": {Kind: KindBoolean, CheckedAsDefined: true, MayBeDefined: true},
		"list":    ListOf(&Var{Kind: KindString, Lines: []int{3}}),
		"tuple":   {Kind: KindTuple, Items: []*Var{Number(), Unknown()}, Extensible: true},
		"dict": {Kind: KindDictionary, Label: "d", Lines: []int{4, 5}, Fields: map[string]*Var{
			"a": {Kind: KindScalar, Label: "a", Lines: []int{4}},
			"b": ListOf(DictOf(map[string]*Var{"c": Number()})),
		}},
		"local": {Kind: KindString, Local: true, Constant: true},
	}
}

func TestMerge_UnknownIsIdentity(t *testing.T) {
	for name, x := range sampleVars() {
		t.Run(name, func(t *testing.T) {
			left, err := Merge(Unknown(), x)
			require.NoError(t, err)
			requireSameVar(t, x, left)

			right, err := Merge(x, Unknown())
			require.NoError(t, err)
			requireSameVar(t, x, right)
		})
	}
}

func TestMerge_DoesNotMutateOperands(t *testing.T) {
	a := sampleVars()["dict"]
	b := DictOf(map[string]*Var{
		"a": {Kind: KindString, Lines: []int{9}},
		"e": Boolean(),
	})
	aBefore, bBefore := a.Clone(), b.Clone()

	merged, err := Merge(a, b)
	require.NoError(t, err)

	requireSameVar(t, aBefore, a)
	requireSameVar(t, bBefore, b)

	merged.Fields["a"].Lines = append(merged.Fields["a"].Lines, 100)
	requireSameVar(t, aBefore, a)
}

func TestMerge_ScalarRefinement(t *testing.T) {
	for _, k := range []Kind{KindString, KindNumber, KindBoolean} {
		got, err := Merge(Scalar(), &Var{Kind: k})
		require.NoError(t, err)
		assert.Equal(t, k, got.Kind)

		got, err = Merge(&Var{Kind: k}, Scalar())
		require.NoError(t, err)
		assert.Equal(t, k, got.Kind)
	}
}

func TestMerge_Metadata(t *testing.T) {
	a := &Var{Kind: KindString, Label: "x", Lines: []int{3, 1}, Constant: true, CheckedAsDefined: true, UsedWithDefault: true}
	b := &Var{Kind: KindScalar, Label: "y", Lines: []int{2, 3}, Constant: true, MayBeDefined: true}

	got, err := Merge(a, b)
	require.NoError(t, err)

	requireSameVar(t, &Var{
		Kind:             KindString,
		Label:            "x",
		Lines:            []int{1, 2, 3},
		Constant:         true,
		MayBeDefined:     true,
		CheckedAsDefined: true,
	}, got)
}

func TestMerge_Containers(t *testing.T) {
	t.Run("list elements merge", func(t *testing.T) {
		got, err := Merge(ListOf(Scalar()), ListOf(Number()))
		require.NoError(t, err)
		assert.Equal(t, "[<number>]", got.String())
	})

	t.Run("dictionaries take the key-wise union", func(t *testing.T) {
		a := DictOf(map[string]*Var{"a": Scalar(), "b": Unknown()})
		b := DictOf(map[string]*Var{"a": String(), "c": ListOf(nil)})

		got, err := Merge(a, b)
		require.NoError(t, err)
		assert.Equal(t, "{a: <string>, b: <unknown>, c: [<unknown>]}", got.String())
	})

	t.Run("extensible tuples grow", func(t *testing.T) {
		a := &Var{Kind: KindTuple, Items: []*Var{Unknown(), Scalar()}, Extensible: true}
		b := &Var{Kind: KindTuple, Items: []*Var{Unknown(), Unknown(), Number()}, Extensible: true}

		got, err := Merge(a, b)
		require.NoError(t, err)
		assert.Equal(t, "(<unknown>, <scalar>, <number>, ...)", got.String())
	})

	t.Run("fixed tuple absorbs a shorter extensible one", func(t *testing.T) {
		a := TupleOf(String(), Number(), Boolean())
		b := &Var{Kind: KindTuple, Items: []*Var{Scalar()}, Extensible: true}

		got, err := Merge(a, b)
		require.NoError(t, err)
		assert.False(t, got.Extensible)
		assert.Equal(t, "(<string>, <number>, <boolean>)", got.String())
	})
}

func TestMerge_Conflicts(t *testing.T) {
	tests := []struct {
		name string
		a, b *Var
	}{
		{"string vs number", String(), Number()},
		{"list vs dictionary", ListOf(nil), DictOf(nil)},
		{"dictionary vs scalar", DictOf(nil), Scalar()},
		{"tuple arity", TupleOf(Unknown(), Unknown()), TupleOf(Unknown())},
		{"fixed tuple shorter than index", TupleOf(Unknown()), &Var{Kind: KindTuple, Items: []*Var{Unknown(), Unknown()}, Extensible: true}},
		{"nested", DictOf(map[string]*Var{"a": ListOf(String())}), DictOf(map[string]*Var{"a": ListOf(Boolean())})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(tt.a, tt.b)
			require.Error(t, err)

			var conflict *MergeConflictError
			require.True(t, errors.As(err, &conflict))

			_, err = Merge(tt.b, tt.a)
			require.Error(t, err)
		})
	}
}

func TestMerge_NestedConflictReportsInnermostPair(t *testing.T) {
	a := DictOf(map[string]*Var{"a": {Kind: KindString, Label: "a", Lines: []int{1}}})
	b := DictOf(map[string]*Var{"a": {Kind: KindNumber, Label: "a", Lines: []int{2}}})

	_, err := Merge(a, b)

	var conflict *MergeConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, KindString, conflict.A.Kind)
	assert.Equal(t, KindNumber, conflict.B.Kind)
	assert.Equal(t, `"a" used as <string> on line 1 conflicts with "a" used as <number> on line 2`, err.Error())
}

func TestMerge_OrderIndependent(t *testing.T) {
	vars := []*Var{
		DictOf(map[string]*Var{"a": Scalar()}),
		DictOf(map[string]*Var{"b": ListOf(Number())}),
		DictOf(map[string]*Var{"a": String(), "b": ListOf(Unknown())}),
		Unknown(),
	}

	fold := func(order []int) *Var {
		out := Unknown()
		for _, i := range order {
			var err error
			out, err = Merge(out, vars[i])
			require.NoError(t, err)
		}

		return out
	}

	want := fold([]int{0, 1, 2, 3})
	for _, order := range [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}} {
		requireSameVar(t, want, fold(order))
	}

	indexed := &Var{Kind: KindTuple, Label: "x", Lines: []int{1}, Extensible: true, Items: []*Var{
		Unknown(),
		{Kind: KindScalar, Lines: []int{1}},
	}}

	pairs := []struct {
		name string
		a, b *Var
		want string
	}{
		{"indexed tuple and list", indexed, &Var{Kind: KindList, Label: "x", Lines: []int{2}, Elem: &Var{Kind: KindString, Label: "e", Lines: []int{2}}}, "[<string>]"},
		{"indexed tuple and untyped list", indexed, ListOf(nil), "[<scalar>]"},
		{"labels", &Var{Kind: KindScalar, Label: "row"}, &Var{Kind: KindNumber, Label: "column"}, "<number>"},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			ab, err := Merge(tt.a, tt.b)
			require.NoError(t, err)

			ba, err := Merge(tt.b, tt.a)
			require.NoError(t, err)

			requireSameVar(t, ab, ba)
			assert.Equal(t, tt.want, ab.String())
		})
	}
}

func TestMerge_IndexedTupleIntoList(t *testing.T) {
	indexed := &Var{Kind: KindTuple, Extensible: true, Items: []*Var{String(), Number()}}

	_, err := Merge(indexed, ListOf(Scalar()))

	var conflict *MergeConflictError
	require.True(t, errors.As(err, &conflict))

	_, err = Merge(TupleOf(Scalar()), ListOf(Scalar()))
	require.True(t, errors.As(err, &conflict), "a fixed tuple is not a list")

	assert.True(t, compatible(&Var{Kind: KindTuple, Extensible: true, Items: []*Var{Scalar()}}, ListOf(String())))
	assert.False(t, compatible(ListOf(Number()), &Var{Kind: KindTuple, Extensible: true, Items: []*Var{String()}}))
}

func TestMerge_LabelIsSymmetric(t *testing.T) {
	a := &Var{Kind: KindScalar, Label: "x", Lines: []int{1}}
	b := &Var{Kind: KindString, Label: "e", Lines: []int{2}}

	ab, err := Merge(a, b)
	require.NoError(t, err)

	ba, err := Merge(b, a)
	require.NoError(t, err)

	assert.Equal(t, "e", ab.Label)
	assert.Equal(t, ab.Label, ba.Label)

	got, err := Merge(&Var{Kind: KindScalar}, b)
	require.NoError(t, err)
	assert.Equal(t, "e", got.Label)
}

func TestCompatible(t *testing.T) {
	assert.True(t, compatible(Unknown(), ListOf(nil)))
	assert.True(t, compatible(ListOf(ListOf(nil)), ListOf(Unknown())))
	assert.False(t, compatible(ListOf(ListOf(nil)), ListOf(DictOf(nil))))
	assert.False(t, compatible(ListOf(nil), Boolean()))
	assert.True(t, compatible(Number(), Scalar()))
	assert.False(t, compatible(Number(), String()))
}

func TestVar_String(t *testing.T) {
	v := DictOf(map[string]*Var{
		"b": TupleOf(String(), Boolean()),
		"a": ListOf(DictOf(map[string]*Var{"x": Scalar()})),
	})

	assert.Equal(t, "{a: [{x: <scalar>}], b: (<string>, <boolean>)}", v.String())
}

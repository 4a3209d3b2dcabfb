// Package jinja parses the Jinja template subset used by playbooks into an AST.
package jinja

// Position is a 1-based location in the template source.
type Position struct {
	Line int
	Col  int
}

// Node is implemented by every AST node.
type Node interface {
	Pos() Position
}

// Stmt is a template-level construct.
type Stmt interface {
	Node
	stmt()
}

// Expr is an expression inside a tag or an output block.
type Expr interface {
	Node
	expr()
}

// Template is the root of a parsed template.
type Template struct {
	Name string
	Body []Stmt
}

type (
	// Data is literal text between tags.
	Data struct {
		Position
		Text string
	}

	// Output is a {{ expr }} block.
	Output struct {
		Position
		X Expr
	}

	// Set is {% set target = value %}. Target is a *Name or a *Tuple of names.
	Set struct {
		Position
		Target Expr
		Value  Expr
	}

	// SetBlock is {% set name %}...{% endset %}.
	SetBlock struct {
		Position
		Name string
		Body []Stmt
	}

	// If is a conditional; elif chains are nested Ifs in Else.
	If struct {
		Position
		Test Expr
		Body []Stmt
		Else []Stmt
	}

	// For is a loop. Target is a *Name or a *Tuple of names; Filter is the
	// optional inline "if" condition.
	For struct {
		Position
		Target    Expr
		Iter      Expr
		Filter    Expr
		Body      []Stmt
		Else      []Stmt
		Recursive bool
	}

	// Raw is a {% raw %} block. Its contents are never interpreted.
	Raw struct {
		Position
		Text string
	}

	// Block is a named {% block %}.
	Block struct {
		Position
		Name string
		Body []Stmt
	}

	// Include is {% include template %}.
	Include struct {
		Position
		Template Expr
	}

	// Extends is {% extends template %}.
	Extends struct {
		Position
		Template Expr
	}

	// Import covers both {% import t as name %} and {% from t import a, b %}.
	Import struct {
		Position
		Template Expr
		Names    []string
	}

	// With is {% with a = x, b = y %}...{% endwith %}.
	With struct {
		Position
		Targets []*Name
		Values  []Expr
		Body    []Stmt
	}

	// FilterBlock is {% filter upper %}...{% endfilter %}. Filter.X is nil.
	FilterBlock struct {
		Position
		Filter *Filter
		Body   []Stmt
	}
)

type (
	// Name is an identifier reference.
	Name struct {
		Position
		Name string
	}

	// Const is a literal: string, int64, float64, bool or nil.
	Const struct {
		Position
		Value any
	}

	// List is a [a, b] literal.
	List struct {
		Position
		Items []Expr
	}

	// Tuple is an (a, b) literal or an unparenthesized target list.
	Tuple struct {
		Position
		Items []Expr
	}

	// Dict is a {k: v} literal.
	Dict struct {
		Position
		Pairs []Pair
	}

	// Getattr is x.attr.
	Getattr struct {
		Position
		X    Expr
		Attr string
	}

	// Getitem is x[index]. Index may be a *Slice.
	Getitem struct {
		Position
		X     Expr
		Index Expr
	}

	// Slice is the a:b:c part of a subscript; any bound may be nil.
	Slice struct {
		Position
		Start, Stop, Step Expr
	}

	// Call is fn(args, key=value).
	Call struct {
		Position
		Fn     Expr
		Args   []Expr
		Kwargs []Keyword
	}

	// Filter is x|name(args).
	Filter struct {
		Position
		X      Expr
		Name   string
		Args   []Expr
		Kwargs []Keyword
	}

	// Test is x is [not] name(args).
	Test struct {
		Position
		X       Expr
		Name    string
		Args    []Expr
		Negated bool
	}

	// BinOp covers arithmetic, "~", "and" and "or".
	BinOp struct {
		Position
		Op   string
		X, Y Expr
	}

	// UnaryOp covers "-", "+" and "not".
	UnaryOp struct {
		Position
		Op string
		X  Expr
	}

	// Compare is a binary comparison or membership test.
	Compare struct {
		Position
		Op   string
		X, Y Expr
	}

	// CondExpr is "then if test else else". Else may be nil.
	CondExpr struct {
		Position
		Test, Then, Else Expr
	}
)

// Pair is one key/value entry of a Dict literal.
type Pair struct {
	Key, Value Expr
}

// Keyword is a name=value call argument.
type Keyword struct {
	Name  string
	Value Expr
}

// Pos returns the node position.
func (p Position) Pos() Position { return p }

func (*Data) stmt()        {}
func (*Output) stmt()      {}
func (*Set) stmt()         {}
func (*SetBlock) stmt()    {}
func (*If) stmt()          {}
func (*For) stmt()         {}
func (*Raw) stmt()         {}
func (*Block) stmt()       {}
func (*Include) stmt()     {}
func (*Extends) stmt()     {}
func (*Import) stmt()      {}
func (*With) stmt()        {}
func (*FilterBlock) stmt() {}

func (*Name) expr()     {}
func (*Const) expr()    {}
func (*List) expr()     {}
func (*Tuple) expr()    {}
func (*Dict) expr()     {}
func (*Getattr) expr()  {}
func (*Getitem) expr()  {}
func (*Slice) expr()    {}
func (*Call) expr()     {}
func (*Filter) expr()   {}
func (*Test) expr()     {}
func (*BinOp) expr()    {}
func (*UnaryOp) expr()  {}
func (*Compare) expr()  {}
func (*CondExpr) expr() {}

// IsLiteral reports whether e is built only from constants and literal containers.
func IsLiteral(e Expr) bool {
	switch e := e.(type) {
	case *Const:
		return true
	case *List:
		return allLiteral(e.Items)
	case *Tuple:
		return allLiteral(e.Items)
	case *Dict:
		for _, p := range e.Pairs {
			if !IsLiteral(p.Key) || !IsLiteral(p.Value) {
				return false
			}
		}

		return true
	}

	return false
}

func allLiteral(items []Expr) bool {
	for _, it := range items {
		if !IsLiteral(it) {
			return false
		}
	}

	return true
}

// KindName returns a short, stable name for the node type, used in diagnostics.
func KindName(n Node) string {
	switch n.(type) {
	case *Name:
		return "Name"
	case *Const:
		return "Const"
	case *List:
		return "List"
	case *Tuple:
		return "Tuple"
	case *Dict:
		return "Dict"
	case *Getattr:
		return "Getattr"
	case *Getitem:
		return "Getitem"
	case *Slice:
		return "Slice"
	case *Call:
		return "Call"
	case *Filter:
		return "Filter"
	case *Test:
		return "Test"
	case *BinOp:
		return "BinOp"
	case *UnaryOp:
		return "UnaryOp"
	case *Compare:
		return "Compare"
	case *CondExpr:
		return "CondExpr"
	case *Output:
		return "Output"
	case *Set:
		return "Set"
	case *If:
		return "If"
	case *For:
		return "For"
	}

	return "Node"
}

package jinja

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses template source into a Template. name is only used in errors.
func Parse(name, src string) (tmpl *Template, err error) {
	toks, err := lex(name, src)
	if err != nil {
		return nil, err
	}

	p := &parser{name: name, toks: toks}

	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				tmpl, err = nil, se
				return
			}

			panic(r)
		}
	}()

	body, _ := p.parseBody()

	return &Template{Name: name, Body: body}, nil
}

type parser struct {
	name string
	toks []token
	pos  int
}

func (p *parser) errorf(pos Position, format string, args ...any) {
	panic(&SyntaxError{Name: p.name, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}

	return t
}

func (p *parser) expect(kind tokenKind) token {
	t := p.peek()
	if t.kind != kind {
		p.errorf(t.pos, "got %s, want %s", t, kind)
	}

	return p.next()
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.val == op
}

func (p *parser) acceptOp(op string) bool {
	if p.isOp(op) {
		p.next()
		return true
	}

	return false
}

func (p *parser) expectOp(op string) token {
	if !p.isOp(op) {
		p.errorf(p.peek().pos, "got %s, want %q", p.peek(), op)
	}

	return p.next()
}

func (p *parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokName && t.val == kw
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.next()
		return true
	}

	return false
}

func (p *parser) expectKeyword(kw string) {
	if !p.acceptKeyword(kw) {
		p.errorf(p.peek().pos, "got %s, want %q", p.peek(), kw)
	}
}

// parseBody parses statements until one of the stop tags opens a block tag.
// The opening marker and the tag name are consumed; the rest of the tag is
// left to the caller.
func (p *parser) parseBody(stops ...string) ([]Stmt, string) {
	var body []Stmt

	for {
		t := p.peek()

		switch t.kind {
		case tokEOF:
			if len(stops) > 0 {
				p.errorf(t.pos, "unexpected end of template, expected %s", strings.Join(stops, " or "))
			}

			return body, ""

		case tokText:
			p.next()
			body = append(body, &Data{Position: t.pos, Text: t.val})

		case tokRaw:
			p.next()
			body = append(body, &Raw{Position: t.pos, Text: t.val})

		case tokVarBegin:
			p.next()
			x := p.parseExpr()
			p.expect(tokVarEnd)
			body = append(body, &Output{Position: t.pos, X: x})

		case tokBlockBegin:
			tag := p.peekAt(1)
			if tag.kind == tokName {
				for _, stop := range stops {
					if tag.val == stop {
						p.next()
						p.next()

						return body, stop
					}
				}
			}

			p.next()
			body = append(body, p.parseStatement())

		default:
			p.errorf(t.pos, "unexpected %s", t)
		}
	}
}

func (p *parser) parseStatement() Stmt {
	t := p.expect(tokName)

	switch t.val {
	case "if":
		return p.parseIf(t.pos)
	case "for":
		return p.parseFor(t.pos)
	case "set":
		return p.parseSet(t.pos)
	case "block":
		return p.parseBlock(t.pos)
	case "include":
		return p.parseInclude(t.pos)
	case "extends":
		x := p.parseExpr()
		p.expect(tokBlockEnd)

		return &Extends{Position: t.pos, Template: x}
	case "import":
		return p.parseImport(t.pos)
	case "from":
		return p.parseFromImport(t.pos)
	case "with":
		return p.parseWith(t.pos)
	case "filter":
		return p.parseFilterBlock(t.pos)
	}

	p.errorf(t.pos, "unknown tag %q", t.val)

	return nil
}

func (p *parser) parseIf(pos Position) Stmt {
	node := &If{Position: pos, Test: p.parseExpr()}
	p.expect(tokBlockEnd)

	body, end := p.parseBody("elif", "else", "endif")
	node.Body = body

	switch end {
	case "elif":
		node.Else = []Stmt{p.parseIf(p.toks[p.pos-1].pos)}
	case "else":
		p.expect(tokBlockEnd)
		node.Else, _ = p.parseBody("endif")
		p.expect(tokBlockEnd)
	default:
		p.expect(tokBlockEnd)
	}

	return node
}

func (p *parser) parseFor(pos Position) Stmt {
	node := &For{Position: pos, Target: p.parseAssignTarget(false)}
	p.expectKeyword("in")
	node.Iter = p.parseOr()

	if p.acceptKeyword("if") {
		node.Filter = p.parseExpr()
	}

	node.Recursive = p.acceptKeyword("recursive")
	p.expect(tokBlockEnd)

	body, end := p.parseBody("else", "endfor")
	node.Body = body

	if end == "else" {
		p.expect(tokBlockEnd)
		node.Else, _ = p.parseBody("endfor")
	}

	p.expect(tokBlockEnd)

	return node
}

func (p *parser) parseSet(pos Position) Stmt {
	target := p.parseAssignTarget(true)

	if p.acceptOp("=") {
		value := p.parseTupleExpr()
		p.expect(tokBlockEnd)

		return &Set{Position: pos, Target: target, Value: value}
	}

	name, ok := target.(*Name)
	if !ok {
		p.errorf(pos, "block assignment needs a single name")
	}

	p.expect(tokBlockEnd)
	body, _ := p.parseBody("endset")
	p.expect(tokBlockEnd)

	return &SetBlock{Position: pos, Name: name.Name, Body: body}
}

func (p *parser) parseBlock(pos Position) Stmt {
	name := p.expect(tokName).val
	p.acceptKeyword("scoped")
	p.expect(tokBlockEnd)

	body, _ := p.parseBody("endblock")
	if p.peek().kind == tokName {
		p.next()
	}

	p.expect(tokBlockEnd)

	return &Block{Position: pos, Name: name, Body: body}
}

func (p *parser) parseInclude(pos Position) Stmt {
	node := &Include{Position: pos, Template: p.parseExpr()}
	if p.acceptKeyword("ignore") {
		p.expectKeyword("missing")
	}

	p.skipContextModifier()
	p.expect(tokBlockEnd)

	return node
}

func (p *parser) skipContextModifier() {
	if p.isKeyword("with") || p.isKeyword("without") {
		p.next()
		p.expectKeyword("context")
	}
}

func (p *parser) parseImport(pos Position) Stmt {
	node := &Import{Position: pos, Template: p.parseExpr()}
	p.expectKeyword("as")
	node.Names = []string{p.expect(tokName).val}
	p.skipContextModifier()
	p.expect(tokBlockEnd)

	return node
}

func (p *parser) parseFromImport(pos Position) Stmt {
	node := &Import{Position: pos, Template: p.parseExpr()}
	p.expectKeyword("import")

	for {
		name := p.expect(tokName).val
		if p.acceptKeyword("as") {
			name = p.expect(tokName).val
		}

		node.Names = append(node.Names, name)

		if !p.acceptOp(",") {
			break
		}
	}

	p.skipContextModifier()
	p.expect(tokBlockEnd)

	return node
}

func (p *parser) parseWith(pos Position) Stmt {
	node := &With{Position: pos}

	for p.peek().kind != tokBlockEnd {
		t := p.expect(tokName)
		p.expectOp("=")
		node.Targets = append(node.Targets, &Name{Position: t.pos, Name: t.val})
		node.Values = append(node.Values, p.parseExpr())

		if !p.acceptOp(",") {
			break
		}
	}

	p.expect(tokBlockEnd)
	node.Body, _ = p.parseBody("endwith")
	p.expect(tokBlockEnd)

	return node
}

func (p *parser) parseFilterBlock(pos Position) Stmt {
	t := p.expect(tokName)
	f := &Filter{Position: t.pos, Name: t.val}

	if p.acceptOp("(") {
		f.Args, f.Kwargs = p.parseArgs()
	}

	p.expect(tokBlockEnd)
	body, _ := p.parseBody("endfilter")
	p.expect(tokBlockEnd)

	return &FilterBlock{Position: pos, Filter: f, Body: body}
}

// parseAssignTarget parses a name or a comma separated list of names.
// Namespace attribute targets (ns.x) are accepted when allowAttr is set.
func (p *parser) parseAssignTarget(allowAttr bool) Expr {
	pos := p.peek().pos
	parens := p.acceptOp("(")

	var items []Expr

	for {
		t := p.expect(tokName)

		var item Expr = &Name{Position: t.pos, Name: t.val}
		if allowAttr && p.isOp(".") {
			p.next()
			attr := p.expect(tokName)
			item = &Getattr{Position: t.pos, X: item, Attr: attr.val}
		}

		items = append(items, item)

		if !p.acceptOp(",") {
			break
		}
	}

	if parens {
		p.expectOp(")")
	}

	if len(items) == 1 && !parens {
		return items[0]
	}

	return &Tuple{Position: pos, Items: items}
}

func (p *parser) parseTupleExpr() Expr {
	x := p.parseExpr()
	if !p.isOp(",") {
		return x
	}

	items := []Expr{x}
	for p.acceptOp(",") {
		if p.peek().kind == tokBlockEnd {
			break
		}

		items = append(items, p.parseExpr())
	}

	return &Tuple{Position: x.Pos(), Items: items}
}

func (p *parser) parseExpr() Expr {
	x := p.parseOr()

	for p.isKeyword("if") {
		p.next()

		cond := &CondExpr{Position: x.Pos(), Then: x, Test: p.parseOr()}
		if p.acceptKeyword("else") {
			cond.Else = p.parseExpr()
		}

		x = cond
	}

	return x
}

func (p *parser) parseOr() Expr {
	x := p.parseAnd()
	for p.acceptKeyword("or") {
		x = &BinOp{Position: x.Pos(), Op: "or", X: x, Y: p.parseAnd()}
	}

	return x
}

func (p *parser) parseAnd() Expr {
	x := p.parseNot()
	for p.acceptKeyword("and") {
		x = &BinOp{Position: x.Pos(), Op: "and", X: x, Y: p.parseNot()}
	}

	return x
}

func (p *parser) parseNot() Expr {
	if p.isKeyword("not") {
		t := p.next()
		return &UnaryOp{Position: t.pos, Op: "not", X: p.parseNot()}
	}

	return p.parseCompare()
}

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}

func (p *parser) parseCompare() Expr {
	x := p.parseBinary(0)

	for {
		t := p.peek()

		var op string

		switch {
		case t.kind == tokOp && compareOps[t.val]:
			op = t.val
			p.next()
		case p.isKeyword("in"):
			op = "in"
			p.next()
		case p.isKeyword("not") && p.peekAt(1).kind == tokName && p.peekAt(1).val == "in":
			op = "not in"
			p.next()
			p.next()
		default:
			return x
		}

		x = &Compare{Position: x.Pos(), Op: op, X: x, Y: p.parseBinary(0)}
	}
}

// Binary operator levels, loosest first.
var binaryLevels = [][]string{
	{"+", "-"},
	{"~"},
	{"*", "/", "//", "%"},
	{"**"},
}

func (p *parser) parseBinary(level int) Expr {
	if level == len(binaryLevels) {
		return p.parseUnary(true)
	}

	x := p.parseBinary(level + 1)

	for {
		t := p.peek()
		if t.kind != tokOp || !contains(binaryLevels[level], t.val) {
			return x
		}

		p.next()
		x = &BinOp{Position: x.Pos(), Op: t.val, X: x, Y: p.parseBinary(level + 1)}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

func (p *parser) parseUnary(withFilter bool) Expr {
	var x Expr

	t := p.peek()
	if t.kind == tokOp && (t.val == "-" || t.val == "+") {
		p.next()
		x = &UnaryOp{Position: t.pos, Op: t.val, X: p.parseUnary(false)}
	} else {
		x = p.parsePostfix(p.parsePrimary())
	}

	if withFilter {
		x = p.parseFilterExpr(x)
	}

	return x
}

func (p *parser) parsePrimary() Expr {
	t := p.next()

	switch t.kind {
	case tokName:
		switch t.val {
		case "true", "True":
			return &Const{Position: t.pos, Value: true}
		case "false", "False":
			return &Const{Position: t.pos, Value: false}
		case "none", "None":
			return &Const{Position: t.pos, Value: nil}
		}

		return &Name{Position: t.pos, Name: t.val}

	case tokString:
		s := t.val
		for p.peek().kind == tokString {
			s += p.next().val
		}

		return &Const{Position: t.pos, Value: s}

	case tokInt:
		n, err := strconv.ParseInt(t.val, 10, 64)
		if err != nil {
			p.errorf(t.pos, "invalid integer %s", t.val)
		}

		return &Const{Position: t.pos, Value: n}

	case tokFloat:
		f, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			p.errorf(t.pos, "invalid float %s", t.val)
		}

		return &Const{Position: t.pos, Value: f}

	case tokOp:
		switch t.val {
		case "(":
			return p.parseParen(t.pos)
		case "[":
			return &List{Position: t.pos, Items: p.parseItems("]")}
		case "{":
			return p.parseDict(t.pos)
		}
	}

	p.errorf(t.pos, "unexpected %s", t)

	return nil
}

func (p *parser) parseParen(pos Position) Expr {
	if p.acceptOp(")") {
		return &Tuple{Position: pos}
	}

	x := p.parseExpr()
	if p.acceptOp(")") {
		return x
	}

	items := []Expr{x}
	for p.acceptOp(",") {
		if p.isOp(")") {
			break
		}

		items = append(items, p.parseExpr())
	}

	p.expectOp(")")

	return &Tuple{Position: pos, Items: items}
}

func (p *parser) parseItems(closing string) []Expr {
	var items []Expr

	for !p.acceptOp(closing) {
		if len(items) > 0 {
			p.expectOp(",")

			if p.acceptOp(closing) {
				break
			}
		}

		items = append(items, p.parseExpr())
	}

	return items
}

func (p *parser) parseDict(pos Position) Expr {
	d := &Dict{Position: pos}

	for !p.acceptOp("}") {
		if len(d.Pairs) > 0 {
			p.expectOp(",")

			if p.acceptOp("}") {
				break
			}
		}

		key := p.parseExpr()
		p.expectOp(":")
		d.Pairs = append(d.Pairs, Pair{Key: key, Value: p.parseExpr()})
	}

	return d
}

func (p *parser) parsePostfix(x Expr) Expr {
	for {
		t := p.peek()
		if t.kind != tokOp {
			return x
		}

		switch t.val {
		case ".":
			p.next()

			attr := p.next()
			switch attr.kind {
			case tokName:
				x = &Getattr{Position: attr.pos, X: x, Attr: attr.val}
			case tokInt:
				n, _ := strconv.ParseInt(attr.val, 10, 64)
				x = &Getitem{Position: attr.pos, X: x, Index: &Const{Position: attr.pos, Value: n}}
			default:
				p.errorf(attr.pos, "expected attribute name, got %s", attr)
			}

		case "[":
			p.next()
			x = &Getitem{Position: t.pos, X: x, Index: p.parseSubscript()}
			p.expectOp("]")

		case "(":
			p.next()
			args, kwargs := p.parseArgs()
			x = &Call{Position: x.Pos(), Fn: x, Args: args, Kwargs: kwargs}

		default:
			return x
		}
	}
}

func (p *parser) parseSubscript() Expr {
	pos := p.peek().pos

	var start Expr
	if !p.isOp(":") {
		start = p.parseExpr()
		if !p.isOp(":") {
			return start
		}
	}

	s := &Slice{Position: pos, Start: start}
	p.expectOp(":")

	if !p.isOp("]") && !p.isOp(":") {
		s.Stop = p.parseExpr()
	}

	if p.acceptOp(":") && !p.isOp("]") {
		s.Step = p.parseExpr()
	}

	return s
}

// parseArgs parses call arguments after the opening parenthesis.
func (p *parser) parseArgs() ([]Expr, []Keyword) {
	var (
		args   []Expr
		kwargs []Keyword
	)

	for !p.acceptOp(")") {
		if len(args)+len(kwargs) > 0 {
			p.expectOp(",")

			if p.acceptOp(")") {
				break
			}
		}

		if p.isOp("*") || p.isOp("**") {
			p.errorf(p.peek().pos, "star arguments are not supported")
		}

		if p.peek().kind == tokName && p.peekAt(1).kind == tokOp && p.peekAt(1).val == "=" {
			name := p.next().val
			p.next()
			kwargs = append(kwargs, Keyword{Name: name, Value: p.parseExpr()})

			continue
		}

		args = append(args, p.parseExpr())
	}

	return args, kwargs
}

func (p *parser) parseFilterExpr(x Expr) Expr {
	for {
		switch {
		case p.isOp("|"):
			p.next()
			t := p.expect(tokName)
			f := &Filter{Position: t.pos, X: x, Name: t.val}

			if p.acceptOp("(") {
				f.Args, f.Kwargs = p.parseArgs()
			}

			x = f

		case p.isKeyword("is"):
			x = p.parseTest(x)

		case p.isOp("("):
			p.next()
			args, kwargs := p.parseArgs()
			x = &Call{Position: x.Pos(), Fn: x, Args: args, Kwargs: kwargs}

		default:
			return x
		}
	}
}

var testArgStop = map[string]bool{
	"and": true, "or": true, "else": true, "if": true, "in": true, "is": true, "not": true,
	"recursive": true,
}

func (p *parser) parseTest(x Expr) Expr {
	p.expectKeyword("is")

	negated := p.acceptKeyword("not")
	t := p.expect(tokName)
	test := &Test{Position: t.pos, X: x, Name: t.val, Negated: negated}

	next := p.peek()

	switch {
	case p.isOp("("):
		p.next()
		test.Args, _ = p.parseArgs()
	case next.kind == tokString || next.kind == tokInt || next.kind == tokFloat:
		test.Args = []Expr{p.parsePostfix(p.parsePrimary())}
	case next.kind == tokName && !testArgStop[next.val]:
		test.Args = []Expr{p.parsePostfix(p.parsePrimary())}
	}

	return test
}

package jinja

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokRaw
	tokVarBegin
	tokVarEnd
	tokBlockBegin
	tokBlockEnd
	tokName
	tokString
	tokInt
	tokFloat
	tokOp
)

var tokenNames = [...]string{
	tokEOF:        "end of template",
	tokText:       "text",
	tokRaw:        "raw block",
	tokVarBegin:   "'{{'",
	tokVarEnd:     "'}}'",
	tokBlockBegin: "'{%'",
	tokBlockEnd:   "'%}'",
	tokName:       "name",
	tokString:     "string",
	tokInt:        "integer",
	tokFloat:      "float",
	tokOp:         "operator",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	val  string
	pos  Position
}

func (t token) String() string {
	switch t.kind {
	case tokName, tokOp, tokInt, tokFloat:
		return fmt.Sprintf("%q", t.val)
	case tokString:
		return fmt.Sprintf("string %q", t.val)
	}

	return t.kind.String()
}

// SyntaxError reports a template that could not be tokenized or parsed.
type SyntaxError struct {
	Name string
	Pos  Position
	Msg  string
}

func (e *SyntaxError) Error() string {
	name := e.Name
	if name == "" {
		name = "<template>"
	}

	return fmt.Sprintf("%s:%d:%d: %s", name, e.Pos.Line, e.Pos.Col, e.Msg)
}

var (
	rawBlock = regexp.MustCompile(`(?s)^\{%-?\s*raw\s*-?%\}(.*?)\{%-?\s*endraw\s*-?%\}`)

	// Longest operators first.
	operators = []string{
		"//", "**", "==", "!=", "<=", ">=",
		"+", "-", "*", "/", "%", "~", "<", ">", "=", ".", ",", ":", "|",
		"(", ")", "[", "]", "{", "}",
	}
)

type lexer struct {
	name string
	src  string
	off  int
	line int
	col  int
	toks []token
}

func lex(name, src string) (toks []token, err error) {
	lx := &lexer{name: name, src: src, line: 1, col: 1}

	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				err = se
				return
			}

			panic(r)
		}
	}()

	lx.run()

	return lx.toks, nil
}

func (lx *lexer) errorf(pos Position, format string, args ...any) {
	panic(&SyntaxError{Name: lx.name, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (lx *lexer) here() Position {
	return Position{Line: lx.line, Col: lx.col}
}

func (lx *lexer) advance(n int) {
	for _, r := range lx.src[lx.off : lx.off+n] {
		if r == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
	}

	lx.off += n
}

func (lx *lexer) emit(kind tokenKind, val string, pos Position) {
	lx.toks = append(lx.toks, token{kind: kind, val: val, pos: pos})
}

func (lx *lexer) rest() string {
	return lx.src[lx.off:]
}

func (lx *lexer) run() {
	stripNext := false

	for lx.off < len(lx.src) {
		idx := nextTagStart(lx.rest())
		if idx < 0 {
			lx.emitText(lx.rest(), stripNext, false)
			lx.advance(len(lx.rest()))

			break
		}

		rest := lx.rest()
		stripPrev := len(rest) > idx+2 && rest[idx+2] == '-'
		lx.emitText(rest[:idx], stripNext, stripPrev)
		lx.advance(idx)

		switch lx.rest()[:2] {
		case "{#":
			stripNext = lx.skipComment()
		case "{{":
			stripNext = lx.lexTag(tokVarBegin, tokVarEnd, "}}")
		case "{%":
			if m := rawBlock.FindStringSubmatch(lx.rest()); m != nil {
				pos := lx.here()
				lx.emit(tokRaw, m[1], pos)
				lx.advance(len(m[0]))
				stripNext = false

				continue
			}

			stripNext = lx.lexTag(tokBlockBegin, tokBlockEnd, "%}")
		}
	}

	lx.emit(tokEOF, "", lx.here())
}

func nextTagStart(s string) int {
	best := -1

	for _, open := range []string{"{{", "{%", "{#"} {
		if i := strings.Index(s, open); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}

	return best
}

func (lx *lexer) emitText(text string, trimLeft, trimRight bool) {
	pos := lx.here()
	if trimLeft {
		trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
		for _, r := range text[:len(text)-len(trimmed)] {
			if r == '\n' {
				pos.Line++
				pos.Col = 1
			}
		}

		text = trimmed
	}

	if trimRight {
		text = strings.TrimRightFunc(text, unicode.IsSpace)
	}

	if text != "" {
		lx.emit(tokText, text, pos)
	}
}

func (lx *lexer) skipComment() bool {
	pos := lx.here()

	end := strings.Index(lx.rest()[2:], "#}")
	if end < 0 {
		lx.errorf(pos, "unterminated comment")
	}

	body := lx.rest()[2 : 2+end]
	lx.advance(2 + end + 2)

	return strings.HasSuffix(body, "-")
}

// lexTag tokenizes the inside of {{ }} or {% %} and reports whether the
// closing marker asked for the following whitespace to be stripped.
func (lx *lexer) lexTag(begin, end tokenKind, closing string) bool {
	lx.emit(begin, "", lx.here())
	lx.advance(2)

	if strings.HasPrefix(lx.rest(), "-") {
		lx.advance(1)
	}

	depth := 0

	for {
		lx.skipSpace()

		if lx.off >= len(lx.src) {
			lx.errorf(lx.here(), "unexpected end of template, expected %q", closing)
		}

		rest := lx.rest()
		if depth == 0 {
			if strings.HasPrefix(rest, "-"+closing) {
				lx.emit(end, "", lx.here())
				lx.advance(1 + len(closing))

				return true
			}

			if strings.HasPrefix(rest, closing) {
				lx.emit(end, "", lx.here())
				lx.advance(len(closing))

				return false
			}
		}

		depth += lx.lexToken()
		if depth < 0 {
			depth = 0
		}
	}
}

func (lx *lexer) skipSpace() {
	n := 0

	for n < len(lx.rest()) {
		c := lx.rest()[n]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}

		n++
	}

	lx.advance(n)
}

// lexToken scans one token and returns the change in bracket depth.
func (lx *lexer) lexToken() int {
	pos := lx.here()
	rest := lx.rest()
	c := rest[0]

	switch {
	case c == '_' || isLetter(c):
		n := 1
		for n < len(rest) && (rest[n] == '_' || isLetter(rest[n]) || isDigit(rest[n])) {
			n++
		}

		lx.emit(tokName, rest[:n], pos)
		lx.advance(n)

		return 0

	case isDigit(c):
		n := 1
		for n < len(rest) && (isDigit(rest[n]) || rest[n] == '_') {
			n++
		}

		kind := tokInt
		if n+1 < len(rest) && rest[n] == '.' && isDigit(rest[n+1]) {
			kind = tokFloat
			n++

			for n < len(rest) && isDigit(rest[n]) {
				n++
			}
		}

		lx.emit(kind, strings.ReplaceAll(rest[:n], "_", ""), pos)
		lx.advance(n)

		return 0

	case c == '\'' || c == '"':
		val, n := lx.scanString(pos, rest)
		lx.emit(tokString, val, pos)
		lx.advance(n)

		return 0
	}

	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			lx.emit(tokOp, op, pos)
			lx.advance(len(op))

			switch op {
			case "(", "[", "{":
				return 1
			case ")", "]", "}":
				return -1
			}

			return 0
		}
	}

	lx.errorf(pos, "unexpected character %q", c)

	return 0
}

func (lx *lexer) scanString(pos Position, rest string) (string, int) {
	quote := rest[0]

	var b strings.Builder

	for i := 1; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c == quote:
			return b.String(), i + 1
		case c == '\\' && i+1 < len(rest):
			i++
			switch rest[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(rest[i])
			}
		default:
			b.WriteByte(c)
		}
	}

	lx.errorf(pos, "unterminated string literal")

	return "", 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

package hypothesis

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/margo-stats/margo/pkg/errors"
)

// The formula grammar is deliberately small:
//
//	formula := expr ( '=' expr )?
//	expr    := term  ( ('+' | '-') term )*
//	term    := unary ( ('*' | '/') unary )*
//	unary   := '-' unary | primary
//	primary := number | identifier | '`' any '`' | '(' expr ')'
//
// Identifiers resolve against a closed symbol table built per call: the
// positional placeholders b1..bN plus the estimate term labels. There is no
// function-call syntax and no runtime code evaluation.

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp // + - * / ( ) =
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
	val  float64
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			l.pos++
		case strings.ContainsRune("+-*/()=", rune(c)):
			l.tokens = append(l.tokens, token{kind: tokOp, text: string(c), pos: l.pos})
			l.pos++
		case c >= '0' && c <= '9' || c == '.':
			if err := l.lexNumber(); err != nil {
				return nil, err
			}
		case c == '`':
			if err := l.lexQuotedIdent(); err != nil {
				return nil, err
			}
		case isIdentStart(rune(c)):
			l.lexIdent()
		default:
			return nil, errors.NewParseError(src, string(c), l.pos, "unexpected character")
		}
	}
	l.tokens = append(l.tokens, token{kind: tokEOF, pos: len(src)})
	return l.tokens, nil
}

func (l *lexer) lexNumber() error {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' {
			l.pos++
			continue
		}
		// Exponent sign.
		if (c == '+' || c == '-') && l.pos > start && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E') {
			l.pos++
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return errors.NewParseError(l.src, text, start, "malformed number")
	}
	l.tokens = append(l.tokens, token{kind: tokNumber, text: text, pos: start, val: v})
	return nil
}

func (l *lexer) lexQuotedIdent() error {
	start := l.pos
	l.pos++ // opening backtick
	for l.pos < len(l.src) && l.src[l.pos] != '`' {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return errors.NewParseError(l.src, l.src[start:], start, "unterminated backtick identifier")
	}
	text := l.src[start+1 : l.pos]
	l.pos++ // closing backtick
	if text == "" {
		return errors.NewParseError(l.src, "``", start, "empty backtick identifier")
	}
	l.tokens = append(l.tokens, token{kind: tokIdent, text: text, pos: start})
	return nil
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.tokens = append(l.tokens, token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == ':'
}

// ---------------------------------------------------------------------------
// Expression tree
// ---------------------------------------------------------------------------

// node is an expression-tree node evaluated against the current estimate
// vector.
type node interface {
	eval(b []float64) float64
	refs(set map[int]bool)
}

type numNode float64

func (n numNode) eval([]float64) float64 { return float64(n) }
func (numNode) refs(map[int]bool)        {}

// refNode is a resolved reference to estimate index i.
type refNode int

func (n refNode) eval(b []float64) float64 { return b[int(n)] }
func (n refNode) refs(set map[int]bool)    { set[int(n)] = true }

type negNode struct{ x node }

func (n negNode) eval(b []float64) float64 { return -n.x.eval(b) }
func (n negNode) refs(set map[int]bool)    { n.x.refs(set) }

type binNode struct {
	op   byte
	l, r node
}

func (n binNode) eval(b []float64) float64 {
	lv, rv := n.l.eval(b), n.r.eval(b)
	switch n.op {
	case '+':
		return lv + rv
	case '-':
		return lv - rv
	case '*':
		return lv * rv
	default:
		return lv / rv
	}
}

func (n binNode) refs(set map[int]bool) {
	n.l.refs(set)
	n.r.refs(set)
}

// parsedFormula is a compiled hypothesis formula: the combination expression,
// its null value, and a label for output.
type parsedFormula struct {
	expr  node
	null  float64
	label string
}

type parser struct {
	src    string
	tokens []token
	pos    int
	table  *symbolTable
}

// parseFormula compiles a formula string against a symbol table of N current
// estimates.
func parseFormula(src string, table *symbolTable) (*parsedFormula, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, tokens: tokens, table: table}

	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	out := &parsedFormula{expr: lhs, label: strings.TrimSpace(src)}

	if p.peek().kind == tokOp && p.peek().text == "=" {
		p.next()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectEOF(); err != nil {
			return nil, err
		}
		// A constant right side is the null value; a right side referencing
		// estimates folds into the combination as lhs - rhs with null 0.
		rhsRefs := map[int]bool{}
		rhs.refs(rhsRefs)
		if len(rhsRefs) == 0 {
			out.null = rhs.eval(nil)
		} else {
			out.expr = binNode{op: '-', l: lhs, r: rhs}
		}
		return out, nil
	}

	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }
func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tokEOF {
		return errors.NewParseError(p.src, t.text, t.pos, "unexpected trailing input")
	}
	return nil
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binNode{op: t.text[0], l: left, r: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binNode{op: t.text[0], l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && t.text == "-" {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negNode{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch {
	case t.kind == tokNumber:
		return numNode(t.val), nil
	case t.kind == tokIdent:
		idx, err := p.table.lookup(p.src, t)
		if err != nil {
			return nil, err
		}
		return refNode(idx), nil
	case t.kind == tokOp && t.text == "(":
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokOp || closing.text != ")" {
			return nil, errors.NewParseError(p.src, closing.text, closing.pos, "expected closing parenthesis")
		}
		return inner, nil
	case t.kind == tokEOF:
		return nil, errors.NewParseError(p.src, "", t.pos, "unexpected end of formula")
	default:
		return nil, errors.NewParseError(p.src, t.text, t.pos, "unexpected token")
	}
}

// ---------------------------------------------------------------------------
// Symbol table
// ---------------------------------------------------------------------------

// symbolTable resolves identifiers to estimate indices. It is built fresh
// per call from the positional b-shortcuts and the estimate term labels.
type symbolTable struct {
	n         int
	byLabel   map[string]int
	ambiguous map[string]bool
}

func newSymbolTable(labels []string) *symbolTable {
	t := &symbolTable{
		n:         len(labels),
		byLabel:   make(map[string]int, len(labels)),
		ambiguous: make(map[string]bool),
	}
	for i, lab := range labels {
		if lab == "" {
			continue
		}
		if _, seen := t.byLabel[lab]; seen {
			t.ambiguous[lab] = true
			continue
		}
		t.byLabel[lab] = i
	}
	return t
}

func (t *symbolTable) lookup(src string, tok token) (int, error) {
	name := tok.text

	// Positional shortcut bK, 1-indexed, unless a term label shadows it.
	if _, shadowed := t.byLabel[name]; !shadowed && len(name) > 1 && name[0] == 'b' {
		if k, err := strconv.Atoi(name[1:]); err == nil {
			if k < 1 || k > t.n {
				return 0, errors.NewParseError(src, name, tok.pos,
					fmt.Sprintf("position out of range: have %d estimates", t.n))
			}
			return k - 1, nil
		}
	}

	if t.ambiguous[name] {
		return 0, errors.NewValueError("hypothesis",
			fmt.Sprintf("term label %q is ambiguous: multiple estimates share it", name))
	}
	if idx, ok := t.byLabel[name]; ok {
		return idx, nil
	}
	return 0, errors.NewParseError(src, name, tok.pos, "unknown term")
}

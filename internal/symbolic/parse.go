package symbolic

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError reports a malformed expression string.
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("symbolic: %s at offset %d in %q", e.Msg, e.Pos, e.Input)
}

// Parse reads an infix expression such as "sigma*(y - x) + 0.1*x^2".
// Supported: numbers, identifiers (letters, digits, '_' and '.'), + - * / ^,
// parentheses, the built-in functions, sqrt, pi and D(x).
func Parse(s string) (Expr, error) {
	p := &parser{src: s}
	p.next()
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	return e, nil
}

// MustParse is Parse that panics on error; intended for tests and presets.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// ParseEquation splits "lhs ~ rhs" (or "lhs = rhs") and parses both sides.
func ParseEquation(s string) (lhs, rhs Expr, err error) {
	sep := strings.Index(s, "~")
	if sep < 0 {
		sep = strings.Index(s, "=")
	}
	if sep < 0 {
		return nil, nil, &SyntaxError{Input: s, Msg: "missing '~' or '='"}
	}
	if lhs, err = Parse(s[:sep]); err != nil {
		return nil, nil, err
	}
	if rhs, err = Parse(s[sep+1:]); err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src string
	off int
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.src, Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) next() {
	for p.off < len(p.src) {
		r, w := utf8.DecodeRuneInString(p.src[p.off:])
		if !unicode.IsSpace(r) {
			break
		}
		p.off += w
	}
	start := p.off
	if p.off >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	r, w := utf8.DecodeRuneInString(p.src[p.off:])
	switch {
	case unicode.IsDigit(r) || (r == '.' && p.off+1 < len(p.src) && isDigitByte(p.src[p.off+1])):
		p.scanNumber()
		p.tok = token{kind: tokNum, text: p.src[start:p.off], pos: start}
	case unicode.IsLetter(r) || r == '_':
		p.off += w
		for p.off < len(p.src) {
			r, w = utf8.DecodeRuneInString(p.src[p.off:])
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.') {
				break
			}
			p.off += w
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.off], pos: start}
	default:
		p.off += w
		p.tok = token{kind: tokOp, text: string(r), pos: start}
	}
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

func (p *parser) scanNumber() {
	for p.off < len(p.src) && (isDigitByte(p.src[p.off]) || p.src[p.off] == '.') {
		p.off++
	}
	if p.off < len(p.src) && (p.src[p.off] == 'e' || p.src[p.off] == 'E') {
		save := p.off
		p.off++
		if p.off < len(p.src) && (p.src[p.off] == '+' || p.src[p.off] == '-') {
			p.off++
		}
		if p.off >= len(p.src) || !isDigitByte(p.src[p.off]) {
			p.off = save
			return
		}
		for p.off < len(p.src) && isDigitByte(p.src[p.off]) {
			p.off++
		}
	}
}

func (p *parser) isOp(s string) bool { return p.tok.kind == tokOp && p.tok.text == s }

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.tok.text
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left = Sum(left, right)
		} else {
			left = Minus(left, right)
		}
	}
	return left, nil
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") {
		op := p.tok.text
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "*" {
			left = Product(left, right)
		} else {
			if IsZero(right) {
				return nil, p.errorf("division by zero")
			}
			left = Quo(left, right)
		}
	}
	return left, nil
}

func (p *parser) unary() (Expr, error) {
	switch {
	case p.isOp("-"):
		p.next()
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Neg(e), nil
	case p.isOp("+"):
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.isOp("^") {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Power(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary() (Expr, error) {
	switch p.tok.kind {
	case tokNum:
		r, ok := new(big.Rat).SetString(p.tok.text)
		if !ok {
			return nil, p.errorf("bad number %q", p.tok.text)
		}
		p.next()
		return Rat(r), nil
	case tokIdent:
		name := p.tok.text
		p.next()
		if !p.isOp("(") {
			if name == "pi" {
				return Float(math.Pi), nil
			}
			return S(name), nil
		}
		p.next()
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		if !p.isOp(")") {
			return nil, p.errorf("expected ')'")
		}
		p.next()
		switch name {
		case "D":
			return D(arg), nil
		case "sqrt":
			return Sqrt(arg), nil
		}
		fn, ok := LookupFunc(name)
		if !ok {
			return nil, p.errorf("unknown function %q", name)
		}
		return Apply(fn, arg), nil
	case tokOp:
		if p.isOp("(") {
			p.next()
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if !p.isOp(")") {
				return nil, p.errorf("expected ')'")
			}
			p.next()
			return e, nil
		}
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	return nil, p.errorf("unexpected end of input")
}

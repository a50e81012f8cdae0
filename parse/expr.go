package parse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// evalExpr evaluates a MAD-X arithmetic expression: numbers, variable
// references (dotted names allowed), + - * / ^, parentheses, unary
// signs and a handful of functions.
func evalExpr(src string, vars map[string]float64) (float64, error) {
	p := &exprParser{src: src, vars: vars}
	v, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("expression %q: trailing input at offset %d", src, p.pos)
	}
	return v, nil
}

var exprFuncs = map[string]func(float64) float64{
	"sqrt": math.Sqrt,
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"asin": math.Asin,
	"acos": math.Acos,
	"atan": math.Atan,
	"exp":  math.Exp,
	"log":  math.Log,
	"abs":  math.Abs,
}

type exprParser struct {
	src  string
	pos  int
	vars map[string]float64
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *exprParser) parseSum() (float64, error) {
	v, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.parseProduct()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.parseProduct()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseProduct() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			p.pos++
			r, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, fmt.Errorf("expression %q: division by zero", p.src)
			}
			v /= r
		default:
			return v, nil
		}
	}
}

// parseUnary sits above parsePower so that -2^2 is -(2^2).
func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpace()
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	v, err := p.parseAtom()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.peek() == '^' {
		p.pos++
		// right associative; the exponent may carry its own sign
		r, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, r), nil
	}
	return v, nil
}

func (p *exprParser) parseAtom() (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, fmt.Errorf("expression %q: unexpected end", p.src)
	}
	c := p.src[p.pos]

	if c == '(' {
		p.pos++
		v, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("expression %q: missing closing parenthesis", p.src)
		}
		p.pos++
		return v, nil
	}

	if c >= '0' && c <= '9' || c == '.' {
		return p.parseNumber()
	}

	if isIdentStart(rune(c)) {
		name := p.parseIdent()
		p.skipSpace()
		if p.peek() == '(' {
			fn, ok := exprFuncs[strings.ToLower(name)]
			if !ok {
				return 0, fmt.Errorf("expression %q: unknown function %s", p.src, name)
			}
			p.pos++
			arg, err := p.parseSum()
			if err != nil {
				return 0, err
			}
			p.skipSpace()
			if p.peek() != ')' {
				return 0, fmt.Errorf("expression %q: missing closing parenthesis", p.src)
			}
			p.pos++
			return fn(arg), nil
		}
		if name == "pi" || name == "PI" {
			return math.Pi, nil
		}
		v, ok := p.vars[strings.ToUpper(name)]
		if !ok {
			return 0, fmt.Errorf("expression %q: undefined variable %s", p.src, name)
		}
		return v, nil
	}

	return 0, fmt.Errorf("expression %q: unexpected character %q", p.src, c)
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		if (c == 'e' || c == 'E') && p.pos > start {
			next := p.pos + 1
			if next < len(p.src) && (p.src[next] == '+' || p.src[next] == '-') {
				next++
			}
			if next < len(p.src) && p.src[next] >= '0' && p.src[next] <= '9' {
				p.pos = next + 1
				continue
			}
		}
		break
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("expression %q: bad number %q", p.src, p.src[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(rune(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

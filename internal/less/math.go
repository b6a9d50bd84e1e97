package less

import (
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// functions whose arguments are left to the browser
var protectedFunctions = map[string]bool{
	"calc(":             true,
	"clamp(":            true,
	"env(":              true,
	"max(":              true,
	"min(":              true,
	"nth-child(":        true,
	"nth-last-child(":   true,
	"nth-last-of-type(": true,
	"nth-of-type(":      true,
	"url(":              true,
	"var(":              true,
}

// operand is a number with an optional unit ("px", "%", "").
type operand struct {
	val  float64
	unit string
}

// evalDeclaration evaluates arithmetic in the value part of a declaration.
func (e *emitter) evalDeclaration(toks []token) ([]token, error) {
	colon := nextSignificant(toks, 0)
	colon = nextSignificant(toks, colon+1)

	out := make([]token, 0, len(toks))
	out = append(out, toks[:colon+1]...)

	var protected []bool // one frame per open parenthesis
	isProtected := func() bool {
		for _, p := range protected {
			if p {
				return true
			}
		}
		return false
	}

	value := toks[colon+1:]
	for i := 0; i < len(value); {
		tok := value[i]
		if !isProtected() && (isNumeric(tok.tt) || tok.tt == css.LeftParenthesisToken) {
			p := &exprParser{toks: value, pos: i, opts: e.opts}
			result, ok, err := p.expr()
			if err != nil {
				return nil, err
			}
			if ok && p.applied {
				out = append(out, result.token(tok))
				i = p.pos
				continue
			}
		}

		switch tok.tt {
		case css.FunctionToken:
			protected = append(protected, protectedFunctions[strings.ToLower(tok.text)])
		case css.LeftParenthesisToken:
			protected = append(protected, false)
		case css.RightParenthesisToken:
			if n := len(protected); n > 0 {
				protected = protected[:n-1]
			}
		}
		out = append(out, tok)
		i++
	}
	return out, nil
}

// exprParser is a recursive-descent evaluator over a token slice:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "(" expr ")"
type exprParser struct {
	toks    []token
	pos     int
	opts    options
	applied bool // at least one operator or grouping was evaluated
}

func (p *exprParser) expr() (operand, bool, error) {
	left, ok, err := p.term()
	if !ok || err != nil {
		return left, ok, err
	}
	for {
		save := p.pos
		op, ok := p.operator("+", "-")
		if !ok {
			p.pos = save
			return left, true, nil
		}
		right, ok, err := p.term()
		if err != nil {
			return left, false, err
		}
		if !ok {
			p.pos = save
			return left, true, nil
		}
		if left, err = p.apply(left, op, right); err != nil {
			return left, false, err
		}
	}
}

func (p *exprParser) term() (operand, bool, error) {
	left, ok, err := p.factor()
	if !ok || err != nil {
		return left, ok, err
	}
	for {
		save := p.pos
		op, ok := p.operator("*", "/")
		if !ok {
			p.pos = save
			return left, true, nil
		}
		right, ok, err := p.factor()
		if err != nil {
			return left, false, err
		}
		if !ok {
			p.pos = save
			return left, true, nil
		}
		if left, err = p.apply(left, op, right); err != nil {
			return left, false, err
		}
	}
}

func (p *exprParser) factor() (operand, bool, error) {
	if p.pos >= len(p.toks) {
		return operand{}, false, nil
	}
	tok := p.toks[p.pos]
	if isNumeric(tok.tt) {
		v, ok := parseOperand(tok.text)
		if !ok {
			return operand{}, false, nil
		}
		p.pos++
		return v, true, nil
	}
	if tok.tt != css.LeftParenthesisToken {
		return operand{}, false, nil
	}

	save := p.pos
	p.pos = nextSignificant(p.toks, p.pos+1)
	v, ok, err := p.expr()
	if err != nil {
		return v, false, err
	}
	p.pos = nextSignificant(p.toks, p.pos)
	if !ok || p.pos >= len(p.toks) || p.toks[p.pos].tt != css.RightParenthesisToken {
		p.pos = save
		return operand{}, false, nil
	}
	p.pos++
	p.applied = true
	return v, true, nil
}

// operator consumes whitespace, one of ops, and whitespace again.
func (p *exprParser) operator(ops ...string) (token, bool) {
	i := nextSignificant(p.toks, p.pos)
	if i >= len(p.toks) || p.toks[i].tt != css.DelimToken || !containsString(ops, p.toks[i].text) {
		return token{}, false
	}
	p.pos = nextSignificant(p.toks, i+1)
	return p.toks[i], true
}

func (p *exprParser) apply(l operand, op token, r operand) (operand, error) {
	unit, err := p.resultUnit(l, op, r)
	if err != nil {
		return operand{}, err
	}
	p.applied = true

	switch op.text {
	case "+":
		return operand{l.val + r.val, unit}, nil
	case "-":
		return operand{l.val - r.val, unit}, nil
	case "*":
		return operand{l.val * r.val, unit}, nil
	default:
		if r.val == 0 {
			return operand{}, op.errorf("division by zero")
		}
		return operand{l.val / r.val, unit}, nil
	}
}

// resultUnit applies unit checking. Without strict units the first unit wins.
func (p *exprParser) resultUnit(l operand, op token, r operand) (string, error) {
	unit := l.unit
	if unit == "" {
		unit = r.unit
	}
	if !p.opts.strictUnits || l.unit == "" || r.unit == "" {
		if p.opts.strictUnits && op.text == "/" && l.unit == "" && r.unit != "" {
			return "", incompatible(op, l, r)
		}
		return unit, nil
	}
	switch op.text {
	case "*":
		return "", incompatible(op, l, r)
	default:
		if !strings.EqualFold(l.unit, r.unit) {
			return "", incompatible(op, l, r)
		}
	}
	return unit, nil
}

func incompatible(op token, l, r operand) error {
	return op.errorf("Incompatible units. Change the units or use the unit function. Bad units: '%s' and '%s'.",
		unitName(l.unit), unitName(r.unit))
}

func unitName(u string) string {
	if u == "" {
		return "(none)"
	}
	return u
}

// token renders the operand as a lexer token positioned at at.
func (o operand) token(at token) token {
	tt := css.NumberToken
	switch {
	case o.unit == "%":
		tt = css.PercentageToken
	case o.unit != "":
		tt = css.DimensionToken
	}
	return token{tt: tt, text: formatNumber(o.val) + o.unit, src: at.src, off: at.off}
}

func formatNumber(v float64) string {
	v = math.Round(v*1e8) / 1e8
	if v == 0 {
		v = 0 // normalize -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isNumeric(tt css.TokenType) bool {
	return tt == css.NumberToken || tt == css.DimensionToken || tt == css.PercentageToken
}

// parseOperand splits "12.5px" into 12.5 and "px".
func parseOperand(text string) (operand, bool) {
	i := 0
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		i++
	}
	for i < len(text) && (text[i] >= '0' && text[i] <= '9' || text[i] == '.') {
		i++
	}
	if i+1 < len(text) && (text[i] == 'e' || text[i] == 'E') {
		j := i + 1
		if text[j] == '+' || text[j] == '-' {
			j++
		}
		if j < len(text) && text[j] >= '0' && text[j] <= '9' {
			for j < len(text) && text[j] >= '0' && text[j] <= '9' {
				j++
			}
			i = j
		}
	}
	v, err := strconv.ParseFloat(text[:i], 64)
	if err != nil {
		return operand{}, false
	}
	return operand{val: v, unit: text[i:]}, true
}

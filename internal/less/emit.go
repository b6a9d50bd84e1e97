package less

import (
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// interpolation inside strings and url() tokens
var stringInterp = regexp.MustCompile(`@\{([\w-]+)\}`)

// scope holds the variables declared directly in one block.
type scope struct {
	vars   map[string][]token
	decl   map[string]token // declaring token, for error positions
	parent *scope
}

func (s *scope) lookup(name string) ([]token, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// emitter renders an expanded token stream.
type emitter struct {
	tokens  []token
	match   []int  // for '{' tokens, the index of the matching '}'
	removed []bool // variable declarations
	opts    options
	out     strings.Builder

	pendingSpace bool
}

func newEmitter(tokens []token, opts options) *emitter {
	e := &emitter{
		tokens:  tokens,
		match:   make([]int, len(tokens)),
		removed: make([]bool, len(tokens)),
		opts:    opts,
	}
	var opens []int
	for i, tok := range tokens {
		switch tok.tt {
		case css.LeftBraceToken:
			opens = append(opens, i)
		case css.RightBraceToken:
			if n := len(opens); n > 0 {
				e.match[opens[n-1]] = i
				opens = opens[:n-1]
			}
		}
	}
	return e
}

func (e *emitter) render() (string, error) {
	global := e.collect(0, len(e.tokens), nil)
	if err := e.emit(0, len(e.tokens), global, 0, false); err != nil {
		return "", err
	}
	css := strings.TrimSpace(e.out.String())
	if css == "" {
		return "", nil
	}
	return css + "\n", nil
}

// collect gathers the variable declarations at relative depth zero in
// tokens[start:end] and marks them for removal from the output.
func (e *emitter) collect(start, end int, parent *scope) *scope {
	sc := &scope{
		vars:   make(map[string][]token),
		decl:   make(map[string]token),
		parent: parent,
	}
	for i := start; i < end; i++ {
		tok := e.tokens[i]
		if tok.tt == css.LeftBraceToken {
			i = e.match[i]
			continue
		}
		if tok.tt != css.AtKeywordToken || isAtRule(tok.text) {
			continue
		}
		colon := nextSignificant(e.tokens[:end], i+1)
		if colon >= end || e.tokens[colon].tt != css.ColonToken {
			continue
		}

		valueEnd := colon + 1
		for valueEnd < end {
			tt := e.tokens[valueEnd].tt
			if tt == css.SemicolonToken || tt == css.LeftBraceToken || tt == css.RightBraceToken {
				break
			}
			valueEnd++
		}

		name := tok.text[1:]
		sc.vars[name] = trimSpace(e.tokens[colon+1 : valueEnd])
		sc.decl[name] = tok

		last := valueEnd
		if last < end && e.tokens[last].tt == css.SemicolonToken {
			last = skipTrailingSpace(e.tokens[:end], last)
		} else {
			last--
		}
		for j := i; j <= last; j++ {
			e.removed[j] = true
		}
		i = last
	}
	return sc
}

// emit writes tokens[start:end] at the given block depth. inRule is set
// inside the body of a style rule.
func (e *emitter) emit(start, end int, sc *scope, depth int, inRule bool) error {
	var seg []token
	flush := func() error {
		if len(seg) == 0 {
			return nil
		}
		toks, err := e.substitute(seg, sc, nil)
		if err != nil {
			return err
		}
		if e.opts.math && depth > 0 && isDeclaration(toks) {
			if toks, err = e.evalDeclaration(toks); err != nil {
				return err
			}
		}
		for _, t := range toks {
			e.write(t)
		}
		seg = seg[:0]
		return nil
	}

	for i := start; i < end; i++ {
		if e.removed[i] {
			continue
		}
		tok := e.tokens[i]
		switch tok.tt {
		case css.LeftBraceToken:
			if err := checkPrelude(seg, tok, inRule); err != nil {
				return err
			}
			rule := isStyleRule(seg)
			if err := flush(); err != nil {
				return err
			}
			e.write(tok)
			closing := e.match[i]
			child := e.collect(i+1, closing, sc)
			if err := e.emit(i+1, closing, child, depth+1, rule); err != nil {
				return err
			}
			e.write(e.tokens[closing])
			i = closing
		case css.SemicolonToken:
			if err := checkStatement(seg); err != nil {
				return err
			}
			seg = append(seg, tok)
			if err := flush(); err != nil {
				return err
			}
		default:
			seg = append(seg, tok)
		}
	}
	if err := checkStatement(seg); err != nil {
		return err
	}
	return flush()
}

// substitute replaces variable references, interpolations and ~"escapes".
func (e *emitter) substitute(toks []token, sc *scope, visiting map[string]bool) ([]token, error) {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.tt == css.AtKeywordToken && !isAtRule(tok.text):
			value, err := e.variable(tok, tok.text[1:], sc, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, value...)

		case tok.tt == interpToken:
			value, err := e.variable(tok, tok.text, sc, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, token{tt: css.IdentToken, text: plainText(value), src: tok.src, off: tok.off})

		case tok.tt == css.DelimToken && tok.text == "~" && i+1 < len(toks) && toks[i+1].tt == css.StringToken:
			str, err := e.interpolate(toks[i+1], sc, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, token{tt: css.IdentToken, text: unquote(str), src: tok.src, off: tok.off})
			i++

		case (tok.tt == css.StringToken || tok.tt == css.URLToken) && strings.Contains(tok.text, "@{"):
			str, err := e.interpolate(tok, sc, visiting)
			if err != nil {
				return nil, err
			}
			tok.text = str
			out = append(out, tok)

		default:
			out = append(out, tok)
		}
	}
	return out, nil
}

// variable resolves the value of @name as referenced by tok.
func (e *emitter) variable(tok token, name string, sc *scope, visiting map[string]bool) ([]token, error) {
	value, ok := sc.lookup(name)
	if !ok {
		return nil, tok.errorf("variable @%s is undefined", name)
	}
	if visiting[name] {
		return nil, tok.errorf("recursive variable definition for @%s", name)
	}
	next := make(map[string]bool, len(visiting)+1)
	for k := range visiting {
		next[k] = true
	}
	next[name] = true
	return e.substitute(value, sc, next)
}

// interpolate expands @{name} inside a string or url token.
func (e *emitter) interpolate(tok token, sc *scope, visiting map[string]bool) (string, error) {
	var firstErr error
	text := stringInterp.ReplaceAllStringFunc(tok.text, func(m string) string {
		name := stringInterp.FindStringSubmatch(m)[1]
		value, err := e.variable(tok, name, sc, visiting)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return m
		}
		return plainText(value)
	})
	return text, firstErr
}

// write appends a token to the output, collapsing whitespace when compressing.
func (e *emitter) write(tok token) {
	if !e.opts.compress {
		e.out.WriteString(tok.text)
		return
	}
	switch tok.tt {
	case css.CommentToken:
		return
	case css.WhitespaceToken:
		e.pendingSpace = true
		return
	}
	if tok.text == "" {
		return
	}
	if e.pendingSpace && e.out.Len() > 0 && !isPunct(lastByte(&e.out)) && !isPunct(tok.text[0]) {
		e.out.WriteByte(' ')
	}
	e.pendingSpace = false
	e.out.WriteString(tok.text)
}

func isPunct(c byte) bool {
	return strings.IndexByte("{};:,>", c) >= 0
}

func lastByte(b *strings.Builder) byte {
	s := b.String()
	return s[len(s)-1]
}

// plainText joins tokens and drops string quotes, for interpolation.
func plainText(toks []token) string {
	var sb strings.Builder
	for _, t := range toks {
		if t.tt == css.StringToken {
			sb.WriteString(unquote(t.text))
			continue
		}
		sb.WriteString(t.text)
	}
	return strings.TrimSpace(sb.String())
}

func trimSpace(toks []token) []token {
	for len(toks) > 0 && (toks[0].tt == css.WhitespaceToken || toks[0].tt == css.CommentToken) {
		toks = toks[1:]
	}
	for len(toks) > 0 && (toks[len(toks)-1].tt == css.WhitespaceToken || toks[len(toks)-1].tt == css.CommentToken) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// isDeclaration reports whether toks look like "property: value".
func isDeclaration(toks []token) bool {
	i := nextSignificant(toks, 0)
	if i >= len(toks) || (toks[i].tt != css.IdentToken && toks[i].tt != css.CustomPropertyNameToken) {
		return false
	}
	j := nextSignificant(toks, i+1)
	return j < len(toks) && toks[j].tt == css.ColonToken
}

package less

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// interpToken is a synthetic token for @{name} selector interpolation, which
// the css lexer would otherwise split into a delimiter and a block.
const interpToken css.TokenType = 1000

// source is one loaded stylesheet file.
type source struct {
	filename string
	text     string // comment-stripped, same length as the original
	lines    []string
}

// token is a lexer token tagged with the file and byte offset it came from.
type token struct {
	tt   css.TokenType
	text string
	src  *source
	off  int
}

func (t token) is(tt css.TokenType, text string) bool {
	return t.tt == tt && t.text == text
}

// errorf builds an Error located at this token.
func (t token) errorf(format string, args ...any) *Error {
	return t.src.errorAt(t.off, format, args...)
}

func newSource(filename, text string) *source {
	stripped := stripLineComments(text)
	return &source{
		filename: filename,
		text:     stripped,
		lines:    strings.Split(text, "\n"),
	}
}

func (s *source) errorAt(off int, format string, args ...any) *Error {
	line, col, _ := parse.Position(strings.NewReader(s.text), off)
	e := newError(s.filename, line, col, format, args...)
	if line >= 1 && line <= len(s.lines) {
		e.Extract = strings.TrimRight(s.lines[line-1], "\r")
	}
	return e
}

// tokenize lexes the source and checks that blocks are balanced.
func (s *source) tokenize(opts options) ([]token, error) {
	lexer := css.NewLexer(parse.NewInputString(s.text))

	var (
		tokens []token
		opens  []int // offsets of unmatched '{'
		off    int
	)
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			// ErrorToken at EOF is normal - just break
			break
		}
		tok := token{tt: tt, text: string(data), src: s, off: off}
		off += len(data)

		switch {
		case tt == css.LeftBraceToken:
			opens = append(opens, tok.off)
		case tt == css.RightBraceToken:
			if len(opens) == 0 {
				return nil, tok.errorf("unexpected '}'")
			}
			opens = opens[:len(opens)-1]
		case tt == css.DelimToken && tok.text == "`":
			if !opts.javascript {
				return nil, tok.errorf("inline JavaScript is not enabled")
			}
			return nil, tok.errorf("inline JavaScript is not supported")
		case tt == css.DelimToken && tok.text == "@":
			if interp, n, ok := s.fuseInterpolation(lexer, tok); ok {
				tokens = append(tokens, interp)
				off += n
				continue
			}
		}
		tokens = append(tokens, tok)
	}

	if len(opens) > 0 {
		return nil, s.errorAt(opens[len(opens)-1], "missing closing '}'")
	}
	return tokens, nil
}

// fuseInterpolation consumes "{name}" after a bare '@'. It returns the
// fused token and the number of bytes consumed past the '@'.
func (s *source) fuseInterpolation(lexer *css.Lexer, at token) (token, int, bool) {
	rest := s.text[at.off+1:]
	end := strings.IndexByte(rest, '}')
	if !strings.HasPrefix(rest, "{") || end < 2 {
		return token{}, 0, false
	}
	name := rest[1:end]
	if !isIdent(name) {
		return token{}, 0, false
	}
	// Advance the lexer over "{", the name and "}"
	consumed := 0
	for consumed < end+1 {
		_, data := lexer.Next()
		if len(data) == 0 {
			break
		}
		consumed += len(data)
	}
	return token{tt: interpToken, text: name, src: s, off: at.off}, consumed, true
}

func isIdent(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r != '-' && r != '_' && !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// stripLineComments blanks out // comments that are outside strings, block
// comments and parentheses. Offsets are preserved so positions reported
// against the stripped text match the original.
func stripLineComments(text string) string {
	b := []byte(text)
	var (
		quote      byte
		inBlock    bool
		parenDepth int
	)
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote || c == '\n' {
				quote = 0
			}
		case inBlock:
			if c == '*' && i+1 < len(b) && b[i+1] == '/' {
				inBlock = false
				i++
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			inBlock = true
			i++
		case c == '(':
			parenDepth++
		case c == ')':
			if parenDepth > 0 {
				parenDepth--
			}
		case c == '/' && parenDepth == 0 && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' && b[i] != '\r' {
				b[i] = ' '
				i++
			}
			i--
		}
	}
	return string(b)
}

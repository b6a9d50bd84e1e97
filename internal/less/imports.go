package less

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// rawToken carries file content included with the (inline) import option.
const rawToken css.TokenType = 1001

// importer inlines @import statements for one compilation.
type importer struct {
	ctx     context.Context
	c       *Compiler
	paths   []string
	opts    options
	seen    map[string]bool
	imports []string
}

func newImporter(ctx context.Context, c *Compiler, paths []string, opts options) *importer {
	return &importer{
		ctx:   ctx,
		c:     c,
		paths: paths,
		opts:  opts,
		seen:  make(map[string]bool),
	}
}

// importStmt is a parsed @import statement.
type importStmt struct {
	options map[string]bool
	target  string
	at      token // the target token, for error positions
	media   bool  // trailing media query
	end     int   // index of the terminating ';'
}

// keepVerbatim reports whether the statement stays in the output as a plain
// CSS import.
func (s importStmt) keepVerbatim() bool {
	if s.options["css"] || s.media {
		return true
	}
	if strings.HasPrefix(s.target, "http://") || strings.HasPrefix(s.target, "https://") || strings.HasPrefix(s.target, "//") {
		return true
	}
	return strings.EqualFold(filepath.Ext(s.target), ".css") && !s.options["less"] && !s.options["inline"]
}

// expand returns tokens with every top-level less @import replaced by the
// imported file's own expanded tokens.
func (im *importer) expand(src *source, tokens []token) ([]token, error) {
	out := make([]token, 0, len(tokens))
	depth := 0
	dir := filepath.Dir(src.filename)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
		}
		if depth > 0 || tok.tt != css.AtKeywordToken || !strings.EqualFold(tok.text, "@import") {
			out = append(out, tok)
			continue
		}

		stmt, err := parseImport(tokens, i)
		if err != nil {
			return nil, err
		}
		if stmt.keepVerbatim() {
			out = append(out, tokens[i:stmt.end+1]...)
			i = stmt.end
			continue
		}

		included, err := im.include(stmt, dir)
		if err != nil {
			return nil, err
		}
		out = append(out, included...)
		i = skipTrailingSpace(tokens, stmt.end)
	}
	return out, nil
}

// include loads, tokenizes and expands the target of stmt.
func (im *importer) include(stmt importStmt, dir string) ([]token, error) {
	if err := im.ctx.Err(); err != nil {
		return nil, err
	}

	path, content, tried := im.resolve(stmt.target, dir)
	if path == "" {
		if stmt.options["optional"] {
			return nil, nil
		}
		return nil, stmt.at.errorf("'%s' wasn't found. Tried - %s", stmt.target, strings.Join(tried, ","))
	}
	if im.seen[path] && !stmt.options["multiple"] {
		return nil, nil
	}
	im.seen[path] = true
	im.imports = append(im.imports, path)

	if stmt.options["inline"] {
		return []token{{tt: rawToken, text: string(content), src: stmt.at.src, off: stmt.at.off}}, nil
	}

	src := newSource(path, string(content))
	tokens, err := src.tokenize(im.opts)
	if err != nil {
		return nil, err
	}
	expanded, err := im.expand(src, tokens)
	if err != nil {
		return nil, err
	}
	if stmt.options["reference"] {
		return topLevelDeclarations(expanded), nil
	}
	return expanded, nil
}

// resolve finds target relative to dir, then along the search paths. A
// target without an extension is looked up as a .less file.
func (im *importer) resolve(target, dir string) (string, []byte, []string) {
	name := target
	if filepath.Ext(name) == "" {
		name += ".less"
	}

	var candidates []string
	if filepath.IsAbs(name) {
		candidates = []string{filepath.Clean(name)}
	} else {
		candidates = append(candidates, filepath.Join(dir, name))
		for _, p := range im.paths {
			candidate := filepath.Join(p, name)
			if !containsString(candidates, candidate) {
				candidates = append(candidates, candidate)
			}
		}
	}

	for _, candidate := range candidates {
		// #nosec G304 - import targets resolve inside the configured search paths
		content, err := im.c.readFile(candidate)
		if err == nil {
			return candidate, content, candidates
		}
	}
	return "", nil, candidates
}

// parseImport reads the statement starting at tokens[start] ("@import").
func parseImport(tokens []token, start int) (importStmt, error) {
	stmt := importStmt{options: make(map[string]bool), at: tokens[start]}

	i := nextSignificant(tokens, start+1)
	if i < len(tokens) && tokens[i].tt == css.LeftParenthesisToken {
		for i++; i < len(tokens) && tokens[i].tt != css.RightParenthesisToken; i++ {
			if tokens[i].tt == css.IdentToken {
				stmt.options[strings.ToLower(tokens[i].text)] = true
			}
		}
		i = nextSignificant(tokens, i+1)
	}

	if i >= len(tokens) {
		return stmt, stmt.at.errorf("unrecognised input: @import without a target")
	}
	switch tok := tokens[i]; tok.tt {
	case css.StringToken:
		stmt.target = unquote(tok.text)
	case css.URLToken:
		stmt.target = urlTarget(tok.text)
	default:
		return stmt, tok.errorf("unrecognised input: @import expects a string or url()")
	}
	stmt.at = tokens[i]

	for j := i + 1; j < len(tokens); j++ {
		switch tokens[j].tt {
		case css.SemicolonToken:
			stmt.end = j
			return stmt, nil
		case css.WhitespaceToken, css.CommentToken:
		default:
			stmt.media = true
		}
	}
	return stmt, stmt.at.errorf("missing ';' after @import")
}

// topLevelDeclarations keeps only the variable declarations at block depth
// zero, which is all a (reference) import contributes.
func topLevelDeclarations(tokens []token) []token {
	var out []token
	depth := 0
	for i := 0; i < len(tokens); i++ {
		switch tokens[i].tt {
		case css.LeftBraceToken:
			depth++
			continue
		case css.RightBraceToken:
			depth--
			continue
		}
		if depth != 0 || tokens[i].tt != css.AtKeywordToken {
			continue
		}
		colon := nextSignificant(tokens, i+1)
		if colon >= len(tokens) || tokens[colon].tt != css.ColonToken {
			continue
		}
		end := i
		for end < len(tokens) && tokens[end].tt != css.SemicolonToken {
			end++
		}
		if end < len(tokens) {
			out = append(out, tokens[i:end+1]...)
		}
		i = end
	}
	return out
}

// nextSignificant skips whitespace and comments.
func nextSignificant(tokens []token, i int) int {
	for i < len(tokens) && (tokens[i].tt == css.WhitespaceToken || tokens[i].tt == css.CommentToken) {
		i++
	}
	return i
}

// skipTrailingSpace returns end, advanced over one following whitespace token.
func skipTrailingSpace(tokens []token, end int) int {
	if end+1 < len(tokens) && tokens[end+1].tt == css.WhitespaceToken {
		return end + 1
	}
	return end
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// urlTarget extracts the target from a url(...) token.
func urlTarget(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSuffix(s, ")")
	return unquote(strings.TrimSpace(s))
}

func containsString(slice []string, val string) bool {
	for _, item := range slice {
		if item == val {
			return true
		}
	}
	return false
}

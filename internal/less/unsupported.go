package less

import "github.com/tdewolff/parse/v2/css"

// Constructs outside the supported subset are rejected rather than copied
// through, since the output would not be valid CSS.

// checkPrelude validates the selector or at-rule prelude of a block opened
// by brace. inRule reports whether the enclosing block is a style rule.
func checkPrelude(prelude []token, brace token, inRule bool) error {
	for i, tok := range prelude {
		switch {
		case tok.is(css.DelimToken, "&"):
			return tok.errorf("parent selectors are not supported")
		case tok.tt == css.FunctionToken && i > 0 && prelude[i-1].is(css.DelimToken, "."):
			return prelude[i-1].errorf("mixins are not supported")
		case tok.tt == css.LeftParenthesisToken && i > 0 && prelude[i-1].tt == css.HashToken:
			return prelude[i-1].errorf("mixins are not supported")
		case tok.is(css.IdentToken, "when") && i > 0 && prelude[i-1].tt == css.WhitespaceToken:
			return tok.errorf("guards are not supported")
		}
	}
	if inRule {
		return brace.errorf("nested rules are not supported")
	}
	return nil
}

// checkStatement rejects a ';'-terminated statement that calls a mixin,
// such as ".bordered();" or "#ns > .m;".
func checkStatement(stmt []token) error {
	i := nextSignificant(stmt, 0)
	if i >= len(stmt) {
		return nil
	}
	if tok := stmt[i]; tok.is(css.DelimToken, ".") || tok.tt == css.HashToken {
		return tok.errorf("mixins are not supported")
	}
	return nil
}

// isStyleRule reports whether a block prelude is a selector rather than an
// at-rule.
func isStyleRule(prelude []token) bool {
	i := nextSignificant(prelude, 0)
	return i < len(prelude) && prelude[i].tt != css.AtKeywordToken
}

package stylecheck

import (
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// block is a style rule or an at-rule with a body.
type block struct {
	at       string // lowercased at-keyword, empty for style rules
	prelude  []token
	parent   *block
	line     int
	col      int
	decls    []*decl
	children int
}

func (b *block) isStyleRule() bool {
	return b.at == "" && !b.inKeyframes()
}

func (b *block) inKeyframes() bool {
	for p := b.parent; p != nil; p = p.parent {
		if strings.HasSuffix(p.at, "keyframes") {
			return true
		}
	}
	return false
}

// scope identifies the at-rule context a selector lives in.
func (b *block) scope() string {
	var parts []string
	for p := b.parent; p != nil; p = p.parent {
		parts = append(parts, render(p.prelude))
	}
	return strings.Join(parts, "\x00")
}

// selectors splits a style rule prelude on top-level commas.
func (b *block) selectors() [][]token {
	var out [][]token
	var cur []token
	depth := 0
	for _, t := range b.prelude {
		switch t.kind {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				out = append(out, trimSpace(cur))
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	return append(out, trimSpace(cur))
}

// selectorKey normalizes a selector list so that "a, b" and "b,a" compare
// equal.
func (b *block) selectorKey() string {
	sels := b.selectors()
	names := make([]string, 0, len(sels))
	for _, s := range sels {
		names = append(names, render(s))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

type decl struct {
	prop      string
	rawProp   string
	value     []token
	important bool
	line      int
	col       int
	owner     *block
}

func (d *decl) custom() bool {
	return strings.HasPrefix(d.rawProp, "--")
}

type sheet struct {
	blocks   []*block
	decls    []*decl
	comments []token
}

// build walks the token stream into blocks and declarations. It is lenient
// about anything it does not need to inspect, but rejects streams whose
// braces do not balance and stray words at the top level.
func build(toks []token) (*sheet, error) {
	sh := &sheet{}
	var stack []*block
	var pending []token
	parens := 0

	top := func() *block {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for _, t := range toks {
		switch t.kind {
		case css.CommentToken:
			sh.comments = append(sh.comments, t)
			continue
		case css.CDOToken, css.CDCToken:
			if len(stack) == 0 {
				continue
			}
		case css.FunctionToken, css.LeftParenthesisToken:
			parens++
		case css.RightParenthesisToken:
			if parens > 0 {
				parens--
			}
		case css.LeftBraceToken:
			if parens > 0 {
				break
			}
			b := newBlock(pending, t, top())
			if p := top(); p != nil {
				p.children++
			}
			sh.blocks = append(sh.blocks, b)
			stack = append(stack, b)
			pending = nil
			continue
		case css.SemicolonToken:
			if parens > 0 {
				break
			}
			if err := sh.statement(top(), pending); err != nil {
				return nil, err
			}
			pending = nil
			continue
		case css.RightBraceToken:
			if len(stack) == 0 {
				return nil, t.errorf("Unexpected }")
			}
			if err := sh.statement(top(), pending); err != nil {
				return nil, err
			}
			stack = stack[:len(stack)-1]
			pending = nil
			parens = 0
			continue
		}
		pending = append(pending, t)
	}

	if b := top(); b != nil {
		return nil, &SyntaxError{Line: b.line, Column: b.col, Reason: "Unclosed block"}
	}
	if err := sh.statement(nil, pending); err != nil {
		return nil, err
	}
	return sh, nil
}

func newBlock(prelude []token, brace token, parent *block) *block {
	prelude = trimSpace(prelude)
	b := &block{prelude: prelude, parent: parent, line: brace.line, col: brace.col}
	if len(prelude) > 0 {
		b.line, b.col = prelude[0].line, prelude[0].col
		if prelude[0].kind == css.AtKeywordToken {
			b.at = strings.ToLower(prelude[0].data)
		}
	}
	return b
}

// statement handles a run of tokens ended by ';' or '}' (or EOF at the top
// level). Inside a block it is a declaration or a nested at-rule; at the top
// level only at-rules are allowed.
func (sh *sheet) statement(owner *block, toks []token) error {
	toks = trimSpace(toks)
	if len(toks) == 0 || toks[0].kind == css.AtKeywordToken {
		return nil
	}
	if owner == nil {
		return toks[0].errorf("Unknown word %s", toks[0].data)
	}

	i := 0
	// "*zoom: 1" style hacks
	if toks[0].kind == css.DelimToken && (toks[0].data == "*" || toks[0].data == "_") && len(toks) > 1 {
		i = 1
	}
	name := toks[i]
	if name.kind != css.IdentToken && name.kind != css.CustomPropertyNameToken {
		return name.errorf("Unknown word %s", name.data)
	}
	j := i + 1
	for j < len(toks) && toks[j].isSpace() {
		j++
	}
	if j >= len(toks) || toks[j].kind != css.ColonToken {
		return name.errorf("Unknown word %s", name.data)
	}

	d := &decl{
		rawProp: name.data,
		prop:    strings.ToLower(name.data),
		line:    toks[0].line,
		col:     toks[0].col,
		owner:   owner,
	}
	if d.custom() {
		d.prop = name.data
	}
	d.value, d.important = splitImportant(trimSpace(toks[j+1:]))
	owner.decls = append(owner.decls, d)
	sh.decls = append(sh.decls, d)
	return nil
}

// splitImportant strips a trailing "!important".
func splitImportant(value []token) ([]token, bool) {
	v := trimSpace(value)
	n := len(v)
	if n == 0 || v[n-1].kind != css.IdentToken || !strings.EqualFold(v[n-1].data, "important") {
		return v, false
	}
	k := n - 2
	for k >= 0 && v[k].isSpace() {
		k--
	}
	if k < 0 || v[k].kind != css.DelimToken || v[k].data != "!" {
		return v, false
	}
	return trimSpace(v[:k]), true
}

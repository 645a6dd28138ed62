package stylecheck

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// SyntaxError is returned when the input is not a style sheet the engine can
// walk. Line and Column are 1-based.
type SyntaxError struct {
	Line   int
	Column int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("css syntax error at %d:%d: %s", e.Line, e.Column, e.Reason)
}

// IsSyntaxError reports whether err wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

type token struct {
	kind css.TokenType
	data string
	line int
	col  int
}

func (t token) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: t.line, Column: t.col, Reason: fmt.Sprintf(format, args...)}
}

func (t token) isSpace() bool {
	return t.kind == css.WhitespaceToken
}

// tokenize lexes text and stamps every token with its start position. The
// lexer is lossless, so positions follow from the token bytes.
func tokenize(text string) ([]token, error) {
	lexer := css.NewLexer(parse.NewInput(strings.NewReader(text)))
	line, col := 1, 1
	var out []token
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != nil && err != io.EOF {
				return nil, &SyntaxError{Line: line, Column: col, Reason: err.Error()}
			}
			return out, nil
		}
		tk := token{kind: tt, data: string(data), line: line, col: col}
		switch tt {
		case css.BadStringToken:
			return nil, tk.errorf("Unclosed string")
		case css.BadURLToken:
			return nil, tk.errorf("Unclosed url")
		case css.CommentToken:
			if !strings.HasSuffix(tk.data, "*/") || len(tk.data) < 4 {
				return nil, tk.errorf("Unclosed comment")
			}
		}
		out = append(out, tk)
		line, col = advance(tk.data, line, col)
	}
}

func advance(s string, line, col int) (int, int) {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// trimSpace drops leading and trailing whitespace tokens.
func trimSpace(toks []token) []token {
	for len(toks) > 0 && toks[0].isSpace() {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].isSpace() {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// render joins token data, collapsing whitespace runs to one space.
func render(toks []token) string {
	var sb strings.Builder
	space := false
	for _, t := range trimSpace(toks) {
		if t.isSpace() {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteString(t.data)
	}
	return sb.String()
}

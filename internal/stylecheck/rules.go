package stylecheck

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"

	"github.com/raysh454/harstyle/internal/config"
)

type reportFunc func(line, col int, text string)

type checkFunc func(sh *sheet, opt config.RuleSetting, report reportFunc)

// checks maps every supported rule name to its implementation.
var checks = map[string]checkFunc{
	"block-no-empty":                            blockNoEmpty,
	"color-no-invalid-hex":                      colorNoInvalidHex,
	"color-named":                               colorNamed,
	"color-no-duplicate-values":                 colorNoDuplicateValues,
	"comment-no-empty":                          commentNoEmpty,
	"declaration-block-no-duplicate-properties": declarationBlockNoDuplicateProperties,
	"declaration-no-important":                  declarationNoImportant,
	"font-family-no-duplicate-names":            fontFamilyNoDuplicateNames,
	"length-zero-no-unit":                       lengthZeroNoUnit,
	"no-duplicate-selectors":                    noDuplicateSelectors,
	"number-max-precision":                      numberMaxPrecision,
	"property-no-vendor-prefix":                 propertyNoVendorPrefix,
	"selector-max-id":                           selectorMaxID,
}

func blockNoEmpty(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, b := range sh.blocks {
		if len(b.decls) == 0 && b.children == 0 {
			report(b.line, b.col, "Unexpected empty block")
		}
	}
}

func colorNoInvalidHex(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, d := range sh.decls {
		for _, t := range d.value {
			if t.kind == css.HashToken && !validHex(t.data[1:]) {
				report(t.line, t.col, fmt.Sprintf("Unexpected invalid hex color %q", t.data))
			}
		}
	}
}

func validHex(s string) bool {
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func colorNamed(sh *sheet, opt config.RuleSetting, report reportFunc) {
	if mode, _ := opt.Primary.(string); mode != "never" {
		return
	}
	for _, d := range sh.decls {
		if d.custom() {
			continue
		}
		walkValue(d.value, func(t token, fn string) {
			if t.kind == css.IdentToken && fn != "var(" && namedColors[strings.ToLower(t.data)] {
				report(t.line, t.col, fmt.Sprintf("Unexpected named color %q", t.data))
			}
		})
	}
}

func colorNoDuplicateValues(sh *sheet, _ config.RuleSetting, report reportFunc) {
	seen := map[string]bool{}
	for _, d := range sh.decls {
		if d.custom() {
			continue
		}
		for _, c := range colorsIn(d.value) {
			key := strings.ToLower(c.text)
			if seen[key] {
				report(c.line, c.col, fmt.Sprintf("Unexpected duplicate color %q", c.text))
				continue
			}
			seen[key] = true
		}
	}
}

type colorValue struct {
	text string
	line int
	col  int
}

// colorsIn lists the hex, named and functional colors of a value.
func colorsIn(value []token) []colorValue {
	var out []colorValue
	for i := 0; i < len(value); i++ {
		t := value[i]
		switch t.kind {
		case css.HashToken:
			if validHex(t.data[1:]) {
				out = append(out, colorValue{t.data, t.line, t.col})
			}
		case css.IdentToken:
			if namedColors[strings.ToLower(t.data)] {
				out = append(out, colorValue{t.data, t.line, t.col})
			}
		case css.FunctionToken:
			end := closingParen(value, i)
			if colorFunctions[strings.ToLower(t.data)] {
				var sb strings.Builder
				for _, a := range value[i : end+1] {
					if !a.isSpace() {
						sb.WriteString(a.data)
					}
				}
				out = append(out, colorValue{sb.String(), t.line, t.col})
			}
			i = end
		}
	}
	return out
}

func closingParen(value []token, open int) int {
	depth := 0
	for i := open; i < len(value); i++ {
		switch value[i].kind {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(value) - 1
}

// walkValue visits the value tokens together with the innermost enclosing
// function name ("" at the top level).
func walkValue(value []token, visit func(t token, fn string)) {
	var fns []string
	for _, t := range value {
		switch t.kind {
		case css.FunctionToken:
			fns = append(fns, strings.ToLower(t.data))
			continue
		case css.LeftParenthesisToken:
			fns = append(fns, "(")
			continue
		case css.RightParenthesisToken:
			if len(fns) > 0 {
				fns = fns[:len(fns)-1]
			}
			continue
		}
		fn := ""
		if len(fns) > 0 {
			fn = fns[len(fns)-1]
		}
		visit(t, fn)
	}
}

func commentNoEmpty(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, c := range sh.comments {
		body := strings.TrimSuffix(strings.TrimPrefix(c.data, "/*"), "*/")
		if strings.TrimSpace(body) == "" {
			report(c.line, c.col, "Unexpected empty comment")
		}
	}
}

func declarationBlockNoDuplicateProperties(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, b := range sh.blocks {
		seen := map[string]bool{}
		for _, d := range b.decls {
			if seen[d.prop] {
				report(d.line, d.col, fmt.Sprintf("Unexpected duplicate %q", d.rawProp))
				continue
			}
			seen[d.prop] = true
		}
	}
}

func declarationNoImportant(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, d := range sh.decls {
		if d.important {
			report(d.line, d.col, "Unexpected !important")
		}
	}
}

func fontFamilyNoDuplicateNames(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, d := range sh.decls {
		if d.prop != "font-family" {
			continue
		}
		seen := map[string]bool{}
		var words []string
		var first token
		flush := func() {
			if len(words) == 0 {
				return
			}
			name := strings.Join(words, " ")
			if seen[name] {
				report(first.line, first.col, fmt.Sprintf("Unexpected duplicate name %s", name))
			}
			seen[name] = true
			words = nil
		}
		for _, t := range d.value {
			switch t.kind {
			case css.CommaToken:
				flush()
			case css.StringToken:
				if len(words) == 0 {
					first = t
				}
				words = append(words, unquote(t.data))
			case css.IdentToken:
				if len(words) == 0 {
					first = t
				}
				words = append(words, t.data)
			}
		}
		flush()
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

var lengthUnits = map[string]bool{
	"px": true, "em": true, "rem": true, "ex": true, "ch": true,
	"vw": true, "vh": true, "vmin": true, "vmax": true,
	"cm": true, "mm": true, "q": true, "in": true, "pt": true, "pc": true,
}

func lengthZeroNoUnit(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, d := range sh.decls {
		if d.custom() || d.prop == "flex" {
			continue
		}
		walkValue(d.value, func(t token, fn string) {
			if t.kind != css.DimensionToken || fn != "" {
				return
			}
			num, unit := splitNumber(t.data)
			if !lengthUnits[strings.ToLower(unit)] {
				return
			}
			if f, err := strconv.ParseFloat(num, 64); err == nil && f == 0 {
				report(t.line, t.col+len(num), "Unexpected unit")
			}
		})
	}
}

// splitNumber separates the numeric prefix of a number, percentage or
// dimension token from its unit.
func splitNumber(s string) (string, string) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			i = j
		}
	}
	return s[:i], s[i:]
}

func noDuplicateSelectors(sh *sheet, _ config.RuleSetting, report reportFunc) {
	seen := map[string]bool{}
	for _, b := range sh.blocks {
		if !b.isStyleRule() || len(b.prelude) == 0 {
			continue
		}
		key := b.scope() + "\x01" + b.selectorKey()
		if seen[key] {
			report(b.line, b.col, fmt.Sprintf("Unexpected duplicate selector %q", render(b.prelude)))
			continue
		}
		seen[key] = true
	}
}

func numberMaxPrecision(sh *sheet, opt config.RuleSetting, report reportFunc) {
	limit, ok := intOption(opt.Primary)
	if !ok || limit < 0 {
		return
	}
	for _, d := range sh.decls {
		walkValue(d.value, func(t token, fn string) {
			if fn == "url(" {
				return
			}
			switch t.kind {
			case css.NumberToken, css.PercentageToken, css.DimensionToken:
			default:
				return
			}
			num, unit := splitNumber(t.data)
			if strings.ContainsAny(num, "eE") {
				return
			}
			dot := strings.IndexByte(num, '.')
			if dot < 0 || len(num)-dot-1 <= limit {
				return
			}
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return
			}
			p := math.Pow(10, float64(limit))
			rounded := strconv.FormatFloat(math.Round(f*p)/p, 'f', -1, 64)
			report(t.line, t.col, fmt.Sprintf("Expected %q to be %q", t.data, rounded+unit))
		})
	}
}

func intOption(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == math.Trunc(n)
	}
	return 0, false
}

var vendorPrefixes = []string{"-webkit-", "-moz-", "-ms-", "-o-"}

func propertyNoVendorPrefix(sh *sheet, _ config.RuleSetting, report reportFunc) {
	for _, d := range sh.decls {
		for _, p := range vendorPrefixes {
			if strings.HasPrefix(d.prop, p) {
				report(d.line, d.col, fmt.Sprintf("Unexpected vendor-prefixed property %q", d.rawProp))
				break
			}
		}
	}
}

func selectorMaxID(sh *sheet, opt config.RuleSetting, report reportFunc) {
	limit, ok := intOption(opt.Primary)
	if !ok || limit < 0 {
		return
	}
	for _, b := range sh.blocks {
		if !b.isStyleRule() {
			continue
		}
		for _, sel := range b.selectors() {
			ids := 0
			for _, t := range sel {
				if t.kind == css.HashToken {
					ids++
				}
			}
			if ids > limit && len(sel) > 0 {
				report(sel[0].line, sel[0].col,
					fmt.Sprintf("Expected %q to have no more than %d ID selector(s)", render(sel), limit))
			}
		}
	}
}

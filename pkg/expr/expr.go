// Package expr builds immutable SQL fragments.
//
// An Expression is a flat list of tokens: raw SQL text, literals that are
// quoted for a dialect when rendered, identifiers and nested expressions.
// Expressions are never mutated after construction, so a fragment can be
// shared by any number of derived expressions.
package expr

import (
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

// Expressioner is anything that can stand in a template slot.
// Expression itself and typed columns implement it.
type Expressioner interface {
	Expression() Expression
}

type tokenKind int

const (
	tokRaw tokenKind = iota
	tokString
	tokInt
	tokFloat
	tokBool
	tokNull
	tokIdent
	tokExpr
)

type token struct {
	kind tokenKind
	text string
	num  int64
	flt  float64
	sub  []token
}

// Expression is an immutable SQL fragment.
type Expression struct {
	tokens []token
}

// Expression implements Expressioner.
func (e Expression) Expression() Expression {
	return e
}

// IsEmpty reports whether the expression renders to nothing.
func (e Expression) IsEmpty() bool {
	return len(flatten(e.tokens)) == 0 || e.String() == ""
}

// Raw returns an unescaped token. Only use it for keywords, operators and
// other program constants, never for user input.
func Raw(text string) Expression {
	return Expression{tokens: []token{{kind: tokRaw, text: text}}}
}

// StringValue returns a string literal quoted for the rendering dialect.
func StringValue(s string) Expression {
	return Expression{tokens: []token{{kind: tokString, text: s}}}
}

// Identifier returns a column or relation name, quoted when the dialect needs it.
func Identifier(name string) Expression {
	return Expression{tokens: []token{{kind: tokIdent, text: name}}}
}

// Int returns an integer literal.
func Int(n int64) Expression {
	return Expression{tokens: []token{{kind: tokInt, num: n}}}
}

// Float returns a float literal in shortest round-trip form (1e-06, 86400).
// NaN and infinities have no literal form; encode them through a cast instead.
func Float(f float64) Expression {
	return Expression{tokens: []token{{kind: tokFloat, flt: f}}}
}

// Bool returns a boolean literal.
func Bool(b bool) Expression {
	var n int64
	if b {
		n = 1
	}
	return Expression{tokens: []token{{kind: tokBool, num: n}}}
}

// Null returns the NULL literal.
func Null() Expression {
	return Expression{tokens: []token{{kind: tokNull}}}
}

// Paren wraps e in parentheses.
func Paren(e Expressioner) Expression {
	return Construct("({})", e)
}

// Join concatenates expressions with sep between them, e.g. ", " for an
// argument list or " AND " for a conjunction.
func Join(exprs []Expression, sep string) Expression {
	if len(exprs) == 0 {
		return Expression{}
	}
	tokens := make([]token, 0, len(exprs)*2-1)
	for i, e := range exprs {
		if i > 0 && sep != "" {
			tokens = append(tokens, token{kind: tokRaw, text: sep})
		}
		tokens = append(tokens, token{kind: tokExpr, sub: e.tokens})
	}
	return Expression{tokens: tokens}
}

// Render returns the SQL text of e for dialect d. A nil dialect renders
// string literals with standard quote doubling and identifiers bare.
func (e Expression) Render(d *dialect.Dialect) string {
	var sb strings.Builder
	render(&sb, e.tokens, d)
	return sb.String()
}

// String renders e without a dialect. Intended for logs and debugging.
func (e Expression) String() string {
	return e.Render(nil)
}

func render(sb *strings.Builder, tokens []token, d *dialect.Dialect) {
	for _, t := range tokens {
		switch t.kind {
		case tokRaw:
			sb.WriteString(t.text)
		case tokString:
			if d == nil {
				sb.WriteString("'" + strings.ReplaceAll(t.text, "'", "''") + "'")
			} else {
				sb.WriteString(d.QuoteString(t.text))
			}
		case tokInt:
			sb.WriteString(strconv.FormatInt(t.num, 10))
		case tokFloat:
			sb.WriteString(formatFloat(t.flt))
		case tokBool:
			if t.num == 1 {
				sb.WriteString("true")
			} else {
				sb.WriteString("false")
			}
		case tokNull:
			sb.WriteString("NULL")
		case tokIdent:
			if d == nil {
				sb.WriteString(t.text)
			} else {
				sb.WriteString(d.QuoteIdentifierIfNeeded(t.text))
			}
		case tokExpr:
			render(sb, t.sub, d)
		}
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Equal reports whether two expressions have the same token structure.
func (e Expression) Equal(other Expression) bool {
	return tokensEqual(flatten(e.tokens), flatten(other.tokens))
}

func flatten(tokens []token) []token {
	out := make([]token, 0, len(tokens))
	for _, t := range tokens {
		if t.kind == tokExpr {
			out = append(out, flatten(t.sub)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func tokensEqual(a, b []token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].kind != b[i].kind || a[i].text != b[i].text || a[i].num != b[i].num {
			return false
		}
		if a[i].kind == tokFloat && a[i].flt != b[i].flt {
			return false
		}
	}
	return true
}

package expr

import (
	"fmt"
	"strings"
)

// TemplateError is returned by Build when a template is malformed or its
// slot count does not match the arguments.
type TemplateError struct {
	Template string
	Slots    int
	Args     int
	Reason   string
}

func (e *TemplateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("template %q: %s", e.Template, e.Reason)
	}
	return fmt.Sprintf("template %q has %d placeholders but got %d arguments", e.Template, e.Slots, e.Args)
}

// Construct fills the {} slots of template with args, in order.
// A literal brace is written {{ or }}. Construct panics if the slot count
// does not match len(args); templates are program constants, so a
// mismatch is a bug. Use Build when the template is not a constant.
func Construct(template string, args ...Expressioner) Expression {
	e, err := Build(template, args...)
	if err != nil {
		panic(err)
	}
	return e
}

// Build is Construct that returns template errors instead of panicking.
func Build(template string, args ...Expressioner) (Expression, error) {
	var (
		tokens []token
		text   strings.Builder
		slots  int
	)
	flush := func() {
		if text.Len() > 0 {
			tokens = append(tokens, token{kind: tokRaw, text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			text.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			text.WriteByte('}')
			i++
		case c == '{' && i+1 < len(template) && template[i+1] == '}':
			flush()
			if slots < len(args) {
				if args[slots] == nil {
					return Expression{}, &TemplateError{Template: template, Reason: fmt.Sprintf("argument %d is nil", slots)}
				}
				tokens = append(tokens, token{kind: tokExpr, sub: args[slots].Expression().tokens})
			}
			slots++
			i++
		case c == '{' || c == '}':
			return Expression{}, &TemplateError{Template: template, Reason: fmt.Sprintf("unmatched %q at offset %d", c, i)}
		default:
			text.WriteByte(c)
		}
	}
	flush()

	if slots != len(args) {
		return Expression{}, &TemplateError{Template: template, Slots: slots, Args: len(args)}
	}
	return Expression{tokens: tokens}, nil
}

// Exprs adapts a slice of Expressions to variadic Expressioner arguments.
func Exprs(exprs ...Expression) []Expressioner {
	out := make([]Expressioner, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return out
}

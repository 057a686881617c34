package temporal

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

// FormatCode documents how one C format code is rendered per dialect.
type FormatCode struct {
	Code        string
	Description string
	Postgres    string
	BigQuery    string
}

// postgresCode is either a to_char pattern run or, when template is set,
// a computed text segment with the formatted value in its single slot.
type postgresCode struct {
	pattern  string
	template string
}

var postgresCodes = map[byte]postgresCode{
	'Y': {pattern: "YYYY"},
	'y': {pattern: "YY"},
	'm': {pattern: "MM"},
	'd': {pattern: "DD"},
	'e': {template: "lpad(to_char({}, 'FMDD'), 2, ' ')"},
	'H': {pattern: "HH24"},
	'I': {pattern: "HH12"},
	'M': {pattern: "MI"},
	'S': {pattern: "SS"},
	'f': {pattern: "US"},
	'p': {pattern: "AM"},
	'j': {pattern: "DDD"},
	'a': {pattern: "Dy"},
	'A': {pattern: "FMDay"},
	'b': {pattern: "Mon"},
	'h': {pattern: "Mon"},
	'B': {pattern: "FMMonth"},
	'Z': {pattern: "TZ"},
	'G': {pattern: "IYYY"},
	'V': {pattern: "IW"},
	'u': {pattern: "ID"},
	'w': {template: "cast(cast(extract(dow from {}) as integer) as text)"},
	's': {template: "cast(cast(extract(epoch from {}) as bigint) as text)"},
	'F': {pattern: "YYYY-MM-DD"},
	'D': {pattern: "MM/DD/YY"},
	'T': {pattern: "HH24:MI:SS"},
	'R': {pattern: "HH24:MI"},
}

// BigQuery understands the C codes natively except %f.
var bigqueryCodes = map[byte]bool{
	'Y': true, 'y': true, 'm': true, 'd': true, 'e': true, 'H': true, 'I': true,
	'M': true, 'S': true, 'p': true, 'j': true, 'a': true, 'A': true, 'b': true,
	'h': true, 'B': true, 'Z': true, 'z': true, 'G': true, 'V': true, 'u': true,
	'w': true, 'U': true, 'W': true, 's': true, 'C': true, 'F': true, 'D': true,
	'T': true, 'R': true, 'f': true,
}

var codeDescriptions = map[byte]string{
	'Y': "year with century", 'y': "year without century", 'm': "month 01-12",
	'd': "day of month 01-31", 'e': "day of month, space padded", 'H': "hour 00-23",
	'I': "hour 01-12", 'M': "minute 00-59", 'S': "second 00-59", 'f': "microsecond 000000-999999",
	'p': "AM or PM", 'j': "day of year 001-366", 'a': "abbreviated weekday name",
	'A': "full weekday name", 'b': "abbreviated month name", 'h': "abbreviated month name",
	'B': "full month name", 'Z': "time zone name", 'z': "UTC offset", 'G': "ISO 8601 year",
	'V': "ISO 8601 week 01-53", 'u': "ISO weekday 1-7, Monday is 1", 'w': "weekday 0-6, Sunday is 0",
	'U': "week of year, Sunday first", 'W': "week of year, Monday first", 's': "seconds since epoch",
	'C': "century", 'F': "%Y-%m-%d", 'D': "%m/%d/%y", 'T': "%H:%M:%S", 'R': "%H:%M",
	'%': "literal %",
}

// FormatCodes returns the translation table of every known code.
func FormatCodes() []FormatCode {
	out := make([]FormatCode, 0, len(codeDescriptions))
	for c, desc := range codeDescriptions {
		fc := FormatCode{Code: "%" + string(c), Description: desc, Postgres: "-", BigQuery: "-"}
		switch {
		case c == '%':
			fc.Postgres, fc.BigQuery = "%", "%%"
		case postgresCodes[c].pattern != "":
			fc.Postgres = postgresCodes[c].pattern
		case postgresCodes[c].template != "":
			fc.Postgres = postgresCodes[c].template
		}
		switch {
		case c == 'f':
			fc.BigQuery = "%E6S after %S., else FORMAT('%06d', EXTRACT(MICROSECOND FROM {}))"
		case bigqueryCodes[c]:
			fc.BigQuery = "%" + string(c)
		}
		out = append(out, fc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// formatToken is a literal run (code 0) or a single format code.
type formatToken struct {
	code byte
	text string
}

func tokenizeFormat(pattern string) ([]formatToken, error) {
	var (
		tokens []formatToken
		text   strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			tokens = append(tokens, formatToken{text: text.String()})
			text.Reset()
		}
	}
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			text.WriteByte(c)
			continue
		}
		if i+1 == len(pattern) {
			return nil, &core.ValueError{Value: pattern, Reason: "format ends with a lone %", Err: core.ErrUnsupportedFormatCode}
		}
		i++
		switch pattern[i] {
		case '%':
			text.WriteByte('%')
		case 'n':
			text.WriteByte('\n')
		case 't':
			text.WriteByte('\t')
		default:
			flush()
			tokens = append(tokens, formatToken{code: pattern[i]})
		}
	}
	flush()
	return tokens, nil
}

func unsupportedCode(d *dialect.Dialect, code byte) error {
	return &core.ValueError{
		Value:  "%" + string(code),
		Reason: "format code %" + string(code) + " is not supported on " + d.Name,
		Err:    core.ErrUnsupportedFormatCode,
	}
}

// Strftime formats the column with a C format string, translated to the
// dialect's own format language. %Y%m%d renders 20210102 for 2021-01-02
// on both dialects.
func (o *DateTimeOps) Strftime(pattern string) (*series.Series, error) {
	tokens, err := tokenizeFormat(pattern)
	if err != nil {
		return nil, err
	}
	d := o.col.Dialect()
	e, err := dialect.Choose(d,
		func() (expr.Expression, error) { return o.postgresStrftime(tokens) },
		func() (expr.Expression, error) { return o.bigqueryStrftime(tokens) },
	)
	if err != nil {
		return nil, err
	}
	return o.col.CopyOverride(series.WithExpression(e)).CopyOverrideType(dtype.String)
}

func (o *DateTimeOps) postgresStrftime(tokens []formatToken) (expr.Expression, error) {
	src := postgresFormatSource(o.col)
	var (
		parts   []expr.Expression
		pattern strings.Builder
	)
	flush := func() {
		if pattern.Len() > 0 {
			parts = append(parts, expr.Construct("to_char({}, {})", src, expr.StringValue(pattern.String())))
			pattern.Reset()
		}
	}
	for _, tok := range tokens {
		if tok.code == 0 {
			pattern.WriteString(quotePostgresPatternText(tok.text))
			continue
		}
		pc, ok := postgresCodes[tok.code]
		switch {
		case !ok:
			return expr.Expression{}, unsupportedCode(o.col.Dialect(), tok.code)
		case pc.template != "":
			flush()
			parts = append(parts, expr.Construct(pc.template, src))
		default:
			pattern.WriteString(pc.pattern)
		}
	}
	flush()
	return concat(o.col.Dialect(), parts), nil
}

var postgresPatternEscapes = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quotePostgresPatternText double-quotes text so to_char copies it as is
// instead of reading pattern letters out of it.
func quotePostgresPatternText(s string) string {
	return `"` + postgresPatternEscapes.Replace(s) + `"`
}

func (o *DateTimeOps) bigqueryStrftime(tokens []formatToken) (expr.Expression, error) {
	fn, err := bigqueryFormatFunc(o.col)
	if err != nil {
		return expr.Expression{}, err
	}
	var (
		parts  []expr.Expression
		format strings.Builder
	)
	flush := func() {
		if format.Len() > 0 {
			parts = append(parts, expr.Construct(fn+"({}, {})", expr.StringValue(format.String()), o.col))
			format.Reset()
		}
	}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.code == 0:
			format.WriteString(strings.ReplaceAll(tok.text, "%", "%%"))
		case tok.code == 'S' && i+2 < len(tokens) && tokens[i+1].text == "." && tokens[i+2].code == 'f':
			format.WriteString("%E6S")
			i += 2
		case tok.code == 'f':
			flush()
			parts = append(parts, expr.Construct("FORMAT('%06d', EXTRACT(MICROSECOND FROM {}))", o.col))
		case bigqueryCodes[tok.code]:
			format.WriteString("%" + string(tok.code))
		default:
			return expr.Expression{}, unsupportedCode(o.col.Dialect(), tok.code)
		}
	}
	flush()
	return concat(o.col.Dialect(), parts), nil
}

// concat joins text segments: || on Postgres, CONCAT on BigQuery.
func concat(d *dialect.Dialect, parts []expr.Expression) expr.Expression {
	switch len(parts) {
	case 0:
		return expr.StringValue("")
	case 1:
		return parts[0]
	}
	if d.IsBigQuery() {
		return expr.Construct("CONCAT({})", expr.Join(parts, ", "))
	}
	return expr.Construct("({})", expr.Join(parts, " || "))
}

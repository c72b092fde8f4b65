package filter

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// Predicate is a compiled boolean row expression. It is safe to evaluate
// against many rows but not from several goroutines at once.
type Predicate struct {
	source  string
	columns []string
	prog    *starlark.Program
	thread  *starlark.Thread
}

// Compile parses expr and binds its identifiers to the given columns. Any
// identifier that is not a column is reported as a configuration error
// before a single row is evaluated.
//
// The catalog spelling of membership and conjunctions is accepted:
//
//	(Row_Def not in['<=44']) & (Col_Def ==['Screened'])
func Compile(expr string, columns []string) (*Predicate, error) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	src := "result = (" + normalise(expr) + ")\n"
	_, prog, err := starlark.SourceProgramOptions(&syntax.FileOptions{}, "predicate", src, func(name string) bool {
		return known[name]
	})
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid filter expression %q", expr), err).
			WithContext("expression", expr)
	}
	return &Predicate{
		source:  expr,
		columns: append([]string(nil), columns...),
		prog:    prog,
		thread:  &starlark.Thread{Name: "predicate", Print: func(*starlark.Thread, string) {}},
	}, nil
}

// String returns the expression as written.
func (p *Predicate) String() string {
	return p.source
}

// Eval reports whether the row satisfies the expression.
func (p *Predicate) Eval(r table.Row) (bool, error) {
	env := make(starlark.StringDict, len(p.columns))
	for _, c := range p.columns {
		v, _ := r.Get(c)
		env[c] = toStarlark(v)
	}
	globals, err := p.prog.Init(p.thread, env)
	if err != nil {
		return false, apperrors.NewDataQualityError(fmt.Sprintf("cannot evaluate %q on row %d", p.source, r.Index()), err)
	}
	return globals["result"].Truth() == starlark.True, nil
}

func toStarlark(v table.Value) starlark.Value {
	if f, ok := v.Float(); ok {
		return starlark.Float(f)
	}
	if s, ok := v.Text(); ok {
		return starlark.String(s)
	}
	return starlark.None
}

// normalise rewrites the dataframe-query operators into their Starlark
// equivalents. Quoted text is left alone.
func normalise(expr string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(expr) {
				i++
				b.WriteByte(expr[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '&':
			b.WriteString(" and ")
		case c == '|':
			b.WriteString(" or ")
		case c == '~':
			b.WriteString(" not ")
		case (c == '=' || c == '!') && i+1 < len(expr) && expr[i+1] == '=' && nextNonSpace(expr, i+2) == '[':
			if c == '=' {
				b.WriteString(" in ")
			} else {
				b.WriteString(" not in ")
			}
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func nextNonSpace(s string, from int) byte {
	for i := from; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}

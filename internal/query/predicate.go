package query

import (
	"fmt"
	"strings"
	"time"

	"aviation_incidents/internal/incident"
)

// Predicate is a node in a WHERE clause tree. Columns are canonical
// incident columns; values are always bound, never spliced into the SQL.
type Predicate interface {
	render(b *binder) string
}

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// binder accumulates bound arguments and hands out placeholders.
type binder struct {
	d    Dialect
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

type inPredicate struct {
	col    incident.Column
	values []string
}

// In matches rows whose column equals one of values.
func In(col incident.Column, values ...string) Predicate {
	return inPredicate{col: col, values: values}
}

func (p inPredicate) render(b *binder) string {
	if len(p.values) == 0 {
		return "1 = 0"
	}
	marks := make([]string, len(p.values))
	for i, v := range p.values {
		marks[i] = b.bind(v)
	}
	return fmt.Sprintf("%s IN (%s)", p.col, strings.Join(marks, ", "))
}

type comparePredicate struct {
	col   incident.Column
	op    Op
	value any
	date  bool
}

// Compare matches rows whose column satisfies op against value.
func Compare(col incident.Column, op Op, value any) Predicate {
	return comparePredicate{col: col, op: op, value: value}
}

// DateCompare is Compare with the value converted by the dialect.
func DateCompare(col incident.Column, op Op, value time.Time) Predicate {
	return comparePredicate{col: col, op: op, value: value, date: true}
}

func (p comparePredicate) render(b *binder) string {
	v := p.value
	if t, ok := v.(time.Time); ok && p.date {
		v = b.d.DateArg(t)
	}
	return fmt.Sprintf("%s %s %s", p.col, p.op, b.bind(v))
}

type notNullPredicate struct {
	col incident.Column
}

// NotNull matches rows whose column is not NULL.
func NotNull(col incident.Column) Predicate {
	return notNullPredicate{col: col}
}

func (p notNullPredicate) render(*binder) string {
	return string(p.col) + " IS NOT NULL"
}

// And matches rows satisfying every child. An empty And matches everything.
type And []Predicate

func (a And) render(b *binder) string {
	if len(a) == 0 {
		return "1 = 1"
	}
	parts := make([]string, 0, len(a))
	for _, p := range a {
		parts = append(parts, p.render(b))
	}
	return strings.Join(parts, " AND ")
}

// Render renders p for dialect d, numbering placeholders from 1.
func Render(d Dialect, p Predicate) (string, []any) {
	b := &binder{d: d}
	sql := p.render(b)
	return sql, b.args
}

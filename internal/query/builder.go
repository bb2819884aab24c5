package query

import (
	"fmt"
	"strings"

	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/registry"
)

// Statement is rendered SQL plus its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Builder renders incident queries for one dialect over a fixed set of
// sources.
type Builder struct {
	d       Dialect
	sources []registry.Source
}

// NewBuilder creates a builder. Sources are used in the order given.
func NewBuilder(d Dialect, sources []registry.Source) *Builder {
	return &Builder{d: d, sources: sources}
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect {
	return b.d
}

// quote quotes a physical column name. Double quotes are understood by
// every supported engine.
func quote(ident string) string {
	return `"` + ident + `"`
}

// sourceSelect renders the canonical column list for one source.
func (b *Builder) sourceSelect(s registry.Source) string {
	cols := make([]string, 0, len(incident.Columns))
	for _, col := range incident.Columns {
		phys := s.Column(col)
		var expr string
		switch {
		case phys == "":
			expr = b.d.NullText()
		case col == incident.ColOriginDate:
			expr = b.d.DateExpr(quote(phys))
		default:
			expr = quote(phys)
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", expr, col))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.Table())
}

// Union returns the UNION ALL of every source in canonical shape.
func (b *Builder) Union() string {
	parts := make([]string, len(b.sources))
	for i, s := range b.sources {
		parts[i] = b.sourceSelect(s)
	}
	return strings.Join(parts, "\nUNION ALL\n")
}

// with renders the common table expressions and returns the relation the
// outer query should read from.
func (b *Builder) with(classified bool) (string, string) {
	cte := "WITH all_incidents AS (\n" + b.Union() + "\n)"
	if !classified {
		return cte, "all_incidents"
	}
	cte += `, classified_incidents AS (
SELECT i.uid, i.origin_date, i.phase, i.aircraft_type, i.location, i.operator, i.narrative, c.final_category
FROM all_incidents i
LEFT JOIN classification_results c ON c.source_uid = i.uid
)`
	return cte, "classified_incidents"
}

// where renders the filter plus any extra predicates.
func (b *Builder) where(bd *binder, f Filter, extra ...Predicate) string {
	preds := And{f.Predicate()}
	preds = append(preds, extra...)
	return preds.render(bd)
}

// GroupQuery describes a grouped count.
type GroupQuery struct {
	Filter     Filter
	Dimensions []Dimension

	// SkipNullKeys drops groups where any dimension is NULL.
	SkipNullKeys bool
}

// GroupCount renders SELECT key..., count GROUP BY key... The result
// columns are the dimension keys as text, then the count.
func (b *Builder) GroupCount(q GroupQuery) (Statement, error) {
	if len(q.Dimensions) == 0 {
		return Statement{}, fmt.Errorf("%w: no group dimensions", ErrInvalidDimension)
	}

	f := q.Filter
	classified := f.NeedsClassification()
	var extra []Predicate
	keys := make([]string, len(q.Dimensions))
	for i, d := range q.Dimensions {
		if !d.valid() {
			return Statement{}, invalidDimension("dimension", string(d))
		}
		if bk, ok := d.bucket(); ok {
			keys[i] = b.d.BucketExpr(string(incident.ColOriginDate), bk)
			f.RequireDate = true
			continue
		}
		col := categorical[d]
		if col == incident.ColFinalCategory {
			classified = true
		}
		keys[i] = string(col)
		if q.SkipNullKeys {
			extra = append(extra, NotNull(col))
		}
	}

	bd := &binder{d: b.d}
	cte, from := b.with(classified)
	where := b.where(bd, f, extra...)

	selects := make([]string, len(keys))
	for i, k := range keys {
		selects[i] = fmt.Sprintf("%s AS k%d", k, i)
	}
	group := strings.Join(keys, ", ")

	sql := fmt.Sprintf("%s\nSELECT %s, %s AS incident_count FROM %s WHERE %s GROUP BY %s ORDER BY incident_count DESC",
		cte, strings.Join(selects, ", "), b.d.CountExpr(), from, where, group)
	return Statement{SQL: sql, Args: bd.args}, nil
}

// Count renders the total number of incidents under f.
func (b *Builder) Count(f Filter) Statement {
	bd := &binder{d: b.d}
	cte, from := b.with(f.NeedsClassification())
	where := b.where(bd, f)
	sql := fmt.Sprintf("%s\nSELECT %s FROM %s WHERE %s", cte, b.d.CountExpr(), from, where)
	return Statement{SQL: sql, Args: bd.args}
}

// newestFirst orders by date descending with undated incidents last.
const newestFirst = "CASE WHEN origin_date IS NULL THEN 1 ELSE 0 END, origin_date DESC, uid"

// UIDs renders the UIDs of incidents under f, newest first.
func (b *Builder) UIDs(f Filter) Statement {
	bd := &binder{d: b.d}
	cte, from := b.with(f.NeedsClassification())
	where := b.where(bd, f, NotNull(incident.ColUID))
	sql := fmt.Sprintf("%s\nSELECT uid FROM %s WHERE %s ORDER BY %s", cte, from, where, newestFirst)
	return Statement{SQL: sql, Args: bd.args}
}

// incidentColumns is the canonical select list with the date as text.
func (b *Builder) incidentColumns() string {
	cols := make([]string, len(incident.Columns))
	for i, col := range incident.Columns {
		if col == incident.ColOriginDate {
			cols[i] = b.d.DateText(string(col)) + " AS " + string(col)
			continue
		}
		cols[i] = string(col)
	}
	return strings.Join(cols, ", ")
}

// Incidents renders canonical incident rows under f, newest first. A nil
// page returns every row.
func (b *Builder) Incidents(f Filter, page *Page) Statement {
	bd := &binder{d: b.d}
	cte, from := b.with(f.NeedsClassification())
	where := b.where(bd, f)
	sql := fmt.Sprintf("%s\nSELECT %s FROM %s WHERE %s ORDER BY %s",
		cte, b.incidentColumns(), from, where, newestFirst)
	if page != nil {
		sql += fmt.Sprintf(" LIMIT %s OFFSET %s", bd.bind(page.Limit), bd.bind(page.Skip))
	}
	return Statement{SQL: sql, Args: bd.args}
}

// Record renders a single-source lookup by uid. The uid is argument 1.
func (b *Builder) Record(s registry.Source, uid string) Statement {
	bd := &binder{d: b.d}
	mark := bd.bind(uid)
	sql := fmt.Sprintf("WITH one AS (%s WHERE %s = %s)\nSELECT %s FROM one",
		b.sourceSelect(s), quote(s.Column(incident.ColUID)), mark, b.incidentColumns())
	return Statement{SQL: sql, Args: bd.args}
}

// SourceCounts renders one (tag, count) row per source.
func (b *Builder) SourceCounts() Statement {
	parts := make([]string, len(b.sources))
	for i, s := range b.sources {
		parts[i] = fmt.Sprintf("SELECT '%s' AS source, %s AS incident_count FROM %s",
			s.Tag(), b.d.CountExpr(), s.Table())
	}
	return Statement{SQL: strings.Join(parts, "\nUNION ALL\n")}
}

package storage

import (
	"context"
	"fmt"
	"strings"

	"aviation_incidents/internal/aggregate"
	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/registry"
)

// rowScanner is the cursor surface shared by pgx, database/sql and the
// ClickHouse driver.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

type rowsFunc func(ctx context.Context, sql string, args ...any) (rowScanner, func(), error)
type execFunc func(ctx context.Context, sql string, args ...any) (int64, error)

// core implements every query whose SQL is portable across backends. SQL
// written here uses ? placeholders and goes through rebind.
type core struct {
	reg  *registry.Registry
	b    *query.Builder
	d    query.Dialect
	rows rowsFunc
	exec execFunc
}

func newCore(d query.Dialect, reg *registry.Registry, rows rowsFunc, exec execFunc) core {
	return core{
		reg:  reg,
		b:    query.NewBuilder(d, reg.All()),
		d:    d,
		rows: rows,
		exec: exec,
	}
}

// rebind rewrites ? placeholders into the dialect's form.
func (c core) rebind(sql string) string {
	if c.d.Placeholder(1) == "?" {
		return sql
	}
	var sb strings.Builder
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			sb.WriteString(c.d.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// marks returns n comma-separated ? placeholders.
func marks(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func (c core) run(ctx context.Context, stmt query.Statement, scan func(rowScanner) error) error {
	rows, closeRows, err := c.rows(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return err
	}
	defer closeRows()
	if err := scan(rows); err != nil {
		return err
	}
	return rows.Err()
}

// GroupCounts runs a grouped count over the incident union.
func (c core) GroupCounts(ctx context.Context, q query.GroupQuery) ([]aggregate.GroupCount, error) {
	stmt, err := c.b.GroupCount(q)
	if err != nil {
		return nil, err
	}

	var out []aggregate.GroupCount
	err = c.run(ctx, stmt, func(rows rowScanner) error {
		for rows.Next() {
			keys := make([]*string, len(q.Dimensions))
			dest := make([]any, 0, len(keys)+1)
			for i := range keys {
				dest = append(dest, &keys[i])
			}
			var count int64
			dest = append(dest, &count)
			if err := rows.Scan(dest...); err != nil {
				return fmt.Errorf("scan group count: %w", err)
			}
			out = append(out, aggregate.GroupCount{Keys: keys, Count: count})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("group counts: %w", err)
	}
	return out, nil
}

// CountIncidents returns the number of incidents under f.
func (c core) CountIncidents(ctx context.Context, f query.Filter) (int64, error) {
	var total int64
	err := c.run(ctx, c.b.Count(f), func(rows rowScanner) error {
		if rows.Next() {
			return rows.Scan(&total)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return total, nil
}

// ListUIDs returns the UIDs of incidents under f, newest first.
func (c core) ListUIDs(ctx context.Context, f query.Filter) ([]string, error) {
	out := []string{}
	err := c.run(ctx, c.b.UIDs(f), func(rows rowScanner) error {
		for rows.Next() {
			var uid string
			if err := rows.Scan(&uid); err != nil {
				return err
			}
			out = append(out, uid)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list uids: %w", err)
	}
	return out, nil
}

// SourceCounts returns the row count of each source table plus the union
// total under "all".
func (c core) SourceCounts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	err := c.run(ctx, c.b.SourceCounts(), func(rows rowScanner) error {
		for rows.Next() {
			var tag string
			var n int64
			if err := rows.Scan(&tag, &n); err != nil {
				return err
			}
			out[tag] = n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source counts: %w", err)
	}

	total, err := c.CountIncidents(ctx, query.Filter{})
	if err != nil {
		return nil, err
	}
	out["all"] = total
	return out, nil
}

func scanIncident(rows rowScanner) (incident.Incident, error) {
	var inc incident.Incident
	err := rows.Scan(&inc.UID, &inc.OriginDate, &inc.Phase, &inc.AircraftType,
		&inc.Location, &inc.Operator, &inc.Narrative)
	return inc, err
}

// ListIncidents returns canonical incidents under f, newest first.
func (c core) ListIncidents(ctx context.Context, f query.Filter, page *query.Page) ([]incident.Incident, error) {
	out := []incident.Incident{}
	err := c.run(ctx, c.b.Incidents(f, page), func(rows rowScanner) error {
		for rows.Next() {
			inc, err := scanIncident(rows)
			if err != nil {
				return err
			}
			out = append(out, inc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}

// GetRecord returns the normalized record for uid from the table its
// prefix names. An unknown prefix fails with incident.ErrInvalidUID; a
// missing record returns nil, nil.
func (c core) GetRecord(ctx context.Context, uid string) (*incident.Incident, error) {
	src, err := c.reg.Resolve(uid)
	if err != nil {
		return nil, err
	}

	var found *incident.Incident
	err = c.run(ctx, c.b.Record(src, uid), func(rows rowScanner) error {
		if !rows.Next() {
			return nil
		}
		inc, err := scanIncident(rows)
		if err != nil {
			return err
		}
		found = &inc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", uid, err)
	}
	return found, nil
}

// classificationColumns is the select list for classification_results
// aliased as c.
func (c core) classificationColumns() string {
	return "c.id, c.source_uid, " +
		"c.classifier1_category, c.classifier1_confidence, c.classifier1_reasoning, " +
		"c.classifier2_category, c.classifier2_confidence, c.classifier2_reasoning, " +
		"c.classifier3_category, c.classifier3_confidence, c.classifier3_reasoning, " +
		"c.final_category, c.final_confidence, c.processing_time_ms, " +
		c.d.TimestampText("c.processed_at")
}

func classificationDest(cr *incident.ClassificationResult) []any {
	return []any{
		&cr.ID, &cr.SourceUID,
		&cr.Classifier1Category, &cr.Classifier1Confidence, &cr.Classifier1Reasoning,
		&cr.Classifier2Category, &cr.Classifier2Confidence, &cr.Classifier2Reasoning,
		&cr.Classifier3Category, &cr.Classifier3Confidence, &cr.Classifier3Reasoning,
		&cr.FinalCategory, &cr.FinalConfidence, &cr.ProcessingTimeMS, &cr.ProcessedAt,
	}
}

// ListClassificationResults pages through classification results by id.
// With an evaluator id only results that evaluator still owes are listed.
func (c core) ListClassificationResults(ctx context.Context, evaluatorID string, page query.Page) ([]incident.ClassificationResult, error) {
	sql := "SELECT " + c.classificationColumns() + " FROM classification_results c"
	var args []any
	if evaluatorID != "" {
		sql += ` WHERE EXISTS (SELECT 1 FROM evaluation_assignments a
			WHERE a.classification_result_id = c.id AND a.evaluator_id = ? AND a.is_complete = FALSE)`
		args = append(args, evaluatorID)
	}
	sql += " ORDER BY c.id LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Skip)

	out := []incident.ClassificationResult{}
	err := c.run(ctx, query.Statement{SQL: c.rebind(sql), Args: args}, func(rows rowScanner) error {
		for rows.Next() {
			var cr incident.ClassificationResult
			if err := rows.Scan(classificationDest(&cr)...); err != nil {
				return err
			}
			out = append(out, cr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list classification results: %w", err)
	}
	return out, nil
}

// ClassificationsBySourceUID returns the classification for each uid that
// has one, keyed by uid.
func (c core) ClassificationsBySourceUID(ctx context.Context, uids []string) (map[string]incident.ClassificationResult, error) {
	out := make(map[string]incident.ClassificationResult)
	if len(uids) == 0 {
		return out, nil
	}

	sql := "SELECT " + c.classificationColumns() +
		" FROM classification_results c WHERE c.source_uid IN (" + marks(len(uids)) + ") ORDER BY c.id"
	err := c.run(ctx, query.Statement{SQL: c.rebind(sql), Args: stringArgs(uids)}, func(rows rowScanner) error {
		for rows.Next() {
			var cr incident.ClassificationResult
			if err := rows.Scan(classificationDest(&cr)...); err != nil {
				return err
			}
			// First classification per uid wins.
			if _, seen := out[cr.SourceUID]; !seen {
				out[cr.SourceUID] = cr
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("classifications by source uid: %w", err)
	}
	return out, nil
}

// ListClassifiedIncidents returns the most recently processed
// classifications joined to their origin incidents.
func (c core) ListClassifiedIncidents(ctx context.Context, page query.Page) ([]ClassifiedIncident, error) {
	sql := "WITH all_incidents AS (\n" + c.b.Union() + "\n)\n" +
		"SELECT " + c.classificationColumns() + ", " +
		"i.uid, " + c.d.DateText("i.origin_date") + ", i.phase, i.aircraft_type, i.location, i.operator, i.narrative " +
		"FROM classification_results c JOIN all_incidents i ON i.uid = c.source_uid " +
		"ORDER BY CASE WHEN c.processed_at IS NULL THEN 1 ELSE 0 END, c.processed_at DESC, c.id DESC " +
		"LIMIT ? OFFSET ?"

	out := []ClassifiedIncident{}
	stmt := query.Statement{SQL: c.rebind(sql), Args: []any{page.Limit, page.Skip}}
	err := c.run(ctx, stmt, func(rows rowScanner) error {
		for rows.Next() {
			var cr incident.ClassificationResult
			var inc incident.Incident
			dest := append(classificationDest(&cr),
				&inc.UID, &inc.OriginDate, &inc.Phase, &inc.AircraftType,
				&inc.Location, &inc.Operator, &inc.Narrative)
			if err := rows.Scan(dest...); err != nil {
				return err
			}
			out = append(out, ClassifiedIncident{
				JoinedRecord: incident.Join(&cr, &inc),
				Severity:     aggregate.DeriveSeverity(cr.FinalCategory),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list classified incidents: %w", err)
	}
	return out, nil
}

// GetAirports looks codes up case-insensitively. The result is keyed by
// lower-cased ICAO code; unknown codes are absent.
func (c core) GetAirports(ctx context.Context, codes []string) (map[string]incident.Airport, error) {
	out := make(map[string]incident.Airport)
	var keys []string
	seen := make(map[string]bool)
	for _, code := range codes {
		k := incident.NormaliseICAO(code)
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return out, nil
	}

	sql := "SELECT lower(icao_code), iata_code, name, city, country, lat, lon FROM airport_location " +
		"WHERE lower(icao_code) IN (" + marks(len(keys)) + ")"
	err := c.run(ctx, query.Statement{SQL: c.rebind(sql), Args: stringArgs(keys)}, func(rows rowScanner) error {
		for rows.Next() {
			var a incident.Airport
			if err := rows.Scan(&a.ICAOCode, &a.IATACode, &a.Name, &a.City, &a.Country, &a.Lat, &a.Lon); err != nil {
				return err
			}
			out[a.ICAOCode] = a
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get airports: %w", err)
	}
	return out, nil
}

// NextAssignment returns the evaluator's oldest incomplete assignment
// joined to its classification, or nil when none remain.
func (c core) NextAssignment(ctx context.Context, evaluatorID string) (*evaluation.Assignment, error) {
	sql := `SELECT a.id, a.classification_result_id, a.evaluator_id, c.source_uid
		FROM evaluation_assignments a
		LEFT JOIN classification_results c ON c.id = a.classification_result_id
		WHERE a.evaluator_id = ? AND a.is_complete = FALSE
		ORDER BY a.id LIMIT 1`

	var found *evaluation.Assignment
	stmt := query.Statement{SQL: c.rebind(sql), Args: []any{evaluatorID}}
	err := c.run(ctx, stmt, func(rows rowScanner) error {
		if !rows.Next() {
			return nil
		}
		var a evaluation.Assignment
		if err := rows.Scan(&a.ID, &a.ClassificationResultID, &a.EvaluatorID, &a.SourceUID); err != nil {
			return err
		}
		found = &a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("next assignment: %w", err)
	}
	return found, nil
}

// ImportAirports upserts airport reference rows.
func (c core) ImportAirports(ctx context.Context, airports []incident.Airport) (int64, error) {
	sql := c.rebind(`INSERT INTO airport_location (icao_code, iata_code, name, city, country, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (icao_code) DO UPDATE SET
			iata_code = excluded.iata_code,
			name = excluded.name,
			city = excluded.city,
			country = excluded.country,
			lat = excluded.lat,
			lon = excluded.lon`)

	var total int64
	for _, a := range airports {
		code := incident.NormaliseICAO(a.ICAOCode)
		if code == "" {
			continue
		}
		n, err := c.exec(ctx, sql, code, a.IATACode, a.Name, a.City, a.Country, a.Lat, a.Lon)
		if err != nil {
			return total, fmt.Errorf("import airport %s: %w", code, err)
		}
		total += n
	}
	return total, nil
}

// CreateAssignments assigns up to limit classification results the
// evaluator has never been assigned.
func (c core) CreateAssignments(ctx context.Context, evaluatorID string, limit int) (int64, error) {
	sql := c.rebind(`INSERT INTO evaluation_assignments (classification_result_id, evaluator_id, is_complete)
		SELECT c.id, ?, FALSE FROM classification_results c
		WHERE NOT EXISTS (
			SELECT 1 FROM evaluation_assignments a
			WHERE a.classification_result_id = c.id AND a.evaluator_id = ?
		)
		ORDER BY c.id
		LIMIT ?`)

	n, err := c.exec(ctx, sql, evaluatorID, evaluatorID, limit)
	if err != nil {
		return 0, fmt.Errorf("create assignments: %w", err)
	}
	return n, nil
}

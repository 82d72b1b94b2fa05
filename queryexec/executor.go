// Package queryexec evaluates a parsed querylang.Plan against the records
// held by the storage engine: admission (measurement, WHERE, time range),
// aggregation, grouping, and pagination, in that order. Grounded on the
// original source's LSMDataHandler: matches_query, apply_aggregations,
// apply_grouping, and apply_pagination, reworked from dict-of-dicts Python
// into typed Go over lineproto.Record.
package queryexec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"stratadb/lineproto"
	"stratadb/memtable"
	"stratadb/querylang"
)

// Row is a single result row: either a raw record's fields/tags plus its
// timestamp and measurement, or one group's aggregate columns.
type Row map[string]any

// Result is the outcome of a query. Per §6, a normal or grouped query
// serializes as a bare JSON array of rows, while a pure aggregate query (no
// GROUP BY) serializes as a single bare JSON object — there is exactly one
// row and no array wrapper around it.
type Result struct {
	Rows         []Row
	SingleObject bool
}

// JSON returns the value to hand to json.Marshal/json.Encoder for this
// result: a bare object for a pure aggregate, a bare array otherwise.
func (res *Result) JSON() any {
	if res.SingleObject && len(res.Rows) == 1 {
		return res.Rows[0]
	}
	return res.Rows
}

// Execute runs plan over entries, which must be opaque storage values
// produced by lineproto.Record.Serialize (the shape the LSM tree's Scan
// returns). Entries that fail to deserialize are skipped rather than
// failing the whole query, since a single corrupt record must not take
// down an otherwise-valid scan.
func Execute(plan *querylang.Plan, entries []memtable.Entry) (*Result, error) {
	var matched []*lineproto.Record
	for _, e := range entries {
		rec, err := lineproto.Deserialize(e.Value)
		if err != nil {
			continue
		}
		if admits(plan, rec) {
			matched = append(matched, rec)
		}
	}

	aggs, rawFields, isAgg := splitSelect(plan.Select)

	var rows []Row
	if isAgg || len(plan.GroupBy) > 0 {
		rows = aggregate(matched, plan.GroupBy, aggs)
	} else {
		rows = project(matched, rawFields)
	}

	pureAggregate := isAgg && len(plan.GroupBy) == 0

	rows = paginate(rows, plan.Offset, plan.Limit)
	return &Result{Rows: rows, SingleObject: pureAggregate}, nil
}

// admits reports whether rec passes plan's FROM, WHERE, and TIME RANGE
// filters. A WHERE key absent from both a record's tags and its fields
// fails the match, rather than being treated as vacuously true.
func admits(plan *querylang.Plan, rec *lineproto.Record) bool {
	if rec.Measurement != plan.From {
		return false
	}

	for _, cond := range plan.Where {
		value, ok := rec.Tags[cond.Key]
		if !ok {
			value, ok = rec.Fields[cond.Key]
		}
		if !ok || value != cond.Value {
			return false
		}
	}

	if plan.TimeRange != nil {
		ts := rec.Timestamp
		if ts < plan.TimeRange.Start.UnixNano() || ts > plan.TimeRange.End.UnixNano() {
			return false
		}
	}

	return true
}

// aggSpec is a single aggregate column in the SELECT list, e.g. SUM(value).
type aggSpec struct {
	Func  string
	Field string
}

func (a aggSpec) column() string {
	return fmt.Sprintf("%s(%s)", a.Func, a.Field)
}

// splitSelect separates aggregate expressions from plain field names in the
// SELECT list. isAgg is true if any aggregate expression is present.
func splitSelect(selects []string) (aggs []aggSpec, rawFields []string, isAgg bool) {
	for _, item := range selects {
		open := strings.Index(item, "(")
		if open == -1 || !strings.HasSuffix(item, ")") {
			rawFields = append(rawFields, item)
			continue
		}
		fn := strings.ToUpper(item[:open])
		field := item[open+1 : len(item)-1]
		switch fn {
		case "COUNT", "SUM", "AVG", "MIN", "MAX":
			aggs = append(aggs, aggSpec{Func: fn, Field: field})
			isAgg = true
		default:
			rawFields = append(rawFields, item)
		}
	}
	return aggs, rawFields, isAgg
}

// project turns matched records into raw result rows, selecting only the
// requested fields (and "*" meaning everything).
func project(records []*lineproto.Record, fields []string) []Row {
	star := len(fields) == 0 || (len(fields) == 1 && fields[0] == "*")

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{
			"measurement": rec.Measurement,
			"timestamp":   rec.Timestamp,
		}
		if star {
			for k, v := range rec.Tags {
				row[k] = v
			}
			for k, v := range rec.Fields {
				row[k] = v
			}
		} else {
			for _, f := range fields {
				if v, ok := rec.Tags[f]; ok {
					row[f] = v
				} else if v, ok := rec.Fields[f]; ok {
					row[f] = v
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// groupKey joins a record's group-by tag values with a separator unlikely to
// collide with real tag values, giving each distinct tuple a stable map key.
func groupKey(rec *lineproto.Record, groupBy []string) string {
	parts := make([]string, len(groupBy))
	for i, tag := range groupBy {
		parts[i] = rec.Tags[tag]
	}
	return strings.Join(parts, "\x1f")
}

// aggregate buckets records by groupBy (a single implicit group if empty)
// and computes each aggregate column per bucket. A pure aggregate query (no
// GROUP BY) always yields exactly one row, even over zero matching records:
// the original source's apply_aggregations appends one result dict per
// select item regardless of result-set size, letting calculate_aggregation
// fall back to 0 for an empty group rather than vanishing the row entirely.
func aggregate(records []*lineproto.Record, groupBy []string, aggs []aggSpec) []Row {
	if len(groupBy) == 0 && len(aggs) > 0 && len(records) == 0 {
		row := Row{}
		for _, a := range aggs {
			row[a.column()] = computeAgg(a, nil)
		}
		return []Row{row}
	}

	buckets := make(map[string][]*lineproto.Record)
	var order []string

	for _, rec := range records {
		key := groupKey(rec, groupBy)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], rec)
	}
	sort.Strings(order)

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		group := buckets[key]
		row := Row{}
		for _, tag := range groupBy {
			row[tag] = group[0].Tags[tag]
		}
		for _, a := range aggs {
			row[a.column()] = computeAgg(a, group)
		}
		rows = append(rows, row)
	}
	return rows
}

// computeAgg evaluates a single aggregate over a group. COUNT counts matched
// records regardless of whether the named field is present; SUM/AVG/MIN/MAX
// coerce each record's field to a number, treating a missing or
// non-numeric value as 0.
func computeAgg(a aggSpec, group []*lineproto.Record) float64 {
	if a.Func == "COUNT" {
		return float64(len(group))
	}

	values := make([]float64, len(group))
	for i, rec := range group {
		values[i] = numeric(rec.Fields[a.Field])
	}

	switch a.Func {
	case "SUM":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	case "AVG":
		if len(values) == 0 {
			return 0
		}
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case "MIN":
		if len(values) == 0 {
			return 0
		}
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case "MAX":
		if len(values) == 0 {
			return 0
		}
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	}
	return 0
}

func numeric(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// paginate applies OFFSET then LIMIT, in that order, per §4.6's pagination
// law.
func paginate(rows []Row, offset, limit *int) []Row {
	if offset != nil {
		o := *offset
		if o >= len(rows) {
			return []Row{}
		}
		if o > 0 {
			rows = rows[o:]
		}
	}
	if limit != nil && *limit < len(rows) {
		if *limit < 0 {
			return []Row{}
		}
		rows = rows[:*limit]
	}
	return rows
}

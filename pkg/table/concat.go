package table

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Concat reconciles and concatenates the tables returned for a data
// fetch's sub-intervals, in order, per the value-type reconciliation rule:
// string if any table has a string value column; else int64 if every
// table's value column is integer; else float64. Empty tables (zero rows)
// are skipped - they carry no information to reconcile a type from. If
// every table is empty, the result is EmptyStandard(). If any table
// carries a quality column, every table is expected to; the output carries
// one.
func Concat(mem memory.Allocator, tables []arrow.Table) (arrow.Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var nonEmpty []arrow.Table
	for _, t := range tables {
		if t.NumRows() > 0 {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return EmptyStandard(), nil
	}

	kind, err := reconcileKind(nonEmpty)
	if err != nil {
		return nil, err
	}
	withQuality := false
	for _, t := range nonEmpty {
		if HasQuality(t) {
			withQuality = true
			break
		}
	}

	var rows []Row
	for _, t := range nonEmpty {
		tableRows, err := Rows(t)
		if err != nil {
			return nil, err
		}
		for i := range tableRows {
			tableRows[i].Value, err = cast(tableRows[i].Value, kind)
			if err != nil {
				return nil, err
			}
		}
		rows = append(rows, tableRows...)
	}

	return New(mem, kind, withQuality, rows)
}

func reconcileKind(tables []arrow.Table) (ValueKind, error) {
	hasString := false
	allInt := true
	for _, t := range tables {
		kind, ok := ValueKindOf(t)
		if !ok {
			return 0, fmt.Errorf("table: table has no %q column to reconcile", ColumnValue)
		}
		switch kind {
		case ValueString:
			hasString = true
		case ValueInt64:
		default:
			allInt = false
		}
	}
	switch {
	case hasString:
		return ValueString, nil
	case allInt:
		return ValueInt64, nil
	default:
		return ValueFloat64, nil
	}
}

func cast(v interface{}, kind ValueKind) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case ValueString:
		return toDisplayString(v), nil
	case ValueInt64:
		return toInt64(v)
	default:
		return toFloat64(v)
	}
}

// FilterRange keeps only the rows whose timestamp falls in the half-open
// interval [start, end). It is a standalone defensive tool for callers that
// distrust a particular backend's own interval enforcement; Concat itself
// never calls it; the interval-splitting scenarios concatenate each
// sub-interval's rows exactly as the adapter returned them, boundary rows
// included, since a sub-interval's own end point legitimately doubles as
// the next sub-interval's start point.
func FilterRange(rows []Row, start, end time.Time) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		ts := r.Timestamp
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

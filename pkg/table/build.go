package table

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Row is one row of a standard table, built by an adapter (or by the
// dispatcher during reconciliation) before it's turned into an Arrow table.
// Value holds an int64, float64, or string depending on the table's
// ValueKind; Quality is nil when the table carries no quality column.
type Row struct {
	Timestamp time.Time
	Value     interface{}
	Quality   *int8
}

// New builds a table of the given value kind from rows. A nil allocator
// defaults to memory.NewGoAllocator().
func New(mem memory.Allocator, kind ValueKind, withQuality bool, rows []Row) (arrow.Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema := Schema(kind, withQuality)

	tsBuilder := array.NewTimestampBuilder(mem, TimestampType)
	defer tsBuilder.Release()

	valueBuilder := newValueBuilder(mem, kind)
	defer valueBuilder.Release()

	var qualityBuilder *array.Int8Builder
	if withQuality {
		qualityBuilder = array.NewInt8Builder(mem)
		defer qualityBuilder.Release()
	}

	for i, row := range rows {
		ts, err := arrow.TimestampFromTime(row.Timestamp, arrow.Microsecond)
		if err != nil {
			return nil, fmt.Errorf("table: row %d: %w", i, err)
		}
		tsBuilder.Append(ts)

		if err := appendValue(valueBuilder, kind, row.Value); err != nil {
			return nil, fmt.Errorf("table: row %d: %w", i, err)
		}

		if withQuality {
			if row.Quality != nil {
				qualityBuilder.Append(*row.Quality)
			} else {
				qualityBuilder.AppendNull()
			}
		}
	}

	cols := []arrow.Array{tsBuilder.NewArray(), valueBuilder.NewArray()}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	if withQuality {
		qualityArr := qualityBuilder.NewArray()
		defer qualityArr.Release()
		cols = append(cols, qualityArr)
	}

	record := array.NewRecord(schema, cols, int64(len(rows)))
	defer record.Release()

	return array.NewTableFromRecords(schema, []arrow.Record{record}), nil
}

// Empty returns a zero-row table of the given value kind, no quality
// column.
func Empty(kind ValueKind) arrow.Table {
	t, _ := New(nil, kind, false, nil)
	return t
}

// EmptyStandard returns the two-column (ts, value) empty table that
// get_data(selector, t, t) and an all-empty interval split both return,
// per the dispatch contract.
func EmptyStandard() arrow.Table {
	return Empty(ValueFloat64)
}

func newValueBuilder(mem memory.Allocator, kind ValueKind) array.Builder {
	switch kind {
	case ValueInt64:
		return array.NewInt64Builder(mem)
	case ValueString:
		return array.NewStringBuilder(mem)
	default:
		return array.NewFloat64Builder(mem)
	}
}

func appendValue(b array.Builder, kind ValueKind, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch kind {
	case ValueInt64:
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		b.(*array.Int64Builder).Append(i)
	case ValueString:
		b.(*array.StringBuilder).Append(toDisplayString(v))
	default:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		b.(*array.Float64Builder).Append(f)
	}
	return nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("cannot store %T as an int64 value", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("cannot store %T as a float64 value", v)
	}
}

func toDisplayString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

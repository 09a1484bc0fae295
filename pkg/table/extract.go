package table

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Rows reads every row of t back into Go values. It's the inverse of New,
// used by the dispatcher to re-cast and concatenate sub-interval tables
// during value-type reconciliation.
func Rows(t arrow.Table) ([]Row, error) {
	tsCol, ok := findColumn(t, ColumnTimestamp)
	if !ok {
		return nil, fmt.Errorf("table: missing %q column", ColumnTimestamp)
	}
	valueCol, ok := findColumn(t, ColumnValue)
	if !ok {
		return nil, fmt.Errorf("table: missing %q column", ColumnValue)
	}
	qualityCol, hasQuality := findColumn(t, ColumnQuality)

	n := int(t.NumRows())
	rows := make([]Row, n)

	timestamps, err := extractTimestamps(tsCol)
	if err != nil {
		return nil, err
	}
	values, err := extractValues(valueCol)
	if err != nil {
		return nil, err
	}
	var qualities []*int8
	if hasQuality {
		qualities, err = extractQuality(qualityCol)
		if err != nil {
			return nil, err
		}
	}

	for i := 0; i < n; i++ {
		row := Row{Timestamp: timestamps[i], Value: values[i]}
		if hasQuality {
			row.Quality = qualities[i]
		}
		rows[i] = row
	}
	return rows, nil
}

func findColumn(t arrow.Table, name string) (*arrow.Column, bool) {
	idx := t.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, false
	}
	return t.Column(idx[0]), true
}

func extractTimestamps(col *arrow.Column) ([]time.Time, error) {
	out := make([]time.Time, 0, col.Len())
	for _, chunk := range col.Data().Chunks() {
		arr, ok := chunk.(*array.Timestamp)
		if !ok {
			return nil, fmt.Errorf("table: %q column is not a timestamp array (got %T)", ColumnTimestamp, chunk)
		}
		unit := arrow.Microsecond
		if tsType, ok := arr.DataType().(*arrow.TimestampType); ok {
			unit = tsType.Unit
		}
		for i := 0; i < arr.Len(); i++ {
			out = append(out, arr.Value(i).ToTime(unit).UTC())
		}
	}
	return out, nil
}

func extractValues(col *arrow.Column) ([]interface{}, error) {
	out := make([]interface{}, 0, col.Len())
	for _, chunk := range col.Data().Chunks() {
		switch arr := chunk.(type) {
		case *array.Int64:
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					out = append(out, nil)
					continue
				}
				out = append(out, arr.Value(i))
			}
		case *array.Int32:
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					out = append(out, nil)
					continue
				}
				out = append(out, int64(arr.Value(i)))
			}
		case *array.Float64:
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					out = append(out, nil)
					continue
				}
				out = append(out, arr.Value(i))
			}
		case *array.Float32:
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					out = append(out, nil)
					continue
				}
				out = append(out, float64(arr.Value(i)))
			}
		case *array.String:
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					out = append(out, nil)
					continue
				}
				out = append(out, arr.Value(i))
			}
		default:
			return nil, fmt.Errorf("table: unsupported value column array type %T", chunk)
		}
	}
	return out, nil
}

func extractQuality(col *arrow.Column) ([]*int8, error) {
	out := make([]*int8, 0, col.Len())
	for _, chunk := range col.Data().Chunks() {
		arr, ok := chunk.(*array.Int8)
		if !ok {
			return nil, fmt.Errorf("table: %q column is not an int8 array (got %T)", ColumnQuality, chunk)
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				out = append(out, nil)
				continue
			}
			v := arr.Value(i)
			out = append(out, &v)
		}
	}
	return out, nil
}

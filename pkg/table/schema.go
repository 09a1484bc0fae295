// Package table defines the Arrow-columnar table contract every source
// adapter returns data in, and the value-type reconciliation rule the
// dispatcher applies when concatenating the sub-interval tables a data
// fetch was split into.
package table

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Column names of the standard schema.
const (
	ColumnTimestamp = "ts"
	ColumnValue     = "value"
	ColumnQuality   = "quality"
)

// TimestampType is the wire type of the ts column: microsecond-precision,
// UTC.
var TimestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// ValueKind is the reconciled type of a table's value column.
type ValueKind int

const (
	ValueInt64 ValueKind = iota
	ValueFloat64
	ValueString
)

// ArrowType returns the Arrow data type a ValueKind is stored as.
func (k ValueKind) ArrowType() arrow.DataType {
	switch k {
	case ValueInt64:
		return arrow.PrimitiveTypes.Int64
	case ValueString:
		return arrow.BinaryTypes.String
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

func (k ValueKind) String() string {
	switch k {
	case ValueInt64:
		return "int64"
	case ValueString:
		return "string"
	default:
		return "float64"
	}
}

// Schema builds the standard table schema for the given value kind, with or
// without a quality column.
func Schema(kind ValueKind, withQuality bool) *arrow.Schema {
	fields := []arrow.Field{
		{Name: ColumnTimestamp, Type: TimestampType},
		{Name: ColumnValue, Type: kind.ArrowType()},
	}
	if withQuality {
		fields = append(fields, arrow.Field{Name: ColumnQuality, Type: arrow.PrimitiveTypes.Int8})
	}
	return arrow.NewSchema(fields, nil)
}

// HasQuality reports whether t carries a quality column.
func HasQuality(t arrow.Table) bool {
	return t.Schema().FieldIndices(ColumnQuality) != nil
}

// ValueKindOf returns the ValueKind of t's value column, and false if t has
// no value column.
func ValueKindOf(t arrow.Table) (ValueKind, bool) {
	idx := t.Schema().FieldIndices(ColumnValue)
	if len(idx) == 0 {
		return 0, false
	}
	return kindOfType(t.Schema().Field(idx[0]).Type), true
}

func kindOfType(dt arrow.DataType) ValueKind {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return ValueString
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return ValueInt64
	default:
		return ValueFloat64
	}
}

func isIntegerType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return true
	default:
		return false
	}
}

func isStringType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return true
	default:
		return false
	}
}

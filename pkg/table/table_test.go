package table

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustQuality(v int8) *int8 { return &v }

func TestEmptyStandardIsTwoColumnNoQuality(t *testing.T) {
	tbl := EmptyStandard()
	defer tbl.Release()

	assert.Equal(t, int64(0), tbl.NumRows())
	assert.False(t, HasQuality(tbl))
	kind, ok := ValueKindOf(tbl)
	require.True(t, ok)
	assert.Equal(t, ValueFloat64, kind)
}

func TestNewAndRowsRoundTrip(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		{Timestamp: base, Value: int64(1), Quality: mustQuality(1)},
		{Timestamp: base.Add(time.Minute), Value: int64(2), Quality: mustQuality(0)},
	}
	tbl, err := New(nil, ValueInt64, true, rows)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(2), tbl.NumRows())
	assert.True(t, HasQuality(tbl))

	round, err := Rows(tbl)
	require.NoError(t, err)
	require.Len(t, round, 2)
	assert.Equal(t, int64(1), round[0].Value)
	assert.Equal(t, base, round[0].Timestamp)
	assert.Equal(t, int8(1), *round[0].Quality)
}

// TestConcatIntervalSplitting mirrors spec scenario S1: each sub-interval
// returns exactly two rows, (s, 42) and (e, 24); concatenating 31 daily
// sub-intervals over a month yields 62 rows, preserving the boundary row
// at the overall end.
func TestConcatIntervalSplitting(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	var tables []arrow.Table
	s := start
	for s.Before(end) {
		e := s.Add(day)
		if e.After(end) {
			e = end
		}
		tbl, err := New(nil, ValueInt64, false, []Row{
			{Timestamp: s, Value: int64(42)},
			{Timestamp: e, Value: int64(24)},
		})
		require.NoError(t, err)
		tables = append(tables, tbl)
		s = e
	}
	defer func() {
		for _, tbl := range tables {
			tbl.Release()
		}
	}()

	result, err := Concat(nil, tables)
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, int64(62), result.NumRows())

	rows, err := Rows(result)
	require.NoError(t, err)
	assert.Equal(t, start, rows[0].Timestamp)
	assert.Equal(t, int64(42), rows[0].Value)
	assert.Equal(t, end, rows[61].Timestamp)
	assert.Equal(t, int64(24), rows[61].Value)
}

func TestConcatValueTypeReconciliation(t *testing.T) {
	newOf := func(kind ValueKind, v interface{}) arrow.Table {
		tbl, err := New(nil, kind, false, []Row{{Timestamp: time.Unix(0, 0), Value: v}})
		require.NoError(t, err)
		return tbl
	}

	a := newOf(ValueInt64, int64(1))
	defer a.Release()
	b := newOf(ValueInt64, int64(2))
	defer b.Release()
	c := newOf(ValueFloat64, 2.5)
	defer c.Release()
	d := newOf(ValueString, "A")
	defer d.Release()

	cases := []struct {
		name  string
		input []arrow.Table
		want  ValueKind
	}{
		{"all int", []arrow.Table{a, b}, ValueInt64},
		{"int and float", []arrow.Table{a, c}, ValueFloat64},
		{"int and string", []arrow.Table{a, d}, ValueString},
		{"float and string", []arrow.Table{c, d}, ValueString},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Concat(nil, tc.input)
			require.NoError(t, err)
			defer result.Release()
			kind, ok := ValueKindOf(result)
			require.True(t, ok)
			assert.Equal(t, tc.want, kind)
		})
	}
}

// TestConcatReconciliationToStringPreservesOrder mirrors spec scenario S3.
func TestConcatReconciliationToStringPreservesOrder(t *testing.T) {
	first, err := New(nil, ValueString, false, []Row{{Timestamp: time.Unix(0, 0), Value: "A"}})
	require.NoError(t, err)
	defer first.Release()
	second, err := New(nil, ValueFloat64, false, []Row{{Timestamp: time.Unix(1, 0), Value: 2.5}})
	require.NoError(t, err)
	defer second.Release()

	result, err := Concat(nil, []arrow.Table{first, second})
	require.NoError(t, err)
	defer result.Release()

	rows, err := Rows(result)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Value)
	assert.Equal(t, "2.5", rows[1].Value)
}

func TestConcatAllEmptyReturnsEmptyStandard(t *testing.T) {
	empty1 := Empty(ValueInt64)
	defer empty1.Release()
	empty2 := Empty(ValueString)
	defer empty2.Release()

	result, err := Concat(nil, []arrow.Table{empty1, empty2})
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, int64(0), result.NumRows())
	assert.False(t, HasQuality(result))
}

func TestFilterRangeHalfOpen(t *testing.T) {
	rows := []Row{
		{Timestamp: time.Unix(0, 0), Value: int64(1)},
		{Timestamp: time.Unix(5, 0), Value: int64(2)},
		{Timestamp: time.Unix(10, 0), Value: int64(3)},
	}
	filtered := FilterRange(rows, time.Unix(0, 0), time.Unix(10, 0))
	require.Len(t, filtered, 2)
	assert.Equal(t, int64(1), filtered[0].Value)
	assert.Equal(t, int64(2), filtered[1].Value)
}

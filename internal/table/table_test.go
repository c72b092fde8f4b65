package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bspub/internal/errors"
)

func grid(t *Table) [][]string {
	out := [][]string{t.Columns()}
	for _, r := range t.Records() {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = v.String()
		}
		out = append(out, row)
	}
	return out
}

func sample() *Table {
	return MustNew([]string{"Row_Def", "Col_Def", "Value"},
		[]Value{Str("53-54"), Str("Screened"), Num(20)},
		[]Value{Str("50-52"), Str("Screened"), Num(30)},
		[]Value{Str("50-52"), Str("Invited"), Num(60)},
	)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]Value
		wantErr string
	}{
		{name: "valid", columns: []string{"a", "b"}, rows: [][]Value{{Num(1), Str("x")}}},
		{name: "duplicate column", columns: []string{"a", "a"}, wantErr: "duplicate column"},
		{name: "ragged row", columns: []string{"a", "b"}, rows: [][]Value{{Num(1)}}, wantErr: "row 0 has 1 values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.columns, tt.rows)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.rows), got.Len())
		})
	}
}

func TestTable_OperationsDoNotMutate(t *testing.T) {
	src := sample()
	before := grid(src)

	_ = src.Filter(func(r Row) bool { return false })
	_ = src.WithConstant("Value", Num(0))
	_ = src.Drop("Col_Def")
	_, _ = src.SortBy("Row_Def")
	_, _ = src.GroupSum("Row_Def")
	_ = src.FillNull(Str("z"))

	if diff := cmp.Diff(before, grid(src)); diff != "" {
		t.Errorf("source table changed (-before +after):\n%s", diff)
	}
}

func TestTable_Require(t *testing.T) {
	err := sample().Require("Row_Def", "Org_Code", "Part")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "Org_Code")
	assert.Contains(t, err.Error(), "Part")
	assert.NoError(t, sample().Require("Value"))
}

func TestTable_GroupSumRejectsStrings(t *testing.T) {
	_, err := sample().GroupSum("Row_Def")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDataQuality))
	assert.Contains(t, err.Error(), "Col_Def")
}

func TestTable_GroupSumSortsKeys(t *testing.T) {
	src := MustNew([]string{"k", "v"},
		[]Value{Str("b"), Num(1)},
		[]Value{Str("a"), Num(2)},
		[]Value{Str("b"), Null()},
		[]Value{Str("b"), Num(4)},
	)
	got, err := src.GroupSum("k")
	require.NoError(t, err)

	want := [][]string{{"k", "v"}, {"a", "2"}, {"b", "5"}}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("GroupSum mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Concat(t *testing.T) {
	a := MustNew([]string{"x", "y"}, []Value{Str("1"), Num(1)})
	b := MustNew([]string{"y", "z"}, []Value{Num(2), Str("q")})

	got := Concat(a, nil, b)

	want := [][]string{{"x", "y", "z"}, {"1", "1", ""}, {"", "2", "q"}}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("Concat mismatch (-want +got):\n%s", diff)
	}
	v, ok := got.Value(1, "x")
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestTable_SortByIsStable(t *testing.T) {
	src := MustNew([]string{"k", "n"},
		[]Value{Str("b"), Num(1)},
		[]Value{Str("a"), Num(2)},
		[]Value{Str("b"), Num(3)},
		[]Value{Str("a"), Num(4)},
	)
	got, err := src.SortBy("k")
	require.NoError(t, err)

	n, _ := got.Column("n")
	assert.Equal(t, []Value{Num(2), Num(4), Num(1), Num(3)}, n)
}

func TestTable_Transpose(t *testing.T) {
	src := MustNew([]string{"Col_Def", "Grand_total"},
		[]Value{Str("Screened"), Num(50)},
		[]Value{Str("Invited"), Num(200)},
	)
	got, err := src.Transpose("Col_Def", "index")
	require.NoError(t, err)

	want := [][]string{{"index", "Screened", "Invited"}, {"Grand_total", "50", "200"}}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("Transpose mismatch (-want +got):\n%s", diff)
	}

	back, err := got.Transpose("index", "Col_Def")
	require.NoError(t, err)
	if diff := cmp.Diff(grid(src), grid(back)); diff != "" {
		t.Errorf("double transpose mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Rename(t *testing.T) {
	got, err := sample().Rename(map[string]string{"Value": "Count"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Row_Def", "Col_Def", "Count"}, got.Columns())

	_, err = sample().Rename(map[string]string{"Value": "Row_Def"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestTable_InsertColumn(t *testing.T) {
	got, err := sample().InsertColumn(1, "gap", Str(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Row_Def", "gap", "Col_Def", "Value"}, got.Columns())

	_, err = sample().InsertColumn(0, "Value", Null())
	assert.Error(t, err)
}

func TestJoins(t *testing.T) {
	left := MustNew([]string{"k", "a"},
		[]Value{Str("b"), Num(1)},
		[]Value{Str("a"), Num(2)},
	)
	right := MustNew([]string{"k", "b"},
		[]Value{Str("c"), Num(10)},
		[]Value{Str("b"), Num(20)},
	)

	t.Run("left keeps order", func(t *testing.T) {
		got, err := LeftJoin(left, right, "k")
		require.NoError(t, err)
		want := [][]string{{"k", "a", "b"}, {"b", "1", "20"}, {"a", "2", ""}}
		if diff := cmp.Diff(want, grid(got)); diff != "" {
			t.Errorf("LeftJoin mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("outer sorts keys", func(t *testing.T) {
		got, err := OuterJoin(left, right, "k")
		require.NoError(t, err)
		want := [][]string{{"k", "a", "b"}, {"a", "2", ""}, {"b", "1", "20"}, {"c", "", "10"}}
		if diff := cmp.Diff(want, grid(got)); diff != "" {
			t.Errorf("OuterJoin mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("collision", func(t *testing.T) {
		_, err := LeftJoin(left, left, "k")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})
}

func TestTable_OrderBy(t *testing.T) {
	got, err := sample().OrderBy("Col_Def", []string{"Invited", "Referred", "Screened"})
	require.NoError(t, err)
	want := [][]string{
		{"Row_Def", "Col_Def", "Value"},
		{"50-52", "Invited", "60"},
		{"", "Referred", ""},
		{"53-54", "Screened", "20"},
		{"50-52", "Screened", "30"},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("OrderBy mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_WithoutLabel(t *testing.T) {
	src := MustNew([]string{"a", "b"},
		[]Value{Str("x"), Num(1)},
		[]Value{Str("Grand_total"), Num(2)},
		[]Value{Str("y"), Num(3)},
	)
	got := src.WithoutLabel("Grand_total")
	assert.Equal(t, 2, got.Len())
}

func TestTable_Replace(t *testing.T) {
	got := sample().Replace("Row_Def", map[string]string{"50-52": "50 to 52"})
	col, _ := got.Column("Row_Def")
	assert.Equal(t, []Value{Str("53-54"), Str("50 to 52"), Str("50 to 52")}, col)
	assert.Same(t, got, got.Replace("Missing", map[string]string{"a": "b"}))
}

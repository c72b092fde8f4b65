package years

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bspub/internal/errors"
)

func TestRange(t *testing.T) {
	tests := []struct {
		name    string
		end     string
		span    int
		want    []string
		wantErr bool
	}{
		{name: "two years", end: "2020-21", span: 2, want: []string{"2019-20", "2020-21"}},
		{name: "single year", end: "2021-22", span: 1, want: []string{"2021-22"}},
		{name: "crosses decade", end: "2010-11", span: 3, want: []string{"2008-09", "2009-10", "2010-11"}},
		{name: "crosses century", end: "2000-01", span: 2, want: []string{"1999-00", "2000-01"}},
		{name: "zero span", end: "2021-22", span: 0, wantErr: true},
		{name: "bad label", end: "2021/22", span: 1, wantErr: true},
		{name: "mismatched halves", end: "2021-23", span: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Range(tt.end, tt.span)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBounds(t *testing.T) {
	start, end, err := Bounds("2019-20")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, time.April, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2020, time.March, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestPrevious(t *testing.T) {
	got, err := Previous("2021-22")
	require.NoError(t, err)
	assert.Equal(t, "2020-21", got)
}

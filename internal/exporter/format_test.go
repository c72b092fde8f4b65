package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bspub/internal/table"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    table.Value
		expected string
	}{
		{name: "whole number", input: table.Num(123), expected: "123"},
		{name: "negative decimal", input: table.Num(-789.125), expected: "-789.125"},
		{name: "small decimal", input: table.Num(0.001234), expected: "0.001234"},
		{name: "label", input: table.Str("Grand_total"), expected: "Grand_total"},
		{name: "null", input: table.Null(), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.input))
		})
	}
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 4.5, cellValue(table.Num(4.5)))
	assert.Equal(t, "z", cellValue(table.Str("z")))
	assert.Nil(t, cellValue(table.Null()))
	assert.Equal(t, []interface{}{1.0, "a", nil}, rowValues([]table.Value{table.Num(1), table.Str("a"), table.Null()}))
}

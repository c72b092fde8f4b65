// Package years resolves financial-year labels of the form "2021-22".
package years

import (
	"fmt"
	"strconv"
	"time"

	apperrors "bspub/internal/errors"
)

// Parse returns the calendar year in which the financial year starts.
func Parse(label string) (int, error) {
	if len(label) != 7 || label[4] != '-' {
		return 0, apperrors.NewInvalidValueError("year", label, []string{"YYYY-YY"})
	}
	start, err := strconv.Atoi(label[:4])
	if err != nil {
		return 0, apperrors.NewInvalidValueError("year", label, []string{"YYYY-YY"})
	}
	end, err := strconv.Atoi(label[5:])
	if err != nil || end != (start+1)%100 {
		return 0, apperrors.NewInvalidValueError("year", label, []string{"YYYY-YY"})
	}
	return start, nil
}

// Label formats the financial year starting in the given calendar year.
func Label(start int) string {
	return fmt.Sprintf("%04d-%02d", start, (start+1)%100)
}

// Range returns span financial-year labels ending at end, oldest first.
func Range(end string, span int) ([]string, error) {
	start, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if span < 1 {
		return nil, apperrors.NewConfigError(fmt.Sprintf("year span must be at least 1, got %d", span), nil)
	}
	out := make([]string, span)
	for i := 0; i < span; i++ {
		out[span-1-i] = Label(start - i)
	}
	return out, nil
}

// Bounds returns the first and last day of the financial year: 1 April to
// 31 March of the following calendar year.
func Bounds(label string) (time.Time, time.Time, error) {
	start, err := Parse(label)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return time.Date(start, time.April, 1, 0, 0, 0, 0, time.UTC),
		time.Date(start+1, time.March, 31, 0, 0, 0, 0, time.UTC), nil
}

// Previous returns the label of the preceding financial year.
func Previous(label string) (string, error) {
	start, err := Parse(label)
	if err != nil {
		return "", err
	}
	return Label(start - 1), nil
}

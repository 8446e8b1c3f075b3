package invoice

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidDateFormat is returned by NormalizeDate for unsupported shapes.
var ErrInvalidDateFormat = errors.New("invalid date format")

var (
	dayMonthYearRe = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
	isoDateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// month-name layouts, long first
var monthNameLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
}

// NormalizeDate converts DD.MM.YYYY and English month-name dates to
// YYYY-MM-DD. ISO dates pass through unchanged, as does empty input.
// DD.MM.YYYY is reordered without a calendar check.
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw, nil
	}
	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil {
		return m[3] + "-" + m[2] + "-" + m[1], nil
	}
	if isoDateRe.MatchString(s) {
		return s, nil
	}
	for _, layout := range monthNameLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected DD.MM.YYYY, YYYY-MM-DD or a month-name date)", ErrInvalidDateFormat, raw)
}

// IsDayMonthYear reports whether s has the DD.MM.YYYY shape.
func IsDayMonthYear(s string) bool {
	return dayMonthYearRe.MatchString(strings.TrimSpace(s))
}

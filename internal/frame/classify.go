package frame

// classify.go turns raw CSV headers into normalized column names.
//
// Rules are checked with early-return guards, first match wins:
//
//  1. Date-like: three /-separated numeric fields (3/21/20), parsed as
//     month/day/year and re-rendered through the configured date key
//     layout, lowercased. Values in these columns are cast to int64.
//  2. Compound: exactly one slash (Province/State), both sides joined
//     with an underscore.
//  3. Numeric-year: leading digits (1960 [YR1960]) become y_<digits>.
//  4. Plain: lowercased, spaces collapsed to underscores.

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultDateKey is the render layout for date-like headers. It is a Go
// reference-time layout; 3/21/20 becomes d_20200321.
const DefaultDateKey = "d_20060102"

// Header date layouts split by year width. Two-digit years resolve to
// 2000-2068 for 00-68, so 12/31/19 is 2019, never 1919.
var (
	twoDigitYearLayouts  = []string{"1/2/06"}
	fourDigitYearLayouts = []string{"1/2/2006"}
)

// yearPrefixRegex captures the leading digit run of a numeric-year
// header such as "1960 [YR1960]".
var yearPrefixRegex = regexp.MustCompile(`^[0-9]+`)

// Classify normalizes a single header. dateKey is the output layout for
// date-like headers; pass "" for DefaultDateKey.
//
// An empty header is malformed and a numeric header that is not a real
// calendar date is a date parse failure. Both abort classification, no
// sentinel names are produced.
func Classify(header, dateKey string) (Classification, error) {
	h := strings.TrimSpace(header)
	if h == "" {
		return Classification{}, fmt.Errorf("%w: header %q is empty after trimming", ErrMalformedHeader, header)
	}
	if dateKey == "" {
		dateKey = DefaultDateKey
	}

	if isDateHeader(h) {
		t, err := parseHeaderDate(h)
		if err != nil {
			return Classification{}, err
		}
		return Classification{
			Kind:    KindDate,
			Name:    strings.ToLower(t.Format(dateKey)),
			CastInt: true,
		}, nil
	}

	if left, right, ok := splitCompound(h); ok {
		return Classification{
			Kind: KindCompound,
			Name: wordify(left) + "_" + wordify(right),
		}, nil
	}

	if digits := yearPrefixRegex.FindString(h); digits != "" {
		return Classification{
			Kind: KindYear,
			Name: "y_" + digits,
		}, nil
	}

	return Classification{Kind: KindPlain, Name: wordify(h)}, nil
}

// isDateHeader reports whether the header is three /-separated fields
// of digits only. Whether those digits form a real date is decided by
// parseHeaderDate.
func isDateHeader(h string) bool {
	parts := strings.Split(h, "/")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || !allDigits(p) {
			return false
		}
	}
	return true
}

// parseHeaderDate parses a date-like header as month/day/year.
func parseHeaderDate(h string) (time.Time, error) {
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, h); err == nil {
			return t, nil
		}
	}
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, h); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: header %q is not a valid month/day/year date", ErrDateParse, h)
}

// splitCompound splits a header with exactly one slash into its two
// parts. Headers with zero or multiple slashes, or an empty side, are
// not compound and fall through to the remaining rules.
func splitCompound(h string) (left, right string, ok bool) {
	parts := strings.Split(h, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	left = strings.TrimSpace(parts[0])
	right = strings.TrimSpace(parts[1])
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

// wordify lowercases a header fragment and collapses internal
// whitespace runs to single underscores.
func wordify(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

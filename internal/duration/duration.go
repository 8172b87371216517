// Package duration parses human friendly durations such as "30s", "15min",
// "2d" or "1w 6h". Units beyond hours (days, weeks, months, years) are not
// covered by time.ParseDuration, yet are the common case when selecting
// stored files by age.
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Conventional civil durations: a month is 30.44 days, a year 365.25 days.
const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 2630016 * time.Second
	year  = 31557600 * time.Second
)

var units = map[string]time.Duration{
	"s":       time.Second,
	"sec":     time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"m":       time.Minute,
	"min":     time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       day,
	"day":     day,
	"days":    day,
	"w":       week,
	"week":    week,
	"weeks":   week,
	"M":       month,
	"month":   month,
	"months":  month,
	"y":       year,
	"year":    year,
	"years":   year,
}

// Parse converts a human readable duration into a time.Duration.
//
// Multiple value/unit pairs accumulate: "1d 12h" is 36 hours. A bare number
// is rejected: every value needs a unit.
func Parse(in string) (time.Duration, error) {
	s := strings.TrimSpace(in)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var total time.Duration
	for len(s) > 0 {
		s = strings.TrimLeft(s, " \t")
		i := 0
		for i < len(s) && (unicode.IsDigit(rune(s[i])) || s[i] == '.') {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("expected a number in duration %q", in)
		}
		value, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration %q: %v", in, err)
		}
		s = s[i:]

		j := 0
		for j < len(s) && unicode.IsLetter(rune(s[j])) {
			j++
		}
		if j == 0 {
			return 0, fmt.Errorf("missing unit in duration %q", in)
		}
		unit, ok := units[s[:j]]
		if !ok {
			return 0, fmt.Errorf("unknown unit %q in duration %q", s[:j], in)
		}
		s = s[j:]

		total += time.Duration(value * float64(unit))
	}
	return total, nil
}

// Package pace converts between "m:ss" / "h:mm:ss" strings and seconds.
package pace

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MilesPer5K is the distance of a 5K in miles.
const MilesPer5K = 3.10686

var ErrInvalidPace = errors.New("invalid pace or time string")

// ParseSeconds parses "m:ss" or "h:mm:ss" into seconds.
func ParseSeconds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPace
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPace, s)
	}
	total := 0.0
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPace, s)
		}
		// everything after the leading field is base 60
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPace, s)
		}
		total = total*60 + v
	}
	return total, nil
}

// Format renders seconds as "m:ss", rounding to the nearest second.
func Format(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatRange renders a pace band, fastest first ("8:30-9:00").
func FormatRange(fast, slow float64) string {
	return Format(fast) + "-" + Format(slow)
}

// FromDuration derives a per-mile pace from minutes and miles.
func FromDuration(minutes, miles float64) (float64, bool) {
	if miles <= 0 || minutes <= 0 {
		return 0, false
	}
	return minutes * 60 / miles, true
}

package data

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the textual form of Date values.
const DateLayout = "2006-01-02"

// FormatTimeOfDay renders a Time value as HH:MM:SS with an optional fractional
// part. Negative durations get a leading minus sign; hours may exceed 23.
func FormatTimeOfDay(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	out := fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
	if d > 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", int64(d)), "0")
		out += "." + frac
	}
	return out
}

// ParseTimeOfDay parses the output of FormatTimeOfDay.
func ParseTimeOfDay(s string) (time.Duration, error) {
	orig := s
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s, frac = s[:i], s[i+1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", orig)
	}
	var fields [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 || (i > 0 && n > 59) {
			return 0, fmt.Errorf("invalid time of day %q", orig)
		}
		fields[i] = n
	}
	d := time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute + time.Duration(fields[2])*time.Second
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day %q", orig)
		}
		d += time.Duration(n)
	}
	if neg {
		d = -d
	}
	return d, nil
}

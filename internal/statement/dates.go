package statement

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDate resolves the date forms bank exports actually use: D/M/YY,
// DD-MM-YYYY and YYYY-MM-DD. Slash and dash separators are interchangeable.
//
// Two-digit day/month pairs are ambiguous between day-first and month-first.
// When the first token exceeds 12 the form is unambiguously day-first;
// otherwise day-first is assumed as a fixed policy. The statements this was
// built for are Indian bank exports, which are day-first without exception,
// so no locale auto-detection is attempted.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	sep := "/"
	if strings.Contains(s, "-") && !strings.Contains(s, "/") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: want 3 parts, got %d", s, len(parts))
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: non-numeric part %q", s, p)
		}
		nums[i] = n
	}

	var year, month, day int
	if len(parts[0]) == 4 {
		// ISO: YYYY-MM-DD
		year, month, day = nums[0], nums[1], nums[2]
	} else {
		// Day-first: D/M/Y
		day, month, year = nums[0], nums[1], nums[2]
		if year < 100 {
			year += 2000
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date %q: out of range", s)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. 31/2 becomes 2/3 or 3/3); reject
	// anything that did not round-trip.
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, fmt.Errorf("date %q: no such calendar day", s)
	}
	return t, nil
}

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/simulative/grade-ingestion-service/internal/storage"
)

// parseDate parses a YYYY-MM-DD flag value as a UTC day.
func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}
	d, err := time.Parse(storage.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s %q: date must be YYYY-MM-DD", name, value)
	}
	return d, nil
}

// parseRange returns the window sent to the statistics API: the start of
// the start day up to the last microsecond of the end day.
func parseRange(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := parseDate("start", startValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("end", endValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", startValue, endValue)
	}
	return start, end.Add(24*time.Hour - time.Microsecond), nil
}

const (
	targetSheet = "sheet"
	targetMail  = "mail"
)

// parseTargets validates --to values, dropping duplicates and keeping order.
func parseTargets(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("--to requires at least one of %s, %s", targetSheet, targetMail)
	}
	seen := make(map[string]bool, len(values))
	var targets []string
	for _, v := range values {
		t := strings.ToLower(strings.TrimSpace(v))
		if t != targetSheet && t != targetMail {
			return nil, fmt.Errorf("unknown report target %q", v)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}
	return targets, nil
}

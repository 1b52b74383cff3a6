package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var legacyDuration = regexp.MustCompile(`^(\d+)h(\d{1,2})$`)

// ParseDuration accepts Go duration strings ("2h30m", "90m") and the legacy "2h30" form.
// The result must be positive and a whole number of minutes.
func ParseDuration(raw string) (time.Duration, error) {
	value := strings.TrimSpace(strings.ToLower(raw))
	if value == "" {
		return 0, fmt.Errorf("duration is required")
	}
	if m := legacyDuration.FindStringSubmatch(value); m != nil {
		value = m[1] + "h" + m[2] + "m"
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	if d%time.Minute != 0 {
		return 0, fmt.Errorf("duration must be a whole number of minutes")
	}
	return d, nil
}

// Package report turns the daily aggregate counts into the payloads sent
// to the spreadsheet and by email.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/simulative/grade-ingestion-service/internal/models"
)

// Subject is the subject line of report emails.
const Subject = "Students grade report"

const (
	labelUniqueUsers = "Unique users"
	labelAttempts    = "Attempts made"
	labelSubmits     = "Successful attempts"
)

// ErrInvalidAddress is returned for a recipient that fails validation.
var ErrInvalidAddress = errors.New("invalid email address")

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Rows returns the two-column sheet payload: unique users, attempts and
// submits, one per row.
func Rows(s models.Summary) [][]interface{} {
	return [][]interface{}{
		{labelUniqueUsers, s.UniqueUsers},
		{labelAttempts, s.Attempts},
		{labelSubmits, s.Submits},
	}
}

// Text returns the plain-text email body.
func Text(s models.Summary) string {
	var b strings.Builder
	if !s.Date.IsZero() {
		fmt.Fprintf(&b, "Report for %s\n", s.Date.Format("2006-01-02"))
	}
	for _, row := range Rows(s) {
		fmt.Fprintf(&b, "%s: %d\n", row[0], row[1])
	}
	return b.String()
}

// ValidateAddress checks a recipient address.
func ValidateAddress(addr string) error {
	if !addressPattern.MatchString(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}

// Package expiry derives expiry tiers from calendar dates.
package expiry

import (
	"fmt"
	"strings"

	"github.com/rxdesk/pharmacy-backend/pkg/dates"
)

// Status is an expiry tier
type Status string

const (
	StatusExpired  Status = "EXPIRED"
	StatusCritical Status = "CRITICAL"
	StatusWarning  Status = "WARNING"
	StatusAlert    Status = "ALERT"
	StatusNormal   Status = "NORMAL"
)

// Tier upper bounds in days, inclusive
const (
	CriticalDays = 30
	WarningDays  = 60
	AlertDays    = 90
)

// DaysToExpiry is the signed day count from today to expiry.
// Zero means the stock expires today; negative means it already has.
func DaysToExpiry(expiryDate, today dates.Date) int {
	return today.DaysUntil(expiryDate)
}

// StatusFor maps a day count onto its tier
func StatusFor(days int) Status {
	switch {
	case days <= 0:
		return StatusExpired
	case days <= CriticalDays:
		return StatusCritical
	case days <= WarningDays:
		return StatusWarning
	case days <= AlertDays:
		return StatusAlert
	default:
		return StatusNormal
	}
}

// Classify returns the day count and tier for an expiry date
func Classify(expiryDate, today dates.Date) (int, Status) {
	days := DaysToExpiry(expiryDate, today)
	return days, StatusFor(days)
}

// Describe renders a day count the way the dashboard shows it
func Describe(days int) string {
	switch {
	case days == 0:
		return "Expires today"
	case days == 1:
		return "Expires in 1 day"
	case days > 1:
		return fmt.Sprintf("Expires in %d days", days)
	case days == -1:
		return "Expired 1 day ago"
	default:
		return fmt.Sprintf("Expired %d days ago", -days)
	}
}

// ParseStatus reads a tier name case-insensitively
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusExpired, StatusCritical, StatusWarning, StatusAlert, StatusNormal:
		return st, true
	default:
		return "", false
	}
}

// Window returns the expiry dates that fall into the tier as the half open
// interval (after, through]. A nil bound is unbounded.
func (s Status) Window(today dates.Date) (after, through *dates.Date) {
	bound := func(days int) *dates.Date {
		d := today.AddDays(days)
		return &d
	}

	switch s {
	case StatusExpired:
		return nil, bound(0)
	case StatusCritical:
		return bound(0), bound(CriticalDays)
	case StatusWarning:
		return bound(CriticalDays), bound(WarningDays)
	case StatusAlert:
		return bound(WarningDays), bound(AlertDays)
	case StatusNormal:
		return bound(AlertDays), nil
	default:
		return nil, nil
	}
}

// IsAlerting reports whether the tier warrants an expiry alert row
func (s Status) IsAlerting() bool {
	return s != StatusNormal && s != ""
}

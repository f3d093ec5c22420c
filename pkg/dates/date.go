// Package dates provides a calendar date without a time of day.
//
// Expiry and purchase dates are stored in Postgres DATE columns and travel
// as "YYYY-MM-DD" in JSON. Date keeps them at UTC midnight so day
// arithmetic never crosses a DST boundary.
package dates

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// Layout is the wire and storage format of a Date
const Layout = "2006-01-02"

var yearMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Date is a calendar day stored as UTC midnight
type Date struct {
	time.Time
}

// New returns the date for year, month, day
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime drops the time of day of t, keeping the calendar day of t's location
func FromTime(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Today returns the current UTC calendar day
func Today() Date {
	return FromTime(time.Now().UTC())
}

// Parse reads "YYYY-MM-DD". A full RFC 3339 timestamp is accepted and
// truncated to its date part.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(Layout) && s[len(Layout)] == 'T' {
		s = s[:len(Layout)]
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// ParseExpiry reads an expiry date as printed on packs. "YYYY-MM" means the
// last day of that month; anything else must be a full date.
func ParseExpiry(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if yearMonth.MatchString(s) {
		t, err := time.Parse("2006-01", s)
		if err != nil {
			return Date{}, fmt.Errorf("invalid expiry month %q", s)
		}
		return FromTime(now.With(t).EndOfMonth()), nil
	}
	return Parse(s)
}

// AddDays returns d shifted by n calendar days
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// StartOfMonth returns the first day of d's month
func (d Date) StartOfMonth() Date {
	return FromTime(now.With(d.Time).BeginningOfMonth())
}

// DaysUntil returns the signed number of days from d to other
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// Before reports whether d is strictly before other
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether d and other are the same day
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(Layout)
}

// MarshalJSON writes "YYYY-MM-DD", or null for the zero date
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON reads "YYYY-MM-DD" or a "YYYY-MM" expiry month
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	parsed, err := ParseExpiry(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into dates.Date", src)
	}
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

package center

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day (no time-of-day, always UTC)
// =============================================================================

// Date is a calendar day. Registrations and payments only care about days,
// so every Date is normalized to UTC midnight.
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate accepts "YYYY-MM-DD" and full RFC 3339 timestamps.
// The field name is carried into the returned InvalidDateError.
func ParseDate(field, value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, &InvalidDateError{Field: field, Value: value}
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return DateOf(t), nil
	}
	return Date{}, &InvalidDateError{Field: field, Value: value}
}

// AddDays is plain calendar arithmetic; weekends and holidays count.
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) IsZero() bool       { return d.Time.IsZero() }
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }
func (d Date) String() string     { return d.Time.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate("date", s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

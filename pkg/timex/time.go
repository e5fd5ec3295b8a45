// Package timex provides a time.Time wrapper that serializes as RFC 3339
// with millisecond precision in JSON and stores as datetime in the
// database.
package timex

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// layout matches JavaScript's toISOString millisecond format, which is
// the resolution the sync protocol compares timestamps at.
const layout = "2006-01-02T15:04:05.000Z07:00"

type Time time.Time

// Now returns the current time truncated to millisecond precision, so a
// stamped value survives a JSON round trip unchanged.
func Now() Time {
	return Time(time.Now().UTC().Truncate(time.Millisecond))
}

// NowAfter returns the current time, bumped one millisecond past prev
// when the clock has not moved beyond it. Timestamps stamped against the
// same record therefore strictly advance.
func NowAfter(prev Time) Time {
	now := Now()
	if !now.After(prev) {
		return Time(time.Time(prev).Add(time.Millisecond))
	}
	return now
}

func (t Time) Time() time.Time {
	return time.Time(t)
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Time) After(u Time) bool {
	return time.Time(t).After(time.Time(u))
}

func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}

func (t Time) Format(layout string) string {
	return time.Time(t).Format(layout)
}

func (t Time) String() string {
	return time.Time(t).Format(layout)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(layout) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = Time{}
		return nil
	}
	// RFC 3339 with or without a fractional second.
	parsed, err := time.Parse(`"`+time.RFC3339+`"`, s)
	if err != nil {
		return err
	}
	*t = Time(parsed)
	return nil
}

// Value implements driver.Valuer for GORM.
func (t Time) Value() (driver.Value, error) {
	if time.Time(t).IsZero() {
		return nil, nil
	}
	return time.Time(t), nil
}

// Scan implements sql.Scanner for GORM.
func (t *Time) Scan(v any) error {
	switch value := v.(type) {
	case time.Time:
		*t = Time(value)
		return nil
	case string:
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			// sqlite stores datetime without zone in some configurations
			parsed, err = time.Parse("2006-01-02 15:04:05", value)
			if err != nil {
				return err
			}
		}
		*t = Time(parsed)
		return nil
	case nil:
		*t = Time{}
		return nil
	default:
		return fmt.Errorf("timex: cannot scan %T into Time", v)
	}
}

// Parse parses an RFC 3339 timestamp, fractional seconds optional.
func Parse(s string) (Time, error) {
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Time{}, err
	}
	return Time(parsed), nil
}

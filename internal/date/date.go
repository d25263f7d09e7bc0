package date

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Layout is the ISO-8601 format used to read and write dates.
const Layout = "2006-01-02"

// Date is a calendar day without time component. The zero value means "unset".
type Date struct {
	y int
	m time.Month
	d int
}

// time returns the canonical representation of the day (midnight UTC).
// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// New returns a normalized Date, 2024-02-30 becomes 2024-03-01.
func New(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{t.Year(), t.Month(), t.Day()}
}

// Clamped returns the date, moving day overflow back to the last day of the month
// instead of normalizing into the next one.
func Clamped(year int, month time.Month, day int) Date {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return New(year, month, day)
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Today returns the current local date.
func Today() Date { return New(time.Now().Date()) }

func (d Date) Year() int          { return d.y }
func (d Date) Month() time.Month  { return d.m }
func (d Date) Day() int           { return d.d }
func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) Before(x Date) bool { return d.Time().Before(x.Time()) }
func (d Date) After(x Date) bool  { return d.Time().After(x.Time()) }

// Compare returns -1, 0 or +1, usable with slices.SortFunc.
func (d Date) Compare(x Date) int { return d.Time().Compare(x.Time()) }

// Add returns the date i days later.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// AddMonths shifts the date by n months. The day is clamped to the end of the
// target month, so 2024-01-31 plus one month is 2024-02-29.
func (d Date) AddMonths(n int) Date {
	first := New(d.y, d.m+time.Month(n), 1)
	return Clamped(first.y, first.m, d.d)
}

// Sub returns the number of days between x and d (d - x).
func (d Date) Sub(x Date) int {
	return int(d.Time().Sub(x.Time()).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(Layout)
}

// Parse reads an ISO date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", s, Layout, err)
	}
	return New(t.Date()), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText lets dates be read from environment variables.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML accepts both quoted and bare (timestamp-tagged) dates.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" || node.Value == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

var _ json.Marshaler = Date{}
var _ json.Unmarshaler = (*Date)(nil)
var _ yaml.Unmarshaler = (*Date)(nil)
var _ encoding.TextMarshaler = Date{}
var _ encoding.TextUnmarshaler = (*Date)(nil)

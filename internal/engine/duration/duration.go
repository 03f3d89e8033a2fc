// Package duration turns paired date/time fields into instants and elapsed hours.
package duration

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultLayout joins a YYYY-MM-DD date and an HH:MM time.
const DefaultLayout = "2006-01-02 15:04"

// ErrMalformedTemporalInput matches every MalformedInputError.
var ErrMalformedTemporalInput = errors.New("malformed temporal input")

// MalformedInputError reports a date/time pair that does not parse.
type MalformedInputError struct {
	Field  string // "start" or "end"
	Value  string // the joined date and time
	Layout string
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s: %s %q does not match layout %q", ErrMalformedTemporalInput, e.Field, e.Value, e.Layout)
}

func (e *MalformedInputError) Unwrap() []error {
	return []error{ErrMalformedTemporalInput, e.Err}
}

// Span is the result of a duration computation.
type Span struct {
	Start time.Time
	End   time.Time
	Hours float64
}

// Computer parses date/time pairs with a single layout.
// The zero value uses DefaultLayout.
type Computer struct {
	Layout string
}

// New creates a Computer. An empty layout means DefaultLayout.
func New(layout string) Computer {
	return Computer{Layout: layout}
}

func (c Computer) layout() string {
	if c.Layout == "" {
		return DefaultLayout
	}
	return c.Layout
}

// Compute combines the date and time fields into start and end instants and
// returns the absolute elapsed hours between them. End-before-start entries
// yield a positive duration. Instants are naive: no zone or DST adjustment.
func (c Computer) Compute(startDate, startTime, endDate, endTime string) (Span, error) {
	start, err := c.Instant(startDate, startTime)
	if err != nil {
		return Span{}, withField(err, "start")
	}
	end, err := c.Instant(endDate, endTime)
	if err != nil {
		return Span{}, withField(err, "end")
	}

	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	return Span{Start: start, End: end, Hours: d.Hours()}, nil
}

// Instant parses one date/time pair.
func (c Computer) Instant(date, clock string) (time.Time, error) {
	value := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	t, err := time.Parse(c.layout(), value)
	if err != nil {
		return time.Time{}, &MalformedInputError{Value: value, Layout: c.layout(), Err: err}
	}
	return t, nil
}

func withField(err error, field string) error {
	var mie *MalformedInputError
	if errors.As(err, &mie) {
		mie.Field = field
	}
	return err
}

package question

import (
	"context"
	"time"

	"github.com/araddon/dateparse"
)

// Datetime asks for a date and time in free-form text.
type Datetime struct {
	base

	// Before and After are exclusive bounds. Zero means unconstrained.
	BeforeTime time.Time
	AfterTime  time.Time

	// InThePast and InTheFuture constrain the value relative to now.
	InThePast   bool
	InTheFuture bool

	// now is overridable for tests.
	now func() time.Time
}

// NewDatetime creates an unconstrained datetime question.
func NewDatetime(text string) *Datetime {
	return &Datetime{base: base{Text: text}}
}

// Validate parses the response and checks the time bounds.
func (q *Datetime) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, q.check)
}

func (q *Datetime) check(response any) (any, error) {
	dt, err := q.parse(response)
	if err != nil {
		return nil, err
	}
	return dt, nil
}

func (q *Datetime) parse(response any) (time.Time, error) {
	text, ok := response.(string)
	if !ok {
		return time.Time{}, Invalid(q.ErrorText)
	}

	dt, err := dateparse.ParseLocal(text)
	if err != nil {
		return time.Time{}, Invalid(q.ErrorText)
	}

	if !q.BeforeTime.IsZero() && !dt.Before(q.BeforeTime) {
		return time.Time{}, Invalid(q.ErrorText)
	}
	if !q.AfterTime.IsZero() && !dt.After(q.AfterTime) {
		return time.Time{}, Invalid(q.ErrorText)
	}

	clock := time.Now
	if q.now != nil {
		clock = q.now
	}
	if q.InThePast && !dt.Before(clock()) {
		return time.Time{}, Invalid(q.ErrorText)
	}
	if q.InTheFuture && !dt.After(clock()) {
		return time.Time{}, Invalid(q.ErrorText)
	}

	return dt, nil
}

func (q *Datetime) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.DatetimeError
	}
}

// Date asks for a calendar date. The answer is a time.Time truncated to
// midnight in the local zone.
type Date struct {
	Datetime
}

// NewDate creates an unconstrained date question.
func NewDate(text string) *Date {
	return &Date{Datetime: Datetime{base: base{Text: text}}}
}

// Validate parses the response and keeps only the date part.
func (q *Date) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, func(response any) (any, error) {
		dt, err := q.parse(response)
		if err != nil {
			return nil, err
		}
		y, m, d := dt.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, dt.Location()), nil
	})
}

func (q *Date) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.DateError
	}
}

// Time asks for a time of day. The answer is a time.Time carrying only the
// clock components, on the zero date.
type Time struct {
	Datetime
}

// NewTime creates an unconstrained time-of-day question.
func NewTime(text string) *Time {
	return &Time{Datetime: Datetime{base: base{Text: text}}}
}

// Validate parses the response and keeps only the clock part.
func (q *Time) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, func(response any) (any, error) {
		dt, err := q.parse(response)
		if err != nil {
			return nil, err
		}
		return time.Date(0, time.January, 1, dt.Hour(), dt.Minute(), dt.Second(), 0, dt.Location()), nil
	})
}

func (q *Time) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.TimeError
	}
}

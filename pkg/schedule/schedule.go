package schedule

import (
	"errors"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned for schedules that can never fire
var ErrInvalidSchedule = errors.New("invalid schedule")

// Kind identifies a schedule variant on the wire
type Kind string

const (
	KindInterval Kind = "interval"
	KindCron     Kind = "cron"
)

// Schedule is a recurrence rule understood by the external job scheduler
type Schedule interface {
	Kind() Kind
	// Next returns the first fire time strictly after the given instant.
	Next(after time.Time) time.Time
}

// Unit is the period unit of an interval schedule
type Unit string

const (
	Minutes Unit = "Minutes"
	Hours   Unit = "Hours"
	Days    Unit = "Days"
)

// Duration returns the length of one unit
func (u Unit) Duration() (time.Duration, error) {
	switch u {
	case Minutes:
		return time.Minute, nil
	case Hours:
		return time.Hour, nil
	case Days:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSchedule, string(u))
	}
}

// Interval fires every Period units starting at StartTime
type Interval struct {
	StartTime time.Time
	Period    int
	Unit      Unit
}

// NewInterval creates an interval schedule. StartTime is normalized to UTC
// with millisecond precision, which is what survives the wire encoding.
func NewInterval(start time.Time, period int, unit Unit) (*Interval, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: period must be > 0, got %d", ErrInvalidSchedule, period)
	}
	if _, err := unit.Duration(); err != nil {
		return nil, err
	}
	return &Interval{
		StartTime: Millis(start),
		Period:    period,
		Unit:      unit,
	}, nil
}

// Kind implements Schedule
func (i *Interval) Kind() Kind { return KindInterval }

// Every returns the full period length
func (i *Interval) Every() time.Duration {
	d, err := i.Unit.Duration()
	if err != nil {
		return 0
	}
	return time.Duration(i.Period) * d
}

// Next implements Schedule
func (i *Interval) Next(after time.Time) time.Time {
	every := i.Every()
	if every <= 0 {
		return time.Time{}
	}
	if after.Before(i.StartTime) {
		return i.StartTime
	}
	delta := after.Sub(i.StartTime)
	return after.Add(every - delta%every)
}

var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Cron fires according to a five-field cron expression in a timezone
type Cron struct {
	Expression string
	Timezone   string
}

// NewCron validates the expression and timezone up front
func NewCron(expr, timezone string) (*Cron, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	c := &Cron{Expression: expr, Timezone: timezone}
	if _, _, err := c.parse(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cron) parse() (cronlib.Schedule, *time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidSchedule, c.Timezone, err)
	}
	sched, err := cronParser.Parse(c.Expression)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: cron %q: %v", ErrInvalidSchedule, c.Expression, err)
	}
	return sched, loc, nil
}

// Kind implements Schedule
func (c *Cron) Kind() Kind { return KindCron }

// Next implements Schedule. An unparseable expression never fires.
func (c *Cron) Next(after time.Time) time.Time {
	sched, loc, err := c.parse()
	if err != nil {
		return time.Time{}
	}
	return sched.Next(after.In(loc))
}

// Millis normalizes t to UTC at millisecond precision
func Millis(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}

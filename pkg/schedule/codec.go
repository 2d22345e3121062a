package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type intervalWire struct {
	StartTime *int64 `json:"start_time"`
	Period    *int   `json:"period"`
	Unit      *Unit  `json:"unit"`
}

type cronWire struct {
	Expression *string `json:"expression"`
	Timezone   *string `json:"timezone,omitempty"`
}

type scheduleWire struct {
	Interval *intervalWire `json:"interval,omitempty"`
	Cron     *cronWire     `json:"cron,omitempty"`
}

// Marshal encodes a schedule as a single-key object named after its variant:
//
//	{"interval":{"start_time":1700000000000,"period":5,"unit":"Minutes"}}
//	{"cron":{"expression":"*/5 * * * *","timezone":"UTC"}}
func Marshal(s Schedule) ([]byte, error) {
	var w scheduleWire
	switch v := s.(type) {
	case *Interval:
		start := v.StartTime.UnixMilli()
		period := v.Period
		unit := v.Unit
		w.Interval = &intervalWire{StartTime: &start, Period: &period, Unit: &unit}
	case *Cron:
		expr := v.Expression
		tz := v.Timezone
		w.Cron = &cronWire{Expression: &expr, Timezone: &tz}
	case nil:
		return nil, fmt.Errorf("%w: nil schedule", ErrInvalidSchedule)
	default:
		return nil, fmt.Errorf("%w: unsupported schedule type %T", ErrInvalidSchedule, s)
	}
	return json.Marshal(w)
}

// Parse decodes a schedule object. Unknown fields, missing fields and
// objects naming zero or several variants are rejected.
func Parse(data []byte) (Schedule, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w scheduleWire
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after schedule", ErrInvalidSchedule)
	}

	switch {
	case w.Interval != nil && w.Cron != nil:
		return nil, fmt.Errorf("%w: schedule names both interval and cron", ErrInvalidSchedule)
	case w.Interval != nil:
		iw := w.Interval
		if iw.StartTime == nil || iw.Period == nil || iw.Unit == nil {
			return nil, fmt.Errorf("%w: interval requires start_time, period and unit", ErrInvalidSchedule)
		}
		return NewInterval(time.UnixMilli(*iw.StartTime), *iw.Period, *iw.Unit)
	case w.Cron != nil:
		if w.Cron.Expression == nil {
			return nil, fmt.Errorf("%w: cron requires expression", ErrInvalidSchedule)
		}
		tz := ""
		if w.Cron.Timezone != nil {
			tz = *w.Cron.Timezone
		}
		return NewCron(*w.Cron.Expression, tz)
	default:
		return nil, fmt.Errorf("%w: empty schedule", ErrInvalidSchedule)
	}
}

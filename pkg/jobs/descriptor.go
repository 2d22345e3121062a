package jobs

import (
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/steward/pkg/schedule"
)

// ErrInvalidDescriptor is returned by Validate
var ErrInvalidDescriptor = errors.New("invalid job descriptor")

// Descriptor describes one job for the external distributed job scheduler.
// Steward only ever writes the initial version; the scheduler owns it after.
type Descriptor struct {
	Name           string
	Enabled        bool
	Schedule       schedule.Schedule
	EnabledTime    time.Time
	LastUpdateTime time.Time

	// LockDurationSeconds bounds the scheduler's distributed lock. nil means
	// the scheduler default applies.
	LockDurationSeconds *int64

	// Jitter is a fraction in [0,1) used to spread fire times. nil means none.
	Jitter *float64

	Type JobType
}

// New creates an enabled descriptor stamped with the current time
func New(name string, sched schedule.Schedule, lockDurationSeconds *int64, jitter *float64, jobType JobType) *Descriptor {
	return newAt(time.Now(), name, sched, lockDurationSeconds, jitter, jobType)
}

func newAt(now time.Time, name string, sched schedule.Schedule, lockDurationSeconds *int64, jitter *float64, jobType JobType) *Descriptor {
	now = schedule.Millis(now)
	return &Descriptor{
		Name:                name,
		Enabled:             true,
		Schedule:            sched,
		EnabledTime:         now,
		LastUpdateTime:      now,
		LockDurationSeconds: lockDurationSeconds,
		Jitter:              jitter,
		Type:                jobType,
	}
}

// SetEnabled flips the enabled flag and stamps the bookkeeping times
func (d *Descriptor) SetEnabled(enabled bool, now time.Time) {
	now = schedule.Millis(now)
	if enabled && !d.Enabled {
		d.EnabledTime = now
	}
	d.Enabled = enabled
	d.LastUpdateTime = now
}

// Touch records a mutation at now
func (d *Descriptor) Touch(now time.Time) {
	d.LastUpdateTime = schedule.Millis(now)
}

// Validate checks the invariants a descriptor must hold before it is written
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if d.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidDescriptor)
	}
	if _, err := ParseJobType(string(d.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if d.Enabled && d.Schedule == nil {
		return fmt.Errorf("%w: enabled job %s has no schedule", ErrInvalidDescriptor, d.Name)
	}
	if d.LockDurationSeconds != nil && *d.LockDurationSeconds <= 0 {
		return fmt.Errorf("%w: lock duration must be > 0, got %d", ErrInvalidDescriptor, *d.LockDurationSeconds)
	}
	if d.Jitter != nil && (*d.Jitter < 0 || *d.Jitter >= 1) {
		return fmt.Errorf("%w: jitter must be in [0,1), got %v", ErrInvalidDescriptor, *d.Jitter)
	}
	return nil
}

// Int64 returns a pointer to v, for optional descriptor fields
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v, for optional descriptor fields
func Float64(v float64) *float64 { return &v }

package jobs

import (
	"errors"
	"fmt"
)

// ErrNoSuchJobType is returned when a type tag is outside the known set
var ErrNoSuchJobType = errors.New("no such job type")

// JobType tells the external scheduler which handler runs a job
type JobType string

const (
	StatsCollector  JobType = "STATS_COLLECTOR"
	BatchTaskUpdate JobType = "BATCH_TASK_UPDATE"
)

// knownJobTypes is the closed set. New tags are appended here, never renamed.
var knownJobTypes = []JobType{
	StatsCollector,
	BatchTaskUpdate,
}

// ParseJobType matches s exactly, case included, against the known set
func ParseJobType(s string) (JobType, error) {
	for _, t := range knownJobTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoSuchJobType, s)
}

// JobTypes returns a copy of the known set
func JobTypes() []JobType {
	out := make([]JobType, len(knownJobTypes))
	copy(out, knownJobTypes)
	return out
}

func (t JobType) String() string {
	return string(t)
}

// Description returns the human facing name, e.g. "stats-collector"
func (t JobType) Description() string {
	switch t {
	case StatsCollector:
		return "stats-collector"
	case BatchTaskUpdate:
		return "batch-task-update"
	default:
		return string(t)
	}
}

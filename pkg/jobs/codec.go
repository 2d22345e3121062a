package jobs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cuemby/steward/pkg/schedule"
)

// Wire field names
const (
	FieldName                   = "name"
	FieldEnabled                = "enabled"
	FieldSchedule               = "schedule"
	FieldEnabledTime            = "enabled_time"
	FieldEnabledTimeReadable    = "enabled_time_field"
	FieldLastUpdateTime         = "last_update_time"
	FieldLastUpdateTimeReadable = "last_update_time_field"
	FieldLockDurationSeconds    = "lock_duration_seconds"
	FieldJitter                 = "jitter"
	FieldType                   = "type"
)

// readableLayout is the format of the human readable time mirror fields
const readableLayout = "2006-01-02T15:04:05.000Z07:00"

// ParseError reports the field a descriptor document failed on
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse job descriptor: %v", e.Err)
	}
	return fmt.Sprintf("parse job descriptor field %q: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	// ErrUnknownField is wrapped by ParseError for field names outside the schema
	ErrUnknownField = errors.New("unknown field")
	// ErrDuplicateField is wrapped by ParseError for a field given twice
	ErrDuplicateField = errors.New("duplicate field")
)

type descriptorWire struct {
	Name                   string          `json:"name"`
	Enabled                bool            `json:"enabled"`
	Schedule               json.RawMessage `json:"schedule,omitempty"`
	EnabledTime            *int64          `json:"enabled_time,omitempty"`
	EnabledTimeReadable    string          `json:"enabled_time_field,omitempty"`
	LastUpdateTime         *int64          `json:"last_update_time,omitempty"`
	LastUpdateTimeReadable string          `json:"last_update_time_field,omitempty"`
	LockDurationSeconds    *int64          `json:"lock_duration_seconds,omitempty"`
	Jitter                 *float64        `json:"jitter,omitempty"`
	Type                   string          `json:"type,omitempty"`
}

// MarshalJSON encodes the descriptor. Absent optionals are omitted rather
// than written as zero values.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	w := descriptorWire{
		Name:                d.Name,
		Enabled:             d.Enabled,
		LockDurationSeconds: d.LockDurationSeconds,
		Jitter:              d.Jitter,
		Type:                string(d.Type),
	}
	if d.Schedule != nil {
		raw, err := schedule.Marshal(d.Schedule)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schedule: %w", err)
		}
		w.Schedule = raw
	}
	if !d.EnabledTime.IsZero() {
		ms := d.EnabledTime.UnixMilli()
		w.EnabledTime = &ms
		w.EnabledTimeReadable = d.EnabledTime.UTC().Format(readableLayout)
	}
	if !d.LastUpdateTime.IsZero() {
		ms := d.LastUpdateTime.UnixMilli()
		w.LastUpdateTime = &ms
		w.LastUpdateTimeReadable = d.LastUpdateTime.UTC().Format(readableLayout)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a descriptor, see Parse
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Parse decodes a descriptor document. Fields may appear in any order.
// Unknown field names and unknown job types fail the whole document.
func Parse(data []byte) (*Descriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ParseError{Err: fmt.Errorf("expected object, got %v", tok)}
	}

	d := &Descriptor{}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		field, ok := tok.(string)
		if !ok {
			return nil, &ParseError{Err: fmt.Errorf("expected field name, got %v", tok)}
		}
		if _, dup := seen[field]; dup {
			return nil, &ParseError{Field: field, Err: ErrDuplicateField}
		}
		seen[field] = struct{}{}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &ParseError{Field: field, Err: err}
		}
		if err := d.setField(field, raw); err != nil {
			return nil, &ParseError{Field: field, Err: err}
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Err: fmt.Errorf("trailing data after descriptor")}
	}
	return d, nil
}

func (d *Descriptor) setField(field string, raw json.RawMessage) error {
	null := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))

	switch field {
	case FieldName:
		return json.Unmarshal(raw, &d.Name)
	case FieldEnabled:
		return json.Unmarshal(raw, &d.Enabled)
	case FieldSchedule:
		if null {
			d.Schedule = nil
			return nil
		}
		s, err := schedule.Parse(raw)
		if err != nil {
			return err
		}
		d.Schedule = s
	case FieldEnabledTime:
		t, err := parseEpochMillis(raw, null)
		if err != nil {
			return err
		}
		d.EnabledTime = t
	case FieldLastUpdateTime:
		t, err := parseEpochMillis(raw, null)
		if err != nil {
			return err
		}
		d.LastUpdateTime = t
	case FieldEnabledTimeReadable, FieldLastUpdateTimeReadable:
		// Mirrors of the epoch fields; the epoch value is authoritative.
		var s string
		return json.Unmarshal(raw, &s)
	case FieldLockDurationSeconds:
		if null {
			d.LockDurationSeconds = nil
			return nil
		}
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		d.LockDurationSeconds = &v
	case FieldJitter:
		if null {
			d.Jitter = nil
			return nil
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		d.Jitter = &v
	case FieldType:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		t, err := ParseJobType(s)
		if err != nil {
			return err
		}
		d.Type = t
	default:
		return ErrUnknownField
	}
	return nil
}

func parseEpochMillis(raw json.RawMessage, null bool) (time.Time, error) {
	if null {
		return time.Time{}, nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// localISOLayout is the offset-free form written by earlier versions of the
// queue (e.g. "2026-10-10T12:00:00.123456"). Such values are local time.
const localISOLayout = "2006-01-02T15:04:05.999999999"

// Timestamp decodes either RFC 3339 or the offset-free local ISO form.
type Timestamp struct {
	time.Time
}

func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localISOLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return t, nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// UnmarshalJSON decodes a job record, accepting both timestamp forms.
// Records are always written back as RFC 3339.
func (j *Job) UnmarshalJSON(data []byte) error {
	type plain Job
	aux := struct {
		*plain
		RegisteredAt Timestamp  `json:"registered_at"`
		StartedAt    *Timestamp `json:"started_at"`
		FinishedAt   *Timestamp `json:"finished_at"`
	}{plain: (*plain)(j)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	j.RegisteredAt = aux.RegisteredAt.Time
	j.StartedAt = nil
	if aux.StartedAt != nil {
		t := aux.StartedAt.Time
		j.StartedAt = &t
	}
	j.FinishedAt = nil
	if aux.FinishedAt != nil {
		t := aux.FinishedAt.Time
		j.FinishedAt = &t
	}
	return nil
}

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobState is a scheduler state
type JobState string

const (
	StateBootstrapping JobState = "bootstrapping"
	StateExpanding     JobState = "expanding"
	StateRunning       JobState = "running"
	StateFinalizing    JobState = "finalizing"
	StateCompleted     JobState = "completed"
	StateFailed        JobState = "failed"
)

// Terminal reports whether no further transitions follow.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ProgressEvent is published by the scheduler as a run advances
type ProgressEvent struct {
	JobKey          string    `json:"job_key"`
	State           JobState  `json:"state"`
	PercentComplete int       `json:"percent_complete"`
	UnitsCompleted  int       `json:"units_completed"`
	TotalUnits      int       `json:"total_units"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
}

// ProgressCounts are the completed/total counts at the time a run stopped.
type ProgressCounts struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// JobResult is the terminal outcome of a run
type JobResult struct {
	Success        bool            `json:"success"`
	State          JobState        `json:"state"`
	TotalCommitted int             `json:"total_committed"`
	RepositoryURL  string          `json:"repository_url,omitempty"`
	Error          string          `json:"error,omitempty"`
	ErrorType      string          `json:"error_type,omitempty"`
	Progress       *ProgressCounts `json:"progress,omitempty"`
	Duration       time.Duration   `json:"duration"`
}

// JobStatus combines live run state with the persisted checkpoint.
type JobStatus struct {
	JobKey     JobKey         `json:"job_key"`
	Running    bool           `json:"running"`
	State      JobState       `json:"state,omitempty"`
	LastEvent  *ProgressEvent `json:"last_event,omitempty"`
	Result     *JobResult     `json:"result,omitempty"`
	Checkpoint *Job           `json:"checkpoint,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitempty"`
}

// String returns the JSON string representation of the job status
func (s *JobStatus) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal job status: %v"}`, err)
	}
	return string(data)
}

package types

import "fmt"

// SyncStatus represents the outcome of a sync attempt
type SyncStatus string

const (
	SyncStatusSuccess        SyncStatus = "success"
	SyncStatusPartialFailure SyncStatus = "partial_failure"
	SyncStatusFailed         SyncStatus = "failed"
)

// AllSyncStatuses returns all valid sync statuses
func AllSyncStatuses() []SyncStatus {
	return []SyncStatus{
		SyncStatusSuccess,
		SyncStatusPartialFailure,
		SyncStatusFailed,
	}
}

// IsValid checks if the sync status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess,
		SyncStatusPartialFailure,
		SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sync status
func (s SyncStatus) String() string {
	return string(s)
}

// ParseSyncStatus parses a string into a SyncStatus
func ParseSyncStatus(s string) (SyncStatus, error) {
	status := SyncStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid sync status: %s", s)
	}
	return status, nil
}

// JobStatus represents the lifecycle state of a sync job record
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusPartial   JobStatus = "partial_failure"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job status is a terminal state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusPartial || s == JobStatusFailed
}

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// JobStatusFor maps a sync status to the job status written on completion
func JobStatusFor(s SyncStatus) JobStatus {
	switch s {
	case SyncStatusSuccess:
		return JobStatusCompleted
	case SyncStatusPartialFailure:
		return JobStatusPartial
	default:
		return JobStatusFailed
	}
}

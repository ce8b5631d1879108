package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// EliminationResult is the summary of one elimination scan.
type EliminationResult struct {
	Success              bool      `json:"success"`
	ProcessedCount       int       `json:"processed_count"`
	EliminatedCount      int       `json:"eliminated_count"`
	NotificationsCreated int       `json:"notifications_created"`
	Timestamp            time.Time `json:"timestamp"`
	Error                string    `json:"error,omitempty"`
}

// EliminationStatus describes the backlog and cadence of the scan.
type EliminationStatus struct {
	PendingEliminations int        `json:"pending_eliminations"`
	LastRun             *time.Time `json:"last_run"`
	NextScheduledRun    time.Time  `json:"next_scheduled_run"`
}

// EliminationRun is a persisted EliminationResult.
type EliminationRun struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Trigger              string    `json:"trigger" db:"trigger_source"`
	Success              bool      `json:"success" db:"success"`
	ProcessedCount       int       `json:"processed_count" db:"processed_count"`
	EliminatedCount      int       `json:"eliminated_count" db:"eliminated_count"`
	NotificationsCreated int       `json:"notifications_created" db:"notifications_created"`
	Error                *string   `json:"error,omitempty" db:"error"`
	StartedAt            time.Time `json:"started_at" db:"started_at"`
	FinishedAt           time.Time `json:"finished_at" db:"finished_at"`
}

// NewEliminationRun captures result as a history entry.
func NewEliminationRun(trigger string, startedAt time.Time, result *EliminationResult) *EliminationRun {
	run := &EliminationRun{
		ID:                   uuid.New(),
		Trigger:              trigger,
		Success:              result.Success,
		ProcessedCount:       result.ProcessedCount,
		EliminatedCount:      result.EliminatedCount,
		NotificationsCreated: result.NotificationsCreated,
		StartedAt:            startedAt,
		FinishedAt:           result.Timestamp,
	}
	if result.Error != "" {
		msg := result.Error
		run.Error = &msg
	}
	return run
}

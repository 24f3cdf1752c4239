// Package example provides a small, concrete row/graph pair used to wire
// up a runnable registry in cmd/statord and to exercise the engine in
// package tests without needing a real database. It mirrors the reference
// state machine from the original django-stator test suite's BasicStates.
package example

import "time"

// Job is a managed row with one domain-specific field, Ready, on top of
// the four columns every row.Row must carry.
type Job struct {
	ID        int64
	StateName string
	ChangedAt time.Time
	NextAt    *time.Time

	// Ready gates the new and pending_delete states' handlers.
	Ready bool
}

// RowID implements row.Row.
func (j *Job) RowID() any { return j.ID }

// State implements row.Row.
func (j *Job) State() string { return j.StateName }

// SetState implements row.Row.
func (j *Job) SetState(name string) { j.StateName = name }

// StateChanged implements row.Row.
func (j *Job) StateChanged() time.Time { return j.ChangedAt }

// SetStateChanged implements row.Row.
func (j *Job) SetStateChanged(t time.Time) { j.ChangedAt = t }

// StateNext implements row.Row.
func (j *Job) StateNext() *time.Time { return j.NextAt }

// SetStateNext implements row.Row.
func (j *Job) SetStateNext(t *time.Time) { j.NextAt = t }

package scheduler

import "errors"

var (
	// ErrSweepInProgress is returned when a sweep is triggered while one is
	// already running
	ErrSweepInProgress = errors.New("reconciliation sweep already in progress")
)

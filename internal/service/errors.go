package service

import (
	"errors"
	"fmt"
)

var (
	ErrNoSignals         = errors.New("no signals to synthesize")
	ErrInvalidSignal     = errors.New("invalid signal")
	ErrPrincipleNotFound = errors.New("principle not found")
	ErrSamePrinciple     = errors.New("cannot merge a principle with itself")
)

// Run stages reported by FatalRunError.
const (
	StageLoad     = "load"
	StageClassify = "classify"
	StageIngest   = "ingest"
	StageDecide   = "decide"
	StageMerge    = "merge"
	StageEmbed    = "embed"
	StageTensions = "tensions"
	StageSave     = "save"
)

// FatalRunError aborts a synthesis run. Nothing is persisted when a run fails.
type FatalRunError struct {
	Stage string
	Err   error
}

func (e *FatalRunError) Error() string {
	return fmt.Sprintf("synthesis run failed during %s: %v", e.Stage, e.Err)
}

func (e *FatalRunError) Unwrap() error {
	return e.Err
}

func fatal(stage string, err error) error {
	return &FatalRunError{Stage: stage, Err: err}
}

package datasync

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageReset Stage = "reset"
	StagePush  Stage = "push"
	StagePull  Stage = "pull"
	StageGate  Stage = "gate"
)

// EntityFailure records which entity type failed at which stage.
type EntityFailure struct {
	Entity string
	Stage  Stage
	Err    error
}

func (f EntityFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Entity, f.Stage, f.Err)
}

func (f EntityFailure) Unwrap() error { return f.Err }

// CycleError is returned when any entity type of a cycle failed. Progress
// of the entity types that succeeded is kept.
type CycleError struct {
	Failures []EntityFailure
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return "sync cycle failed: " + strings.Join(parts, "; ")
}

func (e *CycleError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

package dozererr

import (
	"errors"
	"fmt"
)

// Stage names a step of the build pipeline.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageProvision Stage = "provision"
	StageResolve   Stage = "resolve"
	StageBuild     Stage = "build"
	StagePublish   Stage = "publish"
)

var exitCodes = map[Stage]int{
	StageValidate:  2,
	StageProvision: 3,
	StageResolve:   4,
	StageBuild:     5,
	StagePublish:   6,
}

// StageError tags err with the pipeline stage that produced it.
// An err that is already tagged keeps its original stage.
func StageError(err error, stage Stage) error {
	if err == nil {
		return nil
	}

	if _, ok := exitCodes[stage]; !ok {
		stage = ""
	}

	serr := &stageError{}
	if errors.As(err, &serr) {
		return err
	}

	return &stageError{
		err:   err,
		stage: stage,
	}
}

type stageError struct {
	err   error
	stage Stage
}

func (e *stageError) Error() string {
	if e.err == nil {
		return ""
	}

	if e.stage == "" {
		return e.err.Error()
	}

	return fmt.Sprintf("%s: %s", e.stage, e.err.Error())
}

func (e *stageError) Unwrap() error {
	return e.err
}

func (e *stageError) ExitCode() int {
	if exitCode, ok := exitCodes[e.stage]; ok {
		return exitCode
	}

	return 1
}

// StageOf returns the stage that err was tagged with,
// or the empty Stage if it was never tagged.
func StageOf(err error) Stage {
	serr := &stageError{}
	if errors.As(err, &serr) {
		return serr.stage
	}

	return ""
}

// ExitCode returns the process exit code that err should
// terminate dozer with.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	serr := &stageError{}
	if errors.As(err, &serr) {
		return serr.ExitCode()
	}

	return 1
}

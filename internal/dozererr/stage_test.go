package dozererr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStageError(t *testing.T) {
	var (
		cause = errors.New("license not accepted")
		err   = StageError(cause, StageProvision)
	)

	if !errors.Is(err, cause) {
		t.Error("expected stage error to unwrap to its cause")
	}

	if stage := StageOf(err); stage != StageProvision {
		t.Errorf("expected stage %s, got %s", StageProvision, stage)
	}

	if exitCode := ExitCode(fmt.Errorf("wrapped: %w", err)); exitCode != 3 {
		t.Errorf("expected exit code 3, got %d", exitCode)
	}

	if err.Error() != "provision: license not accepted" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStageErrorKeepsFirstStage(t *testing.T) {
	err := StageError(StageError(errors.New("conflict"), StageResolve), StageBuild)

	if stage := StageOf(err); stage != StageResolve {
		t.Errorf("expected stage %s, got %s", StageResolve, stage)
	}
}

func TestStageErrorNil(t *testing.T) {
	if err := StageError(nil, StageBuild); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	if exitCode := ExitCode(nil); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}

	if exitCode := ExitCode(errors.New("untagged")); exitCode != 1 {
		t.Errorf("expected exit code 1, got %d", exitCode)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	if code := HTTPStatusCode(HTTPStatusCodeError(errors.New("nope"), http.StatusNotFound)); code != http.StatusNotFound {
		t.Error("expected 404, got", code)
	}

	if code := HTTPStatusCode(fmt.Errorf("wrapped: %w", HTTPStatusCodeError(errors.New("nope"), http.StatusBadRequest))); code != http.StatusBadRequest {
		t.Error("expected 400, got", code)
	}

	if code := HTTPStatusCode(HTTPStatusCodeError(errors.New("nope"), 700)); code != http.StatusInternalServerError {
		t.Error("expected 500, got", code)
	}

	if code := HTTPStatusCode(errors.New("nope")); code != http.StatusInternalServerError {
		t.Error("expected 500, got", code)
	}
}

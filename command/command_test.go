package command

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/frantjc/dozer/internal/dozererr"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), t, args...)
}

func executeContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()

	var (
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
		cmd    = NewDozer()
	)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	return stdout.String(), err
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "--spec", filepath.Join("..", "testdata", "buildozer.spec"), "-o", "json")
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	m := map[string]any{}
	if err = json.Unmarshal([]byte(out), &m); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if m["packageName"] != "pdfeditor" {
		t.Error("unexpected output", out)
	}
}

func TestValidateYAML(t *testing.T) {
	out, err := execute(t, "validate", "--spec", filepath.Join("..", "testdata", "dozer.yaml"))
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if !strings.Contains(out, "packageDomain: org.example") {
		t.Error("unexpected output", out)
	}
}

func TestValidateMissingSpec(t *testing.T) {
	_, err := execute(t, "validate", "--spec", filepath.Join(t.TempDir(), "buildozer.spec"))
	if err == nil {
		t.Error("expected an error")
		t.FailNow()
	}

	if dozererr.ExitCode(err) != 2 {
		t.Error("expected exit code 2, got", dozererr.ExitCode(err))
	}
}

func TestBuildInvalidTarget(t *testing.T) {
	_, err := execute(t, "build", "ios", "debug", "--spec", filepath.Join("..", "testdata", "buildozer.spec"), "--cache", t.TempDir())
	if err == nil {
		t.Error("expected an error")
		t.FailNow()
	}

	if dozererr.ExitCode(err) != 2 {
		t.Error("expected exit code 2, got", dozererr.ExitCode(err))
	}
}

func TestKeys(t *testing.T) {
	out, err := execute(t, "keys", "--spec", filepath.Join("..", "testdata", "buildozer.spec"), "-o", "json")
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	keys := map[string]string{}
	if err = json.Unmarshal([]byte(out), &keys); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if !strings.HasPrefix(keys["toolchain"], "sha256:") || !strings.HasPrefix(keys["dependencies"], "sha256:") || keys["toolchain"] == keys["dependencies"] {
		t.Error("unexpected keys", keys)
	}
}

func TestParseLicenses(t *testing.T) {
	licenses, err := parseLicenses([]string{"android-sdk-license=24333f8a63b6825ea9c5514f83c2829b004d1fee"})
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if licenses["android-sdk-license"] != "24333f8a63b6825ea9c5514f83c2829b004d1fee" {
		t.Error("unexpected licenses", licenses)
	}

	if _, err = parseLicenses([]string{"android-sdk-license"}); err == nil {
		t.Error("expected an error")
	}
}

func TestVerbosityFromEnv(t *testing.T) {
	t.Setenv("DOZER_VERBOSE", "true")

	if verbosity := verbosityFrom(NewDozer()); verbosity != 2 {
		t.Error("expected verbosity 2, got", verbosity)
	}
}

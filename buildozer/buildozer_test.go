package buildozer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/frantjc/dozer/buildozer"
)

func TestArgs(t *testing.T) {
	if args := buildozer.Args(nil, "android", "debug"); !slices.Equal(args, []string{"android", "debug"}) {
		t.Error("unexpected args", args)
	}

	if args := buildozer.Args(&buildozer.RunOpts{Verbose: true}, "android", "release"); !slices.Equal(args, []string{"-v", "android", "release"}) {
		t.Error("unexpected args", args)
	}
}

func TestRun(t *testing.T) {
	var (
		dir    = t.TempDir()
		script = filepath.Join(t.TempDir(), "buildozer")
		stdout = new(bytes.Buffer)
	)

	if err := os.WriteFile(script, []byte(`#!/bin/sh
echo "$PWD $@"
`), 0o755); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if err := buildozer.Command(script).Run(context.Background(), &buildozer.RunOpts{
		Dir:    dir,
		Stdout: stdout,
	}, "android", "debug"); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if !strings.HasSuffix(strings.TrimSpace(stdout.String()), "android debug") {
		t.Error("unexpected output", stdout.String())
	}
}

func TestRunFailure(t *testing.T) {
	script := filepath.Join(t.TempDir(), "buildozer")

	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if err := buildozer.Command(script).Run(context.Background(), nil, "android", "debug"); err == nil {
		t.Error("expected an error")
	}
}

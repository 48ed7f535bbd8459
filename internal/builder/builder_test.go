package builder_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/buildozer"
	"github.com/frantjc/dozer/internal/builder"
	"github.com/frantjc/dozer/internal/dozererr"
)

type fakeInvoker struct {
	calls    int
	opts     *buildozer.RunOpts
	platform string
	mode     string
	spec     string
	output   string
	err      error
}

func (f *fakeInvoker) Run(_ context.Context, opts *buildozer.RunOpts, platform, mode string) error {
	f.calls++
	f.opts = opts
	f.platform = platform
	f.mode = mode

	b, err := os.ReadFile(filepath.Join(opts.Dir, buildozer.SpecName))
	if err != nil {
		return err
	}
	f.spec = string(b)

	if _, err = opts.Stdout.Write([]byte(f.output)); err != nil {
		return err
	}

	return f.err
}

func newManifest() *dozer.Manifest {
	m := &dozer.Manifest{
		Title:         "PDF Editor",
		PackageName:   "pdfeditor",
		PackageDomain: "org.example",
		Version:       "1.0",
		Requirements: []dozer.Requirement{
			{Name: "python3"},
			{Name: "kivy", Version: "2.2.1"},
		},
		Buildozer: dozer.Buildozer{LogLevel: 2},
	}
	m.SetDefaults()
	return m
}

var (
	tc = &dozer.Toolchain{
		Home:   "/opt/android-sdk",
		NDKDir: "/opt/android-sdk/android-ndk-r25b",
	}
	env = &dozer.Environment{
		Dir:    "/var/cache/dozer/venv/0123456789abcdef",
		Wheels: "/var/cache/dozer/venv/0123456789abcdef/wheels",
	}
	target = dozer.Target{Platform: dozer.PlatformAndroid, Mode: dozer.ModeDebug}
)

func TestBuild(t *testing.T) {
	var (
		invoker = &fakeInvoker{output: "# Android packaging done!\n"}
		stdout  = new(bytes.Buffer)
		b       = &builder.Builder{
			Dir:     t.TempDir(),
			Invoker: invoker,
			Stdout:  stdout,
		}
	)

	out, err := b.Build(context.Background(), newManifest(), tc, env, target)
	if err != nil {
		t.Error(err)
		t.FailNow()
	}

	if invoker.calls != 1 || invoker.platform != "android" || invoker.mode != "debug" {
		t.Error("unexpected invocation", invoker.calls, invoker.platform, invoker.mode)
	}

	if !invoker.opts.Verbose {
		t.Error("expected a verbose invocation for log_level 2")
	}

	if invoker.opts.Dir != out.Dir || out.BinDir != filepath.Join(out.Dir, "bin") || out.ID == "" {
		t.Error("unexpected build output", out)
	}

	if _, err = os.Stat(out.BinDir); err != nil {
		t.Error(err)
	}

	for _, expected := range []string{
		"android.sdk_path",
		"/opt/android-sdk/android-ndk-r25b",
		"android.skip_update",
		"kivy==2.2.1",
		out.BinDir,
	} {
		if !strings.Contains(invoker.spec, expected) {
			t.Error("expected rendered spec to contain", expected)
		}
	}

	if !strings.Contains(stdout.String(), "packaging done") {
		t.Error("expected verbose output to be streamed")
	}

	var hasVirtualEnv bool
	for _, kv := range invoker.opts.Env {
		if kv == "VIRTUAL_ENV="+env.Dir {
			hasVirtualEnv = true
		}
	}

	if !hasVirtualEnv {
		t.Error("expected VIRTUAL_ENV to be set")
	}
}

func TestBuildQuiet(t *testing.T) {
	var (
		invoker = &fakeInvoker{output: "noise\n"}
		stdout  = new(bytes.Buffer)
		b       = &builder.Builder{
			Dir:     t.TempDir(),
			Invoker: invoker,
			Stdout:  stdout,
		}
		m = newManifest()
	)
	m.Buildozer.LogLevel = 1

	if _, err := b.Build(context.Background(), m, tc, env, target); err != nil {
		t.Error(err)
		t.FailNow()
	}

	if invoker.opts.Verbose || stdout.Len() > 0 {
		t.Error("expected a quiet invocation")
	}
}

func TestBuildInvalidManifest(t *testing.T) {
	var (
		invoker = &fakeInvoker{}
		b       = &builder.Builder{Dir: t.TempDir(), Invoker: invoker}
		m       = newManifest()
	)
	m.Android.MinAPI = 34

	_, err := b.Build(context.Background(), m, tc, env, target)
	if err == nil {
		t.Error("expected an error")
		t.FailNow()
	}

	if invoker.calls > 0 {
		t.Error("expected the packaging tool not to be invoked")
	}

	if stage := dozererr.StageOf(err); stage != dozererr.StageValidate {
		t.Error("expected validate stage, got", stage)
	}
}

func TestBuildFailure(t *testing.T) {
	var (
		invoker = &fakeInvoker{
			output: strings.Repeat("x", 2*builder.DefaultTailSize) + "\nBUILD FAILED: gradle exited 1\n",
			err:    errors.New("exit status 1"),
		}
		b = &builder.Builder{Dir: t.TempDir(), Invoker: invoker}
	)

	_, err := b.Build(context.Background(), newManifest(), tc, env, target)
	if err == nil {
		t.Error("expected an error")
		t.FailNow()
	}

	if stage := dozererr.StageOf(err); stage != dozererr.StageBuild {
		t.Error("expected build stage, got", stage)
	}

	if !strings.Contains(err.Error(), "BUILD FAILED: gradle exited 1") {
		t.Error("expected the diagnostic tail in the error")
	}

	if len(err.Error()) > builder.DefaultTailSize+256 {
		t.Error("expected only the tail of the output in the error, got", len(err.Error()))
	}
}

func TestEnviron(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	t.Setenv("PIP_FIND_LINKS", "/elsewhere")

	var (
		path      string
		findLinks []string
	)
	for _, kv := range builder.Environ(tc, env) {
		if strings.HasPrefix(kv, "PATH=") {
			path = kv
		} else if strings.HasPrefix(kv, "PIP_FIND_LINKS=") {
			findLinks = append(findLinks, kv)
		}
	}

	if expected := "PATH=" + filepath.Join(env.Dir, "bin") + string(os.PathListSeparator) + "/usr/bin"; path != expected {
		t.Error("expected", expected, "but got", path)
	}

	if len(findLinks) != 1 || findLinks[0] != "PIP_FIND_LINKS="+env.Wheels {
		t.Error("expected the environment's wheels to be the only find-links, got", findLinks)
	}
}

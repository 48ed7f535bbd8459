package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/buildozer"
	"github.com/frantjc/dozer/internal/dozererr"
	xslice "github.com/frantjc/x/slice"
	"github.com/google/uuid"
)

// Invoker runs the packaging tool.
type Invoker interface {
	Run(ctx context.Context, opts *buildozer.RunOpts, platform, mode string) error
}

// Builder renders a Manifest into the packaging tool's
// configuration and invokes the packaging tool with it.
type Builder struct {
	// Dir is the directory that each build's working directory is created in.
	Dir string
	// BuildDir is where the packaging tool keeps its intermediate
	// state between builds. Defaults to a directory under Dir.
	BuildDir string
	// Invoker defaults to the `buildozer` installed in the Environment.
	Invoker   Invoker
	Verbosity int
	Stdout    io.Writer
	Stderr    io.Writer
	TailSize  int
}

func (b *Builder) invoker(env *dozer.Environment) Invoker {
	if b.Invoker != nil {
		return b.Invoker
	}

	return buildozer.Command(filepath.Join(env.Bin(), "buildozer"))
}

func (b *Builder) buildDir(m *dozer.Manifest) string {
	if b.BuildDir != "" {
		return filepath.Join(b.BuildDir, m.PackageID())
	}

	return filepath.Join(b.Dir, ".buildozer", m.PackageID())
}

// Build invokes the packaging tool for m against the provisioned
// Toolchain and resolved Environment. m and target are validated
// again first so that the packaging tool is never invoked for a
// build that cannot succeed.
func (b *Builder) Build(ctx context.Context, m *dozer.Manifest, tc *dozer.Toolchain, env *dozer.Environment, target dozer.Target) (*dozer.BuildOutput, error) {
	if err := dozer.ValidateManifest(m); err != nil {
		return nil, dozererr.StageError(err, dozererr.StageValidate)
	}

	if err := dozer.ValidateTarget(target); err != nil {
		return nil, dozererr.StageError(err, dozererr.StageValidate)
	}

	out, err := b.build(ctx, m, tc, env, target)
	return out, dozererr.StageError(err, dozererr.StageBuild)
}

func (b *Builder) build(ctx context.Context, m *dozer.Manifest, tc *dozer.Toolchain, env *dozer.Environment, target dozer.Target) (*dozer.BuildOutput, error) {
	if tc == nil || env == nil {
		return nil, fmt.Errorf("a provisioned toolchain and resolved environment are required")
	}

	var (
		id  = uuid.NewString()
		log = dozer.LoggerFrom(ctx).WithValues("build", id, "target", target.String())
	)

	work, err := filepath.Abs(filepath.Join(b.Dir, id))
	if err != nil {
		return nil, err
	}

	buildDir, err := filepath.Abs(b.buildDir(m))
	if err != nil {
		return nil, err
	}

	out := &dozer.BuildOutput{
		ID:     id,
		Dir:    work,
		BinDir: filepath.Join(work, "bin"),
		Target: target,
	}

	for _, dir := range []string{out.BinDir, buildDir} {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	spec, err := os.Create(filepath.Join(work, buildozer.SpecName))
	if err != nil {
		return nil, err
	}
	defer spec.Close()

	if err = dozer.EncodeSpec(spec, m, &dozer.EncodeSpecOpts{
		SDKPath:     tc.Home,
		NDKPath:     tc.NDKDir,
		BuildDir:    buildDir,
		BinDir:      out.BinDir,
		Provisioned: true,
	}); err != nil {
		return nil, err
	}

	if err = spec.Close(); err != nil {
		return nil, err
	}

	var (
		verbose                  = m.Buildozer.LogLevel >= 2 || b.Verbosity >= 2
		tail                     = newTailBuffer(b.TailSize)
		stdout, stderr io.Writer = tail, tail
	)
	if verbose {
		if b.Stdout != nil {
			stdout = io.MultiWriter(b.Stdout, tail)
		}

		if b.Stderr != nil {
			stderr = io.MultiWriter(b.Stderr, tail)
		}
	}

	log.Info("invoking packaging tool", "dir", work, "verbose", verbose)

	if err = b.invoker(env).Run(ctx, &buildozer.RunOpts{
		Dir:     work,
		Env:     Environ(tc, env),
		Verbose: verbose,
		Stdout:  stdout,
		Stderr:  stderr,
	}, target.Platform, target.Mode); err != nil {
		if diag := strings.TrimSpace(tail.String()); diag != "" {
			return nil, fmt.Errorf("%w\n%s", err, diag)
		}

		return nil, err
	}

	log.Info("packaging tool finished", "bin", out.BinDir)

	return out, nil
}

// Environ returns the process environment that the packaging tool is
// run with: the current one, with the Environment's executables first
// on PATH and the Toolchain's locations exported.
func Environ(tc *dozer.Toolchain, env *dozer.Environment) []string {
	var (
		environ = []string{}
		path    = env.Bin()
		skip    = []string{"PATH", "VIRTUAL_ENV", "ANDROIDSDK", "ANDROIDNDK", "ANDROID_HOME", "ANDROID_SDK_ROOT", "PIP_FIND_LINKS"}
	)

	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")

		if key == "PATH" && value != "" {
			path += string(os.PathListSeparator) + value
		}

		if !xslice.Includes(skip, key) {
			environ = append(environ, kv)
		}
	}

	environ = append(environ,
		"PATH="+path,
		"VIRTUAL_ENV="+env.Dir,
		"ANDROIDSDK="+tc.Home,
		"ANDROIDNDK="+tc.NDKDir,
		"ANDROID_HOME="+tc.Home,
		"ANDROID_SDK_ROOT="+tc.Home,
	)

	// python-for-android installs pure-Python requirements with pip,
	// which then prefers the wheels that were already downloaded.
	if env.Wheels != "" {
		environ = append(environ, "PIP_FIND_LINKS="+env.Wheels)
	}

	return environ
}

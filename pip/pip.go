package pip

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command represents the path to a `python` executable
// that `pip` and `venv` are run as modules of.
type Command string

func (c Command) String() string {
	return string(c)
}

// Opts represent flags and streams common to every invocation.
type Opts struct {
	Stdout io.Writer
	Env    []string
}

// Venv runs `python -m venv` to create a virtual environment at dir.
func (c Command) Venv(ctx context.Context, dir string, opts *Opts) error {
	return c.run(ctx, opts, "-m", "venv", dir)
}

// Install runs `python -m pip install` for each of reqs.
func (c Command) Install(ctx context.Context, opts *Opts, reqs ...string) error {
	if len(reqs) == 0 {
		return nil
	}

	return c.run(ctx, opts, append([]string{"-m", "pip", "install", "--disable-pip-version-check"}, reqs...)...)
}

// Download runs `python -m pip download` for each of reqs, without
// their dependencies, into dest.
func (c Command) Download(ctx context.Context, dest string, opts *Opts, reqs ...string) error {
	if len(reqs) == 0 {
		return nil
	}

	return c.run(ctx, opts, append([]string{"-m", "pip", "download", "--disable-pip-version-check", "--no-deps", "--dest", dest}, reqs...)...)
}

func (c Command) run(ctx context.Context, opts *Opts, args ...string) error {
	if opts == nil {
		opts = &Opts{}
	}

	var (
		stderr = new(bytes.Buffer)
		//nolint:gosec
		cmd = exec.CommandContext(ctx, c.String(), args...)
	)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = stderr
	cmd.Env = opts.Env

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", c, strings.Join(args[:3], " "), err, msg)
		}

		return fmt.Errorf("%s %s: %w", c, strings.Join(args[:3], " "), err)
	}

	return nil
}

// Virtualenv creates and installs into virtual environments
// using Python to bootstrap them.
type Virtualenv struct {
	Python Command
	Stdout io.Writer
}

// Interpreter returns the `python` executable of the virtual environment at dir.
func Interpreter(dir string) Command {
	return Command(filepath.Join(dir, "bin", "python"))
}

func (v *Virtualenv) Create(ctx context.Context, dir string) error {
	return v.Python.Venv(ctx, dir, &Opts{Stdout: v.Stdout})
}

func (v *Virtualenv) Install(ctx context.Context, dir string, reqs ...string) error {
	return Interpreter(dir).Install(ctx, &Opts{Stdout: v.Stdout}, reqs...)
}

func (v *Virtualenv) Download(ctx context.Context, dir, dest string, reqs ...string) error {
	return Interpreter(dir).Download(ctx, dest, &Opts{Stdout: v.Stdout}, reqs...)
}

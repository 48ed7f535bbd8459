package buildozer

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// SpecName is the name of the file that `buildozer`
// reads its configuration from in its working directory.
const SpecName = "buildozer.spec"

// Command represents the path to a `buildozer` executable.
type Command string

func (c Command) String() string {
	return string(c)
}

// RunOpts represent flags, environment and streams
// for a `buildozer` invocation.
type RunOpts struct {
	// Dir is the directory containing the buildozer.spec to build.
	Dir     string
	Env     []string
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// Args returns the arguments that Run passes to `buildozer`.
func Args(opts *RunOpts, platform, mode string) []string {
	args := []string{}

	if opts != nil && opts.Verbose {
		args = append(args, "-v")
	}

	return append(args, platform, mode)
}

// Run executes `buildozer <platform> <mode>` in opts.Dir.
func (c Command) Run(ctx context.Context, opts *RunOpts, platform, mode string) error {
	if opts == nil {
		opts = &RunOpts{}
	}

	//nolint:gosec
	cmd := exec.CommandContext(ctx, c.String(), Args(opts, platform, mode)...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s %s: %w", c, platform, mode, err)
	}

	return nil
}

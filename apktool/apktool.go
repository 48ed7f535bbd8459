package apktool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Decode finds `apktool` on the PATH and runs Decode against it.
// See Command.Decode.
func Decode(ctx context.Context, name string, opts *DecodeOpts) error {
	return Command("apktool").Decode(ctx, name, opts)
}

// Command represents the path to an `apktool` executable.
type Command string

func (c Command) String() string {
	return string(c)
}

// DecodeOpts represent flags that can be passed to `apktool decode`.
type DecodeOpts struct {
	Force           bool
	NoResources     bool
	NoSources       bool
	OutputDirectory string
	FrameworkPath   string
	Stdout          io.Writer
}

// Decode executes a command against `apktool` found at Command.
// It runs `apktool decode` against the .apk at name with flags
// derived from the given DecodeOpts. When it fails, the returned
// error carries whatever `apktool` wrote to stderr.
func (c Command) Decode(ctx context.Context, name string, opts *DecodeOpts) error {
	args := []string{"decode"}

	if opts == nil {
		opts = &DecodeOpts{}
	}

	if opts.Force {
		args = append(args, "--force")
	}

	if opts.NoResources {
		args = append(args, "--no-res")
	}

	if opts.NoSources {
		args = append(args, "--no-src")
	}

	if opts.FrameworkPath != "" {
		args = append(args, "--frame-path", opts.FrameworkPath)
	}

	if opts.OutputDirectory != "" {
		args = append(args, "--output", opts.OutputDirectory)
	}

	args = append(args, name)

	var (
		stderr = new(bytes.Buffer)
		//nolint:gosec
		cmd = exec.CommandContext(ctx, c.String(), args...)
	)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s decode: %w: %s", c, err, msg)
		}

		return fmt.Errorf("%s decode: %w", c, err)
	}

	return nil
}

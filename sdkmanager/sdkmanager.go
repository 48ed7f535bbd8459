package sdkmanager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// Path returns the location of the `sdkmanager` executable
// inside of the command-line tools installed under root.
func Path(root string) string {
	return filepath.Join(root, "cmdline-tools", "latest", "bin", "sdkmanager")
}

// Command represents the path to an `sdkmanager` executable.
type Command string

func (c Command) String() string {
	return string(c)
}

// Opts represent flags and streams common to every `sdkmanager` invocation.
type Opts struct {
	Stdout io.Writer
	Env    []string
}

// Install runs `sdkmanager --install` for each of pkgs into the SDK at root.
func (c Command) Install(ctx context.Context, root string, opts *Opts, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}

	return c.run(ctx, nil, opts, append([]string{"--sdk_root=" + root, "--install"}, pkgs...)...)
}

// AcceptLicenses runs `sdkmanager --licenses` against the SDK at root,
// answering yes to every license that it prompts for.
func (c Command) AcceptLicenses(ctx context.Context, root string, opts *Opts) error {
	return c.run(ctx, strings.NewReader(strings.Repeat("y\n", 32)), opts, "--sdk_root="+root, "--licenses")
}

func (c Command) run(ctx context.Context, stdin io.Reader, opts *Opts, args ...string) error {
	if opts == nil {
		opts = &Opts{}
	}

	var (
		stderr = new(bytes.Buffer)
		//nolint:gosec
		cmd = exec.CommandContext(ctx, c.String(), args...)
	)
	cmd.Stdin = stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = stderr
	cmd.Env = opts.Env

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", c, args[len(args)-1], err, msg)
		}

		return fmt.Errorf("%s %s: %w", c, args[len(args)-1], err)
	}

	return nil
}

package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/frantjc/dozer"
	xslice "github.com/frantjc/x/slice"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SetCommon adds the flags and behavior that every
// dozer command shares to cmd.
func SetCommon(cmd *cobra.Command, version string) *cobra.Command {
	var verbosity int
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "V", fmt.Sprintf("Verbosity for %s.", cmd.Name()))
	cmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		cmd.SetContext(
			dozer.WithLogger(cmd.Context(), dozer.NewLogger(cmd.ErrOrStderr(), verbosityFrom(cmd))),
		)
	}

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.Version = version
	cmd.SetVersionTemplate("{{ .Name }}{{ .Version }} " + runtime.Version() + "\n")

	return cmd
}

// verbosityFrom returns the verbosity that cmd was invoked with,
// at least 2 if DOZER_VERBOSE is truthy.
func verbosityFrom(cmd *cobra.Command) int {
	verbosity := 0
	if flag := cmd.Flag("verbose"); flag != nil {
		verbosity, _ = strconv.Atoi(flag.Value.String())
	}

	if verbose := os.Getenv("DOZER_VERBOSE"); verbose != "" && xslice.Some([]string{"1", "y", "yes", "true", "t"}, func(s string, _ int) bool {
		return strings.EqualFold(s, verbose)
	}) && verbosity < 2 {
		verbosity = 2
	}

	return verbosity
}

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", outputYAML, "Output format. One of: yaml, json.")
}

func encode(w io.Writer, output string, a any) error {
	switch strings.ToLower(output) {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	case outputYAML, "":
		// Round-trip through JSON so that the
		// YAML keys match the JSON field names.
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}

		var v any
		if err = yaml.Unmarshal(b, &v); err != nil {
			return err
		}

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()
	}

	return fmt.Errorf("unsupported output format %q", output)
}

// cacheDir returns the directory that dozer keeps its state in.
func cacheDir() string {
	if dir := os.Getenv("DOZER_CACHE"); dir != "" {
		return dir
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".dozer")
	}

	return filepath.Join(os.TempDir(), "dozer")
}

// fileURL returns a URL for opening a gocloud.dev/blob/fileblob
// bucket at dir, creating dir if it does not exist.
func fileURL(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	return "file://" + filepath.ToSlash(dir), nil
}

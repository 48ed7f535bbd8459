package command

import (
	"fmt"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/dozererr"
	"github.com/spf13/cobra"
)

func openManifest(name string) (*dozer.Manifest, error) {
	m, err := dozer.OpenManifest(name)
	if err != nil {
		return nil, dozererr.StageError(err, dozererr.StageValidate)
	}

	return m, nil
}

func newValidate() *cobra.Command {
	var (
		spec   string
		output string
		cmd    = &cobra.Command{
			Use:   "validate",
			Short: "Decode and validate a build manifest",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := openManifest(spec)
				if err != nil {
					return err
				}

				if err = dozer.ValidateManifest(m); err != nil {
					return dozererr.StageError(fmt.Errorf("invalid %s:\n%w", spec, err), dozererr.StageValidate)
				}

				return encode(cmd.OutOrStdout(), output, m)
			},
		}
	)

	cmd.Flags().StringVarP(&spec, "spec", "f", defaultSpec, "Path to the build manifest.")
	addOutputFlag(cmd, &output)

	return cmd
}

package command

import (
	"fmt"
	"net/url"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/dozerregexp"
	"github.com/spf13/cobra"
)

func newClient(cmd *cobra.Command) (*dozer.Client, error) {
	cli := new(dozer.Client)

	if urlstr := cmd.Flag("url").Value.String(); urlstr != "" {
		var err error
		if cli.Base, err = url.Parse(urlstr); err != nil {
			return nil, err
		}
	}

	return cli, nil
}

func parseArtifactArgs(args []string) (string, string, error) {
	var (
		packageID = args[0]
		version   = "latest"
	)

	if len(args) > 1 {
		version = args[1]
	}

	if !dozerregexp.IsPackageDomain(packageID) {
		return "", "", fmt.Errorf("invalid package %s", packageID)
	}

	if version != "latest" && !dozerregexp.IsVersion(version) {
		return "", "", fmt.Errorf("invalid version %s", version)
	}

	return packageID, version, nil
}

func addModeFlag(cmd *cobra.Command, mode *string) {
	cmd.Flags().StringVar(mode, "mode", "", "Build mode of the package. One of: debug, release. Defaults to the most recently published.")
}

func newGet() *cobra.Command {
	var (
		urlstr string
		cmd    = &cobra.Command{
			Use:   "get",
			Short: "Get published packages",
		}
	)

	cmd.PersistentFlags().StringVar(&urlstr, "url", "", "Base URL of a dozer API.")

	cmd.AddCommand(newGetArtifacts(), newGetArtifact())

	return cmd
}

func newGetArtifacts() *cobra.Command {
	var (
		packageID string
		output    string
		cmd       = &cobra.Command{
			Use:   "artifacts",
			Short: "List published packages",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cli, err := newClient(cmd)
				if err != nil {
					return err
				}

				artifacts, err := cli.GetArtifacts(cmd.Context(), packageID)
				if err != nil {
					return err
				}

				return encode(cmd.OutOrStdout(), output, artifacts)
			},
		}
	)

	cmd.Flags().StringVar(&packageID, "package", "", "Only list versions of this package.")
	addOutputFlag(cmd, &output)

	return cmd
}

func newGetArtifact() *cobra.Command {
	var (
		mode   string
		output string
		cmd    = &cobra.Command{
			Use:   "artifact <package> [version]",
			Short: "Get a published package",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				packageID, version, err := parseArtifactArgs(args)
				if err != nil {
					return err
				}

				cli, err := newClient(cmd)
				if err != nil {
					return err
				}

				artifact, err := cli.GetArtifact(cmd.Context(), packageID, version, mode)
				if err != nil {
					return err
				}

				return encode(cmd.OutOrStdout(), output, artifact)
			},
		}
	)

	addModeFlag(cmd, &mode)
	addOutputFlag(cmd, &output)

	return cmd
}

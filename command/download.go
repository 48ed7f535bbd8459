package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/frantjc/dozer"
	"github.com/spf13/cobra"
)

func newDownload() *cobra.Command {
	var (
		urlstr string
		out    string
		mode   string
		cmd    = &cobra.Command{
			Use:   "download <package> [version]",
			Short: "Download a published package",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					ctx = cmd.Context()
					log = dozer.LoggerFrom(ctx)
				)

				packageID, version, err := parseArtifactArgs(args)
				if err != nil {
					return err
				}

				cli, err := newClient(cmd)
				if err != nil {
					return err
				}

				artifact, err := cli.GetArtifact(ctx, packageID, version, mode)
				if err != nil {
					return err
				}

				if err = artifact.Digest.Validate(); err != nil {
					return fmt.Errorf("artifact %s has an invalid digest: %w", artifact.File, err)
				}

				if out == "" {
					out = filepath.Base(artifact.File)
				}

				rc, err := cli.DownloadArtifact(ctx, artifact)
				if err != nil {
					return err
				}
				defer rc.Close()

				var w io.Writer = cmd.OutOrStdout()
				if out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()

					w = f
				}

				verifier := artifact.Digest.Verifier()

				if _, err = io.Copy(io.MultiWriter(w, verifier), rc); err != nil {
					return err
				}

				if !verifier.Verified() {
					if out != "-" {
						_ = os.Remove(out)
					}

					return fmt.Errorf("downloaded %s does not match digest %s", artifact.File, artifact.Digest)
				}

				log.Info("downloaded "+artifact.File, "digest", artifact.Digest)

				return nil
			},
		}
	)

	cmd.Flags().StringVar(&urlstr, "url", "", "Base URL of a dozer API.")
	addModeFlag(cmd, &mode)
	cmd.Flags().StringVarP(&out, "output-document", "O", "", "File to write the package to, or - for stdout. Defaults to the package's name.")

	return cmd
}

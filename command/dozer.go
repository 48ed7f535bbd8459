package command

import (
	"github.com/frantjc/dozer"
	"github.com/spf13/cobra"
)

// NewDozer returns the root command for
// dozer which acts as its CLI entrypoint.
func NewDozer() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dozer",
		Short: "Build, package and publish Python applications for Android",
	}

	cmd.AddCommand(
		newBuild(),
		newValidate(),
		newKeys(),
		newServe(),
		newGet(),
		newDownload(),
	)

	return SetCommon(cmd, dozer.SemVer())
}

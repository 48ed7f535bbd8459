package command

import (
	"github.com/frantjc/dozer/internal/dozercache"
	"github.com/frantjc/dozer/internal/dozererr"
	"github.com/frantjc/dozer/internal/resolver"
	xslice "github.com/frantjc/x/slice"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

func newKeys() *cobra.Command {
	var (
		spec   string
		python string
		tools  []string
		output string
		cmd    = &cobra.Command{
			Use:   "keys",
			Short: "Print the cache keys of a build manifest",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := openManifest(spec)
				if err != nil {
					return err
				}

				if len(tools) == 0 {
					tools = resolver.DefaultTools
				}

				dependencyKey, err := dozercache.DependencyKey(m, tools, xslice.Coalesce(python, resolver.DefaultPython))
				if err != nil {
					return dozererr.StageError(err, dozererr.StageValidate)
				}

				return encode(cmd.OutOrStdout(), output, &struct {
					Package    string        `json:"package"`
					Toolchain  digest.Digest `json:"toolchain"`
					Dependency digest.Digest `json:"dependencies"`
				}{
					Package:    m.PackageID(),
					Toolchain:  dozercache.ToolchainKey(m, dozercache.DefaultCmdlineToolsRevision),
					Dependency: dependencyKey,
				})
			},
		}
	)

	cmd.Flags().StringVarP(&spec, "spec", "f", defaultSpec, "Path to the build manifest.")
	cmd.Flags().StringVar(&python, "python", "", "Python interpreter to create environments with.")
	cmd.Flags().StringArrayVar(&tools, "tool", nil, "Build-tool requirement. May be repeated.")
	addOutputFlag(cmd, &output)

	return cmd
}

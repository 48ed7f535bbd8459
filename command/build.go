package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/builder"
	"github.com/frantjc/dozer/internal/dozererr"
	"github.com/frantjc/dozer/internal/pipeline"
	"github.com/frantjc/dozer/internal/provisioner"
	"github.com/frantjc/dozer/internal/publisher"
	"github.com/frantjc/dozer/internal/resolver"
	"github.com/frantjc/dozer/pip"
	xslice "github.com/frantjc/x/slice"
	"github.com/spf13/cobra"
	"gocloud.dev/blob"
	"gocloud.dev/pubsub"
)

const defaultSpec = "buildozer.spec"

func parseLicenses(licenses []string) (map[string]string, error) {
	parsed := map[string]string{}

	for _, license := range licenses {
		name, hash, ok := strings.Cut(license, "=")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("invalid --license %q, expected name=hash", license)
		}

		parsed[name] = hash
	}

	return parsed, nil
}

func newBuild() *cobra.Command {
	var (
		spec        string
		cache       string
		cacheURL    string
		androidHome string
		licenses    []string
		python      string
		tools       []string
		publishURL  string
		topicURL    string
		verify      bool
		timeout     time.Duration
		output      string
		cmd         = &cobra.Command{
			Use:   "build <platform> <mode>",
			Short: "Build, package and publish an application",
			Example: `  dozer build android debug
  dozer build android release --spec app/buildozer.spec --verify`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					ctx = cmd.Context()
					log = dozer.LoggerFrom(ctx)
				)

				target, err := dozer.ParseTarget(args[0], args[1])
				if err != nil {
					return dozererr.StageError(err, dozererr.StageValidate)
				}

				m, err := openManifest(spec)
				if err != nil {
					return err
				}

				parsedLicenses, err := parseLicenses(licenses)
				if err != nil {
					return dozererr.StageError(err, dozererr.StageValidate)
				}

				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}

				cache = xslice.Coalesce(cache, cacheDir())
				if cache, err = filepath.Abs(cache); err != nil {
					return err
				}

				if cacheURL == "" {
					if cacheURL, err = fileURL(filepath.Join(cache, "stamps")); err != nil {
						return err
					}
				}

				if publishURL == "" {
					if publishURL, err = fileURL(filepath.Join(cache, "artifacts")); err != nil {
						return err
					}
				}

				log.V(1).Info("opening cache bucket " + cacheURL)
				stamps, err := blob.OpenBucket(ctx, cacheURL)
				if err != nil {
					return err
				}
				defer stamps.Close()

				log.V(1).Info("opening artifact bucket " + publishURL)
				artifacts, err := blob.OpenBucket(ctx, publishURL)
				if err != nil {
					return err
				}
				defer artifacts.Close()

				var topic *pubsub.Topic
				if topicURL != "" {
					log.V(1).Info("opening topic " + topicURL)
					if topic, err = pubsub.OpenTopic(ctx, topicURL); err != nil {
						return err
					}
					defer topic.Shutdown(context.WithoutCancel(ctx))
				}

				var (
					stderr = cmd.ErrOrStderr()
					p      = &pipeline.Pipeline{
						Provisioner: &provisioner.Provisioner{
							Home:       xslice.Coalesce(androidHome, os.Getenv("ANDROID_HOME"), filepath.Join(cache, "android-sdk")),
							Bucket:     stamps,
							SDKManager: &provisioner.CommandSDKManager{Stdout: stderr},
							Fetcher:    &provisioner.HTTPFetcher{},
							Licenses:   parsedLicenses,
						},
						Resolver: &resolver.Resolver{
							Dir:    cache,
							Bucket: stamps,
							Python: python,
							Tools:  tools,
							Env: &pip.Virtualenv{
								Python: pip.Command(xslice.Coalesce(python, resolver.DefaultPython)),
								Stdout: stderr,
							},
						},
						Builder: &builder.Builder{
							Dir:       filepath.Join(cache, "builds"),
							BuildDir:  filepath.Join(cache, "buildozer"),
							Verbosity: verbosityFrom(cmd),
							Stdout:    stderr,
							Stderr:    stderr,
						},
						Publisher: &publisher.Publisher{
							Bucket: artifacts,
							Topic:  topic,
							Verify: verify,
						},
					}
				)

				artifact, err := p.Run(ctx, m, target)
				if err != nil {
					return err
				}

				return encode(cmd.OutOrStdout(), output, artifact)
			},
		}
	)

	cmd.Flags().StringVarP(&spec, "spec", "f", defaultSpec, "Path to the build manifest.")
	cmd.Flags().StringVar(&cache, "cache", "", "Directory to keep toolchains, environments and builds in. Defaults to $DOZER_CACHE or ~/.dozer.")
	cmd.Flags().StringVar(&cacheURL, "cache-url", "", "Blob URL to keep cache stamps in. Defaults to a directory in --cache.")
	cmd.Flags().StringVar(&androidHome, "android-home", "", "Android SDK root. Defaults to $ANDROID_HOME or a directory in --cache.")
	cmd.Flags().StringArrayVar(&licenses, "license", nil, "Accepted Android SDK license as name=hash. May be repeated.")
	cmd.Flags().StringVar(&python, "python", "", "Python interpreter to create environments with.")
	cmd.Flags().StringArrayVar(&tools, "tool", nil, "Build-tool requirement. May be repeated.")
	cmd.Flags().StringVar(&publishURL, "publish", "", "Blob URL to publish packages to. Defaults to a directory in --cache.")
	cmd.Flags().StringVar(&topicURL, "topic", "", "Pubsub URL to notify of published packages.")
	cmd.Flags().BoolVar(&verify, "verify", false, "Verify built .apks with apktool before publishing them.")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Time limit for the whole build.")
	addOutputFlag(cmd, &output)

	return cmd
}

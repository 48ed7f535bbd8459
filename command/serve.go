package command

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/api"
	"github.com/spf13/cobra"
	"gocloud.dev/blob"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"
)

// receive logs each Artifact announced on subscription until ctx is done.
func receive(ctx context.Context, subscription *pubsub.Subscription) error {
	log := dozer.LoggerFrom(ctx)

	for {
		msg, err := subscription.Receive(ctx)
		if err != nil {
			return err
		}

		artifact := &dozer.Artifact{}
		if err = json.Unmarshal(msg.Body, artifact); err != nil {
			log.Error(err, "discarding malformed message")
		} else {
			log.Info("artifact published", "package", artifact.PackageID, "version", artifact.Version, "digest", artifact.Digest)
		}

		msg.Ack()
	}
}

func newServe() *cobra.Command {
	var (
		address         string
		path            string
		bloburlstr      string
		subscriptionurl string
		cmd             = &cobra.Command{
			Use:   "serve",
			Short: "Serve published packages for retrieval",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var (
					ctx = cmd.Context()
					log = dozer.LoggerFrom(ctx)
				)

				if bloburlstr == "" {
					var err error
					if bloburlstr, err = fileURL(filepath.Join(cacheDir(), "artifacts")); err != nil {
						return err
					}
				}

				log.Info("opening bucket " + bloburlstr)
				bucket, err := blob.OpenBucket(ctx, bloburlstr)
				if err != nil {
					return err
				}
				defer bucket.Close()

				handler, err := api.NewHandler(bucket, &api.Opts{Path: path})
				if err != nil {
					return err
				}

				srv := &http.Server{
					ReadHeaderTimeout: time.Second * 5,
					BaseContext: func(_ net.Listener) context.Context {
						return ctx
					},
					Handler: handler,
				}

				var subscription *pubsub.Subscription
				if subscriptionurl != "" {
					log.Info("opening subscription " + subscriptionurl)
					if subscription, err = pubsub.OpenSubscription(ctx, subscriptionurl); err != nil {
						return err
					}
					defer subscription.Shutdown(context.WithoutCancel(ctx))
				}

				lis, err := net.Listen("tcp", address)
				if err != nil {
					return err
				}
				defer lis.Close()

				eg, egctx := errgroup.WithContext(ctx)

				eg.Go(func() error {
					log.Info("listening on " + lis.Addr().String())
					if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
						return err
					}

					return nil
				})

				eg.Go(func() error {
					<-egctx.Done()

					sctx, cancel := context.WithTimeout(context.WithoutCancel(egctx), time.Second*10)
					defer cancel()

					return srv.Shutdown(sctx)
				})

				if subscription != nil {
					eg.Go(func() error {
						if err := receive(egctx, subscription); egctx.Err() == nil {
							return err
						}

						return nil
					})
				}

				if err := eg.Wait(); err != nil {
					return err
				}

				return ctx.Err()
			},
		}
	)

	cmd.Flags().StringVar(&address, "addr", ":8080", "Listen address.")
	cmd.Flags().StringVar(&path, "path", "/", "Path to serve the API under.")
	cmd.Flags().StringVar(&bloburlstr, "blob", "", "Blob URL that packages are published to. Defaults to a directory in $DOZER_CACHE.")
	cmd.Flags().StringVar(&subscriptionurl, "subscription", "", "Pubsub URL to log published packages from.")

	return cmd
}

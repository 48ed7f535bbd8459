package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/dozererr"
)

type Provisioner interface {
	Provision(ctx context.Context, m *dozer.Manifest) (*dozer.Toolchain, error)
}

type Resolver interface {
	Resolve(ctx context.Context, m *dozer.Manifest) (*dozer.Environment, error)
}

type Builder interface {
	Build(ctx context.Context, m *dozer.Manifest, tc *dozer.Toolchain, env *dozer.Environment, target dozer.Target) (*dozer.BuildOutput, error)
}

type Publisher interface {
	Publish(ctx context.Context, m *dozer.Manifest, out *dozer.BuildOutput) (*dozer.Artifact, error)
}

// Pipeline runs each stage of a build in order,
// stopping at the first one that fails.
type Pipeline struct {
	Provisioner Provisioner
	Resolver    Resolver
	Builder     Builder
	Publisher   Publisher
}

// Run validates m and target, then provisions, resolves, builds and
// publishes m. The returned error is tagged with the stage that failed.
func (p *Pipeline) Run(ctx context.Context, m *dozer.Manifest, target dozer.Target) (*dozer.Artifact, error) {
	if m == nil {
		return nil, dozererr.StageError(errors.New("nil manifest"), dozererr.StageValidate)
	}

	// Stages get a private copy so that none of them
	// can change the manifest out from under the others.
	m = m.Clone()

	var (
		log   = dozer.LoggerFrom(ctx).WithValues("package", m.PackageID(), "version", m.Version, "target", target.String())
		start = time.Now()
	)

	if err := errors.Join(dozer.ValidateManifest(m), dozer.ValidateTarget(target)); err != nil {
		return nil, dozererr.StageError(err, dozererr.StageValidate)
	}

	ctx = dozer.WithLogger(ctx, log)

	log.Info("provisioning")

	tc, err := p.Provisioner.Provision(dozer.WithLogger(ctx, log.WithValues("stage", dozererr.StageProvision)), m)
	if err != nil {
		return nil, dozererr.StageError(err, dozererr.StageProvision)
	}

	log.Info("resolving")

	env, err := p.Resolver.Resolve(dozer.WithLogger(ctx, log.WithValues("stage", dozererr.StageResolve)), m)
	if err != nil {
		return nil, dozererr.StageError(err, dozererr.StageResolve)
	}

	log.Info("building")

	out, err := p.Builder.Build(dozer.WithLogger(ctx, log.WithValues("stage", dozererr.StageBuild)), m, tc, env, target)
	if err != nil {
		return nil, dozererr.StageError(err, dozererr.StageBuild)
	}

	log.Info("publishing")

	artifact, err := p.Publisher.Publish(dozer.WithLogger(ctx, log.WithValues("stage", dozererr.StagePublish)), m, out)
	if err != nil {
		return nil, dozererr.StageError(err, dozererr.StagePublish)
	}

	log.Info("done", "key", artifact.Key, "digest", artifact.Digest, "elapsed", time.Since(start).String())

	return artifact, nil
}

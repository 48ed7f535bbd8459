package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/dozerblob"
	"github.com/frantjc/dozer/internal/dozercache"
	"github.com/frantjc/dozer/internal/dozererr"
	xslice "github.com/frantjc/x/slice"
	"gocloud.dev/blob"
)

const DefaultPython = "python3"

// DefaultTools are the requirements that the packaging tool itself
// needs to be installed into the isolated environment.
var DefaultTools = []string{"buildozer", "cython==0.29.33"}

// recipes are requirements that python-for-android builds from
// its own recipes rather than from a Python package index.
var recipes = []string{
	"python3",
	"hostpython3",
	"android",
	"genericndkbuild",
	"libffi",
	"openssl",
	"pyjnius",
	"sqlite3",
	"setuptools",
}

// IsRecipe reports whether req is built by python-for-android from one of
// its recipes instead of being downloaded from a Python package index.
func IsRecipe(req dozer.Requirement) bool {
	key := req.Key()
	return xslice.Includes(recipes, key) || strings.HasPrefix(key, "sdl2")
}

// Env creates isolated Python environments and installs into them.
type Env interface {
	Create(ctx context.Context, dir string) error
	Install(ctx context.Context, dir string, reqs ...string) error
	Download(ctx context.Context, dir, dest string, reqs ...string) error
}

// Resolver makes sure that the build-tool and application
// requirements of a Manifest are available in an isolated
// Python environment.
type Resolver struct {
	// Dir is the directory that environments are created in.
	Dir string
	// Bucket holds the stamps of resolved environments.
	Bucket *blob.Bucket
	Python string
	Tools  []string
	Env    Env
}

func (r *Resolver) python() string {
	return xslice.Coalesce(r.Python, DefaultPython)
}

func (r *Resolver) tools() []string {
	if len(r.Tools) > 0 {
		return r.Tools
	}

	return DefaultTools
}

// Resolve creates the isolated environment for m, installs the
// build-tool requirements into it and downloads the application's
// requirements. When a stamp for the same requirements exists and
// the environment is still on disk, nothing is installed or downloaded.
func (r *Resolver) Resolve(ctx context.Context, m *dozer.Manifest) (*dozer.Environment, error) {
	env, err := r.resolve(ctx, m)
	return env, dozererr.StageError(err, dozererr.StageResolve)
}

func (r *Resolver) resolve(ctx context.Context, m *dozer.Manifest) (*dozer.Environment, error) {
	reqs, err := dozer.ResolveRequirements(m.Requirements)
	if err != nil {
		return nil, err
	}

	key, err := dozercache.DependencyKey(m, r.tools(), r.python())
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(filepath.Join(r.Dir, "venv", dozercache.Dirname(key)))
	if err != nil {
		return nil, err
	}

	var (
		log = dozer.LoggerFrom(ctx).WithValues("key", key)
		env = &dozer.Environment{
			Dir:    dir,
			Wheels: filepath.Join(dir, "wheels"),
			Key:    key,
		}
		stampKey = dozerblob.DependencyStampKey(key)
	)

	if r.Bucket != nil && exists(filepath.Join(env.Bin(), "python")) {
		if stamped, err := dozercache.HasStamp(ctx, r.Bucket, stampKey); err != nil {
			return nil, err
		} else if stamped {
			log.Info("using cached environment", "dir", dir)
			env.Cached = true
			return env, nil
		}
	}

	log.Info("creating environment", "dir", dir)

	// A previous attempt may have left a partial environment behind.
	if err = os.RemoveAll(dir); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, err
	}

	if err = r.Env.Create(ctx, dir); err != nil {
		return nil, fmt.Errorf("create environment: %w", err)
	}

	log.Info("installing build tools", "requirements", r.tools())

	if err = r.Env.Install(ctx, dir, r.tools()...); err != nil {
		return nil, fmt.Errorf("install build tools: %w", err)
	}

	downloads := xslice.Map(
		xslice.Filter(reqs, func(req dozer.Requirement, _ int) bool {
			return !IsRecipe(req)
		}),
		func(req dozer.Requirement, _ int) string {
			return req.String()
		},
	)

	if len(downloads) > 0 {
		if err = os.MkdirAll(env.Wheels, 0o755); err != nil {
			return nil, err
		}

		log.Info("downloading requirements", "requirements", downloads)

		if err = r.Env.Download(ctx, dir, env.Wheels, downloads...); err != nil {
			return nil, fmt.Errorf("download requirements: %w", err)
		}
	}

	if r.Bucket != nil {
		if err = dozercache.WriteStamp(ctx, r.Bucket, stampKey, &dozercache.Stamp{
			Key:        key,
			Components: append(slices.Clone(r.tools()), downloads...),
		}); err != nil {
			return nil, err
		}
	}

	return env, nil
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

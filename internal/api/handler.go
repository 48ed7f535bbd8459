package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/dozerblob"
	"github.com/frantjc/dozer/internal/dozererr"
	xslice "github.com/frantjc/x/slice"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/timewasted/go-accept-headers"
	"gocloud.dev/blob"
	"golang.org/x/mod/semver"
)

const (
	paramPackage = `{package:[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)+}`
	paramVersion = `{version}`
	paramFile    = `{file}`

	// VersionLatest refers to the highest published version of a package.
	VersionLatest = "latest"
)

type Opts struct {
	Path string
}

type Opt interface {
	Apply(*Opts)
}

func (o *Opts) Apply(opts *Opts) {
	if o != nil {
		if opts != nil {
			if o.Path != "" {
				opts.Path = path.Join("/", o.Path)
			}
		}
	}
}

func newOpts(opts ...Opt) *Opts {
	o := &Opts{
		Path: "/",
	}

	for _, opt := range opts {
		opt.Apply(o)
	}

	return o
}

type handler struct {
	Path   string
	Bucket *blob.Bucket
}

// NewHandler returns an http.Handler that serves the
// Artifacts published to bucket for retrieval.
func NewHandler(bucket *blob.Bucket, opts ...Opt) (http.Handler, error) {
	if bucket == nil {
		return nil, fmt.Errorf("nil bucket")
	}

	o := newOpts(opts...)

	var (
		h = &handler{Path: o.Path, Bucket: bucket}
		r = chi.NewRouter()
	)

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/readyz", handleErr(h.handleReadyz))

	r.Route(path.Join("/", h.Path), func(r chi.Router) {
		r.Get("/artifacts", handleErr(h.handleArtifacts))

		r.Get(
			fmt.Sprintf("/artifacts/%s/%s", paramPackage, paramVersion),
			handleErr(h.handleArtifact),
		)

		r.Get(
			fmt.Sprintf("/artifacts/%s/%s/%s", paramPackage, paramVersion, paramFile),
			handleErr(h.handleFile),
		)
	})

	r.NotFound(http.NotFound)

	return r, nil
}

func handleErr(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler(w, r); err != nil {
			dozer.LoggerFrom(r.Context()).Error(err, "request failed", "path", r.URL.Path)

			if nErr := negotiate(w, r, "application/json"); nErr != nil {
				http.Error(w, err.Error(), dozererr.HTTPStatusCode(err))
				return
			}

			w.WriteHeader(dozererr.HTTPStatusCode(err))
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		}
	}
}

func negotiate(w http.ResponseWriter, r *http.Request, contentType string) error {
	if header := r.Header.Get("Accept"); header != "" {
		if _, err := accept.Negotiate(header, contentType); err != nil {
			w.Header().Set("Accept", contentType)
			return dozererr.HTTPStatusCodeError(err, http.StatusNotAcceptable)
		}
	}

	if acceptEncoding := r.Header.Get("Accept-Encoding"); acceptEncoding != "" && xslice.Every([]string{"identity", "*"}, func(s string, _ int) bool {
		return !strings.Contains(acceptEncoding, s)
	}) && !strings.Contains(acceptEncoding, "gzip") {
		w.Header().Set("Accept-Encoding", "identity")
		return dozererr.HTTPStatusCodeError(fmt.Errorf("cannot satisfy Accept-Encoding: %s", acceptEncoding), http.StatusNotAcceptable)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Vary", "Accept")
	w.Header().Add("Vary", "Accept-Encoding")

	return nil
}

func respondJSON(w http.ResponseWriter, r *http.Request, a any, pretty bool) error {
	if err := negotiate(w, r, "application/json"); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(a)
}

func wantsPretty(r *http.Request) bool {
	pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty"))
	return pretty
}

func (h *handler) handleReadyz(w http.ResponseWriter, r *http.Request) error {
	if ok, err := h.Bucket.IsAccessible(r.Context()); err != nil {
		return dozererr.HTTPStatusCodeError(err, http.StatusServiceUnavailable)
	} else if !ok {
		return dozererr.HTTPStatusCodeError(fmt.Errorf("bucket is not accessible"), http.StatusServiceUnavailable)
	}

	w.WriteHeader(http.StatusOK)

	return nil
}

func (h *handler) handleArtifacts(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx       = r.Context()
		packageID = r.URL.Query().Get("package")
		prefix    = dozerblob.ArtifactsPrefix
		artifacts = []dozer.Artifact{}
	)
	if packageID != "" {
		prefix = path.Join(prefix, packageID) + "/"
	}

	iter := h.Bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		if path.Base(obj.Key) != dozerblob.ArtifactMetadataName {
			continue
		}

		artifact := dozer.Artifact{}
		if err := dozerblob.ReadJSON(ctx, h.Bucket, obj.Key, &artifact); err != nil {
			return err
		}

		artifacts = append(artifacts, artifact)
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].PackageID != artifacts[j].PackageID {
			return artifacts[i].PackageID < artifacts[j].PackageID
		}

		return compareVersions(artifacts[i].Version, artifacts[j].Version) < 0
	})

	return respondJSON(w, r, artifacts, wantsPretty(r))
}

// resolveVersion returns version, or the highest published
// version of packageID if version is "latest".
func (h *handler) resolveVersion(r *http.Request, packageID, version string) (string, error) {
	if version != VersionLatest {
		return version, nil
	}

	var (
		ctx      = r.Context()
		iter     = h.Bucket.List(&blob.ListOptions{Prefix: path.Join(dozerblob.ArtifactsPrefix, packageID) + "/", Delimiter: "/"})
		versions = []string{}
	)
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return "", err
		}

		if v := path.Base(strings.TrimSuffix(obj.Key, "/")); obj.IsDir && semver.IsValid("v"+v) {
			versions = append(versions, v)
		}
	}

	if len(versions) == 0 {
		return "", dozererr.HTTPStatusCodeError(fmt.Errorf("no versions of %s found", packageID), http.StatusNotFound)
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) > 0
	})

	return versions[0], nil
}

func compareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// latestArtifact returns the most recently published Artifact
// of the given version of packageID across every build mode.
func (h *handler) latestArtifact(ctx context.Context, packageID, version string) (*dozer.Artifact, error) {
	var (
		iter   = h.Bucket.List(&blob.ListOptions{Prefix: dozerblob.ArtifactDir(packageID, version)})
		latest *dozer.Artifact
	)
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}

		if path.Base(obj.Key) != dozerblob.ArtifactMetadataName {
			continue
		}

		artifact := &dozer.Artifact{}
		if err := dozerblob.ReadJSON(ctx, h.Bucket, obj.Key, artifact); err != nil {
			return nil, err
		}

		if latest == nil || artifact.Created.After(latest.Created) {
			latest = artifact
		}
	}

	if latest == nil {
		return nil, dozererr.HTTPStatusCodeError(fmt.Errorf("version %s of %s not found", version, packageID), http.StatusNotFound)
	}

	return latest, nil
}

func (h *handler) handleArtifact(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx       = r.Context()
		packageID = chi.URLParam(r, "package")
		mode      = r.URL.Query().Get("mode")
	)

	version, err := h.resolveVersion(r, packageID, chi.URLParam(r, "version"))
	if err != nil {
		return err
	}

	if mode == "" {
		artifact, err := h.latestArtifact(ctx, packageID, version)
		if err != nil {
			return err
		}

		return respondJSON(w, r, artifact, wantsPretty(r))
	}

	if !xslice.Includes([]string{dozer.ModeDebug, dozer.ModeRelease}, mode) {
		return dozererr.HTTPStatusCodeError(fmt.Errorf("invalid mode %s", mode), http.StatusBadRequest)
	}

	artifact := &dozer.Artifact{}
	if err := dozerblob.ReadJSON(ctx, h.Bucket, dozerblob.ArtifactMetadataKey(packageID, version, mode), artifact); err != nil {
		return err
	}

	return respondJSON(w, r, artifact, wantsPretty(r))
}

func (h *handler) handleFile(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx       = r.Context()
		packageID = chi.URLParam(r, "package")
		file      = chi.URLParam(r, "file")
	)

	version, err := h.resolveVersion(r, packageID, chi.URLParam(r, "version"))
	if err != nil {
		return err
	}

	if strings.Contains(file, "/") {
		return dozererr.HTTPStatusCodeError(fmt.Errorf("file %s not found", file), http.StatusNotFound)
	}

	rd, err := h.Bucket.NewReader(ctx, dozerblob.ArtifactKey(packageID, version, file), nil)
	if err != nil {
		return err
	}
	defer rd.Close()

	if err := negotiate(w, r, xslice.Coalesce(rd.ContentType(), "application/octet-stream")); err != nil {
		return err
	}

	w.Header().Set("Content-Length", strconv.FormatInt(rd.Size(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))

	if _, err := io.Copy(w, rd); err != nil {
		return err
	}

	return nil
}

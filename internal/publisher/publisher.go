package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/android"
	"github.com/frantjc/dozer/apktool"
	"github.com/frantjc/dozer/internal/dozerblob"
	"github.com/frantjc/dozer/internal/dozererr"
	"github.com/frantjc/dozer/internal/dozerregexp"
	xslice "github.com/frantjc/x/slice"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/pubsub"
)

// APK is a built .apk that can be inspected before it is published.
type APK interface {
	Manifest(ctx context.Context) (*android.Manifest, error)
	Metadata(ctx context.Context) (*apktool.Metadata, error)
	SHA256CertFingerprints(ctx context.Context) (string, error)
	Close() error
}

// Publisher verifies the package that a build produced and
// exposes it for retrieval.
type Publisher struct {
	Bucket *blob.Bucket
	// Topic, if set, is notified of every published Artifact.
	Topic  *pubsub.Topic
	Verify bool
	// OpenAPK defaults to decoding the .apk with `apktool`
	// found at APKTool and `keytool` found at Keytool.
	OpenAPK func(name string) APK
	APKTool string
	Keytool string
}

func (p *Publisher) openAPK(name string) APK {
	if p.OpenAPK != nil {
		return p.OpenAPK(name)
	}

	return android.NewAPKDecoder(name,
		android.WithAPKTool(xslice.Coalesce(p.APKTool, "apktool")),
		android.WithKeytool(xslice.Coalesce(p.Keytool, "keytool")),
	)
}

// Publish finds the single package that out contains for m, optionally
// verifies it against m and uploads it along with its metadata. Nothing
// is published if out contains no matching package or more than one.
func (p *Publisher) Publish(ctx context.Context, m *dozer.Manifest, out *dozer.BuildOutput) (*dozer.Artifact, error) {
	artifact, err := p.publish(ctx, m, out)
	return artifact, dozererr.StageError(err, dozererr.StagePublish)
}

// FindArtifact returns the path to the only file in dir that is the
// package of m built in mode, named like "<name>-<version>-...-<mode>.<ext>".
func FindArtifact(m *dozer.Manifest, dir, mode string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var (
		prefix  = m.PackageName + "-" + m.Version + "-"
		suffix  = "-" + strings.ToLower(mode) + "." + m.ArtifactExt(mode)
		matches = []string{}
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() &&
			dozerregexp.IsArtifact(name) &&
			strings.HasPrefix(name, prefix) &&
			strings.HasSuffix(strings.ToLower(name), suffix) {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no %s*%s found in %s", prefix, suffix, dir)
	case 1:
		return filepath.Join(dir, matches[0]), nil
	default:
		return "", fmt.Errorf("found %d packages in %s, expected exactly one: %s", len(matches), dir, strings.Join(matches, ", "))
	}
}

func (p *Publisher) publish(ctx context.Context, m *dozer.Manifest, out *dozer.BuildOutput) (*dozer.Artifact, error) {
	if p.Bucket == nil {
		return nil, fmt.Errorf("no bucket to publish to")
	}

	name, err := FindArtifact(m, out.BinDir, out.Target.Mode)
	if err != nil {
		return nil, err
	}

	var (
		file     = filepath.Base(name)
		ext      = strings.ToLower(strings.TrimPrefix(filepath.Ext(file), "."))
		log      = dozer.LoggerFrom(ctx).WithValues("file", file)
		artifact = &dozer.Artifact{
			BuildID:     out.ID,
			PackageID:   m.PackageID(),
			Title:       m.Title,
			Version:     m.Version,
			File:        file,
			Key:         dozerblob.ArtifactKey(m.PackageID(), m.Version, file),
			ContentType: android.ContentTypeAAB,
			Target:      out.Target,
			Archs:       m.Android.Archs,
		}
	)

	if ext == "apk" {
		artifact.ContentType = android.ContentTypeAPK

		if p.Verify {
			if err = p.verify(ctx, m, name, artifact); err != nil {
				return nil, err
			}
		}
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	log.Info("uploading package", "key", artifact.Key)

	if artifact.Digest, artifact.Size, err = dozerblob.Copy(ctx, p.Bucket, artifact.Key, f, &blob.WriterOptions{
		ContentType: artifact.ContentType,
	}); err != nil {
		return nil, fmt.Errorf("upload %s: %w", file, err)
	}

	artifact.Created = time.Now().UTC()

	metadataKey := dozerblob.ArtifactMetadataKey(artifact.PackageID, artifact.Version, artifact.Target.Mode)

	if err = dozerblob.WriteJSON(ctx, p.Bucket, metadataKey, artifact); err != nil {
		// The package is not retrievable without its metadata.
		p.unpublish(ctx, artifact.Key)

		return nil, fmt.Errorf("write metadata: %w", err)
	}

	if p.Topic != nil {
		if err = p.notify(ctx, artifact); err != nil {
			p.unpublish(ctx, artifact.Key, metadataKey)

			return nil, fmt.Errorf("notify: %w", err)
		}
	}

	log.Info("published package", "digest", artifact.Digest, "size", artifact.Size)

	return artifact, nil
}

func (p *Publisher) notify(ctx context.Context, artifact *dozer.Artifact) error {
	body, err := json.Marshal(artifact)
	if err != nil {
		return err
	}

	return p.Topic.Send(ctx, &pubsub.Message{
		Body: body,
		Metadata: map[string]string{
			"packageId": artifact.PackageID,
			"version":   artifact.Version,
			"mode":      artifact.Target.Mode,
			"digest":    artifact.Digest.String(),
		},
	})
}

// unpublish removes keys so that a failed Publish leaves nothing
// retrievable behind. It uses a context that outlives ctx so that
// a cancellation does not also stop the cleanup.
func (p *Publisher) unpublish(ctx context.Context, keys ...string) {
	var (
		log  = dozer.LoggerFrom(ctx)
		dctx = context.WithoutCancel(ctx)
	)

	for _, key := range keys {
		if err := p.Bucket.Delete(dctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			log.Error(err, "failed to remove partially published package", "key", key)
		}
	}
}

func sdkVersions(manifest *android.Manifest, metadata *apktool.Metadata) (int, int) {
	var (
		minSDK    = manifest.UsesSDK.MinSDKVersion()
		targetSDK = manifest.UsesSDK.TargetSDKVersion()
	)

	if metadata != nil && metadata.SDKInfo != nil {
		if v := metadata.SDKInfo.MinSDK(); v != 0 {
			minSDK = v
		}

		if v := metadata.SDKInfo.TargetSDK(); v != 0 {
			targetSDK = v
		}
	}

	return minSDK, targetSDK
}

// verify checks that the .apk at name was built from m, warning about
// permissions that m declares but the .apk does not request. It records
// the .apk's version code and, if it can be read, its signing certificate
// fingerprint on artifact.
func (p *Publisher) verify(ctx context.Context, m *dozer.Manifest, name string, artifact *dozer.Artifact) error {
	var (
		log  = dozer.LoggerFrom(ctx)
		apk  = p.openAPK(name)
		file = filepath.Base(name)
	)
	defer apk.Close()

	manifest, err := apk.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("decode %s: %w", file, err)
	}

	metadata, err := apk.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("decode %s: %w", file, err)
	}

	if pkg := manifest.Package(); pkg != m.PackageID() {
		return fmt.Errorf("package %s is %s, expected %s", file, pkg, m.PackageID())
	}

	versionName, versionCode := manifest.VersionName(), manifest.VersionCode()
	if metadata != nil && metadata.VersionInfo != nil {
		versionName = xslice.Coalesce(metadata.VersionInfo.VersionName, versionName)
		if code := metadata.VersionInfo.Code(); code != 0 {
			versionCode = code
		}
	}

	if versionName != m.Version {
		return fmt.Errorf("package %s has version %s, expected %s", file, versionName, m.Version)
	}

	minSDK, targetSDK := sdkVersions(manifest, metadata)

	if minSDK != m.Android.MinAPI {
		return fmt.Errorf("package %s has minSdkVersion %d, expected %d", file, minSDK, m.Android.MinAPI)
	}

	if targetSDK != m.Android.API {
		return fmt.Errorf("package %s has targetSdkVersion %d, expected %d", file, targetSDK, m.Android.API)
	}

	artifact.VersionCode = versionCode

	uses := manifest.UsesPermissions()
	for _, permission := range m.Android.Permissions {
		if permission = android.PermissionName(permission); !xslice.Includes(uses, permission) {
			log.Info("declared permission is not requested by package", "permission", permission)
		}
	}

	if artifact.SHA256CertFingerprints, err = apk.SHA256CertFingerprints(ctx); err != nil {
		log.V(1).Info("could not read signing certificate", "err", err.Error())
	}

	return nil
}

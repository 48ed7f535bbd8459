package dozerblob

import (
	"path"

	"github.com/opencontainers/go-digest"
)

const (
	ArtifactsPrefix      = "artifacts/"
	ArtifactMetadataName = "metadata.json"
)

func ToolchainStampKey(key digest.Digest) string {
	return stampKey("toolchain", key)
}

func DependencyStampKey(key digest.Digest) string {
	return stampKey("dependencies", key)
}

func stampKey(kind string, key digest.Digest) string {
	return path.Join(kind, key.Algorithm().String(), key.Encoded()+".json")
}

// ArtifactDir returns the prefix that every file of the given
// version of the given package is stored under.
func ArtifactDir(packageID, version string) string {
	return path.Join(ArtifactsPrefix, packageID, version) + "/"
}

func ArtifactKey(packageID, version, file string) string {
	return path.Join(ArtifactsPrefix, packageID, version, file)
}

// ArtifactMetadataKey returns the key of the metadata of the package
// of the given version of the given package built in mode. Each mode
// has its own so that a debug and a release build of one version
// can both be retrieved.
func ArtifactMetadataKey(packageID, version, mode string) string {
	return path.Join(ArtifactsPrefix, packageID, version, mode, ArtifactMetadataName)
}

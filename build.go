package dozer

import (
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"
)

// Toolchain is a provisioned Android SDK, NDK and build-tools set.
type Toolchain struct {
	Home          string        `json:"home"`
	NDKDir        string        `json:"ndkDir"`
	PlatformDir   string        `json:"platformDir"`
	BuildToolsDir string        `json:"buildToolsDir"`
	Key           digest.Digest `json:"key"`
	// Cached is true when the Toolchain was found
	// in the cache instead of being installed.
	Cached bool `json:"cached"`
}

// Environment is an isolated Python environment that the
// build-tool and application requirements were installed into.
type Environment struct {
	Dir    string        `json:"dir"`
	Wheels string        `json:"wheels"`
	Key    digest.Digest `json:"key"`
	Cached bool          `json:"cached"`
}

// Bin returns the directory of Environment's executables.
func (e *Environment) Bin() string {
	return filepath.Join(e.Dir, "bin")
}

// BuildOutput describes where a successful invocation
// of the packaging tool left what it produced.
type BuildOutput struct {
	ID     string `json:"id"`
	Dir    string `json:"dir"`
	BinDir string `json:"binDir"`
	Target Target `json:"target"`
}

// Artifact is an installable package that has been published.
type Artifact struct {
	BuildID                string        `json:"buildId,omitempty"`
	PackageID              string        `json:"packageId"`
	Title                  string        `json:"title,omitempty"`
	Version                string        `json:"version"`
	File                   string        `json:"file"`
	Key                    string        `json:"key"`
	ContentType            string        `json:"contentType"`
	Digest                 digest.Digest `json:"digest"`
	Size                   int64         `json:"size"`
	Target                 Target        `json:"target"`
	Archs                  []string      `json:"archs,omitempty"`
	VersionCode            int           `json:"versionCode,omitempty"`
	SHA256CertFingerprints string        `json:"sha256CertFingerprints,omitempty"`
	Created                time.Time     `json:"created"`
}

package dozer

import "strings"

var (
	// Version is the semantic version of dozer.
	// It is set at build time via -ldflags.
	Version = "0.0.0"
	// Prerelease is the prerelease suffix of dozer's version, if any.
	// It is set at build time via -ldflags.
	Prerelease = ""
)

// SemVer returns the semantic version of dozer
// as built from Version and Prerelease.
func SemVer() string {
	if Prerelease != "" {
		return Version + "-" + strings.TrimPrefix(Prerelease, "-")
	}

	return Version
}

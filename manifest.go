package dozer

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/frantjc/dozer/internal/dozerregexp"
)

// Defaults applied to keys that a manifest leaves unset.
const (
	// DefaultAPI is the Android API level targeted when android.api is unset.
	DefaultAPI = 33
	// DefaultMinAPI is the lowest Android API level supported when android.minapi is unset.
	DefaultMinAPI = 21
	// DefaultNDK is the Android NDK version used when android.ndk is unset.
	DefaultNDK = "25b"
	// DefaultLogLevel is the build tool's verbosity when log_level is unset.
	DefaultLogLevel = 2
	// DefaultSourceDir is the directory containing main.py when source.dir is unset.
	DefaultSourceDir = "."
	// DefaultDebugArtifact is the package format of debug builds.
	DefaultDebugArtifact = "apk"
	// DefaultReleaseArtifact is the package format of release builds.
	DefaultReleaseArtifact = "aab"
)

var (
	// DefaultArchs are the ABIs built for when android.archs is unset.
	DefaultArchs = []string{"arm64-v8a", "armeabi-v7a"}
	// DefaultSourceIncludeExts are the file extensions packaged when
	// source.include_exts is unset.
	DefaultSourceIncludeExts = []string{"py", "png", "jpg", "kv", "atlas"}
)

// Manifest describes an application's identity, its dependencies and the
// parameters used to package it for a target platform. It is read once at
// the start of a build and is not modified for the duration of it.
type Manifest struct {
	Title             string        `json:"title"`
	PackageName       string        `json:"packageName"`
	PackageDomain     string        `json:"packageDomain"`
	Version           string        `json:"version"`
	SourceDir         string        `json:"sourceDir"`
	SourceIncludeExts []string      `json:"sourceIncludeExts,omitempty"`
	Requirements      []Requirement `json:"requirements,omitempty"`
	Orientation       string        `json:"orientation,omitempty"`
	Fullscreen        bool          `json:"fullscreen,omitempty"`
	Android           Android       `json:"android"`
	Buildozer         Buildozer     `json:"buildozer"`

	// Dir is the directory that the Manifest was read from.
	// Relative paths in the Manifest are relative to it.
	Dir string `json:"-"`

	versionRegex    string
	versionFilename string
}

type Android struct {
	API              int      `json:"api"`
	MinAPI           int      `json:"minapi"`
	NDKAPI           int      `json:"ndkApi,omitempty"`
	NDK              string   `json:"ndk"`
	BuildTools       string   `json:"buildTools"`
	SDKPath          string   `json:"sdkPath,omitempty"`
	NDKPath          string   `json:"ndkPath,omitempty"`
	Archs            []string `json:"archs"`
	Permissions      []string `json:"permissions,omitempty"`
	AcceptSDKLicense bool     `json:"acceptSdkLicense,omitempty"`
	SkipUpdate       bool     `json:"skipUpdate,omitempty"`
	DebugArtifact    string   `json:"debugArtifact,omitempty"`
	ReleaseArtifact  string   `json:"releaseArtifact,omitempty"`
}

type Buildozer struct {
	LogLevel   int  `json:"logLevel"`
	WarnOnRoot bool `json:"warnOnRoot"`
}

// PackageID returns the reverse-domain identifier of the package,
// e.g. "org.example.pdfeditor".
func (m *Manifest) PackageID() string {
	return m.PackageDomain + "." + m.PackageName
}

// SourcePath returns SourceDir resolved against the directory
// that the Manifest was read from.
func (m *Manifest) SourcePath() string {
	if filepath.IsAbs(m.SourceDir) || m.Dir == "" {
		return filepath.Clean(m.SourceDir)
	}

	return filepath.Join(m.Dir, m.SourceDir)
}

// ArtifactExt returns the file extension, without the leading dot,
// of the package produced for the given build mode.
func (m *Manifest) ArtifactExt(mode string) string {
	if strings.EqualFold(mode, ModeRelease) {
		if m.Android.ReleaseArtifact != "" {
			return strings.ToLower(m.Android.ReleaseArtifact)
		}

		return DefaultReleaseArtifact
	}

	if m.Android.DebugArtifact != "" {
		return strings.ToLower(m.Android.DebugArtifact)
	}

	return DefaultDebugArtifact
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}

	c := *m
	c.SourceIncludeExts = slices.Clone(m.SourceIncludeExts)
	c.Requirements = slices.Clone(m.Requirements)
	c.Android.Archs = slices.Clone(m.Android.Archs)
	c.Android.Permissions = slices.Clone(m.Android.Permissions)

	return &c
}

// SetDefaults fills in the values that buildozer assumes
// when a key is left out of the manifest.
func (m *Manifest) SetDefaults() {
	if m.SourceDir == "" {
		m.SourceDir = DefaultSourceDir
	}

	if len(m.SourceIncludeExts) == 0 {
		m.SourceIncludeExts = slices.Clone(DefaultSourceIncludeExts)
	}

	if m.Android.API == 0 {
		m.Android.API = DefaultAPI
	}

	if m.Android.MinAPI == 0 {
		m.Android.MinAPI = DefaultMinAPI
	}

	if m.Android.NDK == "" {
		m.Android.NDK = DefaultNDK
	}

	if m.Android.BuildTools == "" {
		m.Android.BuildTools = fmt.Sprintf("%d.0.0", m.Android.API)
	}

	if len(m.Android.Archs) == 0 {
		m.Android.Archs = slices.Clone(DefaultArchs)
	}
}

// Requirement is a single Python requirement of the application,
// optionally pinned to an exact version.
type Requirement struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ParseRequirement parses a requirement of the form "name" or "name==version".
func ParseRequirement(s string) (Requirement, error) {
	matches := dozerregexp.Requirement.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return Requirement{}, fmt.Errorf("invalid requirement %q", s)
	}

	return Requirement{Name: matches[1], Version: matches[3]}, nil
}

// ParseRequirements parses each of ss as a Requirement, skipping empty entries.
func ParseRequirements(ss ...string) ([]Requirement, error) {
	reqs := []Requirement{}

	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			continue
		}

		req, err := ParseRequirement(s)
		if err != nil {
			return nil, err
		}

		reqs = append(reqs, req)
	}

	return reqs, nil
}

func (r Requirement) String() string {
	if r.Version == "" {
		return r.Name
	}

	return r.Name + "==" + r.Version
}

// Key returns the normalized name that identifies the distribution
// that r refers to regardless of how its name is spelled.
func (r Requirement) Key() string {
	return dozerregexp.NormalizeRequirementName(r.Name)
}

// ResolveRequirements removes duplicate entries from reqs, keeping the
// position of the first occurrence and adopting a pin from any later
// occurrence. It returns an error if two entries pin the same distribution
// to different versions, since they cannot be resolved together.
func ResolveRequirements(reqs []Requirement) ([]Requirement, error) {
	var (
		resolved = []Requirement{}
		index    = map[string]int{}
		errs     = []error{}
	)

	for _, req := range reqs {
		key := req.Key()

		i, ok := index[key]
		if !ok {
			index[key] = len(resolved)
			resolved = append(resolved, req)
			continue
		}

		switch prev := resolved[i]; {
		case req.Version == "" || prev.Version == req.Version:
		case prev.Version == "":
			resolved[i].Version = req.Version
		default:
			errs = append(errs, fmt.Errorf("conflicting requirements %s and %s", prev, req))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return resolved, nil
}

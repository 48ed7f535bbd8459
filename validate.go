package dozer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/frantjc/dozer/android"
	"github.com/frantjc/dozer/internal/dozerregexp"
	"golang.org/x/mod/semver"
)

// ValidateManifest checks m for every violation that would keep it from
// being built and returns them joined together, or nil if there are none.
func ValidateManifest(m *Manifest) error {
	if m == nil {
		return fmt.Errorf("nil manifest")
	}

	errs := []error{}

	if strings.TrimSpace(m.Title) == "" {
		errs = append(errs, fmt.Errorf("title is required"))
	}

	if !dozerregexp.IsPackageName(m.PackageName) {
		errs = append(errs, fmt.Errorf("invalid package.name %q", m.PackageName))
	}

	if !dozerregexp.IsPackageDomain(m.PackageDomain) {
		errs = append(errs, fmt.Errorf("invalid package.domain %q", m.PackageDomain))
	}

	if !dozerregexp.IsVersion(m.Version) || !semver.IsValid("v"+m.Version) {
		errs = append(errs, fmt.Errorf("invalid version %q, expected major.minor", m.Version))
	}

	if strings.TrimSpace(m.SourceDir) == "" {
		errs = append(errs, fmt.Errorf("source.dir is required"))
	}

	if m.Android.MinAPI < 1 {
		errs = append(errs, fmt.Errorf("invalid android.minapi %d", m.Android.MinAPI))
	}

	if m.Android.MinAPI > m.Android.API {
		errs = append(errs, fmt.Errorf("android.minapi %d is greater than android.api %d", m.Android.MinAPI, m.Android.API))
	}

	if m.Android.NDKAPI > 0 && m.Android.NDKAPI > m.Android.MinAPI {
		errs = append(errs, fmt.Errorf("android.ndk_api %d is greater than android.minapi %d", m.Android.NDKAPI, m.Android.MinAPI))
	}

	if m.Android.NDK == "" && m.Android.NDKPath == "" {
		errs = append(errs, fmt.Errorf("android.ndk or android.ndk_path is required"))
	}

	if m.Android.BuildTools == "" {
		errs = append(errs, fmt.Errorf("android.build_tools_version is required"))
	}

	if len(m.Android.Archs) == 0 {
		errs = append(errs, fmt.Errorf("android.archs is required"))
	}

	for _, arch := range m.Android.Archs {
		if !android.IsABI(arch) {
			errs = append(errs, fmt.Errorf("unknown android.archs entry %q", arch))
		}
	}

	for _, permission := range m.Android.Permissions {
		if !dozerregexp.IsPermission(android.PermissionName(permission)) {
			errs = append(errs, fmt.Errorf("invalid android.permissions entry %q", permission))
		}
	}

	for _, ext := range []string{m.Android.DebugArtifact, m.Android.ReleaseArtifact} {
		switch strings.ToLower(ext) {
		case "", "apk", "aab":
		default:
			errs = append(errs, fmt.Errorf("unsupported artifact format %q", ext))
		}
	}

	if _, err := ResolveRequirements(m.Requirements); err != nil {
		errs = append(errs, err)
	}

	if m.Buildozer.LogLevel < 0 || m.Buildozer.LogLevel > 2 {
		errs = append(errs, fmt.Errorf("invalid log_level %d, expected 0, 1 or 2", m.Buildozer.LogLevel))
	}

	return errors.Join(errs...)
}

package dozer

import (
	"io"
	"strconv"
	"strings"

	xslice "github.com/frantjc/x/slice"
	"gopkg.in/ini.v1"
)

// EncodeSpecOpts overrides values of a Manifest when it is
// rendered for the packaging tool.
type EncodeSpecOpts struct {
	SourceDir string
	SDKPath   string
	NDKPath   string
	BuildDir  string
	BinDir    string
	// Provisioned marks the toolchain as already installed and licensed
	// so that the packaging tool does not try to install it again.
	Provisioned bool
}

// EncodeSpec writes m to w as a buildozer.spec.
func EncodeSpec(w io.Writer, m *Manifest, opts *EncodeSpecOpts) error {
	if opts == nil {
		opts = &EncodeSpecOpts{}
	}

	var (
		// Values such as "(name=...;maxSdkVersion=18)" must be written
		// as they are rather than quoted as if ";" began a comment.
		f        = ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})
		app, _   = f.NewSection(SectionApp)
		bozer, _ = f.NewSection(SectionBuildozer)
		set      = func(sec *ini.Section, key, value string) {
			if value != "" {
				_, _ = sec.NewKey(key, value)
			}
		}
		setList = func(sec *ini.Section, key string, values []string) {
			set(sec, key, strings.Join(values, ", "))
		}
		setBool = func(sec *ini.Section, key string, value bool) {
			if value {
				set(sec, key, "True")
			} else {
				set(sec, key, "False")
			}
		}
		setInt = func(sec *ini.Section, key string, value int) {
			if value > 0 {
				set(sec, key, strconv.Itoa(value))
			}
		}
	)

	set(app, "title", m.Title)
	set(app, "package.name", m.PackageName)
	set(app, "package.domain", m.PackageDomain)
	set(app, "source.dir", xslice.Coalesce(opts.SourceDir, m.SourcePath()))
	setList(app, "source.include_exts", m.SourceIncludeExts)
	set(app, "version", m.Version)
	setList(app, "requirements", xslice.Map(m.Requirements, func(req Requirement, _ int) string {
		return req.String()
	}))
	set(app, "orientation", m.Orientation)
	setBool(app, "fullscreen", m.Fullscreen)
	setList(app, "android.permissions", m.Android.Permissions)
	setInt(app, "android.api", m.Android.API)
	setInt(app, "android.minapi", m.Android.MinAPI)
	setInt(app, "android.ndk_api", m.Android.NDKAPI)
	set(app, "android.ndk", m.Android.NDK)
	set(app, "android.build_tools_version", m.Android.BuildTools)
	set(app, "android.sdk_path", xslice.Coalesce(opts.SDKPath, m.Android.SDKPath))
	set(app, "android.ndk_path", xslice.Coalesce(opts.NDKPath, m.Android.NDKPath))
	setList(app, "android.archs", m.Android.Archs)
	setBool(app, "android.accept_sdk_license", m.Android.AcceptSDKLicense || opts.Provisioned)
	setBool(app, "android.skip_update", m.Android.SkipUpdate || opts.Provisioned)
	set(app, "android.debug_artifact", m.Android.DebugArtifact)
	set(app, "android.release_artifact", m.Android.ReleaseArtifact)

	set(bozer, "log_level", strconv.Itoa(m.Buildozer.LogLevel))
	setBool(bozer, "warn_on_root", m.Buildozer.WarnOnRoot)
	set(bozer, "build_dir", opts.BuildDir)
	set(bozer, "bin_dir", opts.BinDir)

	_, err := f.WriteTo(w)
	return err
}

package dozer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	SectionApp       = "app"
	SectionBuildozer = "buildozer"
)

// OpenManifest reads, decodes and defaults the Manifest at name.
// The format is chosen by name's file extension.
func OpenManifest(name string) (*Manifest, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := DecodeManifest(name, f)
	if err != nil {
		return nil, err
	}

	if m.Dir, err = filepath.Abs(filepath.Dir(name)); err != nil {
		return nil, err
	}

	if err = m.readVersion(); err != nil {
		return nil, err
	}

	return m, nil
}

// DecodeManifest decodes a Manifest from r. name is only used to pick
// a format by its file extension: buildozer-style .spec or .ini files,
// .yaml or .yml files, or .hcl files.
func DecodeManifest(name string, r io.Reader) (*Manifest, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	mf := &manifestFile{}

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".spec", ".ini", ".cfg":
		err = mf.decodeINI(b)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(bytes.NewReader(b)).Decode(mf)
	case ".hcl":
		err = mf.decodeHCL(filepath.Base(name), b)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}

	return mf.manifest()
}

type manifestFile struct {
	App       appSection       `yaml:"app"`
	Buildozer buildozerSection `yaml:"buildozer"`
}

type appSection struct {
	Title        string         `yaml:"title"`
	Package      packageSection `yaml:"package"`
	Version      versionSection `yaml:"version"`
	Source       sourceSection  `yaml:"source"`
	Requirements []string       `yaml:"requirements"`
	Orientation  string         `yaml:"orientation"`
	Fullscreen   bool           `yaml:"fullscreen"`
	Android      androidSection `yaml:"android"`
}

type packageSection struct {
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`
}

// versionSection accepts either a scalar version or a mapping
// describing where to find one.
type versionSection struct {
	Value    string `yaml:"value"`
	Regex    string `yaml:"regex"`
	Filename string `yaml:"filename"`
}

func (v *versionSection) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Value = node.Value
		return nil
	}

	type plain versionSection
	return node.Decode((*plain)(v))
}

type sourceSection struct {
	Dir         string   `yaml:"dir"`
	IncludeExts []string `yaml:"include_exts"`
}

type androidSection struct {
	API              int      `yaml:"api"`
	MinAPI           int      `yaml:"minapi"`
	NDKAPI           int      `yaml:"ndk_api"`
	NDK              string   `yaml:"ndk"`
	BuildTools       string   `yaml:"build_tools_version"`
	SDKPath          string   `yaml:"sdk_path"`
	NDKPath          string   `yaml:"ndk_path"`
	Archs            []string `yaml:"archs"`
	Permissions      []string `yaml:"permissions"`
	AcceptSDKLicense bool     `yaml:"accept_sdk_license"`
	SkipUpdate       bool     `yaml:"skip_update"`
	DebugArtifact    string   `yaml:"debug_artifact"`
	ReleaseArtifact  string   `yaml:"release_artifact"`
}

type buildozerSection struct {
	LogLevel   *int  `yaml:"log_level"`
	WarnOnRoot *bool `yaml:"warn_on_root"`
}

func (mf *manifestFile) decodeINI(b []byte) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, b)
	if err != nil {
		return err
	}

	app, err := f.GetSection(SectionApp)
	if err != nil {
		return fmt.Errorf("missing [%s] section", SectionApp)
	}

	var (
		errs   = []error{}
		iniInt = func(sec *ini.Section, name string) int {
			key := sec.Key(name)
			if key.String() == "" {
				return 0
			}

			i, err := key.Int()
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: not an integer", name, key.String()))
			}

			return i
		}
		iniBool = func(sec *ini.Section, name string, def bool) bool {
			key := sec.Key(name)
			if key.String() == "" {
				return def
			}

			b, err := key.Bool()
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: not a boolean", name, key.String()))
			}

			return b
		}
	)

	mf.App = appSection{
		Title: app.Key("title").String(),
		Package: packageSection{
			Name:   app.Key("package.name").String(),
			Domain: app.Key("package.domain").String(),
		},
		Version: versionSection{
			Value:    app.Key("version").String(),
			Regex:    app.Key("version.regex").String(),
			Filename: app.Key("version.filename").String(),
		},
		Source: sourceSection{
			Dir:         app.Key("source.dir").String(),
			IncludeExts: iniList(app.Key("source.include_exts")),
		},
		Requirements: iniList(app.Key("requirements")),
		Orientation:  app.Key("orientation").String(),
		Fullscreen:   iniBool(app, "fullscreen", false),
		Android: androidSection{
			API:              iniInt(app, "android.api"),
			MinAPI:           iniInt(app, "android.minapi"),
			NDKAPI:           iniInt(app, "android.ndk_api"),
			NDK:              app.Key("android.ndk").String(),
			BuildTools:       app.Key("android.build_tools_version").String(),
			SDKPath:          app.Key("android.sdk_path").String(),
			NDKPath:          app.Key("android.ndk_path").String(),
			Archs:            iniList(app.Key("android.archs")),
			Permissions:      iniList(app.Key("android.permissions")),
			AcceptSDKLicense: iniBool(app, "android.accept_sdk_license", false),
			SkipUpdate:       iniBool(app, "android.skip_update", false),
			DebugArtifact:    app.Key("android.debug_artifact").String(),
			ReleaseArtifact:  app.Key("android.release_artifact").String(),
		},
	}

	if buildozer, err := f.GetSection(SectionBuildozer); err == nil {
		if buildozer.Key("log_level").String() != "" {
			logLevel := iniInt(buildozer, "log_level")
			mf.Buildozer.LogLevel = &logLevel
		}

		if buildozer.Key("warn_on_root").String() != "" {
			warnOnRoot := iniBool(buildozer, "warn_on_root", true)
			mf.Buildozer.WarnOnRoot = &warnOnRoot
		}
	}

	return errors.Join(errs...)
}

// iniList splits a comma-separated value, which may also
// span multiple lines, dropping empty entries.
func iniList(key *ini.Key) []string {
	list := []string{}

	for _, line := range strings.Split(key.String(), "\n") {
		for _, item := range strings.Split(line, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}

	return list
}

type hclManifest struct {
	App       hclApp        `hcl:"app,block"`
	Buildozer *hclBuildozer `hcl:"buildozer,block"`
}

type hclApp struct {
	Title             string      `hcl:"title"`
	PackageName       string      `hcl:"package_name"`
	PackageDomain     string      `hcl:"package_domain"`
	Version           string      `hcl:"version,optional"`
	VersionRegex      string      `hcl:"version_regex,optional"`
	VersionFilename   string      `hcl:"version_filename,optional"`
	SourceDir         string      `hcl:"source_dir,optional"`
	SourceIncludeExts []string    `hcl:"source_include_exts,optional"`
	Requirements      []string    `hcl:"requirements,optional"`
	Orientation       string      `hcl:"orientation,optional"`
	Fullscreen        bool        `hcl:"fullscreen,optional"`
	Android           *hclAndroid `hcl:"android,block"`
}

type hclAndroid struct {
	API              int      `hcl:"api,optional"`
	MinAPI           int      `hcl:"minapi,optional"`
	NDKAPI           int      `hcl:"ndk_api,optional"`
	NDK              string   `hcl:"ndk,optional"`
	BuildTools       string   `hcl:"build_tools_version,optional"`
	SDKPath          string   `hcl:"sdk_path,optional"`
	NDKPath          string   `hcl:"ndk_path,optional"`
	Archs            []string `hcl:"archs,optional"`
	Permissions      []string `hcl:"permissions,optional"`
	AcceptSDKLicense bool     `hcl:"accept_sdk_license,optional"`
	SkipUpdate       bool     `hcl:"skip_update,optional"`
	DebugArtifact    string   `hcl:"debug_artifact,optional"`
	ReleaseArtifact  string   `hcl:"release_artifact,optional"`
}

type hclBuildozer struct {
	LogLevel   *int  `hcl:"log_level,optional"`
	WarnOnRoot *bool `hcl:"warn_on_root,optional"`
}

func (mf *manifestFile) decodeHCL(filename string, b []byte) error {
	hm := &hclManifest{}
	if err := hclsimple.Decode(filename, b, nil, hm); err != nil {
		return err
	}

	mf.App = appSection{
		Title: hm.App.Title,
		Package: packageSection{
			Name:   hm.App.PackageName,
			Domain: hm.App.PackageDomain,
		},
		Version: versionSection{
			Value:    hm.App.Version,
			Regex:    hm.App.VersionRegex,
			Filename: hm.App.VersionFilename,
		},
		Source: sourceSection{
			Dir:         hm.App.SourceDir,
			IncludeExts: hm.App.SourceIncludeExts,
		},
		Requirements: hm.App.Requirements,
		Orientation:  hm.App.Orientation,
		Fullscreen:   hm.App.Fullscreen,
	}

	if a := hm.App.Android; a != nil {
		mf.App.Android = androidSection(*a)
	}

	if hm.Buildozer != nil {
		mf.Buildozer = buildozerSection(*hm.Buildozer)
	}

	return nil
}

func (mf *manifestFile) manifest() (*Manifest, error) {
	reqs, err := ParseRequirements(mf.App.Requirements...)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Title:             mf.App.Title,
		PackageName:       mf.App.Package.Name,
		PackageDomain:     mf.App.Package.Domain,
		Version:           mf.App.Version.Value,
		SourceDir:         mf.App.Source.Dir,
		SourceIncludeExts: mf.App.Source.IncludeExts,
		Requirements:      reqs,
		Orientation:       mf.App.Orientation,
		Fullscreen:        mf.App.Fullscreen,
		Android: Android{
			API:              mf.App.Android.API,
			MinAPI:           mf.App.Android.MinAPI,
			NDKAPI:           mf.App.Android.NDKAPI,
			NDK:              strings.TrimPrefix(mf.App.Android.NDK, "r"),
			BuildTools:       mf.App.Android.BuildTools,
			SDKPath:          mf.App.Android.SDKPath,
			NDKPath:          mf.App.Android.NDKPath,
			Archs:            mf.App.Android.Archs,
			Permissions:      mf.App.Android.Permissions,
			AcceptSDKLicense: mf.App.Android.AcceptSDKLicense,
			SkipUpdate:       mf.App.Android.SkipUpdate,
			DebugArtifact:    mf.App.Android.DebugArtifact,
			ReleaseArtifact:  mf.App.Android.ReleaseArtifact,
		},
		Buildozer: Buildozer{
			LogLevel:   DefaultLogLevel,
			WarnOnRoot: true,
		},
		versionRegex:    mf.App.Version.Regex,
		versionFilename: mf.App.Version.Filename,
	}

	if mf.Buildozer.LogLevel != nil {
		m.Buildozer.LogLevel = *mf.Buildozer.LogLevel
	}

	if mf.Buildozer.WarnOnRoot != nil {
		m.Buildozer.WarnOnRoot = *mf.Buildozer.WarnOnRoot
	}

	m.SetDefaults()

	return m, nil
}

// readVersion fills in Version from version.filename using version.regex
// when the manifest does not declare a version of its own.
func (m *Manifest) readVersion() error {
	if m.Version != "" || m.versionRegex == "" || m.versionFilename == "" {
		return nil
	}

	re, err := regexp.Compile(m.versionRegex)
	if err != nil {
		return fmt.Errorf("invalid version.regex: %w", err)
	}

	name := m.versionFilename
	if !filepath.IsAbs(name) {
		name = filepath.Join(m.Dir, name)
	}

	b, err := os.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read version.filename: %w", err)
	}

	matches := re.FindSubmatch(b)
	if len(matches) < 2 {
		return fmt.Errorf("version.regex did not match %s", m.versionFilename)
	}

	m.Version = string(matches[1])

	return nil
}

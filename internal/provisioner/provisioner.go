package provisioner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/frantjc/dozer"
	"github.com/frantjc/dozer/internal/dozerblob"
	"github.com/frantjc/dozer/internal/dozercache"
	"github.com/frantjc/dozer/internal/dozererr"
	"github.com/frantjc/dozer/sdkmanager"
	xslice "github.com/frantjc/x/slice"
	"gocloud.dev/blob"
)

const (
	DefaultRepositoryURL = "https://dl.google.com/android/repository/"

	// SDKLicenseName is the license that must be accepted
	// before any SDK component can be installed.
	SDKLicenseName = "android-sdk-license"
)

// SDKManager installs components into, and accepts
// licenses on behalf of, the Android SDK at root.
type SDKManager interface {
	Install(ctx context.Context, root string, pkgs ...string) error
	AcceptLicenses(ctx context.Context, root string) error
}

// CommandSDKManager is an SDKManager that runs the `sdkmanager`
// from the command-line tools installed under the SDK root.
type CommandSDKManager struct {
	Stdout io.Writer
}

func (s *CommandSDKManager) Install(ctx context.Context, root string, pkgs ...string) error {
	return sdkmanager.Command(sdkmanager.Path(root)).Install(ctx, root, &sdkmanager.Opts{Stdout: s.Stdout}, pkgs...)
}

func (s *CommandSDKManager) AcceptLicenses(ctx context.Context, root string) error {
	return sdkmanager.Command(sdkmanager.Path(root)).AcceptLicenses(ctx, root, &sdkmanager.Opts{Stdout: s.Stdout})
}

// Provisioner makes sure that the Android toolchain a Manifest
// needs is installed and its licenses accepted.
type Provisioner struct {
	// Home is the Android SDK root, unless a
	// Manifest overrides it with android.sdk_path.
	Home string
	// Bucket holds the stamps of provisioned toolchains.
	Bucket     *blob.Bucket
	SDKManager SDKManager
	Fetcher    Fetcher
	// Licenses maps license names, e.g. "android-sdk-license",
	// to the hash of the accepted license text.
	Licenses             map[string]string
	CmdlineToolsURL      string
	CmdlineToolsRevision string
	// NDKURL is the base URL that NDK archives are downloaded from.
	NDKURL string
}

func (p *Provisioner) cmdlineToolsRevision() string {
	return xslice.Coalesce(p.CmdlineToolsRevision, dozercache.DefaultCmdlineToolsRevision)
}

func (p *Provisioner) cmdlineToolsURL() string {
	return xslice.Coalesce(
		p.CmdlineToolsURL,
		DefaultRepositoryURL+"commandlinetools-linux-"+p.cmdlineToolsRevision()+"_latest.zip",
	)
}

func (p *Provisioner) ndkURL(ndk string) string {
	return strings.TrimSuffix(xslice.Coalesce(p.NDKURL, DefaultRepositoryURL), "/") + "/android-ndk-r" + ndk + "-linux.zip"
}

// component is an SDK package and the directory it is installed to.
type component struct {
	pkg string
	dir string
}

// Provision installs whatever part of the toolchain that m needs is
// missing and returns where it is. When a stamp for the toolchain exists
// and every component is still on disk, nothing is installed or downloaded.
func (p *Provisioner) Provision(ctx context.Context, m *dozer.Manifest) (*dozer.Toolchain, error) {
	tc, err := p.provision(ctx, m)
	return tc, dozererr.StageError(err, dozererr.StageProvision)
}

func (p *Provisioner) provision(ctx context.Context, m *dozer.Manifest) (*dozer.Toolchain, error) {
	var (
		home = xslice.Coalesce(m.Android.SDKPath, p.Home)
		key  = dozercache.ToolchainKey(m, p.cmdlineToolsRevision())
		log  = dozer.LoggerFrom(ctx).WithValues("key", key)
	)
	if home == "" {
		return nil, fmt.Errorf("android sdk home is required")
	}

	home, err := filepath.Abs(home)
	if err != nil {
		return nil, err
	}

	var (
		ndkDir     = xslice.Coalesce(m.Android.NDKPath, filepath.Join(home, "android-ndk-r"+m.Android.NDK))
		components = []component{
			{pkg: "platform-tools", dir: filepath.Join(home, "platform-tools")},
			{pkg: "platforms;android-" + strconv.Itoa(m.Android.API), dir: filepath.Join(home, "platforms", "android-"+strconv.Itoa(m.Android.API))},
			{pkg: "build-tools;" + m.Android.BuildTools, dir: filepath.Join(home, "build-tools", m.Android.BuildTools)},
		}
		tc = &dozer.Toolchain{
			Home:          home,
			NDKDir:        ndkDir,
			PlatformDir:   components[1].dir,
			BuildToolsDir: components[2].dir,
			Key:           key,
		}
		stampKey = dozerblob.ToolchainStampKey(key)
		present  = exists(ndkDir) && xslice.Every(components, func(c component, _ int) bool {
			return exists(c.dir)
		})
	)

	if present {
		if m.Android.SkipUpdate {
			log.Info("using installed toolchain", "home", home)
			tc.Cached = true
			return tc, nil
		}

		if p.Bucket != nil {
			if stamped, err := dozercache.HasStamp(ctx, p.Bucket, stampKey); err != nil {
				return nil, err
			} else if stamped {
				log.Info("using cached toolchain", "home", home)
				tc.Cached = true
				return tc, nil
			}
		}
	}

	log.Info("provisioning toolchain", "home", home)

	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, err
	}

	if err := p.ensureCmdlineTools(ctx, home); err != nil {
		return nil, err
	}

	if err := p.acceptLicenses(ctx, m, home); err != nil {
		return nil, err
	}

	missing := xslice.Filter(components, func(c component, _ int) bool {
		return !exists(c.dir)
	})
	if len(missing) > 0 {
		pkgs := xslice.Map(missing, func(c component, _ int) string {
			return c.pkg
		})

		log.Info("installing sdk components", "components", pkgs)

		if err := p.SDKManager.Install(ctx, home, pkgs...); err != nil {
			return nil, fmt.Errorf("install %s: %w", strings.Join(pkgs, ", "), err)
		}
	}

	if err := p.ensureNDK(ctx, m, home, ndkDir); err != nil {
		return nil, err
	}

	if p.Bucket != nil {
		if err := dozercache.WriteStamp(ctx, p.Bucket, stampKey, &dozercache.Stamp{
			Key: key,
			Components: append(
				xslice.Map(components, func(c component, _ int) string {
					return c.pkg
				}),
				"ndk;"+m.Android.NDK,
			),
		}); err != nil {
			return nil, err
		}
	}

	return tc, nil
}

func (p *Provisioner) ensureCmdlineTools(ctx context.Context, home string) error {
	if exists(sdkmanager.Path(home)) {
		return nil
	}

	var (
		parent = filepath.Join(home, "cmdline-tools")
		latest = filepath.Join(parent, "latest")
	)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(parent, ".fetch-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	dozer.LoggerFrom(ctx).Info("downloading android command-line tools", "url", p.cmdlineToolsURL())

	if err = p.Fetcher.Fetch(ctx, p.cmdlineToolsURL(), tmp); err != nil {
		return fmt.Errorf("fetch command-line tools: %w", err)
	}

	// The archive's contents are nested under a top-level "cmdline-tools"
	// directory, but sdkmanager expects to be at cmdline-tools/latest.
	if err = os.RemoveAll(latest); err != nil {
		return err
	}

	if err = os.Rename(filepath.Join(tmp, "cmdline-tools"), latest); err != nil {
		return fmt.Errorf("unexpected command-line tools archive layout: %w", err)
	}

	return nil
}

func (p *Provisioner) acceptLicenses(ctx context.Context, m *dozer.Manifest, home string) error {
	licenses := filepath.Join(home, "licenses")

	if len(p.Licenses) > 0 {
		if err := os.MkdirAll(licenses, 0o755); err != nil {
			return err
		}

		for name, hash := range p.Licenses {
			if err := os.WriteFile(filepath.Join(licenses, filepath.Base(name)), []byte("\n"+hash), 0o644); err != nil {
				return err
			}
		}
	}

	if exists(filepath.Join(licenses, SDKLicenseName)) {
		return nil
	}

	if m.Android.AcceptSDKLicense {
		dozer.LoggerFrom(ctx).Info("accepting android sdk licenses")

		if err := p.SDKManager.AcceptLicenses(ctx, home); err != nil {
			return fmt.Errorf("accept licenses: %w", err)
		}

		return nil
	}

	return errors.New("android sdk license not accepted, set android.accept_sdk_license or pass --license")
}

func (p *Provisioner) ensureNDK(ctx context.Context, m *dozer.Manifest, home, ndkDir string) error {
	if exists(ndkDir) {
		return nil
	}

	if m.Android.NDKPath != "" {
		return fmt.Errorf("android.ndk_path %s does not exist", m.Android.NDKPath)
	}

	url := p.ndkURL(m.Android.NDK)

	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}

	// Extract next to ndkDir and move it into place only once the whole
	// archive is on disk, so a partial extraction is never taken for an NDK.
	tmp, err := os.MkdirTemp(home, ".fetch-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	dozer.LoggerFrom(ctx).Info("downloading android ndk", "url", url)

	if err = p.Fetcher.Fetch(ctx, url, tmp); err != nil {
		return fmt.Errorf("fetch ndk r%s: %w", m.Android.NDK, err)
	}

	extracted := filepath.Join(tmp, filepath.Base(ndkDir))
	if !exists(extracted) {
		return fmt.Errorf("ndk archive did not contain %s", filepath.Base(ndkDir))
	}

	if err = os.Rename(extracted, ndkDir); err != nil {
		return fmt.Errorf("move ndk into place: %w", err)
	}

	return nil
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

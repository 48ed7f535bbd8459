package provisioner

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/frantjc/dozer"
)

// Fetcher downloads the archive at url and extracts it into dest.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// HTTPFetcher is a Fetcher for .zip archives served over HTTP.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}

	return http.DefaultClient
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string) error {
	log := dozer.LoggerFrom(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	log.V(1).Info("downloading archive", "url", url)

	res, err := f.client().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", url, res.Status)
	}

	// archive/zip needs an io.ReaderAt, so the archive
	// has to land on disk before it can be extracted.
	tmp, err := os.CreateTemp("", "dozer-fetch-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, res.Body)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	log.V(1).Info("extracting archive", "url", url, "dest", dest, "size", size)

	return Unzip(tmp, size, dest)
}

// within reports whether name is dest or inside of it.
func within(dest, name string) bool {
	return name == dest || strings.HasPrefix(name, dest+string(filepath.Separator))
}

// throughSymlink reports whether any directory between dest
// and name is a symlink, so that writing to name could land
// somewhere other than where its path says.
func throughSymlink(dest, name string) (bool, error) {
	rel, err := filepath.Rel(dest, filepath.Dir(name))
	if err != nil || rel == "." {
		return false, err
	}

	dir := dest
	for _, elem := range strings.Split(rel, string(filepath.Separator)) {
		dir = filepath.Join(dir, elem)

		fi, err := os.Lstat(dir)
		if os.IsNotExist(err) {
			return false, nil
		} else if err != nil {
			return false, err
		}

		if fi.Mode()&os.ModeSymlink != 0 {
			return true, nil
		}
	}

	return false, nil
}

// Unzip extracts the .zip archive read from r into dest,
// keeping file modes and refusing entries that would
// land outside of dest, whether by their name, by a
// symlink's target or by a path through a symlink.
func Unzip(r io.ReaderAt, size int64, dest string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return err
	}

	if dest, err = filepath.Abs(dest); err != nil {
		return err
	}

	for _, zf := range zr.File {
		name := filepath.Join(dest, filepath.FromSlash(zf.Name))
		if !within(dest, name) {
			return fmt.Errorf("archive entry %q escapes %s", zf.Name, dest)
		}

		if through, err := throughSymlink(dest, name); err != nil {
			return err
		} else if through {
			return fmt.Errorf("archive entry %q is written through a symlink", zf.Name)
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(name, 0o755); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			if err := unzipSymlink(zf, dest, name); err != nil {
				return err
			}
		default:
			if err := unzipFile(zf, name, mode.Perm()); err != nil {
				return err
			}
		}
	}

	return nil
}

func unzipSymlink(zf *zip.File, dest, name string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	target, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	link := filepath.FromSlash(string(target))
	if filepath.IsAbs(link) || !within(dest, filepath.Join(filepath.Dir(name), link)) {
		return fmt.Errorf("archive symlink %q points outside of %s", zf.Name, dest)
	}

	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}

	return os.Symlink(link, name)
}

func unzipFile(zf *zip.File, name string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}

	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if perm == 0 {
		perm = 0o644
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = io.Copy(f, rc); err != nil {
		return err
	}

	return f.Close()
}

// Package template provisions the scratch workspace from the upstream
// project skeleton: it streams the release archive over HTTP, extracts it
// with the wrapping directory stripped, and prunes the template-owned paths
// the verification run replaces.
package template

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Provision populates dest from the archive at url and removes the given
// template-owned paths. Any failure is fatal to the run; there are no
// retries.
func Provision(ctx context.Context, url, dest string, prune []string) error {
	body, err := Fetch(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close() //nolint:errcheck // read-only stream

	if err := Extract(body, dest); err != nil {
		return err
	}
	return Prune(dest, prune...)
}

// Fetch streams the template archive. The caller closes the returned body.
func Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building archive request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck // error path
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

// Extract unpacks a gzipped tarball into dest, stripping the single
// top-level directory release archives wrap their contents in, so dest
// itself becomes the template root.
func Extract(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only stream

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		rel, ok := stripRoot(hdr.Name)
		if !ok {
			continue
		}
		path, err := securePath(dest, rel)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0755); err != nil {
				return fmt.Errorf("extracting %s: %w", rel, err)
			}
		case tar.TypeReg:
			if err := writeFile(path, tr, hdr.FileInfo().Mode()); err != nil {
				return fmt.Errorf("extracting %s: %w", rel, err)
			}
		default:
			// Release archives contain only files and directories;
			// anything else is skipped.
		}
	}
}

// Prune removes template-owned paths under dest. Paths that are already
// absent are not errors, so pruning is idempotent.
func Prune(dest string, paths ...string) error {
	for _, p := range paths {
		full, err := securePath(dest, p)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(full); err != nil {
			return fmt.Errorf("pruning %s: %w", p, err)
		}
	}
	return nil
}

// stripRoot drops the first path component of an archive entry name. The
// root entry itself yields no path.
func stripRoot(name string) (string, bool) {
	name = strings.TrimPrefix(name, "./")
	i := strings.IndexByte(name, '/')
	if i < 0 {
		return "", false
	}
	rel := strings.Trim(name[i+1:], "/")
	return rel, rel != ""
}

// securePath joins rel onto dest and rejects entries that would escape it.
func securePath(dest, rel string) (string, error) {
	path := filepath.Join(dest, filepath.FromSlash(rel))
	if path != dest && !strings.HasPrefix(path, dest+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry escapes workspace: %s", rel)
	}
	return path, nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close() //nolint:errcheck // error path
		return err
	}
	return f.Close()
}

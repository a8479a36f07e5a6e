package session

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Destination chooses where a finished download is moved. tempPath is
// the downloaded file; resp carries the response headers. An existing
// file at the returned path is overwritten.
type Destination func(tempPath string, resp *http.Response) (string, error)

// DownloadDirEnv overrides the directory used by the default destination
const DownloadDirEnv = "NETKIT_DOWNLOAD_DIR"

// DefaultDownloadDir returns the directory used when no destination is
// supplied: $NETKIT_DOWNLOAD_DIR, the user cache directory, or the
// system temp directory.
func DefaultDownloadDir() string {
	if dir := os.Getenv(DownloadDirEnv); dir != "" {
		return dir
	}
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "netkit", "downloads")
	}
	return filepath.Join(os.TempDir(), "netkit-downloads")
}

// SuggestedDownloadDestination returns a Destination placing files in
// dir, or DefaultDownloadDir when dir is empty. The file name comes from
// SuggestedFilename.
func SuggestedDownloadDestination(dir string) Destination {
	return func(_ string, resp *http.Response) (string, error) {
		base := dir
		if base == "" {
			base = DefaultDownloadDir()
		}
		return filepath.Join(base, SuggestedFilename(resp)), nil
	}
}

// SuggestedFilename derives a file name from the Content-Disposition
// header, then the last URL path segment. Otherwise it is a random UUID
// with an extension matching the Content-Type.
func SuggestedFilename(resp *http.Response) string {
	if resp == nil {
		return uuid.NewString()
	}

	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := cleanFilename(params["filename"]); name != "" {
				return name
			}
		}
	}

	if resp.Request != nil && resp.Request.URL != nil {
		if name := cleanFilename(path.Base(resp.Request.URL.Path)); name != "" {
			return name
		}
	}

	name := uuid.NewString()
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			if m := mimetype.Lookup(mt); m != nil {
				name += m.Extension()
			}
		}
	}
	return name
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return ""
	}
	return name
}

// moveFile renames src to dst, creating dst's directory and replacing an
// existing file. Renames across filesystems fall back to copying.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		if _, statErr := os.Stat(dst); statErr == nil {
			// some platforms refuse to rename over an existing file
			if rmErr := os.Remove(dst); rmErr != nil {
				return err
			}
			if err := os.Rename(src, dst); err == nil {
				return nil
			}
		}
	}
	return copyFile(src, dst)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FSStorage implements DeviceStorage on the local filesystem. Each Directory
// maps to a root folder.
type FSStorage struct {
	Roots map[Directory]string
}

var _ DeviceStorage = FSStorage{}

// NewFSStorage maps DirectoryDocuments to documentsDir.
func NewFSStorage(documentsDir string) FSStorage {
	return FSStorage{Roots: map[Directory]string{DirectoryDocuments: documentsDir}}
}

// WriteFile decodes opts.Data and writes it atomically.
func (s FSStorage) WriteFile(ctx context.Context, opts WriteFileOptions) (WriteFileResult, error) {
	if err := ctx.Err(); err != nil {
		return WriteFileResult{}, err
	}
	root, ok := s.Roots[opts.Directory]
	if !ok || strings.TrimSpace(root) == "" {
		return WriteFileResult{}, fmt.Errorf("directory %s is not configured", opts.Directory)
	}
	rel := filepath.FromSlash(opts.Path)
	if !filepath.IsLocal(rel) {
		return WriteFileResult{}, fmt.Errorf("path %q escapes %s", opts.Path, opts.Directory)
	}
	data, err := base64.StdEncoding.DecodeString(opts.Data)
	if err != nil {
		return WriteFileResult{}, fmt.Errorf("decode data: %w", err)
	}

	target := filepath.Join(root, rel)
	dir := filepath.Dir(target)
	if opts.Recursive {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WriteFileResult{}, fmt.Errorf("create directory: %w", err)
		}
	} else if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return WriteFileResult{}, fmt.Errorf("parent directory %s does not exist", dir)
	}

	if err := writeAtomic(target, data); err != nil {
		return WriteFileResult{}, err
	}
	return WriteFileResult{URI: fileURI(target)}, nil
}

// writeAtomic writes data to a temporary file next to target and renames it
// into place, so a failed write never leaves a partial file at target.
func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
// ExecOpener opens files with an external command such as xdg-open.
type ExecOpener struct {
	Command string
}

var _ FileOpener = ExecOpener{}

// Open runs Command with the local path behind uri.
func (o ExecOpener) Open(ctx context.Context, uri, mimeType string) error {
	command := strings.TrimSpace(o.Command)
	if command == "" {
		return errors.New("no open command configured")
	}
	target := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		target = filepath.FromSlash(u.Path)
	}
	fields := strings.Fields(command)
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], target)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("open %s (%s): %w: %s", target, mimeType, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// StreamDownloader writes the artifact to W, e.g. stdout for shell redirection.
type StreamDownloader struct {
	W io.Writer
}

var _ Downloader = StreamDownloader{}

// Download copies data to W.
func (d StreamDownloader) Download(_ context.Context, _, _ string, data []byte) error {
	if d.W == nil {
		return errors.New("no writer configured")
	}
	_, err := d.W.Write(data)
	return err
}

// HTTPDownloader answers an HTTP request with the artifact as an attachment.
type HTTPDownloader struct {
	W http.ResponseWriter

	started bool
}

var _ Downloader = (*HTTPDownloader)(nil)

// Started reports whether the response status was written. After that the
// caller can no longer answer with an error status.
func (d *HTTPDownloader) Started() bool {
	return d.started
}

// Download sets attachment headers and writes data.
func (d *HTTPDownloader) Download(_ context.Context, filename, mimeType string, data []byte) error {
	if d.W == nil {
		return errors.New("no response writer configured")
	}
	d.started = true
	h := d.W.Header()
	h.Set("Content-Type", mimeType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	d.W.WriteHeader(http.StatusOK)
	_, err := d.W.Write(data)
	return err
}

// DirDownloader saves downloads as Dir/<filename>, like a browser saving to
// its download folder. The terminal UI uses it for web exports.
type DirDownloader struct {
	Dir string
}

var (
	_ Downloader         = DirDownloader{}
	_ LocatingDownloader = DirDownloader{}
)

// Download writes data atomically under Dir, creating Dir if needed.
func (d DirDownloader) Download(ctx context.Context, filename, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Dir) == "" {
		return errors.New("no download directory configured")
	}
	if filename == "" || filepath.Base(filename) != filename || !filepath.IsLocal(filename) {
		return fmt.Errorf("invalid download name %q", filename)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	return writeAtomic(filepath.Join(d.Dir, filename), data)
}

// URI returns the file URI a download of filename is saved to.
func (d DirDownloader) URI(filename string) string {
	return fileURI(filepath.Join(d.Dir, filename))
}

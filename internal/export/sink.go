package export

import (
	"context"
	"fmt"
	"path"
)

// Artifact is a rendered export ready to persist.
type Artifact struct {
	Format Format
	// Filename is the timestamped base name.
	Filename string
	MIME     string
	Payload  Payload
}

// StoragePath is the device-storage path, e.g. pdf/flightbook_<ts>.pdf.
func (a Artifact) StoragePath() string {
	return path.Join(string(a.Format), a.Filename)
}

// Location says where a persisted artifact ended up.
type Location struct {
	// URI of the written file, or "download:<filename>" for a browser download.
	URI      string
	Filename string
}

// ArtifactSink persists an artifact for one execution environment.
type ArtifactSink interface {
	Persist(ctx context.Context, a Artifact) (Location, error)
}

// Directory is a device storage root.
type Directory string

const (
	DirectoryDocuments Directory = "DOCUMENTS"
	DirectoryData      Directory = "DATA"
	DirectoryCache     Directory = "CACHE"
)

// WriteFileOptions mirror a device storage write request. Data is base64.
type WriteFileOptions struct {
	Path      string
	Data      string
	Directory Directory
	Recursive bool
}

// WriteFileResult carries the URI of the written file.
type WriteFileResult struct {
	URI string
}

// DeviceStorage writes files to native storage.
type DeviceStorage interface {
	WriteFile(ctx context.Context, opts WriteFileOptions) (WriteFileResult, error)
}

// FileOpener hands a written file to the platform viewer.
type FileOpener interface {
	Open(ctx context.Context, uri, mimeType string) error
}

// Downloader triggers a client-side save of raw artifact bytes.
type Downloader interface {
	Download(ctx context.Context, filename, mimeType string, data []byte) error
}

// LocatingDownloader is a Downloader that knows where a download ends up.
type LocatingDownloader interface {
	Downloader
	URI(filename string) string
}

// NativeSink writes artifacts to device documents storage and opens them.
type NativeSink struct {
	Storage DeviceStorage
	Opener  FileOpener
}

var _ ArtifactSink = NativeSink{}

// Persist writes a.StoragePath() under the documents directory, creating
// intermediate directories, then opens the result. An opener failure returns
// the written location together with a KindOpen error.
func (s NativeSink) Persist(ctx context.Context, a Artifact) (Location, error) {
	if s.Storage == nil {
		return Location{}, &Error{Kind: KindStorageWrite, Err: fmt.Errorf("no device storage configured")}
	}
	data, err := a.Payload.Base64()
	if err != nil {
		return Location{}, &Error{Kind: KindRender, Err: fmt.Errorf("extract base64: %w", err)}
	}
	res, err := s.Storage.WriteFile(ctx, WriteFileOptions{
		Path:      a.StoragePath(),
		Data:      data,
		Directory: DirectoryDocuments,
		Recursive: true,
	})
	if err != nil {
		return Location{}, &Error{Kind: KindStorageWrite, Err: err}
	}
	loc := Location{URI: res.URI, Filename: a.Filename}
	if s.Opener == nil {
		return loc, nil
	}
	if err := s.Opener.Open(ctx, res.URI, a.MIME); err != nil {
		return loc, &Error{Kind: KindOpen, Location: loc, Err: err}
	}
	return loc, nil
}

// WebSink hands artifacts to a browser download. It never touches device
// storage.
type WebSink struct {
	Downloader Downloader
}

var _ ArtifactSink = WebSink{}

// Persist triggers the download of a under its timestamped filename.
func (s WebSink) Persist(ctx context.Context, a Artifact) (Location, error) {
	if s.Downloader == nil {
		return Location{}, &Error{Kind: KindStorageWrite, Err: fmt.Errorf("no downloader configured")}
	}
	data, err := a.Payload.Bytes()
	if err != nil {
		return Location{}, &Error{Kind: KindRender, Err: err}
	}
	if err := s.Downloader.Download(ctx, a.Filename, a.MIME, data); err != nil {
		return Location{}, &Error{Kind: KindStorageWrite, Err: fmt.Errorf("download: %w", err)}
	}
	uri := "download:" + a.Filename
	if l, ok := s.Downloader.(LocatingDownloader); ok {
		uri = l.URI(a.Filename)
	}
	return Location{URI: uri, Filename: a.Filename}, nil
}

// Package storage keeps attachment bytes on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"notespace/api/internal/util"
)

// MaxUploadBytes caps a single attachment.
const MaxUploadBytes = 10 << 20

var (
	ErrNotFound    = errors.New("object not found")
	ErrEmptyFile   = errors.New("file is empty")
	ErrTooLarge    = errors.New("file exceeds the 10 MB limit")
	ErrInvalidName = errors.New("invalid object name")
)

// ObjectStore persists opaque blobs under generated names.
type ObjectStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// Upload is an inspected file ready to be stored.
type Upload struct {
	OriginalName string
	StoredName   string
	ContentType  string
	Data         []byte
}

// ReadUpload reads at most MaxUploadBytes from r, sniffs the content type
// from the first 512 bytes and generates a storage name that keeps the
// original extension.
func ReadUpload(r io.Reader, originalName string) (Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Upload{}, err
	}
	if len(data) == 0 {
		return Upload{}, ErrEmptyFile
	}
	if len(data) > MaxUploadBytes {
		return Upload{}, ErrTooLarge
	}

	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	return Upload{
		OriginalName: base,
		StoredName:   util.NewFilename(filepath.Ext(base)),
		ContentType:  http.DetectContentType(data),
		Data:         data,
	}, nil
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/\\") && name != "." && name != ".."
}

// Package media uploads user images to a remote media host and removes them again.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
)

var (
	// ErrEmptyFile is returned when a file has no content.
	ErrEmptyFile = errors.New("file is empty")
	// ErrInvalidAsset is returned when the host answers without a URL or public ID.
	ErrInvalidAsset = errors.New("media host returned an incomplete asset")
)

// File is an in-memory upload.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Asset is the media host's answer to an upload.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Validate checks the collaborator boundary: both fields must be present.
func (a *Asset) Validate() error {
	if a == nil || a.URL == "" || a.PublicID == "" {
		return ErrInvalidAsset
	}
	return nil
}

// Host stores and deletes media.
type Host interface {
	Upload(ctx context.Context, folder string, file *File) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// ReadMultipart loads a multipart file header into memory.
func ReadMultipart(fh *multipart.FileHeader) (*File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return &File{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// extension returns a lower-cased, sanitised file extension including the dot.
func extension(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	for _, r := range ext[min(1, len(ext)):] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

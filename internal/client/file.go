package client

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const csvMediaType = "text/csv"

// File is a user-selected file offered to the Uploader.
type File interface {
	// Name is the original file name, without directories.
	Name() string
	// ContentType is the declared MIME type; it may be empty.
	ContentType() string
	Open() (io.ReadCloser, error)
}

// IsCSV reports whether f declares the CSV media type or has a .csv name.
// Either check passing is sufficient.
func IsCSV(f File) bool {
	if mediaType, _, err := mime.ParseMediaType(f.ContentType()); err == nil && mediaType == csvMediaType {
		return true
	}
	return strings.EqualFold(filepath.Ext(f.Name()), ".csv")
}

type pathFile struct {
	path string
}

// FileFromPath returns a File reading from path. Its content type is derived
// from the extension.
func FileFromPath(path string) File {
	return pathFile{path: path}
}

func (f pathFile) Name() string { return filepath.Base(f.path) }

func (f pathFile) ContentType() string {
	ext := strings.ToLower(filepath.Ext(f.path))
	if ext == ".csv" {
		return csvMediaType
	}
	return mime.TypeByExtension(ext)
}

func (f pathFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type memFile struct {
	name        string
	contentType string
	data        []byte
}

// NewMemFile returns a File backed by data.
func NewMemFile(name, contentType string, data []byte) File {
	return memFile{name: name, contentType: contentType, data: data}
}

func (f memFile) Name() string        { return f.name }
func (f memFile) ContentType() string { return f.contentType }

func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

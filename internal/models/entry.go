// Package models contains data structures shared by the file service, handlers and templates
package models

import (
	"io"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ObjectEntry is a listed object plus the metadata the file grid renders
type ObjectEntry struct {
	Key           string    `json:"key"`
	DisplayName   string    `json:"name"`
	Size          int64     `json:"size"`
	FormattedSize string    `json:"formattedSize"`
	LastModified  time.Time `json:"lastModified"`
	URL           string    `json:"url"`
	IsImage       bool      `json:"isImage"`
}

// NewObjectEntry derives the display fields of an entry. prefix is stripped
// from the key to form the display name.
func NewObjectEntry(key string, size int64, lastModified time.Time, prefix, url string) ObjectEntry {
	name := strings.TrimPrefix(key, prefix)
	return ObjectEntry{
		Key:           key,
		DisplayName:   name,
		Size:          size,
		FormattedSize: FormatSize(size),
		LastModified:  lastModified,
		URL:           url,
		IsImage:       IsImageFile(name),
	}
}

// PendingUpload is a file selected in the browser, held only for one upload
type PendingUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// RenameDraft is the single in-progress rename shown in the grid
type RenameDraft struct {
	Key     string
	NewName string
}

// Active reports whether the draft targets key.
func (d *RenameDraft) Active(key string) bool {
	return d != nil && d.Key == key
}

// Notice is a blocking message shown after an operation
type Notice struct {
	Success bool
	Message string
}

// FormatSize renders a byte count the way the grid shows it (e.g. "1.5 kB")
func FormatSize(size int64) string {
	if size < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(size))
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// IsImageFile reports whether the grid should render name as a thumbnail
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

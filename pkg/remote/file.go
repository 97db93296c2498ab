// pkg/remote/file.go
package remote

import (
	"io/fs"
	"path"
	"time"
)

// File describes one directory entry on the remote endpoint.
// It is produced fresh by every listing and never persisted.
type File struct {
	Name    string    // Base name of the entry
	Path    string    // Full remote path used for retrieval
	Size    int64     // Size in bytes (0 if the endpoint doesn't report it)
	ModTime time.Time // Endpoint-reported modification time
	IsDir   bool      // True for directories (never eligible for transfer)
}

// NewFile builds a File for an entry named name inside dir.
func NewFile(dir, name string, size int64, modTime time.Time, isDir bool) File {
	return File{
		Name:    name,
		Path:    path.Join(dir, name),
		Size:    size,
		ModTime: modTime,
		IsDir:   isDir,
	}
}

// FromFileInfo converts an fs.FileInfo listed inside dir.
func FromFileInfo(dir string, info fs.FileInfo) File {
	return NewFile(dir, info.Name(), info.Size(), info.ModTime(), info.IsDir())
}

// ChangedSince reports whether the entry is a regular file modified on or
// after watermark. The lower bound is inclusive: endpoints with coarse
// timestamps report boundary files with exactly the watermark time.
func (f File) ChangedSince(watermark time.Time) bool {
	if f.IsDir {
		return false
	}
	return !f.ModTime.Before(watermark)
}

// Names returns the names of files, in order.
func Names(files []File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

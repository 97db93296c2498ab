// pkg/remote/local/local.go
//
// Package local serves the FILE protocol: the "remote" directory is a path on
// a local or pre-mounted filesystem (NFS, SMB, removable media).
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// Dialer opens sessions on a source filesystem.
type Dialer struct {
	Source afero.Fs // Filesystem holding the scanned directory
	Sink   *remote.Sink
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer reading from source and writing through sink.
func NewDialer(source afero.Fs, sink *remote.Sink) *Dialer {
	return &Dialer{Source: source, Sink: sink}
}

// Dial never touches the network; it only checks the host is a FILE host.
func (d *Dialer) Dial(_ context.Context, host remote.HostConfig) (remote.Session, error) {
	if host.Protocol != remote.FILE {
		return nil, remote.ConnectionError("", fmt.Errorf("local dialer cannot serve %s", host.Protocol))
	}
	return &session{src: d.Source, sink: d.Sink}, nil
}

type session struct {
	src  afero.Fs
	sink *remote.Sink
	dir  string
}

func (s *session) ChangeDir(_ context.Context, dir string) error {
	info, err := s.src.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return remote.NoSuchDirectoryError(dir, nil)
		}
		return remote.NoSuchDirectoryError(dir, err)
	}
	if !info.IsDir() {
		return remote.NoSuchDirectoryError(dir, fmt.Errorf("not a directory"))
	}
	s.dir = dir
	return nil
}

func (s *session) List(_ context.Context) ([]remote.File, error) {
	infos, err := afero.ReadDir(s.src, s.dir)
	if err != nil {
		return nil, remote.ListingError(s.dir, err)
	}
	files := make([]remote.File, 0, len(infos))
	for _, info := range infos {
		files = append(files, remote.FromFileInfo(s.dir, info))
	}
	return files, nil
}

func (s *session) Download(_ context.Context, file remote.File, localDir string) error {
	in, err := s.src.Open(filepath.FromSlash(file.Path))
	if err != nil {
		return remote.DownloadError(file.Name, err)
	}
	defer in.Close()

	if err := s.sink.Store(localDir, file, in); err != nil {
		return remote.DownloadError(file.Name, err)
	}
	return nil
}

func (s *session) Close() error {
	return nil
}

// pkg/remote/ftp/ftp.go
//
// Package ftp serves the FTP and FTPS protocols using github.com/jlaffaye/ftp.
package ftp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/jlaffaye/ftp"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// serverConn is the part of *ftp.ServerConn a session uses.
type serverConn interface {
	ChangeDir(path string) error
	CurrentDir() (string, error)
	List(path string) ([]*ftp.Entry, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// conn adapts *ftp.ServerConn so Retr returns a plain io.ReadCloser.
type conn struct {
	*ftp.ServerConn
}

func (c conn) Retr(path string) (io.ReadCloser, error) {
	return c.ServerConn.Retr(path)
}

// Dialer opens FTP and FTPS sessions.
type Dialer struct {
	Sink *remote.Sink
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer writing downloads through sink.
func NewDialer(sink *remote.Sink) *Dialer {
	return &Dialer{Sink: sink}
}

// Dial connects to host and logs in. FTPS hosts negotiate explicit TLS
// before sending credentials.
func (d *Dialer) Dial(ctx context.Context, host remote.HostConfig) (remote.Session, error) {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(host.DialTimeout()),
	}
	switch host.Protocol {
	case remote.FTP:
	case remote.FTPS:
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName: host.Hostname,
			MinVersion: tls.VersionTLS12,
		}))
	default:
		return nil, remote.ConnectionError(host.Address(), fmt.Errorf("ftp dialer cannot serve %s", host.Protocol))
	}

	c, err := ftp.Dial(host.Address(), opts...)
	if err != nil {
		return nil, remote.ConnectionError(host.Address(), err)
	}
	if err := c.Login(host.Username, host.Password); err != nil {
		_ = c.Quit()
		return nil, remote.ConnectionError(host.Address(), fmt.Errorf("login as %s: %w", host.Username, err))
	}
	return newSession(conn{c}, d.Sink), nil
}

type session struct {
	c    serverConn
	sink *remote.Sink
	dir  string
}

func newSession(c serverConn, sink *remote.Sink) *session {
	return &session{c: c, sink: sink}
}

func (s *session) ChangeDir(_ context.Context, dir string) error {
	if err := s.c.ChangeDir(dir); err != nil {
		return remote.NoSuchDirectoryError(dir, err)
	}
	s.dir = dir
	if cwd, err := s.c.CurrentDir(); err == nil {
		s.dir = cwd
	}
	return nil
}

func (s *session) List(_ context.Context) ([]remote.File, error) {
	entries, err := s.c.List("")
	if err != nil {
		return nil, remote.ListingError(s.dir, err)
	}
	return toFiles(s.dir, entries), nil
}

// Download retrieves the file relative to the working directory.
func (s *session) Download(_ context.Context, file remote.File, localDir string) error {
	r, err := s.c.Retr(file.Name)
	if err != nil {
		return remote.DownloadError(file.Name, err)
	}
	storeErr := s.sink.Store(localDir, file, r)
	// The transfer response must be drained before the next command
	closeErr := r.Close()
	if storeErr != nil {
		return remote.DownloadError(file.Name, storeErr)
	}
	if closeErr != nil {
		return remote.DownloadError(file.Name, closeErr)
	}
	return nil
}

func (s *session) Close() error {
	if err := s.c.Quit(); err != nil {
		return remote.DisconnectionError(err)
	}
	return nil
}

// toFiles converts a LIST/MLSD response, skipping the self and parent entries.
func toFiles(dir string, entries []*ftp.Entry) []remote.File {
	files := make([]remote.File, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Name == "." || e.Name == ".." {
			continue
		}
		isDir := e.Type == ftp.EntryTypeFolder
		files = append(files, remote.NewFile(dir, e.Name, int64(e.Size), e.Time, isDir))
	}
	return files
}

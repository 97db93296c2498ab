// pkg/remote/sftp/sftp.go
//
// Package sftp serves the SFTP protocol using github.com/pkg/sftp over
// golang.org/x/crypto/ssh.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"

	"github.com/pkg/sftp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// client is the part of *sftp.Client a session uses.
type client interface {
	Stat(p string) (os.FileInfo, error)
	ReadDir(p string) ([]os.FileInfo, error)
	Open(p string) (io.ReadCloser, error)
	Close() error
}

// sshClient owns both the SFTP subsystem and the SSH connection under it.
type sshClient struct {
	sftp *sftp.Client
	conn *ssh.Client
}

func (c *sshClient) Stat(p string) (os.FileInfo, error)      { return c.sftp.Stat(p) }
func (c *sshClient) ReadDir(p string) ([]os.FileInfo, error) { return c.sftp.ReadDir(p) }

func (c *sshClient) Open(p string) (io.ReadCloser, error) {
	f, err := c.sftp.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (c *sshClient) Close() error {
	return multierr.Combine(c.sftp.Close(), c.conn.Close())
}

// Dialer opens SFTP sessions.
type Dialer struct {
	Sink   *remote.Sink
	Logger *zap.Logger
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer writing downloads through sink.
func NewDialer(sink *remote.Sink, logger *zap.Logger) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{Sink: sink, Logger: logger}
}

// Dial opens the SSH connection, authenticates with the key file when one is
// configured (password otherwise) and starts the SFTP subsystem.
func (d *Dialer) Dial(ctx context.Context, host remote.HostConfig) (remote.Session, error) {
	addr := host.Address()
	if host.Protocol != remote.SFTP {
		return nil, remote.ConnectionError(addr, fmt.Errorf("sftp dialer cannot serve %s", host.Protocol))
	}

	auth, err := authMethods(host)
	if err != nil {
		return nil, remote.ConnectionError(addr, err)
	}
	hostKey, err := d.hostKeyCallback(host)
	if err != nil {
		return nil, remote.ConnectionError(addr, err)
	}
	cfg := &ssh.ClientConfig{
		User:            host.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         host.DialTimeout(),
	}

	dialer := net.Dialer{Timeout: host.DialTimeout()}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, remote.ConnectionError(addr, err)
	}
	sc, chans, reqs, err := ssh.NewClientConn(nc, addr, cfg)
	if err != nil {
		_ = nc.Close()
		return nil, remote.ConnectionError(addr, err)
	}
	conn := ssh.NewClient(sc, chans, reqs)

	sc2, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, remote.ConnectionError(addr, fmt.Errorf("start sftp subsystem: %w", err))
	}
	return newSession(&sshClient{sftp: sc2, conn: conn}, d.Sink), nil
}

func authMethods(host remote.HostConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if host.KeyFile != "" {
		pem, err := os.ReadFile(host.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse key file %s: %w", host.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if host.Password != "" {
		methods = append(methods, ssh.Password(host.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("no password or key file configured")
	}
	return methods, nil
}

func (d *Dialer) hostKeyCallback(host remote.HostConfig) (ssh.HostKeyCallback, error) {
	if host.KnownHosts == "" {
		d.Logger.Warn("host key verification disabled, set host.known-hosts to enable it",
			zap.String("host", host.Hostname))
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(host.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("load known hosts %s: %w", host.KnownHosts, err)
	}
	return cb, nil
}

type session struct {
	c    client
	sink *remote.Sink
	dir  string
}

func newSession(c client, sink *remote.Sink) *session {
	return &session{c: c, sink: sink}
}

// ChangeDir records dir as the working directory after checking it exists.
// SFTP has no server-side working directory.
func (s *session) ChangeDir(_ context.Context, dir string) error {
	info, err := s.c.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return remote.NoSuchDirectoryError(dir, nil)
		}
		return remote.NoSuchDirectoryError(dir, err)
	}
	if !info.IsDir() {
		return remote.NoSuchDirectoryError(dir, errors.New("not a directory"))
	}
	s.dir = dir
	return nil
}

func (s *session) List(_ context.Context) ([]remote.File, error) {
	infos, err := s.c.ReadDir(s.dir)
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
	r, err := s.c.Open(file.Path)
	if err != nil {
		return remote.DownloadError(file.Name, err)
	}
	defer r.Close()

	if err := s.sink.Store(localDir, file, r); err != nil {
		return remote.DownloadError(file.Name, err)
	}
	return nil
}

func (s *session) Close() error {
	if err := s.c.Close(); err != nil {
		return remote.DisconnectionError(err)
	}
	return nil
}

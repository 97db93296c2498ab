// pkg/remote/errors.go
package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for the transfer failure taxonomy. Every error returned by a
// Dialer or Session should match one of them through errors.Is.
var (
	ErrConnection      = errors.New("connection failed")
	ErrNoSuchDirectory = errors.New("no such directory")
	ErrListing         = errors.New("file listing failed")
	ErrDownload        = errors.New("download failed")
	ErrDisconnection   = errors.New("disconnection failed")
)

// Kind classifies an OpError.
type Kind int

const (
	KindConnection Kind = iota
	KindNoSuchDirectory
	KindListing
	KindDownload
	KindDisconnection
)

func (k Kind) sentinel() error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindNoSuchDirectory:
		return ErrNoSuchDirectory
	case KindListing:
		return ErrListing
	case KindDownload:
		return ErrDownload
	case KindDisconnection:
		return ErrDisconnection
	default:
		return errors.New("unknown transfer error")
	}
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// OpError is a transfer failure with the remote path involved and the
// underlying cause reported by the protocol client.
type OpError struct {
	Kind Kind
	Path string // Remote path or host address, may be empty
	Err  error  // Underlying cause, may be nil
}

// Error renders "reason[ path]: cause", concatenating the failure reason with
// its cause when there is one.
func (e *OpError) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *OpError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// ConnectionError wraps a dial or login failure for addr.
func ConnectionError(addr string, err error) error {
	return &OpError{Kind: KindConnection, Path: addr, Err: err}
}

// NoSuchDirectoryError reports that dir doesn't exist on the endpoint.
func NoSuchDirectoryError(dir string, err error) error {
	return &OpError{Kind: KindNoSuchDirectory, Path: dir, Err: err}
}

// ListingError wraps a directory listing failure.
func ListingError(dir string, err error) error {
	return &OpError{Kind: KindListing, Path: dir, Err: err}
}

// DownloadError wraps a failure retrieving or storing one file.
func DownloadError(name string, err error) error {
	return &OpError{Kind: KindDownload, Path: name, Err: err}
}

// DisconnectionError wraps a failure closing the session.
func DisconnectionError(err error) error {
	return &OpError{Kind: KindDisconnection, Err: err}
}

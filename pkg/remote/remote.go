// pkg/remote/remote.go
//
// Package remote defines the transfer client capability consumed by the sync
// cycle, the types it exchanges, and a factory that picks the client for a
// configured protocol. The protocol implementations live in sub-packages.
package remote

import (
	"context"
	"fmt"
	"sync"
)

// Dialer opens sessions for one protocol variant.
type Dialer interface {
	// Dial connects and authenticates. Failures match ErrConnection.
	Dial(ctx context.Context, host HostConfig) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, host HostConfig) (Session, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, host HostConfig) (Session, error) {
	return f(ctx, host)
}

// Session is one open connection to a remote endpoint. Sessions are used by a
// single goroutine.
type Session interface {
	// ChangeDir sets the working directory. Fails with ErrNoSuchDirectory.
	ChangeDir(ctx context.Context, dir string) error
	// List returns the entries of the working directory in endpoint order.
	// Fails with ErrListing.
	List(ctx context.Context) ([]File, error)
	// Download stores file into localDir/file.Name. Fails with ErrDownload.
	Download(ctx context.Context, file File, localDir string) error
	// Close ends the session. Fails with ErrDisconnection.
	Close() error
}

// Factory maps protocol types to dialers.
type Factory struct {
	mu      sync.RWMutex
	dialers map[ProtocolType]Dialer
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{dialers: make(map[ProtocolType]Dialer)}
}

// Register sets the dialer for p, replacing any previous one.
func (f *Factory) Register(p ProtocolType, d Dialer) *Factory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialers[p] = d
	return f
}

// Dialer returns the dialer registered for p.
func (f *Factory) Dialer(p ProtocolType) (Dialer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	d, ok := f.dialers[p]
	if !ok {
		return nil, ConnectionError("", fmt.Errorf("no client registered for protocol %s", p))
	}
	return d, nil
}

// Dial looks up the dialer for host.Protocol and dials.
func (f *Factory) Dial(ctx context.Context, host HostConfig) (Session, error) {
	d, err := f.Dialer(host.Protocol)
	if err != nil {
		return nil, err
	}
	return d.Dial(ctx, host)
}

// pkg/syncer/syncer.go
//
// Package syncer runs one scan, filter and download cycle against the
// configured remote host.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/ignore"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

// State is the phase a cycle is in.
type State int32

const (
	Idle State = iota
	Connecting
	Connected
	Scanning
	Filtering
	Transferring
	Disconnecting
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Scanning:
		return "Scanning"
	case Filtering:
		return "Filtering"
	case Transferring:
		return "Transferring"
	case Disconnecting:
		return "Disconnecting"
	case Errored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// Store supplies settings and keeps the watermark.
type Store interface {
	Snapshot() (*config.Settings, error)
	SetLastRun(t time.Time) error
}

// Events receives the progress of a cycle. *notify.Notifier implements it.
type Events interface {
	ConnectionOpened()
	ConnectionClosed()
	FilesSelected(files []remote.File)
	Error(message string)
	DownloadStarted(name string)
	DownloadFinished(name string)
}

// Syncer orchestrates the cycle. Cycles must not overlap; the caller
// serializes calls to Run.
type Syncer struct {
	store  Store
	dialer remote.Dialer
	events Events
	fs     afero.Fs
	logger *zap.Logger
	now    func() time.Time
	state  atomic.Int32
}

// Option customizes a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger for state transitions and summaries.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithClock replaces time.Now for the watermark.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithFs sets the local filesystem holding the download directory. It must
// be the one the dialers' sinks write to.
func WithFs(fs afero.Fs) Option {
	return func(s *Syncer) { s.fs = fs }
}

// New creates a Syncer. dialer is usually a *remote.Factory.
func New(store Store, dialer remote.Dialer, events Events, opts ...Option) *Syncer {
	s := &Syncer{
		store:  store,
		dialer: dialer,
		events: events,
		fs:     afero.NewOsFs(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current phase. Safe to call while Run is executing.
func (s *Syncer) State() State {
	return State(s.state.Load())
}

func (s *Syncer) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	s.logger.Debug("state transition",
		zap.Stringer("from", prev), zap.Stringer("to", next))
}

// Run executes one cycle. Connection, directory, listing, download and
// disconnection failures are reported through Events and never returned.
// The returned error is always a configuration problem (matching
// config.ErrInvalidConfig), found before anything is dialed.
func (s *Syncer) Run(ctx context.Context) error {
	settings, err := s.store.Snapshot()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	excludes, err := ignore.NewMatcher(s.fs, settings.DownloadDir, settings.Excludes, s.logger)
	if err != nil {
		return fmt.Errorf("%w: load exclusions: %w", config.ErrInvalidConfig, err)
	}

	start := s.now()
	defer s.setState(Idle)

	s.setState(Connecting)
	session, err := s.dialer.Dial(ctx, settings.Host)
	if err != nil {
		s.fail(err)
		return nil
	}
	s.events.ConnectionOpened()
	s.setState(Connected)

	var sum summary
	// Nothing new since the last run leaves the watermark where it is.
	if changed, ok := s.scan(ctx, session, settings, &sum); ok && len(changed) > 0 {
		selected := s.plan(changed, settings, excludes, &sum)
		s.commit()
		s.execute(ctx, session, selected, settings, &sum)
	}
	s.disconnect(session)

	s.logger.Info("sync cycle finished",
		zap.String("host", settings.Host.Hostname),
		zap.Int("listed", sum.listed),
		zap.Int("changed", sum.changed),
		zap.Int("selected", sum.selected),
		zap.Int("downloaded", sum.downloaded),
		zap.Int("failed", sum.failed),
		zap.Duration("elapsed", s.now().Sub(start)))
	return nil
}

type summary struct {
	listed, changed, selected, downloaded, failed int
}

// fail reports err and moves to Errored.
func (s *Syncer) fail(err error) {
	s.logger.Debug("cycle error", zap.Error(err))
	s.events.Error(err.Error())
	s.setState(Errored)
}

// commit advances the watermark. A failure is reported and the cycle goes on;
// the files already selected are still downloaded.
func (s *Syncer) commit() {
	now := s.now()
	if err := s.store.SetLastRun(now); err != nil {
		s.events.Error(err.Error())
		return
	}
	s.logger.Debug("watermark advanced", zap.Time("last_run", now))
}

func (s *Syncer) disconnect(session remote.Session) {
	s.setState(Disconnecting)
	if err := session.Close(); err != nil {
		s.fail(err)
		return
	}
	s.events.ConnectionClosed()
}

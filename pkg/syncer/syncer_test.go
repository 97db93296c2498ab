package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/ignore"
	"github.com/jeepinbird/autoftp/pkg/notify"
	"github.com/jeepinbird/autoftp/pkg/pattern"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

var (
	lastRun = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now     = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
)

type fakeStore struct {
	settings   *config.Settings
	snapErr    error
	saveErr    error
	watermarks []time.Time
}

func (f *fakeStore) Snapshot() (*config.Settings, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	cp := *f.settings
	return &cp, nil
}

func (f *fakeStore) SetLastRun(t time.Time) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.watermarks = append(f.watermarks, t)
	return nil
}

type fakeSession struct {
	syncer   *Syncer
	sink     *remote.Sink
	dirs     map[string]bool
	entries  []remote.File
	listErr  error
	failing  map[string]bool
	closeErr error

	states     []State
	downloaded []string
	closed     bool
}

func (f *fakeSession) record() {
	if f.syncer != nil {
		f.states = append(f.states, f.syncer.State())
	}
}

func (f *fakeSession) ChangeDir(_ context.Context, dir string) error {
	f.record()
	if !f.dirs[dir] {
		return remote.NoSuchDirectoryError(dir, errors.New("550 not found"))
	}
	return nil
}

func (f *fakeSession) List(context.Context) ([]remote.File, error) {
	if f.listErr != nil {
		return nil, remote.ListingError("/out", f.listErr)
	}
	return f.entries, nil
}

func (f *fakeSession) Download(_ context.Context, file remote.File, localDir string) error {
	f.record()
	if f.failing[file.Name] {
		return remote.DownloadError(file.Name, errors.New("426 transfer aborted"))
	}
	f.downloaded = append(f.downloaded, file.Name)
	if f.sink != nil {
		return f.sink.Store(localDir, file, strings.NewReader("content of "+file.Name))
	}
	return nil
}

func (f *fakeSession) Close() error {
	f.record()
	f.closed = true
	if f.closeErr != nil {
		return remote.DisconnectionError(f.closeErr)
	}
	return nil
}

type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) ConnectionOpened() { r.add("connect") }
func (r *recorder) ConnectionClosed() { r.add("disconnect") }
func (r *recorder) FilesSelected(files []remote.File) {
	r.add("selected %s", strings.Join(remote.Names(files), ","))
}
func (r *recorder) Error(message string)         { r.add("error %s", message) }
func (r *recorder) DownloadStarted(name string)  { r.add("started %s", name) }
func (r *recorder) DownloadFinished(name string) { r.add("finished %s", name) }

func file(name string, mod time.Time) remote.File {
	return remote.NewFile("/out", name, 10, mod, false)
}

func dir(name string, mod time.Time) remote.File {
	return remote.NewFile("/out", name, 0, mod, true)
}

func baseSettings() *config.Settings {
	return &config.Settings{
		Host: remote.HostConfig{
			Hostname:        "ftp.example.com",
			Username:        "u",
			Password:        "p",
			Port:            21,
			Protocol:        remote.FTP,
			RemoteDirectory: "/out",
		},
		DownloadDir: "/downloads",
		Filters:     []string{"*.pdf"},
		LastRun:     lastRun,
		Interval:    time.Minute,
	}
}

type harness struct {
	store   *fakeStore
	session *fakeSession
	events  *recorder
	fs      afero.Fs
	dials   int
	syncer  *Syncer
}

func newHarness(settings *config.Settings, entries ...remote.File) *harness {
	h := &harness{
		store:  &fakeStore{settings: settings},
		events: &recorder{},
		fs:     afero.NewMemMapFs(),
	}
	h.session = &fakeSession{
		sink:    remote.NewSink(h.fs),
		dirs:    map[string]bool{"/out": true},
		entries: entries,
	}
	dialer := remote.DialerFunc(func(context.Context, remote.HostConfig) (remote.Session, error) {
		h.dials++
		return h.session, nil
	})
	h.syncer = New(h.store, dialer, h.events, WithClock(func() time.Time { return now }), WithFs(h.fs))
	h.session.syncer = h.syncer
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	require.NoError(t, h.syncer.Run(context.Background()))
	assert.Equal(t, Idle, h.syncer.State())
}

func TestMixedListing(t *testing.T) {
	h := newHarness(baseSettings(),
		file("old.pdf", lastRun.Add(-time.Hour)),
		file("a.pdf", lastRun.Add(time.Hour)),
		file("notes.txt", lastRun.Add(time.Hour)),
		dir("folder.pdf", lastRun.Add(time.Hour)),
		file("edge.PDF", lastRun),
	)
	h.run(t)

	assert.Equal(t, []string{
		"connect",
		"selected a.pdf,edge.PDF",
		"started a.pdf", "finished a.pdf",
		"started edge.PDF", "finished edge.PDF",
		"disconnect",
	}, h.events.events)
	assert.Equal(t, []time.Time{now}, h.store.watermarks)
	assert.Equal(t, []string{"a.pdf", "edge.PDF"}, h.session.downloaded)

	data, err := afero.ReadFile(h.fs, "/downloads/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "content of a.pdf", string(data))
}

func TestStatesDuringCycle(t *testing.T) {
	h := newHarness(baseSettings(), file("a.pdf", now))
	h.run(t)
	assert.Equal(t, []State{Scanning, Transferring, Disconnecting}, h.session.states)
}

func TestConnectFailure(t *testing.T) {
	h := newHarness(baseSettings())
	h.syncer.dialer = remote.DialerFunc(func(context.Context, remote.HostConfig) (remote.Session, error) {
		return nil, remote.ConnectionError("ftp.example.com:21", errors.New("connection refused"))
	})
	h.run(t)

	assert.Equal(t, []string{"error connection failed: ftp.example.com:21: connection refused"}, h.events.events)
	assert.Empty(t, h.store.watermarks)
	assert.False(t, h.session.closed)
}

func TestUnknownProtocolIsConnectionFailure(t *testing.T) {
	h := newHarness(baseSettings())
	h.syncer.dialer = remote.NewFactory()
	h.run(t)

	require.Len(t, h.events.events, 1)
	assert.Contains(t, h.events.events[0], "no client registered for protocol FTP")
	assert.Empty(t, h.store.watermarks)
}

func TestMissingDirectory(t *testing.T) {
	settings := baseSettings()
	settings.Host.RemoteDirectory = "/missing"
	h := newHarness(settings, file("a.pdf", now))
	h.run(t)

	assert.Equal(t, []string{
		"connect",
		"error no such directory: /missing: 550 not found",
		"disconnect",
	}, h.events.events)
	assert.Empty(t, h.store.watermarks)
	assert.True(t, h.session.closed)
	assert.Empty(t, h.session.downloaded)
}

func TestListingFailure(t *testing.T) {
	h := newHarness(baseSettings())
	h.session.listErr = errors.New("425 no data connection")
	h.run(t)

	assert.Equal(t, []string{
		"connect",
		"error file listing failed: /out: 425 no data connection",
		"disconnect",
	}, h.events.events)
	assert.Empty(t, h.store.watermarks)
}

func TestEmptyFiltersSelectNothing(t *testing.T) {
	settings := baseSettings()
	settings.Filters = nil
	h := newHarness(settings, file("a.pdf", now), file("b.txt", now))
	h.run(t)

	assert.Equal(t, []string{"connect", "disconnect"}, h.events.events)
	assert.Equal(t, []time.Time{now}, h.store.watermarks)
}

func TestEmptyDeltaKeepsWatermark(t *testing.T) {
	h := newHarness(baseSettings(),
		file("old.pdf", lastRun.Add(-time.Minute)),
		dir("sub", lastRun.Add(time.Hour)))
	h.run(t)

	assert.Equal(t, []string{"connect", "disconnect"}, h.events.events)
	assert.Empty(t, h.store.watermarks)
	assert.Equal(t, []State{Scanning, Disconnecting}, h.session.states)
}

func TestEmptyListingKeepsWatermark(t *testing.T) {
	h := newHarness(baseSettings())
	h.run(t)

	assert.Equal(t, []string{"connect", "disconnect"}, h.events.events)
	assert.Empty(t, h.store.watermarks)
}

func TestObserverCannotReorderDownloads(t *testing.T) {
	h := newHarness(baseSettings(), file("c.pdf", now), file("a.pdf", now), file("b.pdf", now))
	n := notify.New(nil)
	n.Register(notify.ObserverFuncs{FilesSelected: func(files []remote.File) error {
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
		files[0] = remote.File{}
		return nil
	}})
	var seen []string
	n.Register(notify.ObserverFuncs{FilesSelected: func(files []remote.File) error {
		seen = remote.Names(files)
		return nil
	}})
	h.syncer.events = n
	h.run(t)

	assert.Equal(t, []string{"c.pdf", "a.pdf", "b.pdf"}, seen)
	assert.Equal(t, []string{"c.pdf", "a.pdf", "b.pdf"}, h.session.downloaded)
}

func TestDownloadFailureDoesNotStopBatch(t *testing.T) {
	h := newHarness(baseSettings(), file("a.pdf", now), file("b.pdf", now), file("c.pdf", now))
	h.session.failing = map[string]bool{"b.pdf": true}
	h.run(t)

	assert.Equal(t, []string{
		"connect",
		"selected a.pdf,b.pdf,c.pdf",
		"started a.pdf", "finished a.pdf",
		"started b.pdf", "error download failed: b.pdf: 426 transfer aborted",
		"started c.pdf", "finished c.pdf",
		"disconnect",
	}, h.events.events)
	assert.Equal(t, []time.Time{now}, h.store.watermarks)
}

func TestDisconnectFailure(t *testing.T) {
	h := newHarness(baseSettings())
	h.session.closeErr = errors.New("broken pipe")
	h.run(t)

	assert.Equal(t, []string{"connect", "error disconnection failed: broken pipe"}, h.events.events)
}

func TestConfigErrorIsReturned(t *testing.T) {
	h := newHarness(baseSettings())
	h.store.snapErr = fmt.Errorf("%w: hostname is required for FTP", config.ErrInvalidConfig)

	err := h.syncer.Run(context.Background())
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Empty(t, h.events.events)
	assert.Zero(t, h.dials)
	assert.Equal(t, Idle, h.syncer.State())
}

func TestWatermarkSaveFailureIsReported(t *testing.T) {
	h := newHarness(baseSettings(), file("a.pdf", now))
	h.store.saveErr = errors.New("unable to save new configuration property: read-only file system")
	h.run(t)

	assert.Equal(t, []string{
		"connect",
		"selected a.pdf",
		"error unable to save new configuration property: read-only file system",
		"started a.pdf", "finished a.pdf",
		"disconnect",
	}, h.events.events)
}

func TestExclusions(t *testing.T) {
	settings := baseSettings()
	settings.Excludes = []string{"draft-*"}
	h := newHarness(settings, file("draft-1.pdf", now), file("final.pdf", now), file("scan.pdf", now))
	require.NoError(t, h.fs.MkdirAll("/downloads", 0o755))
	require.NoError(t, afero.WriteFile(h.fs, "/downloads/"+ignore.FileName, []byte("scan.*\n"), 0o644))
	h.run(t)

	assert.Equal(t, []string{"final.pdf"}, h.session.downloaded)
	assert.Contains(t, h.events.events, "selected final.pdf")
}

func TestMoveAfterDownload(t *testing.T) {
	settings := baseSettings()
	settings.Move = config.Move{Enabled: true, Directory: "/archive"}
	h := newHarness(settings, file("a.pdf", now))
	h.run(t)

	moved, err := afero.Exists(h.fs, "/archive/a.pdf")
	require.NoError(t, err)
	assert.True(t, moved)
	left, err := afero.Exists(h.fs, "/downloads/a.pdf")
	require.NoError(t, err)
	assert.False(t, left)
	assert.NotContains(t, strings.Join(h.events.events, "\n"), "error")
}

func TestMoveFailureIsReported(t *testing.T) {
	settings := baseSettings()
	settings.Move = config.Move{Enabled: true, Directory: "/archive"}
	h := newHarness(settings, file("a.pdf", now), file("b.pdf", now))
	h.session.sink = nil // nothing lands on disk, so the rename fails
	h.run(t)

	assert.Equal(t, []string{"a.pdf", "b.pdf"}, h.session.downloaded)
	var moveErrors int
	for _, e := range h.events.events {
		if strings.HasPrefix(e, "error move failed") {
			moveErrors++
		}
	}
	assert.Equal(t, 2, moveErrors)
	assert.Equal(t, "disconnect", h.events.events[len(h.events.events)-1])
}

func TestSelectFilesDeduplicates(t *testing.T) {
	files := []remote.File{file("a.pdf", now), file("a.pdf", now), file("b.PDF", now)}
	got := selectFiles(files, pattern.CompileAll([]string{"*.pdf", "a.*"}), ignore.Compile(nil))
	assert.Equal(t, []string{"a.pdf", "b.PDF"}, remote.Names(got))
}

func TestObserverPanicDoesNotAbortCycle(t *testing.T) {
	h := newHarness(baseSettings(), file("a.pdf", now))
	n := notify.New(nil)
	n.Register(notify.ObserverFuncs{FilesSelected: func([]remote.File) error { panic("bad observer") }})
	var finished []string
	n.Register(notify.ObserverFuncs{DownloadFinished: func(name string) error {
		finished = append(finished, name)
		return nil
	}})
	h.syncer.events = n
	h.run(t)

	assert.Equal(t, []string{"a.pdf"}, finished)
	assert.Equal(t, []time.Time{now}, h.store.watermarks)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Transferring", Transferring.String())
	assert.Equal(t, "Errored", Errored.String())
	assert.Equal(t, "Unknown", State(42).String())
}

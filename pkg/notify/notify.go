// pkg/notify/notify.go
//
// Package notify fans sync cycle events out to registered observers.
package notify

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// Observer receives sync cycle events. A returned error is logged by the
// Notifier and otherwise ignored.
type Observer interface {
	OnConnect() error
	OnDisconnect() error
	OnFilesSelected(files []remote.File) error
	OnError(message string) error
	OnDownloadStarted(name string) error
	OnDownloadFinished(name string) error
}

// Handle identifies one registration.
type Handle uint64

type registration struct {
	handle   Handle
	observer Observer
}

// Notifier delivers each event to every registered observer, synchronously
// and in registration order. Registration is safe from any goroutine.
type Notifier struct {
	mu        sync.Mutex
	next      Handle
	observers []registration
	logger    *zap.Logger
}

// New creates a Notifier that logs observer failures to logger.
func New(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger}
}

// Register appends o. The same observer may be registered more than once and
// then receives every event once per registration.
func (n *Notifier) Register(o Observer) Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	n.observers = append(n.observers, registration{handle: n.next, observer: o})
	return n.next
}

// Unregister removes the registration behind h.
func (n *Notifier) Unregister(h Handle) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, r := range n.observers {
		if r.handle == h {
			n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registrations.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}

// ConnectionOpened reports that a session to the host is open.
func (n *Notifier) ConnectionOpened() {
	n.deliver("connect", func(o Observer) error { return o.OnConnect() })
}

// ConnectionClosed reports that the session was closed cleanly.
func (n *Notifier) ConnectionClosed() {
	n.deliver("disconnect", func(o Observer) error { return o.OnDisconnect() })
}

// FilesSelected delivers the files about to be downloaded. Each observer gets
// its own copy, so changes it makes are seen by nobody else.
func (n *Notifier) FilesSelected(files []remote.File) {
	n.deliver("files_selected", func(o Observer) error { return o.OnFilesSelected(slices.Clone(files)) })
}

// Error reports a failure as a human-readable message.
func (n *Notifier) Error(message string) {
	n.deliver("error", func(o Observer) error { return o.OnError(message) })
}

// DownloadStarted reports that the named file is being retrieved.
func (n *Notifier) DownloadStarted(name string) {
	n.deliver("download_started", func(o Observer) error { return o.OnDownloadStarted(name) })
}

// DownloadFinished reports that the named file is stored locally.
func (n *Notifier) DownloadFinished(name string) {
	n.deliver("download_finished", func(o Observer) error { return o.OnDownloadFinished(name) })
}

// deliver calls every observer from a snapshot of the list, so an observer
// may register or unregister others without deadlocking.
func (n *Notifier) deliver(event string, call func(Observer) error) {
	n.mu.Lock()
	snapshot := make([]registration, len(n.observers))
	copy(snapshot, n.observers)
	n.mu.Unlock()

	for _, r := range snapshot {
		if err := n.invoke(r.observer, call); err != nil {
			n.logger.Warn("observer failed",
				zap.String("event", event),
				zap.Uint64("observer", uint64(r.handle)),
				zap.String("type", fmt.Sprintf("%T", r.observer)),
				zap.Error(err))
		}
	}
}

func (n *Notifier) invoke(o Observer, call func(Observer) error) (err error) {
	var pc panics.Catcher
	pc.Try(func() { err = call(o) })
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}

package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// recorder appends every event it sees to a shared log.
type recorder struct {
	id  string
	log *[]string
}

func (r recorder) add(event string) error {
	*r.log = append(*r.log, r.id+":"+event)
	return nil
}

func (r recorder) OnConnect() error    { return r.add("connect") }
func (r recorder) OnDisconnect() error { return r.add("disconnect") }
func (r recorder) OnFilesSelected(files []remote.File) error {
	return r.add("selected" + remoteNames(files))
}
func (r recorder) OnError(message string) error        { return r.add("error " + message) }
func (r recorder) OnDownloadStarted(name string) error  { return r.add("started " + name) }
func (r recorder) OnDownloadFinished(name string) error { return r.add("finished " + name) }

func remoteNames(files []remote.File) string {
	s := ""
	for _, n := range remote.Names(files) {
		s += " " + n
	}
	return s
}

func TestDeliveryOrder(t *testing.T) {
	var log []string
	n := New(nil)
	n.Register(recorder{"a", &log})
	n.Register(recorder{"b", &log})

	n.ConnectionOpened()
	n.FilesSelected([]remote.File{{Name: "x.pdf"}})
	n.DownloadStarted("x.pdf")
	n.DownloadFinished("x.pdf")
	n.Error("boom")
	n.ConnectionClosed()

	assert.Equal(t, []string{
		"a:connect", "b:connect",
		"a:selected x.pdf", "b:selected x.pdf",
		"a:started x.pdf", "b:started x.pdf",
		"a:finished x.pdf", "b:finished x.pdf",
		"a:error boom", "b:error boom",
		"a:disconnect", "b:disconnect",
	}, log)
}

func TestRegisterAllowsDuplicates(t *testing.T) {
	var log []string
	r := recorder{"a", &log}
	n := New(nil)
	h1 := n.Register(r)
	h2 := n.Register(r)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, n.Len())

	n.ConnectionOpened()
	assert.Equal(t, []string{"a:connect", "a:connect"}, log)
}

func TestUnregister(t *testing.T) {
	var log []string
	n := New(nil)
	ha := n.Register(recorder{"a", &log})
	n.Register(recorder{"b", &log})

	assert.True(t, n.Unregister(ha))
	assert.False(t, n.Unregister(ha))
	assert.Equal(t, 1, n.Len())

	n.ConnectionOpened()
	assert.Equal(t, []string{"b:connect"}, log)
}

func TestObserverFailuresAreContained(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var log []string
	n := New(zap.New(core))
	n.Register(ObserverFuncs{Connect: func() error { return errors.New("unreachable pager") }})
	n.Register(ObserverFuncs{Connect: func() error { panic("observer bug") }})
	n.Register(recorder{"last", &log})

	require.NotPanics(t, n.ConnectionOpened)
	assert.Equal(t, []string{"last:connect"}, log)

	entries := logs.FilterMessage("observer failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "connect", entries[0].ContextMap()["event"])
	assert.Contains(t, entries[0].ContextMap()["error"], "unreachable pager")
	assert.Contains(t, entries[1].ContextMap()["error"], "observer bug")
}

func TestObserverMayUnregisterDuringDelivery(t *testing.T) {
	n := New(nil)
	var h Handle
	calls := 0
	h = n.Register(ObserverFuncs{Error: func(string) error {
		calls++
		n.Unregister(h)
		return nil
	}})

	n.Error("first")
	n.Error("second")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, n.Len())
}

func TestBaseObserver(t *testing.T) {
	type onlyErrors struct {
		BaseObserver
	}
	n := New(nil)
	n.Register(onlyErrors{})
	assert.NotPanics(t, func() {
		n.ConnectionOpened()
		n.FilesSelected(nil)
		n.DownloadStarted("a")
		n.DownloadFinished("a")
		n.Error("e")
		n.ConnectionClosed()
	})
}

func TestFilesSelectedCopiesPerObserver(t *testing.T) {
	files := []remote.File{{Name: "c.pdf"}, {Name: "a.pdf"}}
	var seen []string
	n := New(nil)
	n.Register(ObserverFuncs{FilesSelected: func(got []remote.File) error {
		got[0], got[1] = got[1], got[0]
		return nil
	}})
	n.Register(ObserverFuncs{FilesSelected: func(got []remote.File) error {
		seen = remote.Names(got)
		return nil
	}})

	n.FilesSelected(files)
	assert.Equal(t, []string{"c.pdf", "a.pdf"}, seen)
	assert.Equal(t, []string{"c.pdf", "a.pdf"}, remote.Names(files))
}

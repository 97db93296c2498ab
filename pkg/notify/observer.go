// pkg/notify/observer.go
package notify

import "github.com/jeepinbird/autoftp/pkg/remote"

// BaseObserver ignores every event. Embed it to implement only some callbacks.
type BaseObserver struct{}

func (BaseObserver) OnConnect() error                    { return nil }
func (BaseObserver) OnDisconnect() error                 { return nil }
func (BaseObserver) OnFilesSelected([]remote.File) error { return nil }
func (BaseObserver) OnError(string) error                { return nil }
func (BaseObserver) OnDownloadStarted(string) error      { return nil }
func (BaseObserver) OnDownloadFinished(string) error     { return nil }

var _ Observer = BaseObserver{}

// ObserverFuncs adapts plain functions; nil fields ignore their event.
type ObserverFuncs struct {
	Connect          func() error
	Disconnect       func() error
	FilesSelected    func(files []remote.File) error
	Error            func(message string) error
	DownloadStarted  func(name string) error
	DownloadFinished func(name string) error
}

var _ Observer = ObserverFuncs{}

func (f ObserverFuncs) OnConnect() error {
	if f.Connect == nil {
		return nil
	}
	return f.Connect()
}

func (f ObserverFuncs) OnDisconnect() error {
	if f.Disconnect == nil {
		return nil
	}
	return f.Disconnect()
}

func (f ObserverFuncs) OnFilesSelected(files []remote.File) error {
	if f.FilesSelected == nil {
		return nil
	}
	return f.FilesSelected(files)
}

func (f ObserverFuncs) OnError(message string) error {
	if f.Error == nil {
		return nil
	}
	return f.Error(message)
}

func (f ObserverFuncs) OnDownloadStarted(name string) error {
	if f.DownloadStarted == nil {
		return nil
	}
	return f.DownloadStarted(name)
}

func (f ObserverFuncs) OnDownloadFinished(name string) error {
	if f.DownloadFinished == nil {
		return nil
	}
	return f.DownloadFinished(name)
}

// pkg/notify/logobserver/logobserver.go
//
// Package logobserver writes each sync event as a structured log entry, for
// running unattended where nobody reads the console.
package logobserver

import (
	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/notify"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

type Observer struct {
	logger *zap.Logger
}

var _ notify.Observer = (*Observer)(nil)

func New(logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{logger: logger.Named("events")}
}

func (o *Observer) OnConnect() error {
	o.logger.Info("connected")
	return nil
}

func (o *Observer) OnDisconnect() error {
	o.logger.Info("disconnected")
	return nil
}

func (o *Observer) OnFilesSelected(files []remote.File) error {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	o.logger.Info("files selected",
		zap.Int("count", len(files)),
		zap.Int64("bytes", total),
		zap.Strings("files", remote.Names(files)))
	return nil
}

func (o *Observer) OnError(message string) error {
	o.logger.Error("sync error", zap.String("message", message))
	return nil
}

func (o *Observer) OnDownloadStarted(name string) error {
	o.logger.Info("download started", zap.String("file", name))
	return nil
}

func (o *Observer) OnDownloadFinished(name string) error {
	o.logger.Info("download finished", zap.String("file", name))
	return nil
}

// cmd/cycle.go
package cmd

import (
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/notify"
	"github.com/jeepinbird/autoftp/pkg/notify/console"
	"github.com/jeepinbird/autoftp/pkg/notify/pushbullet"
	"github.com/jeepinbird/autoftp/pkg/remote"
	"github.com/jeepinbird/autoftp/pkg/remote/ftp"
	"github.com/jeepinbird/autoftp/pkg/remote/local"
	"github.com/jeepinbird/autoftp/pkg/remote/s3"
	"github.com/jeepinbird/autoftp/pkg/remote/sftp"
	"github.com/jeepinbird/autoftp/pkg/syncer"
)

// cycleOptions controls how the commands that run cycles wire the syncer.
type cycleOptions struct {
	progress bool // Progress bar per download
	console  bool // Console observer
	color    bool
}

// newFactory registers a dialer for every supported protocol. All of them
// write through the same sink.
func newFactory(fs afero.Fs, sink *remote.Sink, logger *zap.Logger) *remote.Factory {
	ftpDialer := ftp.NewDialer(sink)
	return remote.NewFactory().
		Register(remote.FTP, ftpDialer).
		Register(remote.FTPS, ftpDialer).
		Register(remote.SFTP, sftp.NewDialer(sink, logger)).
		Register(remote.S3, s3.NewDialer(sink)).
		Register(remote.FILE, local.NewDialer(fs, sink))
}

// newNotifier registers the observers every cycle gets. The Pushbullet
// bridge is added when the stored settings enable it.
func newNotifier(opts cycleOptions, logger *zap.Logger) *notify.Notifier {
	n := notify.New(logger)
	if opts.console {
		n.Register(console.New(os.Stdout, opts.color))
	}

	settings, err := store.Snapshot()
	if err != nil {
		// Run reports the same problem before dialing.
		return n
	}
	if settings.Pushbullet.Enabled {
		client, err := pushbullet.New(settings.Pushbullet.APIKey)
		if err != nil {
			logger.Warn("push notifications disabled", zap.Error(err))
			return n
		}
		n.Register(pushbullet.NewObserver(client))
		logger.Debug("push notifications enabled")
	}
	return n
}

// newSyncer builds a Syncer on the local filesystem backed by the opened
// configuration store.
func newSyncer(st *config.Store, events syncer.Events, opts cycleOptions, logger *zap.Logger) *syncer.Syncer {
	fs := afero.NewOsFs()
	sink := &remote.Sink{Fs: fs, Progress: opts.progress}
	return syncer.New(st, newFactory(fs, sink, logger), events,
		syncer.WithFs(fs),
		syncer.WithLogger(logger.Named("syncer")))
}

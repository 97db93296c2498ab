// pkg/syncer/scanner.go
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

// scan lists the remote directory and keeps the regular files modified at or
// after the watermark, in listing order. It returns false when the directory
// could not be entered or listed; the error has been reported by then.
func (s *Syncer) scan(ctx context.Context, session remote.Session, settings *config.Settings, sum *summary) ([]remote.File, bool) {
	s.setState(Scanning)

	dir := settings.Host.RemoteDirectory
	if err := session.ChangeDir(ctx, dir); err != nil {
		s.fail(err)
		return nil, false
	}
	entries, err := session.List(ctx)
	if err != nil {
		s.fail(err)
		return nil, false
	}

	changed := changedSince(entries, settings.LastRun)
	sum.listed, sum.changed = len(entries), len(changed)
	s.logger.Debug("remote directory scanned",
		zap.String("dir", dir),
		zap.Int("entries", len(entries)),
		zap.Int("changed", len(changed)),
		zap.Time("since", settings.LastRun))
	return changed, true
}

func changedSince(entries []remote.File, watermark time.Time) []remote.File {
	var changed []remote.File
	for _, f := range entries {
		if f.ChangedSince(watermark) {
			changed = append(changed, f)
		}
	}
	return changed
}

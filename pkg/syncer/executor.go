// pkg/syncer/executor.go
package syncer

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

// execute downloads the selected files one after another. A failed file is
// reported and skipped; it will not be retried because the watermark has
// already moved past it.
func (s *Syncer) execute(ctx context.Context, session remote.Session, files []remote.File, settings *config.Settings, sum *summary) {
	s.setState(Transferring)

	for _, f := range files {
		s.events.DownloadStarted(f.Name)
		if err := session.Download(ctx, f, settings.DownloadDir); err != nil {
			sum.failed++
			s.logger.Debug("download failed", zap.String("file", f.Name), zap.Error(err))
			s.events.Error(err.Error())
			continue
		}
		sum.downloaded++
		s.events.DownloadFinished(f.Name)

		if settings.Move.Enabled {
			if err := s.move(f, settings); err != nil {
				s.events.Error(err.Error())
			}
		}
	}
}

// move relocates a finished download into the move directory.
func (s *Syncer) move(f remote.File, settings *config.Settings) error {
	src := remote.LocalPath(settings.DownloadDir, f)
	dst := remote.LocalPath(settings.Move.Directory, f)
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("move failed: %s: %w", f.Name, err)
	}
	if err := s.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("move failed: %s: %w", f.Name, err)
	}
	s.logger.Debug("download moved", zap.String("from", src), zap.String("to", dst))
	return nil
}

// pkg/syncer/plan.go
package syncer

import (
	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/ignore"
	"github.com/jeepinbird/autoftp/pkg/pattern"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

// plan narrows the changed files to those matching an include filter and no
// exclusion. Each file appears once, in listing order. FilesSelected is only
// sent for a non-empty result.
func (s *Syncer) plan(changed []remote.File, settings *config.Settings, excludes *ignore.Matcher, sum *summary) []remote.File {
	s.setState(Filtering)

	selected := selectFiles(changed, pattern.CompileAll(settings.Filters), excludes)
	sum.selected = len(selected)
	s.logger.Debug("files filtered",
		zap.Strings("filters", settings.Filters),
		zap.Int("changed", len(changed)),
		zap.Int("selected", len(selected)))

	if len(selected) > 0 {
		s.events.FilesSelected(selected)
	}
	return selected
}

func selectFiles(files []remote.File, include pattern.Set, exclude *ignore.Matcher) []remote.File {
	var selected []remote.File
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f.Path] || !include.MatchesAny(f.Name) || exclude.Matches(f.Name) {
			continue
		}
		seen[f.Path] = true
		selected = append(selected, f)
	}
	return selected
}

// pkg/ignore/ignore.go
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileName is the optional exclusion file read from the download directory.
const FileName = ".autoftp-ignore"

// Matcher drops files that passed the include filters.
type Matcher struct {
	gi       *ignore.GitIgnore
	patterns []string
}

// NewMatcher compiles the configured exclusions plus the lines of FileName in
// downloadDir, if present. Blank lines and "#" comments are skipped.
func NewMatcher(fsys afero.Fs, downloadDir string, excludes []string, logger *zap.Logger) (*Matcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	patterns := clean(excludes)

	if downloadDir != "" {
		fromFile, err := readFile(fsys, filepath.Join(downloadDir, FileName))
		if err != nil {
			return nil, err
		}
		if len(fromFile) > 0 {
			logger.Debug("loaded exclusion file",
				zap.String("file", FileName), zap.Int("patterns", len(fromFile)))
		}
		patterns = append(patterns, fromFile...)
	}
	return Compile(patterns), nil
}

// Compile builds a Matcher from gitignore-style lines.
func Compile(patterns []string) *Matcher {
	patterns = clean(patterns)
	return &Matcher{
		gi:       ignore.CompileIgnoreLines(patterns...),
		patterns: patterns,
	}
}

func readFile(fsys afero.Fs, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", FileName, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return clean(lines), nil
}

func clean(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Matches reports whether name (a remote file name) is excluded.
func (m *Matcher) Matches(name string) bool {
	if m == nil || m.gi == nil || len(m.patterns) == 0 {
		return false
	}
	return m.gi.MatchesPath(path.Clean(filepath.ToSlash(name)))
}

// Patterns returns the compiled lines in order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}

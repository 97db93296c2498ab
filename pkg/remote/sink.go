// pkg/remote/sink.go
package remote

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// partSuffix marks a download in progress. The file is renamed into place
// only once all content has been written.
const partSuffix = ".part"

// Sink writes downloaded content into the local download directory.
type Sink struct {
	Fs       afero.Fs
	Progress bool      // Render a progress bar per file
	Output   io.Writer // Progress bar output, os.Stderr when nil
}

// NewSink creates a Sink on fs without progress output.
func NewSink(fs afero.Fs) *Sink {
	return &Sink{Fs: fs}
}

// LocalPath returns where file lands inside localDir.
func LocalPath(localDir string, file File) string {
	return filepath.Join(localDir, file.Name)
}

// Store copies r into localDir/file.Name. The mod time of the local copy is
// set to the remote one when known.
func (s *Sink) Store(localDir string, file File, r io.Reader) error {
	if err := checkName(file.Name); err != nil {
		return err
	}
	if err := s.Fs.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("could not create download directory %s: %w", localDir, err)
	}

	dst := LocalPath(localDir, file)
	tmp := dst + partSuffix

	out, err := s.Fs.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", tmp, err)
	}

	var w io.Writer = out
	var bar *progressbar.ProgressBar
	if s.Progress {
		bar = s.newBar(file)
		w = io.MultiWriter(out, bar)
	}

	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(w, r, buf); err != nil {
		_ = out.Close()
		_ = s.Fs.Remove(tmp)
		return fmt.Errorf("could not copy %s: %w", file.Name, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err := out.Close(); err != nil {
		_ = s.Fs.Remove(tmp)
		return fmt.Errorf("could not close %s: %w", tmp, err)
	}

	if err := s.Fs.Rename(tmp, dst); err != nil {
		_ = s.Fs.Remove(tmp)
		return fmt.Errorf("could not move %s into place: %w", file.Name, err)
	}

	if !file.ModTime.IsZero() {
		// Not fatal, some filesystems refuse to set times
		_ = s.Fs.Chtimes(dst, time.Now(), file.ModTime)
	}
	return nil
}

func (s *Sink) newBar(file File) *progressbar.ProgressBar {
	out := s.Output
	if out == nil {
		out = os.Stderr
	}
	total := file.Size
	if total <= 0 {
		total = -1 // Indeterminate spinner
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", file.Name)),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(15),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

// checkName rejects names that would escape the download directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("refusing to store file with unsafe name %q", name)
	}
	return nil
}

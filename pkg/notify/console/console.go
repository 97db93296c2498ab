// pkg/notify/console/console.go
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/colorstring"

	"github.com/jeepinbird/autoftp/pkg/notify"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

// Observer prints one line per event for a person watching the terminal.
type Observer struct {
	out      io.Writer
	colorize colorstring.Colorize
}

var _ notify.Observer = (*Observer)(nil)

// New writes to out, or stdout when out is nil. Color codes are stripped
// unless color is set.
func New(out io.Writer, color bool) *Observer {
	if out == nil {
		out = os.Stdout
	}
	return &Observer{
		out: out,
		colorize: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: !color,
			Reset:   true,
		},
	}
}

func (o *Observer) printf(format string, args ...any) error {
	_, err := fmt.Fprintln(o.out, o.colorize.Color(fmt.Sprintf(format, args...)))
	return err
}

func (o *Observer) OnConnect() error {
	return o.printf("[green]Connected to server.")
}

func (o *Observer) OnDisconnect() error {
	return o.printf("[cyan]Disconnected from server.")
}

func (o *Observer) OnFilesSelected(files []remote.File) error {
	if err := o.printf("[light_blue]Found %d file(s) to download:", len(files)); err != nil {
		return err
	}
	for _, f := range files {
		if err := o.printf("\t[white]%s[reset] (%s)", f.Name, formatSize(f.Size)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Observer) OnError(message string) error {
	return o.printf("[red]There was an error: %s", message)
}

func (o *Observer) OnDownloadStarted(name string) error {
	return o.printf("[yellow]Started downloading[reset] %s", name)
}

func (o *Observer) OnDownloadFinished(name string) error {
	return o.printf("[light_green]Download complete:[reset] %s", name)
}

// formatSize formats a byte count as a human-readable string
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

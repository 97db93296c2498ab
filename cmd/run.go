// cmd/run.go
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeepinbird/autoftp/pkg/logging"
)

var (
	showProgress bool
	noColor      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scan and download cycle",
	Long: `Connects to the configured host, downloads the files that appeared since the
previous run and match a filter expression, then disconnects.

Connection and transfer problems are printed and do not change the exit status;
only an invalid configuration does.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.L()
		opts := cycleOptions{progress: showProgress, console: true, color: !noColor}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := newSyncer(store, newNotifier(opts, logger), opts, logger)
		return s.Run(ctx)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "Show a progress bar for each download")
	runCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(runCmd)
}

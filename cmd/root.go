// cmd/root.go
package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/logging"
)

var (
	// Flags
	configPath string // Path of the configuration file
	logLevel   string // Log level
	logFormat  string // Log format
	logOutput  string // Log destination

	store *config.Store

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "autoftp",
		Short: "Downloads new files from a remote directory.",
		Long: `Scans a remote directory (FTP, FTPS, SFTP, S3 or a mounted path) for files
that appeared since the previous scan, keeps the ones matching the configured
filter expressions and downloads them to a local directory.

- Filter expressions are shell-style globs ("*.pdf", "report-??.csv") matched
  against the whole file name, ignoring case. With no filters nothing is downloaded.
- Exclusions use gitignore syntax and can also be listed in a .autoftp-ignore
  file in the download directory.
- Each file is attempted once: the last-run watermark moves forward as soon as
  the files to download are known.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			if err := logging.Init(logging.Config{Level: logLevel, Format: logFormat, OutputPath: logOutput}); err != nil {
				return err
			}
			if cmd.Annotations[annotationNoStore] == "true" {
				return nil
			}

			var err error
			store, err = config.Open(afero.NewOsFs(), configPath)
			if err != nil {
				return fmt.Errorf("open configuration %s: %w", configPath, err)
			}
			logging.L().Debug("configuration opened", zap.String("path", store.Path()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}
)

// annotationNoStore marks commands that run without a configuration file.
const annotationNoStore = "autoftp/no-store"

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "v", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "stderr", "Log destination (stdout, stderr or a file path)")
}

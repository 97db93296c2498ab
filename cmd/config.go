// cmd/config.go
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeepinbird/autoftp/pkg/config"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the stored settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration file with the password masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.Show(cmd.OutOrStdout())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration key",
	Long: "Sets one key. Lists are comma separated. Known keys:\n  " +
		strings.Join(config.Keys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.Set(args[0], args[1])
	},
}

var hostFlags struct {
	name, user, password, protocol, dir string
	keyFile, knownHosts, region      string
	port                             int
	timeout                          time.Duration
}

var configSetHostCmd = &cobra.Command{
	Use:   "set-host",
	Short: "Replace the host settings",
	Long: `Replaces every host setting at once. The port defaults to the protocol's
well-known port. Set AUTOFTP_HOST_PASSWORD instead of --password to keep the
password out of the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		protocol, err := remote.ParseProtocolType(hostFlags.protocol)
		if err != nil {
			return err
		}
		host := remote.HostConfig{
			Hostname:        hostFlags.name,
			Username:        hostFlags.user,
			Password:        hostFlags.password,
			Port:            hostFlags.port,
			Protocol:        protocol,
			RemoteDirectory: hostFlags.dir,
			KeyFile:         hostFlags.keyFile,
			KnownHosts:      hostFlags.knownHosts,
			Region:          hostFlags.region,
		}
		if host.Port == 0 {
			host.Port = protocol.DefaultPort()
		}
		if hostFlags.timeout < 0 {
			return fmt.Errorf("timeout must not be negative")
		}
		host.Timeout = hostFlags.timeout
		return store.SetHost(host)
	},
}

var configSetFiltersCmd = &cobra.Command{
	Use:   "set-filters <expression>...",
	Short: "Replace the filter expressions",
	Long: `Replaces the filter expressions. A file is downloaded when it matches any of
them; with none, nothing is downloaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.SetFilterExpressions(args)
	},
}

var configSetExcludesCmd = &cobra.Command{
	Use:   "set-excludes <pattern>...",
	Short: "Replace the exclusion patterns (gitignore syntax)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.SetExcludeExpressions(args)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), store.Path())
		return err
	},
}

func init() {
	f := configSetHostCmd.Flags()
	f.StringVar(&hostFlags.name, "name", "", "Host name")
	f.StringVar(&hostFlags.user, "user", "", "User name (S3: access key)")
	f.StringVar(&hostFlags.password, "password", "", "Password (S3: secret key)")
	f.StringVar(&hostFlags.protocol, "type", "ftp", "Protocol: ftp, ftps, sftp, s3 or file")
	f.StringVar(&hostFlags.dir, "dir", "", "Remote directory to scan (S3: bucket/prefix)")
	f.IntVar(&hostFlags.port, "port", 0, "Port")
	f.DurationVar(&hostFlags.timeout, "timeout", 0, "Dial and I/O timeout, e.g. 30s")
	f.StringVar(&hostFlags.keyFile, "key-file", "", "SFTP private key file")
	f.StringVar(&hostFlags.knownHosts, "known-hosts", "", "SFTP known_hosts file")
	f.StringVar(&hostFlags.region, "region", "", "S3 region")

	configCmd.AddCommand(configShowCmd, configSetCmd, configSetHostCmd,
		configSetFiltersCmd, configSetExcludesCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// Package commands implements the lanshare command line
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "lanshare",
	Short: "lanshare - share a directory on the LAN over FTP and HTTP",
	Long: `lanshare serves one directory to the local network through a passive mode
FTP server and an HTTP API with a browser UI, no client install needed.

Settings come from the config file and can be overridden with LANSHARE_<SECTION>_<KEY>
environment variables, for example LANSHARE_FTP_PORT=2121.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line, it is called by main.main()
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/lanshare/lanshare.yaml or ./lanshare.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lanshare %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

// Main runs the command line and exits with 1 on an error
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

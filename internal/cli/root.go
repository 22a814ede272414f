// Package cli implements the intelsync command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/syntrixbase/intelsync/internal/config"
)

const appName = "intelsync"

// version is reported by the version command and stamped on log lines.
var version = "dev"

var (
	configDir  string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Incrementally sync Falcon Intel indicators",
	Long: `intelsync pulls indicators of compromise from the Falcon Intel API,
stores each one as a document and remembers how far it got, so the next
run only fetches what is new.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding config.yml and config.local.yml")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "additional config file applied last")
}

// SetVersion overrides the reported version. Empty values are ignored.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(offline bool) (*config.Config, error) {
	return config.LoadConfig(config.LoadOptions{
		ConfigDir: configDir,
		File:      configFile,
		Offline:   offline,
	})
}

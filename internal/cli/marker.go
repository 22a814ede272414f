package cli

import (
	"github.com/spf13/cobra"

	"github.com/syntrixbase/intelsync/internal/services"
)

var markerCmd = &cobra.Command{
	Use:   "marker",
	Short: "Inspect the sync marker",
}

var markerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the marker the next sync resumes from",
	Args:  cobra.NoArgs,
	RunE:  runMarkerShow,
}

func init() {
	markerCmd.AddCommand(markerShowCmd)
	rootCmd.AddCommand(markerCmd)
}

func runMarkerShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	current, err := services.CurrentMarker(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if current == "" {
		cmd.Println("No marker stored. The next sync starts from the oldest indicator.")
		return nil
	}
	cmd.Println(current)
	return nil
}

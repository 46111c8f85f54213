package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the recorded event history",
	Long: `Deletes every event from the event log. Daily totals and sessions are
derived from the log, so they reset too. This cannot be undone.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false,
		"Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	if !resetYes {
		fmt.Print("Clear all recorded usage history? This cannot be undone. (y/N): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	log, err := openEventLog(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	if err := log.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear event history: %w", err)
	}
	fmt.Println("Event history cleared.")
	return nil
}

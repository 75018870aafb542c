package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <host:name>",
	Short: "Attach to a session's live terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, name := parseHostName(args[0])
		if host == "" || name == "" {
			return fmt.Errorf("expected <host:name>, got %q", args[0])
		}

		mgr, err := openManager(host)
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		exists, err := mgr.HasSession(cmd.Context(), name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("session %q not found on %s", name, host)
		}

		recordSession(host, name, "attached")
		return runAttach(mgr, name)
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

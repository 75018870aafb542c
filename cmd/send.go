package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <host:name> <text...>",
	Short: "Type text into a session and press Enter",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, name := parseHostName(args[0])
		if host == "" || name == "" {
			return fmt.Errorf("expected <host:name>, got %q", args[0])
		}
		text := strings.Join(args[1:], " ")

		mgr, err := openManager(host)
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		if err := mgr.SendCommand(cmd.Context(), name, text); err != nil {
			return err
		}
		fmt.Printf("Sent to %q: %s\n", args[0], text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

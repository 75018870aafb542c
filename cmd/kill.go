package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill <host:name>",
	Short: "Kill a session",
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

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Printf("Kill session %q? [y/N] ", args[0])
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := mgr.KillSession(cmd.Context(), name); err != nil {
			return err
		}
		recordSession(host, name, "killed")
		fmt.Printf("Killed session %q\n", args[0])
		return nil
	},
}

func init() {
	killCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
	rootCmd.AddCommand(killCmd)
}

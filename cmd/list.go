package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/simon/remux/internal/session"
)

var listCmd = &cobra.Command{
	Use:   "list <host>",
	Short: "List tmux sessions on a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(args[0])
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		sessions, err := session.ListManager(cmd.Context(), args[0], mgr)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}

		session.Sort(sessions)
		fmt.Printf("%-24s %-4s %-9s %-8s %s\n", "NAME", "WIN", "STATE", "AGE", "ACTIVE")
		for _, s := range sessions {
			state := "detached"
			if s.Attached {
				state = "attached"
			}
			fmt.Printf("%-24s %-4d %-9s %-8s %s\n",
				s.Name, s.Windows, state,
				session.FormatDuration(time.Since(s.Created)),
				session.FormatDuration(time.Since(s.LastActivity)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

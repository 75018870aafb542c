package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simon/remux/internal/state"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show connection history and recent session operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := state.Open()
		if err != nil {
			return err
		}
		defer st.Close()

		hist, err := st.History(20)
		if err != nil {
			return err
		}
		if len(hist) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		fmt.Printf("%-16s %-28s %-12s %s\n", "HANDLE", "HOST", "USER", "CONNECTS")
		for _, r := range hist {
			fmt.Printf("%-16s %-28s %-12s %d\n", r.Handle, r.Host, r.User, r.ConnectCount)
		}

		log, err := st.SessionLog(20)
		if err != nil {
			return err
		}
		if len(log) > 0 {
			fmt.Printf("\n%-16s %-24s %s\n", "HANDLE", "SESSION", "ACTION")
			for _, e := range log {
				fmt.Printf("%-16s %-24s %s\n", e.Handle, e.Session, e.Action)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/simon/remux/internal/config"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List configured hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Hosts) == 0 {
			fmt.Println("No hosts configured. Add entries to ~/.config/remux/config.yaml.")
			return nil
		}

		handles := make([]string, 0, len(cfg.Hosts))
		for h := range cfg.Hosts {
			handles = append(handles, h)
		}
		sort.Strings(handles)

		fmt.Printf("%-16s %-28s %-12s %s\n", "HANDLE", "HOST", "USER", "AUTH")
		for _, handle := range handles {
			h := cfg.Hosts[handle]
			auth := "password"
			if h.KeyPath != "" {
				auth = "key"
			}
			fmt.Printf("%-16s %-28s %-12s %s\n", handle, fmt.Sprintf("%s:%d", h.Host, h.Port), h.User, auth)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hostsCmd)
}

package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var newCmd = &cobra.Command{
	Use:   "new <host:name>",
	Short: "Create a new detached session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, name := parseHostName(args[0])
		if host == "" {
			return fmt.Errorf("expected <host:name>, got %q", args[0])
		}
		if name != "" && !validName.MatchString(name) {
			return fmt.Errorf("invalid name %q: use only alphanumeric, hyphens, underscores", name)
		}

		mgr, err := openManager(host)
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		s, err := mgr.CreateSession(cmd.Context(), name)
		if err != nil {
			return err
		}
		recordSession(host, s.Name, "created")
		fmt.Printf("Created session %q on %s\n", s.Name, host)

		attach, _ := cmd.Flags().GetBool("attach")
		if attach {
			return runAttach(mgr, s.Name)
		}
		return nil
	},
}

func init() {
	newCmd.Flags().BoolP("attach", "a", false, "Attach to the session immediately")
	rootCmd.AddCommand(newCmd)
}

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simon/remux/internal/tmux"
)

var keysCmd = &cobra.Command{
	Use:   "keys <host:name> <sequence>",
	Short: "Send a control-key sequence to a session",
	Long: "Send a named control-key sequence over a short-lived interactive\n" +
		"channel. Supported sequences: " + strings.Join(tmux.KeySequenceNames(), ", ") + ".",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, name := parseHostName(args[0])
		if host == "" || name == "" {
			return fmt.Errorf("expected <host:name>, got %q", args[0])
		}
		// Reject bad sequences before dialing anything.
		if _, err := tmux.KeySequence(args[1]); err != nil {
			return err
		}

		mgr, err := openManager(host)
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		if _, err := mgr.AttachSession(name); err != nil {
			return err
		}
		defer mgr.Detach()

		if err := mgr.SendKeySequence(args[1]); err != nil {
			return err
		}
		// Give the byte a moment to reach the remote pty before the
		// channel is torn down.
		time.Sleep(200 * time.Millisecond)

		fmt.Printf("Sent %s to %q\n", args[1], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

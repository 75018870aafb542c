package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/simon/remux/internal/tui"
)

func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

var rootCmd = &cobra.Command{
	Use:   "remux",
	Short: "Manage tmux sessions on remote hosts over SSH",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := connectAllHosts()
		if err != nil {
			return err
		}
		defer registry.Shutdown()

		for {
			m := tui.NewModel(registry)
			p := tea.NewProgram(m, tea.WithAltScreen())

			finalModel, err := p.Run()
			if err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}

			final := finalModel.(tui.Model)
			if final.AttachTarget == "" {
				break
			}

			// Attach over the interactive channel; returns on detach,
			// then the TUI restarts.
			mgr, ok := registry.Get(final.AttachHost)
			if !ok {
				break
			}
			_ = runAttach(mgr, final.AttachTarget)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

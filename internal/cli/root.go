// Package cli is the caltrack command tree. The root command runs the TUI.
package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/caltrack/internal/session"
	"github.com/sadopc/caltrack/internal/tui"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	serverURL  string
	athleteID  int64
)

var rootCmd = &cobra.Command{
	Use:   "caltrack",
	Short: "caltrack plans athletes' days, meals and foods from your terminal",
	Long: "caltrack is a terminal client for the calorie tracking server. It edits an athlete's " +
		"days, meals and foods, shows nutrition totals and exports the plan.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(env *env) error {
			id, err := resolveAthlete(cmd, env.store)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), env.cfg.Server.Timeout)
			defer cancel()
			client, err := connect(ctx, env.cfg, env.logger)
			if err != nil {
				return err
			}
			cats, err := client.ListFoodCategories(ctx)
			if err != nil {
				return fmt.Errorf("load food categories: %w", err)
			}

			policy, err := deletePolicy(env.store)
			if err != nil {
				return err
			}
			sess := session.New(session.NewContext(id, cats, client.Token), policy, env.logger)
			env.logger.Info("session started", "athlete", id, "categories", len(cats), "policy", sess.Policy())

			app := tui.NewApp(env.store, client, sess, env.cfg.Server.Timeout, env.logger)
			p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run tui: %w", err)
			}
			return nil
		})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite preferences database")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Calorie server base URL")
	rootCmd.PersistentFlags().Int64Var(&athleteID, "athlete", 0, "Athlete id (defaults to the last one used)")
}

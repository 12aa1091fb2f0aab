package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/sadopc/caltrack/internal/export"
	"github.com/sadopc/caltrack/internal/session"
	"github.com/sadopc/caltrack/internal/store"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage caltrack local preferences",
}

var (
	cfgAthlete      int64
	cfgDeletePolicy string
	cfgExportFormat string
	cfgExportDir    string
)

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set preference values",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(env *env) error {
			values := map[string]string{}
			if cmd.Flags().Changed("delete-policy") {
				if cfgDeletePolicy != session.DeleteFireAndForget.String() && cfgDeletePolicy != session.DeleteRollback.String() {
					return fmt.Errorf("invalid delete-policy %q (use %s or %s)",
						cfgDeletePolicy, session.DeleteFireAndForget, session.DeleteRollback)
				}
				values[store.KeyDeletePolicy] = cfgDeletePolicy
			}
			if cmd.Flags().Changed("export-format") {
				if !slices.Contains(export.Formats, cfgExportFormat) {
					return fmt.Errorf("%w: %q", export.ErrUnknownFormat, cfgExportFormat)
				}
				values[store.KeyExportFormat] = cfgExportFormat
			}
			if cmd.Flags().Changed("export-dir") {
				values[store.KeyExportDir] = cfgExportDir
			}
			athlete := cmd.Flags().Changed("default-athlete")
			if athlete && cfgAthlete <= 0 {
				return fmt.Errorf("default-athlete must be > 0")
			}

			updates := len(values)
			if athlete {
				updates++
			}
			if updates == 0 {
				return fmt.Errorf("set at least one flag")
			}

			if len(values) > 0 {
				if err := env.store.SetSettings(values); err != nil {
					return err
				}
			}
			if athlete {
				if err := env.store.UseAthlete(cfgAthlete); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d config value(s)\n", updates)
			return nil
		})
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show current preferences and resolved config",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(env *env) error {
			settings, err := env.store.GetAllSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "KEY\tVALUE")
			for _, s := range settings {
				fmt.Fprintf(out, "%s\t%s\n", s.Key, s.Value)
			}
			fmt.Fprintf(out, "server.url\t%s\n", env.cfg.Server.URL)
			fmt.Fprintf(out, "server.timeout\t%s\n", env.cfg.Server.Timeout)
			fmt.Fprintf(out, "db.path\t%s\n", env.cfg.DB.Path)
			fmt.Fprintf(out, "log.level\t%s\n", env.cfg.Log.Level)
			return nil
		})
	},
}

var athletesCmd = &cobra.Command{
	Use:   "athletes",
	Short: "List recently used athletes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(env *env) error {
			athletes, err := env.store.RecentAthletes(10)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(athletes) == 0 {
				fmt.Fprintln(out, "No athletes used yet")
				return nil
			}
			fmt.Fprintln(out, "ID\tUSES\tLAST USED")
			for _, a := range athletes {
				fmt.Fprintf(out, "%s\t%d\t%s\n", strconv.FormatInt(a.ID, 10), a.Uses, a.LastUsed.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd, athletesCmd)
	configCmd.AddCommand(configSetCmd, configGetCmd)

	configSetCmd.Flags().Int64Var(&cfgAthlete, "default-athlete", 0, "Athlete used when --athlete is not given")
	configSetCmd.Flags().StringVar(&cfgDeletePolicy, "delete-policy", "", "What a failed delete does: fire-and-forget or rollback")
	configSetCmd.Flags().StringVar(&cfgExportFormat, "export-format", "", "Default export format: csv, json or xlsx")
	configSetCmd.Flags().StringVar(&cfgExportDir, "export-dir", "", "Default export directory")
}

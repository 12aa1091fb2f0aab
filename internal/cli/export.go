package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sadopc/caltrack/internal/api"
	"github.com/sadopc/caltrack/internal/export"
	"github.com/sadopc/caltrack/internal/store"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an athlete's plan with nutrition totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(env *env) error {
			id, err := resolveAthlete(cmd, env.store)
			if err != nil {
				return err
			}

			format := exportFormat
			if !cmd.Flags().Changed("format") {
				if stored, err := env.store.GetSetting(store.KeyExportFormat); err == nil && stored != "" {
					format = stored
				}
			}
			if !slices.Contains(export.Formats, format) {
				return fmt.Errorf("%w: %q (use one of %v)", export.ErrUnknownFormat, format, export.Formats)
			}

			path := exportOut
			if path == "" {
				dir, _ := env.store.GetSetting(store.KeyExportDir)
				path = export.DefaultPath(dir, id, format, time.Now())
			}

			// Reads need no anti-forgery token.
			client := api.New(env.cfg.Server.URL, env.cfg.Server.Timeout, env.logger)
			ctx, cancel := context.WithTimeout(cmd.Context(), 4*env.cfg.Server.Timeout)
			defer cancel()

			plan, err := export.Collect(ctx, client, id)
			if err != nil {
				return err
			}
			if err := export.Write(plan, format, path); err != nil {
				return err
			}
			if _, err := env.store.RecordExport(store.ExportRecord{
				AthleteID: id,
				Format:    format,
				Path:      path,
				Days:      len(plan.Days),
				Foods:     plan.FoodCount(),
			}); err != nil {
				return err
			}
			env.logger.Info("exported plan", "athlete", id, "format", format, "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d day(s), %d food(s) to %s\n", len(plan.Days), plan.FoodCount(), path)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Export format: csv, json or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default: export directory setting or working directory)")
}

package cli

import (
	"context"
	"fmt"

	"github.com/sadopc/caltrack/internal/api"
	"github.com/sadopc/caltrack/internal/nutrition"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List food categories with their values per 100 g",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, closeLog, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer closeLog()

		client := api.New(cfg.Server.URL, cfg.Server.Timeout, logger)
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.Timeout)
		defer cancel()
		cats, err := client.ListFoodCategories(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(cats) == 0 {
			fmt.Fprintln(out, "No food categories found")
			return nil
		}
		fmt.Fprintln(out, "ID\tNAME\tPROT\tCARB\tFAT\tKCAL")
		for _, c := range cats {
			fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name,
				nutrition.Number(c.Protein), nutrition.Number(c.Carb), nutrition.Number(c.Fat), nutrition.Number(c.Kcal))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

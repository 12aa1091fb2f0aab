package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sadopc/caltrack/internal/nutrition"
)

// ToCSV writes one row per food.
func ToCSV(plan *Plan, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(lineHeader); err != nil {
		return err
	}

	for _, l := range lines(plan) {
		row := []string{
			l.day,
			l.meal,
			l.food.CategoryName,
			strconv.Itoa(l.food.Quantity),
			nutrition.Number(l.food.Protein),
			nutrition.Number(l.food.Carb),
			nutrition.Number(l.food.Fat),
			nutrition.Number(l.food.TotalGrams),
			nutrition.Number(l.food.Kcal),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	foodsSheet  = "Foods"
	totalsSheet = "Totals"
)

// ToXLSX writes a Foods sheet with one row per food and a Totals sheet with
// one row per day.
func ToXLSX(plan *Plan, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", foodsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	if err := writeFoods(f, plan); err != nil {
		return fmt.Errorf("write %s: %w", foodsSheet, err)
	}
	if err := writeTotals(f, plan); err != nil {
		return fmt.Errorf("write %s: %w", totalsSheet, err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return nil
}

func writeFoods(f *excelize.File, plan *Plan) error {
	sw, err := f.NewStreamWriter(foodsSheet)
	if err != nil {
		return err
	}
	header := make([]interface{}, len(lineHeader))
	for i, h := range lineHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, l := range lines(plan) {
		row := []interface{}{
			l.day, l.meal, l.food.CategoryName, l.food.Quantity,
			l.food.Protein, l.food.Carb, l.food.Fat, l.food.TotalGrams, l.food.Kcal,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeTotals(f *excelize.File, plan *Plan) error {
	sw, err := f.NewStreamWriter(totalsSheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", []interface{}{"Day", "Meals", "Protein (g)", "Carbs (g)", "Fat (g)", "Kcal"}); err != nil {
		return err
	}
	for i, d := range plan.Days {
		row := []interface{}{d.Name, len(d.Meals), d.Totals.Protein, d.Totals.Carbs, d.Totals.Fat, d.Totals.Kcal}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

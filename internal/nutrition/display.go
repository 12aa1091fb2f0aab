// Package nutrition renders server-computed totals as display text.
package nutrition

import (
	"fmt"
	"strconv"

	"github.com/sadopc/caltrack/internal/api"
)

// Placeholder is shown until the first totals for an entity arrive.
const Placeholder = "Loading nutrition..."

// Format renders day or meal totals. A nil total renders the placeholder.
func Format(t *api.Totals) string {
	if t == nil {
		return Placeholder
	}
	return fmt.Sprintf("g prot: %s, g carb: %s, g fat: %s, kcal = %s",
		Number(t.Protein), Number(t.Carbs), Number(t.Fat), Number(t.Kcal))
}

// FormatFood renders the per-line values of one food, including total grams.
func FormatFood(n api.FoodNutrients) string {
	return fmt.Sprintf("g prot: %s, g carb: %s, g fat: %s, g tot: %s, kcal = %s",
		Number(n.Protein), Number(n.Carb), Number(n.Fat), Number(n.TotalGrams), Number(n.Kcal))
}

// Number prints v in its shortest decimal form: 12, 12.5, 0.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

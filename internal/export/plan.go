// Package export snapshots an athlete's plan from the server and writes it
// as CSV, JSON or XLSX.
package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sadopc/caltrack/internal/api"
)

// Formats lists the supported output formats.
var Formats = []string{"csv", "json", "xlsx"}

var ErrUnknownFormat = errors.New("unknown export format")

// Source is the read side of the calorie API.
type Source interface {
	ListDays(ctx context.Context, athleteID int64) ([]api.Day, error)
	DayNutrition(ctx context.Context, id int64) (api.Totals, error)
	ListMeals(ctx context.Context, dayID int64) ([]api.Meal, error)
	MealNutrition(ctx context.Context, id int64) (api.Totals, error)
	ListFoods(ctx context.Context, mealID int64) ([]api.Food, error)
}

type Plan struct {
	AthleteID  int64
	ExportedAt time.Time
	Days       []PlanDay
}

type PlanDay struct {
	api.Day
	Totals api.Totals
	Meals  []PlanMeal
}

type PlanMeal struct {
	api.Meal
	Totals api.Totals
	Foods  []api.Food
}

// Collect walks every day, meal and food of athleteID.
func Collect(ctx context.Context, src Source, athleteID int64) (*Plan, error) {
	days, err := src.ListDays(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	plan := &Plan{AthleteID: athleteID, ExportedAt: time.Now().UTC()}
	for _, d := range days {
		pd := PlanDay{Day: d}
		if pd.Totals, err = src.DayNutrition(ctx, d.ID); err != nil {
			return nil, fmt.Errorf("day %d nutrition: %w", d.ID, err)
		}
		meals, err := src.ListMeals(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("list meals of day %d: %w", d.ID, err)
		}
		for _, m := range meals {
			pm := PlanMeal{Meal: m}
			if pm.Totals, err = src.MealNutrition(ctx, m.ID); err != nil {
				return nil, fmt.Errorf("meal %d nutrition: %w", m.ID, err)
			}
			if pm.Foods, err = src.ListFoods(ctx, m.ID); err != nil {
				return nil, fmt.Errorf("list foods of meal %d: %w", m.ID, err)
			}
			pd.Meals = append(pd.Meals, pm)
		}
		plan.Days = append(plan.Days, pd)
	}
	return plan, nil
}

func (p *Plan) FoodCount() int {
	n := 0
	for _, d := range p.Days {
		for _, m := range d.Meals {
			n += len(m.Foods)
		}
	}
	return n
}

// Write saves plan to path in the given format.
func Write(plan *Plan, format, path string) error {
	switch format {
	case "csv":
		return ToCSV(plan, path)
	case "json":
		return ToJSON(plan, path)
	case "xlsx":
		return ToXLSX(plan, path)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// FileName builds the default file name for an export made at t.
func FileName(athleteID int64, format string, t time.Time) string {
	return fmt.Sprintf("caltrack-athlete-%d-%s.%s", athleteID, t.Format("20060102-150405"), format)
}

// DefaultPath places FileName in dir, or in the working directory when dir is
// empty.
func DefaultPath(dir string, athleteID int64, format string, t time.Time) string {
	return filepath.Join(dir, FileName(athleteID, format, t))
}

// foodLine is one food flattened with its day and meal.
type foodLine struct {
	day  string
	meal string
	food api.Food
}

func lines(p *Plan) []foodLine {
	var out []foodLine
	for _, d := range p.Days {
		for _, m := range d.Meals {
			for _, f := range m.Foods {
				out = append(out, foodLine{day: d.Name, meal: m.Name, food: f})
			}
		}
	}
	return out
}

var lineHeader = []string{"Day", "Meal", "Food", "Quantity (g)", "Protein (g)", "Carbs (g)", "Fat (g)", "Total (g)", "Kcal"}

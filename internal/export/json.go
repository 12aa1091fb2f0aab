package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/caltrack/internal/api"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	AthleteID  int64     `json:"athlete_id"`
	Count      int       `json:"food_count"`
	Days       []jsonDay `json:"days"`
}

type jsonDay struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Totals api.Totals `json:"totals"`
	Meals  []jsonMeal `json:"meals"`
}

type jsonMeal struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Totals api.Totals `json:"totals"`
	Foods  []api.Food `json:"foods"`
}

func ToJSON(plan *Plan, path string) error {
	export := jsonExport{
		ExportedAt: plan.ExportedAt.Format(time.RFC3339),
		AthleteID:  plan.AthleteID,
		Count:      plan.FoodCount(),
		Days:       []jsonDay{},
	}

	for _, d := range plan.Days {
		jd := jsonDay{ID: d.ID, Name: d.Name, Totals: d.Totals, Meals: []jsonMeal{}}
		for _, m := range d.Meals {
			foods := m.Foods
			if foods == nil {
				foods = []api.Food{}
			}
			jd.Meals = append(jd.Meals, jsonMeal{ID: m.ID, Name: m.Name, Totals: m.Totals, Foods: foods})
		}
		export.Days = append(export.Days, jd)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

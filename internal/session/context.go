package session

import "github.com/sadopc/caltrack/internal/api"

const (
	MaxDays  = 8
	MaxMeals = 5
)

var (
	DefaultDayNames  = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday", "Everyday"}
	DefaultMealNames = []string{"Breakfast", "Lunch", "Dinner", "Brunch", "Tea"}
)

// Context is the reference data shared by every panel for one UI session.
// It is built once at startup and not mutated afterwards.
type Context struct {
	AthleteID  int64
	DayNames   []string
	MealNames  []string
	Categories []api.FoodCategory
	Token      api.Token
}

func NewContext(athleteID int64, categories []api.FoodCategory, token api.Token) *Context {
	return &Context{
		AthleteID:  athleteID,
		DayNames:   DefaultDayNames,
		MealNames:  DefaultMealNames,
		Categories: categories,
		Token:      token,
	}
}

func (c *Context) Category(id int64) (api.FoodCategory, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return api.FoodCategory{}, false
}

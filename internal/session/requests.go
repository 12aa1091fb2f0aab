package session

import (
	"context"
	"fmt"

	"github.com/sadopc/caltrack/internal/api"
)

// Store is the remote side of a session. *api.Client satisfies it.
type Store interface {
	ListDays(ctx context.Context, athleteID int64) ([]api.Day, error)
	CreateDay(ctx context.Context, athleteID int64, name string) (api.Day, error)
	RenameDay(ctx context.Context, id int64, name string) (api.Day, error)
	DeleteDay(ctx context.Context, id int64) error
	DayNutrition(ctx context.Context, id int64) (api.Totals, error)

	ListMeals(ctx context.Context, dayID int64) ([]api.Meal, error)
	CreateMeal(ctx context.Context, dayID int64, name string) (api.Meal, error)
	RenameMeal(ctx context.Context, id int64, name string) (api.Meal, error)
	DeleteMeal(ctx context.Context, id int64) error
	MealNutrition(ctx context.Context, id int64) (api.Totals, error)

	ListFoods(ctx context.Context, mealID int64) ([]api.Food, error)
	CreateFood(ctx context.Context, mealID, categoryID int64, quantity int) (api.Food, error)
	UpdateFood(ctx context.Context, id int64, update api.FoodUpdate) (api.Food, error)
	DeleteFood(ctx context.Context, id int64) error
}

var _ Store = (*api.Client)(nil)

// Request is one remote call a session action wants performed. Callers run
// Do wherever they like and pass the resulting Event back to Session.Handle.
type Request interface {
	Do(ctx context.Context, store Store) Event
	fmt.Stringer
}

// Event is the outcome of a Request.
type Event interface {
	event()
}

// ==================== Events ====================

type DaysLoaded struct {
	Gen  uint64
	Days []api.Day
	Err  error
}

type DayCreated struct {
	Key string
	Day api.Day
	Err error
}

type DayRenamed struct {
	ID   int64
	Name string
	Prev string
	Day  api.Day
	Err  error
}

type DayDeleted struct {
	ID  int64
	Err error
}

type DayNutritionLoaded struct {
	DayID  int64
	Totals api.Totals
	Err    error
}

type MealsLoaded struct {
	Gen     uint64
	DayID   int64
	DayName string
	Meals   []api.Meal
	Err     error
}

type MealCreated struct {
	Key   string
	DayID int64
	Meal  api.Meal
	Err   error
}

type MealRenamed struct {
	ID   int64
	Name string
	Prev string
	Meal api.Meal
	Err  error
}

type MealDeleted struct {
	ID    int64
	DayID int64
	Err   error
}

type MealNutritionLoaded struct {
	MealID int64
	Totals api.Totals
	Err    error
}

type FoodsLoaded struct {
	Gen      uint64
	MealID   int64
	MealName string
	Foods    []api.Food
	Err      error
}

type FoodCreated struct {
	MealID int64
	Food   api.Food
	Err    error
}

type FoodUpdated struct {
	ID   int64
	Food api.Food
	Err  error
}

type FoodDeleted struct {
	ID     int64
	MealID int64
	Err    error
}

func (DaysLoaded) event()          {}
func (DayCreated) event()          {}
func (DayRenamed) event()          {}
func (DayDeleted) event()          {}
func (DayNutritionLoaded) event()  {}
func (MealsLoaded) event()         {}
func (MealCreated) event()         {}
func (MealRenamed) event()         {}
func (MealDeleted) event()         {}
func (MealNutritionLoaded) event() {}
func (FoodsLoaded) event()         {}
func (FoodCreated) event()         {}
func (FoodUpdated) event()         {}
func (FoodDeleted) event()         {}

// ==================== Requests ====================

type listDaysReq struct {
	gen       uint64
	athleteID int64
}

func (r listDaysReq) Do(ctx context.Context, s Store) Event {
	days, err := s.ListDays(ctx, r.athleteID)
	return DaysLoaded{Gen: r.gen, Days: days, Err: err}
}

func (r listDaysReq) String() string { return fmt.Sprintf("list days of athlete %d", r.athleteID) }

type createDayReq struct {
	key       string
	athleteID int64
	name      string
}

func (r createDayReq) Do(ctx context.Context, s Store) Event {
	day, err := s.CreateDay(ctx, r.athleteID, r.name)
	return DayCreated{Key: r.key, Day: day, Err: err}
}

func (r createDayReq) String() string { return fmt.Sprintf("create day %q", r.name) }

type renameDayReq struct {
	id   int64
	name string
	prev string
}

func (r renameDayReq) Do(ctx context.Context, s Store) Event {
	day, err := s.RenameDay(ctx, r.id, r.name)
	return DayRenamed{ID: r.id, Name: r.name, Prev: r.prev, Day: day, Err: err}
}

func (r renameDayReq) String() string { return fmt.Sprintf("rename day %d to %q", r.id, r.name) }

type deleteDayReq struct {
	id int64
}

func (r deleteDayReq) Do(ctx context.Context, s Store) Event {
	return DayDeleted{ID: r.id, Err: s.DeleteDay(ctx, r.id)}
}

func (r deleteDayReq) String() string { return fmt.Sprintf("delete day %d", r.id) }

type dayNutritionReq struct {
	dayID int64
}

func (r dayNutritionReq) Do(ctx context.Context, s Store) Event {
	t, err := s.DayNutrition(ctx, r.dayID)
	return DayNutritionLoaded{DayID: r.dayID, Totals: t, Err: err}
}

func (r dayNutritionReq) String() string { return fmt.Sprintf("day %d nutrition", r.dayID) }

type listMealsReq struct {
	gen     uint64
	dayID   int64
	dayName string
}

func (r listMealsReq) Do(ctx context.Context, s Store) Event {
	meals, err := s.ListMeals(ctx, r.dayID)
	return MealsLoaded{Gen: r.gen, DayID: r.dayID, DayName: r.dayName, Meals: meals, Err: err}
}

func (r listMealsReq) String() string { return fmt.Sprintf("list meals of day %d", r.dayID) }

type createMealReq struct {
	key   string
	dayID int64
	name  string
}

func (r createMealReq) Do(ctx context.Context, s Store) Event {
	meal, err := s.CreateMeal(ctx, r.dayID, r.name)
	return MealCreated{Key: r.key, DayID: r.dayID, Meal: meal, Err: err}
}

func (r createMealReq) String() string { return fmt.Sprintf("create meal %q in day %d", r.name, r.dayID) }

type renameMealReq struct {
	id   int64
	name string
	prev string
}

func (r renameMealReq) Do(ctx context.Context, s Store) Event {
	meal, err := s.RenameMeal(ctx, r.id, r.name)
	return MealRenamed{ID: r.id, Name: r.name, Prev: r.prev, Meal: meal, Err: err}
}

func (r renameMealReq) String() string { return fmt.Sprintf("rename meal %d to %q", r.id, r.name) }

type deleteMealReq struct {
	id    int64
	dayID int64
}

func (r deleteMealReq) Do(ctx context.Context, s Store) Event {
	return MealDeleted{ID: r.id, DayID: r.dayID, Err: s.DeleteMeal(ctx, r.id)}
}

func (r deleteMealReq) String() string { return fmt.Sprintf("delete meal %d", r.id) }

type mealNutritionReq struct {
	mealID int64
}

func (r mealNutritionReq) Do(ctx context.Context, s Store) Event {
	t, err := s.MealNutrition(ctx, r.mealID)
	return MealNutritionLoaded{MealID: r.mealID, Totals: t, Err: err}
}

func (r mealNutritionReq) String() string { return fmt.Sprintf("meal %d nutrition", r.mealID) }

type listFoodsReq struct {
	gen      uint64
	mealID   int64
	mealName string
}

func (r listFoodsReq) Do(ctx context.Context, s Store) Event {
	foods, err := s.ListFoods(ctx, r.mealID)
	return FoodsLoaded{Gen: r.gen, MealID: r.mealID, MealName: r.mealName, Foods: foods, Err: err}
}

func (r listFoodsReq) String() string { return fmt.Sprintf("list foods of meal %d", r.mealID) }

type createFoodReq struct {
	mealID     int64
	categoryID int64
	quantity   int
}

func (r createFoodReq) Do(ctx context.Context, s Store) Event {
	food, err := s.CreateFood(ctx, r.mealID, r.categoryID, r.quantity)
	return FoodCreated{MealID: r.mealID, Food: food, Err: err}
}

func (r createFoodReq) String() string {
	return fmt.Sprintf("create food of category %d in meal %d", r.categoryID, r.mealID)
}

type updateFoodReq struct {
	id     int64
	update api.FoodUpdate
}

func (r updateFoodReq) Do(ctx context.Context, s Store) Event {
	food, err := s.UpdateFood(ctx, r.id, r.update)
	return FoodUpdated{ID: r.id, Food: food, Err: err}
}

func (r updateFoodReq) String() string { return fmt.Sprintf("update food %d", r.id) }

type deleteFoodReq struct {
	id     int64
	mealID int64
}

func (r deleteFoodReq) Do(ctx context.Context, s Store) Event {
	return FoodDeleted{ID: r.id, MealID: r.mealID, Err: s.DeleteFood(ctx, r.id)}
}

func (r deleteFoodReq) String() string { return fmt.Sprintf("delete food %d", r.id) }

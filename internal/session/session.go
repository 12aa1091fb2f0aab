package session

import (
	"errors"
	"io"
	"log/slog"

	"github.com/sadopc/caltrack/internal/api"
)

// DeletePolicy decides what a failed delete does to the local view.
type DeletePolicy int

const (
	// DeleteFireAndForget removes the tab or row at once. A failed delete only
	// raises an alert and the view stays out of sync until the next reload.
	DeleteFireAndForget DeletePolicy = iota
	// DeleteRollback hides the tab or row while the delete is in flight and
	// restores it when the delete fails.
	DeleteRollback
)

func (p DeletePolicy) String() string {
	if p == DeleteRollback {
		return "rollback"
	}
	return "fire-and-forget"
}

// ParseDeletePolicy maps a stored preference to a policy. Unknown values fall
// back to DeleteFireAndForget.
func ParseDeletePolicy(s string) DeletePolicy {
	if s == "rollback" {
		return DeleteRollback
	}
	return DeleteFireAndForget
}

// FoodRow is one food line in the food modal.
type FoodRow struct {
	Food     api.Food
	Deleting bool
}

type mealModal struct {
	open    bool
	loading bool
	dayID   int64
	dayName string
	gen     uint64
	// One registry per day. Opening the modal for any day clears all of them.
	tabs map[int64]*TabSet
}

type foodModal struct {
	open     bool
	loading  bool
	mealID   int64
	mealName string
	dayID    int64
	gen      uint64
	rows     []*FoodRow
}

// Session holds the day tabs, the meal modal and the food modal for one
// athlete. Actions return the Requests they need run; the caller runs them
// and feeds each resulting Event to Handle. Session is not safe for
// concurrent use.
type Session struct {
	ctx    *Context
	policy DeletePolicy
	logger *slog.Logger

	days   *TabSet
	dayGen uint64
	meals  mealModal
	foods  foodModal

	alerts []string
}

// New starts an empty session. Call LoadDays to fill it.
func New(ctx *Context, policy DeletePolicy, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		ctx:    ctx,
		policy: policy,
		logger: logger,
		days:   newTabSet(MaxDays),
		meals:  mealModal{tabs: make(map[int64]*TabSet)},
	}
}

// Context returns the athlete, names and categories the session works with.
func (s *Session) Context() *Context { return s.ctx }

// Policy is the delete policy in effect.
func (s *Session) Policy() DeletePolicy { return s.policy }

// SetPolicy changes the delete policy for deletes started from now on.
func (s *Session) SetPolicy(p DeletePolicy) { s.policy = p }

// ==================== Alerts ====================

// Alerts returns the pending alerts without clearing them.
func (s *Session) Alerts() []string {
	return s.alerts
}

// DismissAlert drops the oldest pending alert.
func (s *Session) DismissAlert() {
	if len(s.alerts) > 0 {
		s.alerts = s.alerts[1:]
	}
}

func (s *Session) alert(msg string) {
	s.alerts = append(s.alerts, msg)
}

// failure alerts with the server's message when there is one, and with
// "Error <action>: <cause>" otherwise.
func (s *Session) failure(action string, err error) {
	s.logger.Error("request failed", "action", action, "err", err)
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		s.alert(apiErr.Message)
		return
	}
	s.alert("Error " + action + ": " + err.Error())
}

// ==================== Views ====================

// MealView is a snapshot of the meal modal.
type MealView struct {
	DayID   int64
	DayName string
	Tabs    []Tab
}

// FoodView is a snapshot of the food modal.
type FoodView struct {
	MealID   int64
	MealName string
	Foods    []api.Food
}

// Days returns the rendered day tabs in order.
func (s *Session) Days() []Tab {
	return copyTabs(s.days.Visible())
}

// ActiveDay returns the selected day tab.
func (s *Session) ActiveDay() (Tab, bool) {
	if t := s.days.Active(); t != nil {
		return *t, true
	}
	return Tab{}, false
}

// MealModal returns the meal modal, or false while it is hidden.
func (s *Session) MealModal() (MealView, bool) {
	if !s.meals.open {
		return MealView{}, false
	}
	v := MealView{DayID: s.meals.dayID, DayName: s.meals.dayName}
	if set := s.meals.tabs[s.meals.dayID]; set != nil {
		v.Tabs = copyTabs(set.Visible())
	}
	return v, true
}

// MealsLoading reports whether the meal list of the selected day is still
// on its way. The meal modal stays hidden meanwhile.
func (s *Session) MealsLoading() bool { return s.meals.loading }

// ActiveMeal returns the selected tab of the open meal modal.
func (s *Session) ActiveMeal() (Tab, bool) {
	if !s.meals.open {
		return Tab{}, false
	}
	if set := s.meals.tabs[s.meals.dayID]; set != nil {
		if t := set.Active(); t != nil {
			return *t, true
		}
	}
	return Tab{}, false
}

// FoodModal returns the food modal, or false while it is hidden.
func (s *Session) FoodModal() (FoodView, bool) {
	if !s.foods.open {
		return FoodView{}, false
	}
	v := FoodView{MealID: s.foods.mealID, MealName: s.foods.mealName}
	for _, r := range s.foods.rows {
		if !r.Deleting {
			v.Foods = append(v.Foods, r.Food)
		}
	}
	return v, true
}

// FoodsLoading reports whether the food list of the selected meal is still
// on its way.
func (s *Session) FoodsLoading() bool { return s.foods.loading }

func copyTabs(tabs []*Tab) []Tab {
	out := make([]Tab, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, *t)
	}
	return out
}

// ==================== Dispatch ====================

// Handle applies the outcome of a request and returns any follow-up requests.
func (s *Session) Handle(ev Event) []Request {
	switch ev := ev.(type) {
	case DaysLoaded:
		return s.daysLoaded(ev)
	case DayCreated:
		return s.dayCreated(ev)
	case DayRenamed:
		s.dayRenamed(ev)
	case DayDeleted:
		return s.dayDeleted(ev)
	case DayNutritionLoaded:
		s.dayNutritionLoaded(ev)
	case MealsLoaded:
		return s.mealsLoaded(ev)
	case MealCreated:
		return s.mealCreated(ev)
	case MealRenamed:
		s.mealRenamed(ev)
	case MealDeleted:
		return s.mealDeleted(ev)
	case MealNutritionLoaded:
		s.mealNutritionLoaded(ev)
	case FoodsLoaded:
		s.foodsLoaded(ev)
	case FoodCreated:
		return s.foodCreated(ev)
	case FoodUpdated:
		return s.foodUpdated(ev)
	case FoodDeleted:
		return s.foodDeleted(ev)
	}
	return nil
}

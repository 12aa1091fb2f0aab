package session

import "errors"

const (
	mealLimitAlert     = "Maximum 5 meals allowed per day"
	mealDuplicateAlert = "This meal is already selected in another tab"
)

// openMealModal clears the meal tabs of every day, not just dayID, and loads
// the meals of dayID. The modal only shows once the list arrives non-empty.
func (s *Session) openMealModal(dayID int64, dayName string) []Request {
	s.closeMealModal()
	s.meals.loading = true
	s.meals.dayID = dayID
	s.meals.dayName = dayName
	return []Request{listMealsReq{gen: s.meals.gen, dayID: dayID, dayName: dayName}}
}

func (s *Session) closeMealModal() {
	s.meals.open = false
	s.meals.loading = false
	s.meals.dayID = 0
	s.meals.dayName = ""
	s.meals.gen++
	for _, set := range s.meals.tabs {
		set.reset()
	}
	s.closeFoodModal()
}

func (s *Session) mealSet(dayID int64) *TabSet {
	set, ok := s.meals.tabs[dayID]
	if !ok {
		set = newTabSet(MaxMeals)
		s.meals.tabs[dayID] = set
	}
	return set
}

func (s *Session) findMeal(id int64) (*TabSet, *Tab) {
	for _, set := range s.meals.tabs {
		if t := set.Find(id); t != nil {
			return set, t
		}
	}
	return nil, nil
}

func (s *Session) mealsLoaded(ev MealsLoaded) []Request {
	if ev.Gen != s.meals.gen {
		s.logger.Debug("dropping stale meal list", "day", ev.DayID, "gen", ev.Gen, "current", s.meals.gen)
		return nil
	}
	s.meals.loading = false
	if ev.Err != nil {
		s.closeMealModal()
		s.failure("loading meals", ev.Err)
		return nil
	}
	if len(ev.Meals) == 0 {
		s.closeMealModal()
		return nil
	}
	s.meals.open = true
	s.meals.dayID = ev.DayID
	s.meals.dayName = ev.DayName
	fresh := make([]*Tab, 0, len(ev.Meals))
	for _, m := range ev.Meals {
		fresh = append(fresh, &Tab{ID: m.ID, ParentID: ev.DayID, Name: m.Name, State: TabInactive})
	}
	set := s.mealSet(ev.DayID)
	set.replace(fresh)
	return s.activateMeal(set, set.Visible()[0])
}

// ActivateMeal selects a meal tab in the open meal modal.
func (s *Session) ActivateMeal(id int64) ([]Request, error) {
	if !s.meals.open {
		return nil, ErrUnknownTab
	}
	set := s.mealSet(s.meals.dayID)
	tab := set.Find(id)
	if tab == nil || !tab.Visible() {
		return nil, ErrUnknownTab
	}
	return s.activateMeal(set, tab), nil
}

func (s *Session) activateMeal(set *TabSet, tab *Tab) []Request {
	set.activate(tab)
	reqs := []Request{mealNutritionReq{mealID: tab.ID}}
	return append(reqs, s.openFoodModal(tab.ID, tab.Name, tab.ParentID)...)
}

// AddMeal creates a meal in dayID named after the first unused meal name.
func (s *Session) AddMeal(dayID int64) ([]Request, error) {
	return s.CreateMeal(dayID, s.mealSet(dayID).nextFreeName(s.ctx.MealNames))
}

// CreateMeal creates a meal called name in dayID, reserving the name and a
// slot of that day until the server answers.
func (s *Session) CreateMeal(dayID int64, name string) ([]Request, error) {
	set := s.mealSet(dayID)
	if err := set.checkCreate(name); err != nil {
		s.mealValidation(err)
		return nil, err
	}
	tab := set.reserve(dayID, name)
	return []Request{createMealReq{key: tab.Key, dayID: dayID, name: name}}, nil
}

func (s *Session) mealValidation(err error) {
	switch {
	case errors.Is(err, ErrTabLimit):
		s.alert(mealLimitAlert)
	case errors.Is(err, ErrDuplicateName):
		s.alert(mealDuplicateAlert)
	}
}

func (s *Session) mealCreated(ev MealCreated) []Request {
	set := s.mealSet(ev.DayID)
	tab := set.findKey(ev.Key)
	if ev.Err != nil {
		if tab != nil {
			set.remove(tab)
		}
		s.failure("creating meal", ev.Err)
		return nil
	}
	day := s.days.Find(ev.DayID)
	if day == nil {
		if tab != nil {
			set.remove(tab)
		}
		s.logger.Debug("meal created for unknown day", "day", ev.DayID, "meal", ev.Meal.ID)
		return nil
	}
	if !s.meals.open || s.meals.dayID != day.ID {
		if tab != nil {
			set.remove(tab)
		}
		return s.openMealModal(day.ID, day.Name)
	}
	if existing := set.Find(ev.Meal.ID); existing != nil {
		if tab != nil {
			set.remove(tab)
		}
		tab = existing
	} else if tab == nil {
		tab = &Tab{}
		set.add(tab)
	}
	tab.ID = ev.Meal.ID
	tab.ParentID = ev.DayID
	tab.Name = ev.Meal.Name
	tab.State = TabInactive
	return s.activateMeal(set, tab)
}

// RenameMeal applies the new name at once and reverts it if the server
// refuses.
func (s *Session) RenameMeal(id int64, name string) ([]Request, error) {
	set, tab := s.findMeal(id)
	if tab == nil || !tab.Visible() {
		return nil, ErrUnknownTab
	}
	if name == tab.Name {
		return nil, nil
	}
	if set.nameTaken(name, tab) {
		s.alert(mealDuplicateAlert)
		return nil, ErrDuplicateName
	}
	prev := tab.Name
	tab.Name = name
	if s.foods.mealID == id {
		s.foods.mealName = name
	}
	return []Request{renameMealReq{id: id, name: name, prev: prev}}, nil
}

func (s *Session) mealRenamed(ev MealRenamed) {
	_, tab := s.findMeal(ev.ID)
	if ev.Err != nil {
		if tab != nil && tab.Name == ev.Name {
			tab.Name = ev.Prev
			if s.foods.mealID == ev.ID {
				s.foods.mealName = ev.Prev
			}
		}
		s.failure("updating meal", ev.Err)
		return
	}
	if tab != nil {
		tab.Name = ev.Meal.Name
		if s.foods.mealID == ev.ID {
			s.foods.mealName = ev.Meal.Name
		}
	}
}

// RemoveMeal deletes a meal. Removing the active meal activates the first
// remaining one, or closes the meal modal when none is left.
func (s *Session) RemoveMeal(id int64) ([]Request, error) {
	set, tab := s.findMeal(id)
	if tab == nil || !tab.Visible() {
		return nil, ErrUnknownTab
	}
	wasActive := tab.State == TabActive
	dayID := tab.ParentID
	if s.policy == DeleteRollback {
		tab.State = TabDeleting
	} else {
		set.remove(tab)
	}

	reqs := []Request{deleteMealReq{id: id, dayID: dayID}}
	if wasActive || s.foods.mealID == id {
		if visible := set.Visible(); len(visible) > 0 {
			reqs = append(reqs, s.activateMeal(set, visible[0])...)
		} else if s.meals.dayID == dayID {
			s.closeMealModal()
		}
	}
	return reqs, nil
}

func (s *Session) mealDeleted(ev MealDeleted) []Request {
	set, tab := s.findMeal(ev.ID)
	if ev.Err != nil {
		s.failure("deleting meal", ev.Err)
		if s.policy != DeleteRollback {
			return nil
		}
		if tab != nil && tab.State == TabDeleting {
			tab.State = TabInactive
			if set.Active() == nil && s.meals.open && s.meals.dayID == ev.DayID {
				return s.activateMeal(set, tab)
			}
			return nil
		}
		// The modal closed when its last meal went away. Bring it back if
		// its day is still the selected one.
		if day := s.days.Active(); day != nil && day.ID == ev.DayID && !s.meals.open {
			return s.openMealModal(day.ID, day.Name)
		}
		return nil
	}
	if tab != nil && tab.State == TabDeleting {
		set.remove(tab)
	}
	if s.days.Find(ev.DayID) != nil {
		return []Request{dayNutritionReq{dayID: ev.DayID}}
	}
	return nil
}

func (s *Session) mealNutritionLoaded(ev MealNutritionLoaded) {
	if ev.Err != nil {
		s.logger.Error("error loading meal nutrition", "meal", ev.MealID, "err", ev.Err)
		return
	}
	if _, tab := s.findMeal(ev.MealID); tab != nil {
		t := ev.Totals
		tab.Nutrition = &t
	}
}

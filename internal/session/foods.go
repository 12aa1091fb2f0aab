package session

import "github.com/sadopc/caltrack/internal/api"

const noCategoriesAlert = "No food categories available. Please add food categories first."

func (s *Session) openFoodModal(mealID int64, mealName string, dayID int64) []Request {
	s.closeFoodModal()
	s.foods.loading = true
	s.foods.mealID = mealID
	s.foods.mealName = mealName
	s.foods.dayID = dayID
	return []Request{listFoodsReq{gen: s.foods.gen, mealID: mealID, mealName: mealName}}
}

func (s *Session) closeFoodModal() {
	s.foods.open = false
	s.foods.loading = false
	s.foods.mealID = 0
	s.foods.mealName = ""
	s.foods.dayID = 0
	s.foods.rows = nil
	s.foods.gen++
}

func (s *Session) foodsLoaded(ev FoodsLoaded) {
	if ev.Gen != s.foods.gen {
		s.logger.Debug("dropping stale food list", "meal", ev.MealID, "gen", ev.Gen, "current", s.foods.gen)
		return
	}
	s.foods.loading = false
	if ev.Err != nil {
		s.closeFoodModal()
		s.failure("loading foods", ev.Err)
		return
	}
	if len(ev.Foods) == 0 {
		s.closeFoodModal()
		return
	}
	s.foods.open = true
	s.foods.rows = make([]*FoodRow, 0, len(ev.Foods))
	for _, f := range ev.Foods {
		s.foods.rows = append(s.foods.rows, &FoodRow{Food: f})
	}
}

func (s *Session) foodRow(id int64) *FoodRow {
	for _, r := range s.foods.rows {
		if r.Food.ID == id {
			return r
		}
	}
	return nil
}

func (s *Session) removeFoodRow(row *FoodRow) {
	for i, r := range s.foods.rows {
		if r == row {
			s.foods.rows = append(s.foods.rows[:i], s.foods.rows[i+1:]...)
			return
		}
	}
}

func (s *Session) visibleFoodRows() int {
	n := 0
	for _, r := range s.foods.rows {
		if !r.Deleting {
			n++
		}
	}
	return n
}

// refreshNutrition re-fetches the totals of a meal and of the day owning it.
func (s *Session) refreshNutrition(mealID int64) []Request {
	reqs := []Request{mealNutritionReq{mealID: mealID}}
	var dayID int64
	if _, tab := s.findMeal(mealID); tab != nil {
		dayID = tab.ParentID
	} else if s.foods.mealID == mealID {
		dayID = s.foods.dayID
	}
	if dayID != 0 {
		reqs = append(reqs, dayNutritionReq{dayID: dayID})
	}
	return reqs
}

// AddFood adds one gram of the first known category to mealID.
func (s *Session) AddFood(mealID int64) ([]Request, error) {
	if len(s.ctx.Categories) == 0 {
		s.alert(noCategoriesAlert)
		return nil, ErrNoCategories
	}
	return s.CreateFood(mealID, s.ctx.Categories[0].ID, 1), nil
}

// CreateFood adds a food to mealID. Quantity is expected to be positive
// already; the input widgets enforce it.
func (s *Session) CreateFood(mealID, categoryID int64, quantity int) []Request {
	return []Request{createFoodReq{mealID: mealID, categoryID: categoryID, quantity: quantity}}
}

func (s *Session) foodCreated(ev FoodCreated) []Request {
	if ev.Err != nil {
		s.failure("creating food", ev.Err)
		return nil
	}
	mealID := ev.MealID
	if s.foods.open && s.foods.mealID == mealID {
		s.foods.rows = append(s.foods.rows, &FoodRow{Food: ev.Food})
		return s.refreshNutrition(mealID)
	}
	if s.foods.loading && s.foods.mealID == mealID {
		// The list in flight may have been read before the new food existed.
		reqs := s.openFoodModal(mealID, s.foods.mealName, s.foods.dayID)
		return append(reqs, s.refreshNutrition(mealID)...)
	}

	// Show the new food on its own until the meal is reloaded.
	var name string
	var dayID int64
	if _, tab := s.findMeal(mealID); tab != nil {
		name, dayID = tab.Name, tab.ParentID
	}
	s.closeFoodModal()
	s.foods.open = true
	s.foods.mealID = mealID
	s.foods.mealName = name
	s.foods.dayID = dayID
	s.foods.rows = []*FoodRow{{Food: ev.Food}}
	return s.refreshNutrition(mealID)
}

// UpdateFoodCategory moves food id to another category.
func (s *Session) UpdateFoodCategory(id, categoryID int64) []Request {
	return []Request{updateFoodReq{id: id, update: api.FoodUpdate{CategoryID: &categoryID}}}
}

// UpdateFoodQuantity sets the grams of food id.
func (s *Session) UpdateFoodQuantity(id int64, quantity int) []Request {
	return []Request{updateFoodReq{id: id, update: api.FoodUpdate{Quantity: &quantity}}}
}

func (s *Session) foodUpdated(ev FoodUpdated) []Request {
	if ev.Err != nil {
		s.failure("updating food", ev.Err)
		return nil
	}
	mealID := ev.Food.MealID
	if row := s.foodRow(ev.ID); row != nil {
		if mealID == 0 {
			mealID = row.Food.MealID
		}
		row.Food = ev.Food
	}
	if mealID == 0 {
		return nil
	}
	return s.refreshNutrition(mealID)
}

// RemoveFood deletes a row of the food modal. The modal closes with its last
// row.
func (s *Session) RemoveFood(id int64) ([]Request, error) {
	row := s.foodRow(id)
	if row == nil || row.Deleting {
		return nil, ErrUnknownTab
	}
	mealID := s.foods.mealID
	if s.policy == DeleteRollback {
		row.Deleting = true
	} else {
		s.removeFoodRow(row)
	}
	reqs := []Request{deleteFoodReq{id: id, mealID: mealID}}
	if s.visibleFoodRows() == 0 {
		s.closeFoodModal()
	}
	return reqs, nil
}

func (s *Session) foodDeleted(ev FoodDeleted) []Request {
	row := s.foodRow(ev.ID)
	if ev.Err != nil {
		s.failure("deleting food", ev.Err)
		if s.policy != DeleteRollback {
			return nil
		}
		if row != nil && row.Deleting {
			row.Deleting = false
			return nil
		}
		if meal, ok := s.ActiveMeal(); ok && meal.ID == ev.MealID && !s.foods.open {
			return s.openFoodModal(meal.ID, meal.Name, meal.ParentID)
		}
		return nil
	}
	if row != nil && row.Deleting {
		s.removeFoodRow(row)
	}
	return s.refreshNutrition(ev.MealID)
}

package session

import "errors"

const (
	dayLimitAlert     = "Maximum 8 days allowed"
	dayDuplicateAlert = "This day is already selected in another tab"
)

// LoadDays fetches the athlete's days. The response replaces every day tab
// except those still being created.
func (s *Session) LoadDays() []Request {
	s.dayGen++
	return []Request{listDaysReq{gen: s.dayGen, athleteID: s.ctx.AthleteID}}
}

func (s *Session) daysLoaded(ev DaysLoaded) []Request {
	if ev.Gen != s.dayGen {
		s.logger.Debug("dropping stale day list", "gen", ev.Gen, "current", s.dayGen)
		return nil
	}
	if ev.Err != nil {
		s.failure("loading days", ev.Err)
		return nil
	}
	fresh := make([]*Tab, 0, len(ev.Days))
	for _, d := range ev.Days {
		fresh = append(fresh, &Tab{ID: d.ID, ParentID: d.AthleteID, Name: d.Name, State: TabInactive})
	}
	s.days.replace(fresh)
	s.closeMealModal()
	if visible := s.days.Visible(); len(visible) > 0 {
		return s.activateDay(visible[0])
	}
	return nil
}

// AddDay creates a day named after the first unused day name.
func (s *Session) AddDay() ([]Request, error) {
	return s.CreateDay(s.days.nextFreeName(s.ctx.DayNames))
}

// CreateDay creates a day called name. The name and a slot are reserved
// until the server answers, so the cap and uniqueness checks count it.
func (s *Session) CreateDay(name string) ([]Request, error) {
	if err := s.days.checkCreate(name); err != nil {
		s.dayValidation(err)
		return nil, err
	}
	tab := s.days.reserve(s.ctx.AthleteID, name)
	return []Request{createDayReq{key: tab.Key, athleteID: s.ctx.AthleteID, name: name}}, nil
}

func (s *Session) dayValidation(err error) {
	switch {
	case errors.Is(err, ErrTabLimit):
		s.alert(dayLimitAlert)
	case errors.Is(err, ErrDuplicateName):
		s.alert(dayDuplicateAlert)
	}
}

func (s *Session) dayCreated(ev DayCreated) []Request {
	tab := s.days.findKey(ev.Key)
	if ev.Err != nil {
		if tab != nil {
			s.days.remove(tab)
		}
		s.failure("creating day", ev.Err)
		return nil
	}
	if existing := s.days.Find(ev.Day.ID); existing != nil {
		// A reload already listed the new day.
		if tab != nil {
			s.days.remove(tab)
		}
		tab = existing
	} else if tab == nil {
		tab = &Tab{}
		s.days.add(tab)
	}
	tab.ID = ev.Day.ID
	tab.ParentID = ev.Day.AthleteID
	tab.Name = ev.Day.Name
	tab.State = TabInactive
	return s.activateDay(tab)
}

// ActivateDay selects a day tab, refreshes its totals and opens its meals.
func (s *Session) ActivateDay(id int64) ([]Request, error) {
	tab := s.days.Find(id)
	if tab == nil || !tab.Visible() {
		return nil, ErrUnknownTab
	}
	return s.activateDay(tab), nil
}

func (s *Session) activateDay(tab *Tab) []Request {
	s.days.activate(tab)
	reqs := []Request{dayNutritionReq{dayID: tab.ID}}
	return append(reqs, s.openMealModal(tab.ID, tab.Name)...)
}

// RenameDay applies the new name at once and reverts it if the server
// refuses.
func (s *Session) RenameDay(id int64, name string) ([]Request, error) {
	tab := s.days.Find(id)
	if tab == nil || !tab.Visible() {
		return nil, ErrUnknownTab
	}
	if name == tab.Name {
		return nil, nil
	}
	if s.days.nameTaken(name, tab) {
		s.alert(dayDuplicateAlert)
		return nil, ErrDuplicateName
	}
	prev := tab.Name
	tab.Name = name
	if s.meals.dayID == id {
		s.meals.dayName = name
	}
	return []Request{renameDayReq{id: id, name: name, prev: prev}}, nil
}

func (s *Session) dayRenamed(ev DayRenamed) {
	tab := s.days.Find(ev.ID)
	if ev.Err != nil {
		if tab != nil && tab.Name == ev.Name {
			tab.Name = ev.Prev
			if s.meals.dayID == ev.ID {
				s.meals.dayName = ev.Prev
			}
		}
		s.failure("updating day", ev.Err)
		return
	}
	if tab != nil {
		tab.Name = ev.Day.Name
		if s.meals.dayID == ev.ID {
			s.meals.dayName = ev.Day.Name
		}
	}
}

// RemoveDay deletes a day. Removing the active day activates the first
// remaining one, or closes the meal modal when none is left.
func (s *Session) RemoveDay(id int64) ([]Request, error) {
	tab := s.days.Find(id)
	if tab == nil || !tab.Visible() {
		return nil, ErrUnknownTab
	}
	wasActive := tab.State == TabActive
	if s.policy == DeleteRollback {
		tab.State = TabDeleting
	} else {
		s.days.remove(tab)
	}
	delete(s.meals.tabs, id)

	reqs := []Request{deleteDayReq{id: id}}
	if wasActive || s.meals.dayID == id {
		if visible := s.days.Visible(); len(visible) > 0 {
			reqs = append(reqs, s.activateDay(visible[0])...)
		} else {
			s.closeMealModal()
		}
	}
	return reqs, nil
}

func (s *Session) dayDeleted(ev DayDeleted) []Request {
	tab := s.days.Find(ev.ID)
	if ev.Err != nil {
		s.failure("deleting day", ev.Err)
		if tab == nil || tab.State != TabDeleting {
			return nil
		}
		tab.State = TabInactive
		if s.days.Active() == nil {
			return s.activateDay(tab)
		}
		return nil
	}
	if tab != nil && tab.State == TabDeleting {
		s.days.remove(tab)
	}
	return nil
}

func (s *Session) dayNutritionLoaded(ev DayNutritionLoaded) {
	if ev.Err != nil {
		s.logger.Error("error loading day nutrition", "day", ev.DayID, "err", ev.Err)
		return
	}
	if tab := s.days.Find(ev.DayID); tab != nil {
		t := ev.Totals
		tab.Nutrition = &t
	}
}

package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/caltrack/internal/api"
	"github.com/sadopc/caltrack/internal/nutrition"
	"github.com/sadopc/caltrack/internal/session"
)

// quantityStep is the gram change applied by the +/- keys.
const quantityStep = 10

// focusLevel is the panel that receives navigation keys.
type focusLevel int

const (
	focusDays focusLevel = iota
	focusMeals
	focusFoods
)

type planModel struct {
	session *session.Session
	remote  session.Store
	timeout time.Duration
	width   int
	height  int

	focus      focusLevel
	foodCursor int

	formActive bool
	form       *huh.Form
	formType   string // "new_day", "rename_day", "new_meal", "rename_meal", "new_food", "food_category", "food_quantity"
	formTarget int64

	// Form field pointers (survive value copies)
	formName     *string
	formCategory *int64
	formQuantity *string
}

func newPlanModel(sess *session.Session, remote session.Store, timeout time.Duration) planModel {
	name, qty := "", ""
	var cat int64
	return planModel{
		session:      sess,
		remote:       remote,
		timeout:      timeout,
		formName:     &name,
		formCategory: &cat,
		formQuantity: &qty,
	}
}

func (p *planModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p planModel) run(reqs []session.Request) tea.Cmd {
	return runRequests(p.remote, p.timeout, reqs)
}

func (p planModel) reload() tea.Cmd {
	return p.run(p.session.LoadDays())
}

// handleEvent feeds a finished request to the session, even while a form is
// open.
func (p planModel) handleEvent(msg sessionEventMsg) (planModel, tea.Cmd) {
	cmd := p.run(p.session.Handle(msg.event))
	p.clampFocus()
	return p, cmd
}

// apply runs the requests of a session action. Validation errors have already
// been turned into alerts by the session.
func (p planModel) apply(reqs []session.Request, _ error) (planModel, tea.Cmd) {
	p.clampFocus()
	return p, p.run(reqs)
}

func (p *planModel) clampFocus() {
	if p.focus == focusFoods {
		if _, ok := p.session.FoodModal(); !ok {
			p.focus = focusMeals
		}
	}
	if p.focus == focusMeals {
		if _, ok := p.session.MealModal(); !ok {
			p.focus = focusDays
		}
	}
	n := 0
	if fv, ok := p.session.FoodModal(); ok {
		n = len(fv.Foods)
	}
	p.foodCursor = clamp(p.foodCursor, 0, max(0, n-1))
}

func (p planModel) update(msg tea.Msg) (planModel, tea.Cmd) {
	if msg, ok := msg.(sessionEventMsg); ok {
		return p.handleEvent(msg)
	}
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, keys.Reload) {
			return p, p.reload()
		}
		switch p.focus {
		case focusFoods:
			return p.updateFoods(msg)
		case focusMeals:
			return p.updateMeals(msg)
		default:
			return p.updateDays(msg)
		}
	}
	return p, nil
}

// neighbour returns the id of the tab step places away from the active one,
// wrapping around.
func neighbour(tabs []session.Tab, step int) (int64, bool) {
	if len(tabs) == 0 {
		return 0, false
	}
	cur := 0
	for i, t := range tabs {
		if t.State == session.TabActive {
			cur = i
			break
		}
	}
	next := (cur + step + len(tabs)) % len(tabs)
	return tabs[next].ID, true
}

func (p planModel) updateDays(msg tea.KeyMsg) (planModel, tea.Cmd) {
	day, hasDay := p.session.ActiveDay()
	switch {
	case key.Matches(msg, keys.Left), key.Matches(msg, keys.Right):
		step := 1
		if key.Matches(msg, keys.Left) {
			step = -1
		}
		if id, ok := neighbour(p.session.Days(), step); ok {
			return p.apply(p.session.ActivateDay(id))
		}
	case key.Matches(msg, keys.Enter):
		if !hasDay {
			return p, nil
		}
		if _, ok := p.session.MealModal(); ok {
			p.focus = focusMeals
			return p, nil
		}
		if p.session.MealsLoading() {
			return p, nil
		}
		return p.apply(p.session.AddMeal(day.ID))
	case key.Matches(msg, keys.Add):
		return p.apply(p.session.AddDay())
	case key.Matches(msg, keys.New):
		return p.showNameForm("new_day", 0, p.session.Context().DayNames, "")
	case key.Matches(msg, keys.Rename):
		if hasDay {
			return p.showNameForm("rename_day", day.ID, p.session.Context().DayNames, day.Name)
		}
	case key.Matches(msg, keys.Delete):
		if hasDay {
			return p.apply(p.session.RemoveDay(day.ID))
		}
	}
	return p, nil
}

func (p planModel) updateMeals(msg tea.KeyMsg) (planModel, tea.Cmd) {
	mv, ok := p.session.MealModal()
	if !ok {
		p.focus = focusDays
		return p, nil
	}
	meal, hasMeal := p.session.ActiveMeal()
	switch {
	case key.Matches(msg, keys.Back):
		p.focus = focusDays
	case key.Matches(msg, keys.Left), key.Matches(msg, keys.Right):
		step := 1
		if key.Matches(msg, keys.Left) {
			step = -1
		}
		if id, ok := neighbour(mv.Tabs, step); ok {
			return p.apply(p.session.ActivateMeal(id))
		}
	case key.Matches(msg, keys.Enter):
		if !hasMeal {
			return p, nil
		}
		if _, ok := p.session.FoodModal(); ok {
			p.focus = focusFoods
			p.foodCursor = 0
			return p, nil
		}
		if p.session.FoodsLoading() {
			return p, nil
		}
		return p.apply(p.session.AddFood(meal.ID))
	case key.Matches(msg, keys.Add):
		return p.apply(p.session.AddMeal(mv.DayID))
	case key.Matches(msg, keys.New):
		return p.showNameForm("new_meal", mv.DayID, p.session.Context().MealNames, "")
	case key.Matches(msg, keys.Rename):
		if hasMeal {
			return p.showNameForm("rename_meal", meal.ID, p.session.Context().MealNames, meal.Name)
		}
	case key.Matches(msg, keys.Delete):
		if hasMeal {
			return p.apply(p.session.RemoveMeal(meal.ID))
		}
	}
	return p, nil
}

func (p planModel) updateFoods(msg tea.KeyMsg) (planModel, tea.Cmd) {
	fv, ok := p.session.FoodModal()
	if !ok {
		p.focus = focusMeals
		return p, nil
	}
	var food api.Food
	hasFood := p.foodCursor < len(fv.Foods)
	if hasFood {
		food = fv.Foods[p.foodCursor]
	}

	switch {
	case key.Matches(msg, keys.Back):
		p.focus = focusMeals
	case key.Matches(msg, keys.Up):
		if p.foodCursor > 0 {
			p.foodCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.foodCursor < len(fv.Foods)-1 {
			p.foodCursor++
		}
	case key.Matches(msg, keys.Add):
		return p.apply(p.session.AddFood(fv.MealID))
	case key.Matches(msg, keys.New):
		return p.showFoodForm("new_food", fv.MealID, 0, 100)
	case key.Matches(msg, keys.Category):
		if hasFood {
			return p.showFoodForm("food_category", food.ID, food.CategoryID, food.Quantity)
		}
	case key.Matches(msg, keys.Quantity):
		if hasFood {
			return p.showFoodForm("food_quantity", food.ID, food.CategoryID, food.Quantity)
		}
	case key.Matches(msg, keys.Increase):
		if hasFood {
			return p.apply(p.session.UpdateFoodQuantity(food.ID, food.Quantity+quantityStep), nil)
		}
	case key.Matches(msg, keys.Decrease):
		if hasFood && food.Quantity > 1 {
			return p.apply(p.session.UpdateFoodQuantity(food.ID, max(1, food.Quantity-quantityStep)), nil)
		}
	case key.Matches(msg, keys.Delete):
		if hasFood {
			return p.apply(p.session.RemoveFood(food.ID))
		}
	}
	return p, nil
}

// ==================== Forms ====================

func (p planModel) showNameForm(formType string, target int64, names []string, current string) (planModel, tea.Cmd) {
	*p.formName = current
	if current == "" && len(names) > 0 {
		*p.formName = names[0]
	}
	p.formType = formType
	p.formTarget = target

	options := make([]huh.Option[string], len(names))
	for i, n := range names {
		options[i] = huh.NewOption(n, n)
	}
	title := "Day"
	if formType == "new_meal" || formType == "rename_meal" {
		title = "Meal"
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title(title).Options(options...).Value(p.formName),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p planModel) showFoodForm(formType string, target, categoryID int64, quantity int) (planModel, tea.Cmd) {
	categories := p.session.Context().Categories
	if len(categories) == 0 {
		switch formType {
		case "new_food":
			// AddFood raises the no-categories alert.
			return p.apply(p.session.AddFood(target))
		case "food_category":
			return p, nil
		}
	}

	*p.formCategory = categoryID
	if categoryID == 0 && len(categories) > 0 {
		*p.formCategory = categories[0].ID
	}
	*p.formQuantity = strconv.Itoa(quantity)
	p.formType = formType
	p.formTarget = target

	options := make([]huh.Option[int64], len(categories))
	for i, c := range categories {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s kcal/100 g)", c.Name, nutrition.Number(c.Kcal)), c.ID)
	}
	category := huh.NewSelect[int64]().Title("Category").Options(options...).Value(p.formCategory)
	grams := huh.NewInput().Title("Quantity (g)").Value(p.formQuantity).Validate(validQuantity)

	var group *huh.Group
	switch formType {
	case "food_category":
		group = huh.NewGroup(category)
	case "food_quantity":
		group = huh.NewGroup(grams)
	default:
		group = huh.NewGroup(category, grams)
	}

	p.form = huh.NewForm(group).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func validQuantity(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a whole number of grams above zero")
	}
	return nil
}

func (p planModel) updateForm(msg tea.Msg) (planModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		return p.submitForm()
	}

	return p, cmd
}

func (p planModel) submitForm() (planModel, tea.Cmd) {
	p.formActive = false
	p.form = nil
	qty, _ := strconv.Atoi(strings.TrimSpace(*p.formQuantity))

	switch p.formType {
	case "new_day":
		return p.apply(p.session.CreateDay(*p.formName))
	case "rename_day":
		return p.apply(p.session.RenameDay(p.formTarget, *p.formName))
	case "new_meal":
		return p.apply(p.session.CreateMeal(p.formTarget, *p.formName))
	case "rename_meal":
		return p.apply(p.session.RenameMeal(p.formTarget, *p.formName))
	case "new_food":
		if qty > 0 {
			return p.apply(p.session.CreateFood(p.formTarget, *p.formCategory, qty), nil)
		}
	case "food_category":
		return p.apply(p.session.UpdateFoodCategory(p.formTarget, *p.formCategory), nil)
	case "food_quantity":
		if qty > 0 {
			return p.apply(p.session.UpdateFoodQuantity(p.formTarget, qty), nil)
		}
	}
	return p, nil
}

// ==================== View ====================

var formTitles = map[string]string{
	"new_day":       "New Day",
	"rename_day":    "Rename Day",
	"new_meal":      "New Meal",
	"rename_meal":   "Rename Meal",
	"new_food":      "New Food",
	"food_category": "Change Category",
	"food_quantity": "Change Quantity",
}

func (p planModel) view() string {
	w := p.width - 4

	if p.formActive && p.form != nil {
		title := titleStyle.Render(formTitles[p.formType])
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View())
		return panelStyle.Width(w).Render(content)
	}

	sections := []string{p.renderDays(w)}
	if meals := p.renderMeals(w); meals != "" {
		sections = append(sections, meals)
	}
	if foods := p.renderFoods(w); foods != "" {
		sections = append(sections, foods)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderTabs(tabs []session.Tab) string {
	rendered := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.State == session.TabActive {
			rendered = append(rendered, activeTabStyle.Render(t.Name))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(t.Name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, rendered...)
}

func (p planModel) panel(level focusLevel) lipgloss.Style {
	if p.focus == level {
		return activePanelStyle
	}
	return panelStyle
}

func (p planModel) renderDays(w int) string {
	title := titleStyle.Render("Days")
	days := p.session.Days()
	if len(days) == 0 {
		return p.panel(focusDays).Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No days yet. Press a to add one."),
		))
	}

	rows := []string{title, renderTabs(days)}
	if day, ok := p.session.ActiveDay(); ok {
		rows = append(rows, "", nutritionStyle.Render(nutrition.Format(day.Nutrition)))
		if _, open := p.session.MealModal(); !open {
			rows = append(rows, mutedStyle.Render(emptyHint(p.session.MealsLoading(), "meals")))
		}
	}
	if p.focus == focusDays {
		rows = append(rows, "", mutedStyle.Render("  ←/→: switch  a: add  n: new  r: rename  d: delete  enter: meals"))
	}
	return p.panel(focusDays).Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func emptyHint(loading bool, what string) string {
	if loading {
		return "Loading " + what + "..."
	}
	return "No " + what + ". Press enter to add one."
}

func (p planModel) renderMeals(w int) string {
	mv, ok := p.session.MealModal()
	if !ok {
		return ""
	}
	rows := []string{titleStyle.Render("Meals · " + mv.DayName), renderTabs(mv.Tabs)}
	if meal, ok := p.session.ActiveMeal(); ok {
		rows = append(rows, "", nutritionStyle.Render(nutrition.Format(meal.Nutrition)))
		if _, open := p.session.FoodModal(); !open {
			rows = append(rows, mutedStyle.Render(emptyHint(p.session.FoodsLoading(), "foods")))
		}
	}
	if p.focus == focusMeals {
		rows = append(rows, "", mutedStyle.Render("  ←/→: switch  a: add  n: new  r: rename  d: delete  enter: foods  esc: days"))
	}
	return p.panel(focusMeals).Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (p planModel) renderFoods(w int) string {
	fv, ok := p.session.FoodModal()
	if !ok {
		return ""
	}
	rows := []string{titleStyle.Render("Foods · " + fv.MealName), ""}
	sc := p.session.Context()
	for i, f := range fv.Foods {
		name := f.CategoryName
		if name == "" {
			if c, ok := sc.Category(f.CategoryID); ok {
				name = c.Name
			}
		}
		cursor := "  "
		style := normalItemStyle
		if p.focus == focusFoods && i == p.foodCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-20s %6d g", cursor, name, f.Quantity))+
			"  "+mutedStyle.Render(nutrition.FormatFood(f.FoodNutrients)))
	}
	if p.focus == focusFoods {
		rows = append(rows, "", mutedStyle.Render("  a: add  n: new  c: category  g: grams  +/-: ±10 g  d: delete  esc: meals"))
	}
	return p.panel(focusFoods).Width(w).Render(strings.Join(rows, "\n"))
}

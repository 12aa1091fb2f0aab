package tui

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/caltrack/internal/apitest"
	"github.com/sadopc/caltrack/internal/export"
	"github.com/sadopc/caltrack/internal/session"
	"github.com/sadopc/caltrack/internal/store"
)

const testAthlete = 7

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestServer(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New(t)
	srv.AddAthlete(testAthlete)
	return srv
}

// newTestApp builds a sized app on top of srv and runs its initial load.
func newTestApp(t *testing.T, srv *apitest.Server) App {
	t.Helper()
	client := srv.Client()
	cats, err := client.ListFoodCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	st := newTestStore(t)
	if err := st.UseAthlete(testAthlete); err != nil {
		t.Fatalf("use athlete: %v", err)
	}
	sess := session.New(session.NewContext(testAthlete, cats, client.Token), session.DeleteFireAndForget, nil)
	app := NewApp(st, client, sess, 5*time.Second, nil)

	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app = model.(App)
	return drain(t, app, app.Init())
}

// drain runs cmd and every command that follows from it, feeding each message
// back into the app.
func drain(t *testing.T, app App, cmd tea.Cmd) App {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatal("commands did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		model, next := app.Update(msg)
		app = model.(App)
		queue = append(queue, next)
	}
	return app
}

// press sends one key and runs everything it triggers. Not for keys that open
// forms: their init commands wait on timers.
func press(t *testing.T, app App, k string) App {
	t.Helper()
	model, cmd := app.Update(keyMsg(k))
	return drain(t, model.(App), cmd)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	if app.activeView != viewPlan {
		t.Fatal("default view should be plan")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.picker.active {
		t.Fatal("export picker should be hidden by default")
	}
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppLoadingState(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	sess := session.New(session.NewContext(testAthlete, nil, client.Token), session.DeleteFireAndForget, nil)
	app := NewApp(newTestStore(t), client, sess, time.Second, nil)

	// Width 0 means not yet sized
	if out := app.View(); out != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", out)
	}
}

func TestAppViewStates(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	for i := range viewNames {
		app.activeView = viewState(i)
		if app.View() == "" {
			t.Fatalf("view %d rendered empty", i)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	header := app.renderHeader()
	for _, name := range viewNames {
		if !containsString(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppRenderFooter(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)
	app.status = "test status"

	footer := app.renderFooter()
	if !containsString(footer, "athlete #7") {
		t.Fatal("footer should name the athlete")
	}
	if !containsString(footer, "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppTabCyclesViews(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	app = press(t, app, "tab")
	if app.activeView != viewReport {
		t.Fatalf("expected report view, got %d", app.activeView)
	}
	app = press(t, app, "3")
	if app.activeView != viewSettings {
		t.Fatalf("expected settings view, got %d", app.activeView)
	}
	app = press(t, app, "tab")
	if app.activeView != viewPlan {
		t.Fatalf("expected plan view, got %d", app.activeView)
	}
}

// ============================================================
// Plan view
// ============================================================

func TestPlanInitialLoad(t *testing.T) {
	srv := newTestServer(t)
	cat := srv.AddCategory("Oats", 13, 68, 7, 389)
	mon := srv.AddDay(testAthlete, "Monday")
	srv.AddDay(testAthlete, "Tuesday")
	meal := srv.AddMeal(mon.ID, "Breakfast")
	srv.AddFood(meal.ID, cat.ID, 80)

	app := newTestApp(t, srv)

	if n := len(app.session.Days()); n != 2 {
		t.Fatalf("expected 2 days, got %d", n)
	}
	day, ok := app.session.ActiveDay()
	if !ok || day.Name != "Monday" {
		t.Fatalf("expected Monday active, got %+v", day)
	}
	fv, ok := app.session.FoodModal()
	if !ok || len(fv.Foods) != 1 {
		t.Fatal("food modal should show the one food")
	}

	out := app.View()
	for _, want := range []string{"Monday", "Tuesday", "Breakfast", "Oats", "kcal"} {
		if !containsString(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestPlanQuickAddDay(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	if !containsString(app.View(), "No days yet") {
		t.Fatal("empty plan should say so")
	}

	app = press(t, app, "a")
	if srv.DayCount(testAthlete) != 1 {
		t.Fatalf("expected 1 day on the server, got %d", srv.DayCount(testAthlete))
	}
	days := app.session.Days()
	if len(days) != 1 || days[0].Name != "Monday" {
		t.Fatalf("unexpected days %+v", days)
	}
}

func TestPlanDayLimitAlertBlocksKeys(t *testing.T) {
	srv := newTestServer(t)
	for _, name := range session.DefaultDayNames {
		srv.AddDay(testAthlete, name)
	}
	app := newTestApp(t, srv)

	app = press(t, app, "a")
	alerts := app.session.Alerts()
	if len(alerts) != 1 || alerts[0] != "Maximum 8 days allowed" {
		t.Fatalf("unexpected alerts %v", alerts)
	}
	if !containsString(app.View(), "Maximum 8 days allowed") {
		t.Fatal("alert should be shown")
	}

	// Keys other than enter/esc are swallowed while the alert is up.
	app = press(t, app, "2")
	if app.activeView != viewPlan {
		t.Fatal("view switched behind an alert")
	}

	app = press(t, app, "enter")
	if len(app.session.Alerts()) != 0 {
		t.Fatal("enter should dismiss the alert")
	}
	if srv.DayCount(testAthlete) != 8 {
		t.Fatal("no day should have been created")
	}
}

func TestPlanSwitchDayWithArrows(t *testing.T) {
	srv := newTestServer(t)
	srv.AddDay(testAthlete, "Monday")
	srv.AddDay(testAthlete, "Tuesday")
	app := newTestApp(t, srv)

	app = press(t, app, "right")
	if day, _ := app.session.ActiveDay(); day.Name != "Tuesday" {
		t.Fatalf("expected Tuesday, got %q", day.Name)
	}
	app = press(t, app, "right")
	if day, _ := app.session.ActiveDay(); day.Name != "Monday" {
		t.Fatalf("expected wrap to Monday, got %q", day.Name)
	}
}

func TestPlanEnterAddsFirstMeal(t *testing.T) {
	srv := newTestServer(t)
	srv.AddDay(testAthlete, "Monday")
	app := newTestApp(t, srv)

	if _, ok := app.session.MealModal(); ok {
		t.Fatal("meal modal should be closed for a day without meals")
	}

	app = press(t, app, "enter")
	mv, ok := app.session.MealModal()
	if !ok || len(mv.Tabs) != 1 || mv.Tabs[0].Name != "Breakfast" {
		t.Fatalf("expected Breakfast tab, got %+v", mv)
	}
	if app.plan.focus != focusDays {
		t.Fatal("adding a meal should not move focus")
	}

	app = press(t, app, "enter")
	if app.plan.focus != focusMeals {
		t.Fatal("enter should focus the meals")
	}
	app = press(t, app, "esc")
	if app.plan.focus != focusDays {
		t.Fatal("esc should return to the days")
	}
}

func TestPlanNoCategoriesAlert(t *testing.T) {
	srv := newTestServer(t)
	day := srv.AddDay(testAthlete, "Monday")
	srv.AddMeal(day.ID, "Lunch")
	app := newTestApp(t, srv)

	app = press(t, app, "enter") // focus meals
	app = press(t, app, "enter") // no foods yet: quick add
	alerts := app.session.Alerts()
	if len(alerts) != 1 || alerts[0] != "No food categories available. Please add food categories first." {
		t.Fatalf("unexpected alerts %v", alerts)
	}
}

func foodFixture(t *testing.T) (*apitest.Server, App) {
	t.Helper()
	srv := newTestServer(t)
	cat := srv.AddCategory("Rice", 7, 80, 1, 360)
	srv.AddCategory("Chicken", 31, 0, 4, 165)
	day := srv.AddDay(testAthlete, "Monday")
	meal := srv.AddMeal(day.ID, "Lunch")
	srv.AddFood(meal.ID, cat.ID, 100)

	app := newTestApp(t, srv)
	app = press(t, app, "enter")
	app = press(t, app, "enter")
	if app.plan.focus != focusFoods {
		t.Fatal("expected food focus")
	}
	return srv, app
}

func TestPlanEnterWhileFoodsLoading(t *testing.T) {
	srv := newTestServer(t)
	cat := srv.AddCategory("Rice", 7, 80, 1, 360)
	day := srv.AddDay(testAthlete, "Monday")
	meal := srv.AddMeal(day.ID, "Lunch")
	srv.AddFood(meal.ID, cat.ID, 100)

	app := newTestApp(t, srv)
	app = press(t, app, "enter")
	if app.plan.focus != focusMeals {
		t.Fatal("expected meal focus")
	}

	// Reselect the meal and keep its food list from arriving.
	if _, err := app.session.ActivateMeal(meal.ID); err != nil {
		t.Fatal(err)
	}
	if !app.session.FoodsLoading() {
		t.Fatal("food list should be loading")
	}
	if !containsString(app.View(), "Loading foods...") {
		t.Fatal("view should say the foods are loading")
	}

	app = press(t, app, "enter")
	if n := srv.Count("POST", "/api/foods"); n != 0 {
		t.Fatalf("enter should not add a food while the list loads, got %d creates", n)
	}
}

func TestEmptyHint(t *testing.T) {
	if got := emptyHint(true, "meals"); got != "Loading meals..." {
		t.Fatalf("loading hint = %q", got)
	}
	if got := emptyHint(false, "foods"); got != "No foods. Press enter to add one." {
		t.Fatalf("empty hint = %q", got)
	}
}

func TestPlanQuantityKeys(t *testing.T) {
	_, app := foodFixture(t)

	app = press(t, app, "+")
	fv, _ := app.session.FoodModal()
	if fv.Foods[0].Quantity != 110 {
		t.Fatalf("expected 110 g, got %d", fv.Foods[0].Quantity)
	}

	app = press(t, app, "-")
	app = press(t, app, "-")
	fv, _ = app.session.FoodModal()
	if fv.Foods[0].Quantity != 90 {
		t.Fatalf("expected 90 g, got %d", fv.Foods[0].Quantity)
	}
}

func TestPlanDeleteLastFood(t *testing.T) {
	srv, app := foodFixture(t)
	fv, _ := app.session.FoodModal()
	id := fv.Foods[0].ID

	app = press(t, app, "d")
	if srv.HasFood(id) {
		t.Fatal("food should be deleted on the server")
	}
	if _, ok := app.session.FoodModal(); ok {
		t.Fatal("food modal should close with its last food")
	}
	if app.plan.focus != focusMeals {
		t.Fatalf("focus should fall back to meals, got %d", app.plan.focus)
	}
}

func TestPlanNewFoodForm(t *testing.T) {
	_, app := foodFixture(t)

	model, _ := app.Update(keyMsg("n"))
	app = model.(App)
	if !app.isFormActive() || app.plan.formType != "new_food" {
		t.Fatal("n should open the new food form")
	}
	if !containsString(app.View(), "New Food") {
		t.Fatal("form title missing")
	}

	chicken := app.session.Context().Categories[1]
	*app.plan.formCategory = chicken.ID
	*app.plan.formQuantity = "250"
	plan, cmd := app.plan.submitForm()
	app.plan = plan
	app = drain(t, app, cmd)

	if app.isFormActive() {
		t.Fatal("form should close on submit")
	}
	fv, _ := app.session.FoodModal()
	if len(fv.Foods) != 2 {
		t.Fatalf("expected 2 foods, got %d", len(fv.Foods))
	}
	if fv.Foods[1].CategoryID != chicken.ID || fv.Foods[1].Quantity != 250 {
		t.Fatalf("unexpected food %+v", fv.Foods[1])
	}
}

func TestPlanRenameDayForm(t *testing.T) {
	srv := newTestServer(t)
	srv.AddDay(testAthlete, "Monday")
	app := newTestApp(t, srv)

	model, _ := app.Update(keyMsg("r"))
	app = model.(App)
	if app.plan.formType != "rename_day" || *app.plan.formName != "Monday" {
		t.Fatal("rename form should start from the current name")
	}

	*app.plan.formName = "Friday"
	plan, cmd := app.plan.submitForm()
	app.plan = plan
	app = drain(t, app, cmd)

	if day, _ := app.session.ActiveDay(); day.Name != "Friday" {
		t.Fatalf("expected Friday, got %q", day.Name)
	}
}

func TestPlanFormEscCancels(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	model, _ := app.Update(keyMsg("n"))
	app = model.(App)
	if !app.isFormActive() {
		t.Fatal("n should open the new day form")
	}
	model, _ = app.Update(keyMsg("esc"))
	app = model.(App)
	if app.isFormActive() {
		t.Fatal("esc should cancel the form")
	}
	if srv.DayCount(testAthlete) != 0 {
		t.Fatal("cancelled form should not create a day")
	}
}

func TestValidQuantity(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"1", true},
		{" 250 ", true},
		{"0", false},
		{"-5", false},
		{"1.5", false},
		{"", false},
		{"abc", false},
	}
	for _, tt := range tests {
		if err := validQuantity(tt.in); (err == nil) != tt.ok {
			t.Errorf("validQuantity(%q) = %v, want ok=%v", tt.in, err, tt.ok)
		}
	}
}

func TestNeighbourWraps(t *testing.T) {
	tabs := []session.Tab{
		{ID: 1, State: session.TabInactive},
		{ID: 2, State: session.TabActive},
		{ID: 3, State: session.TabInactive},
	}
	if id, _ := neighbour(tabs, 1); id != 3 {
		t.Fatalf("expected 3, got %d", id)
	}
	if id, _ := neighbour(tabs[:2], 1); id != 1 {
		t.Fatalf("expected wrap to 1, got %d", id)
	}
	if id, _ := neighbour(tabs, -1); id != 1 {
		t.Fatalf("expected 1, got %d", id)
	}
	if _, ok := neighbour(nil, 1); ok {
		t.Fatal("no tabs should give no neighbour")
	}
}

// ============================================================
// Report view
// ============================================================

func TestReportShowsDayTotals(t *testing.T) {
	_, app := foodFixture(t)

	app = press(t, app, "2")
	if app.reports.err != nil {
		t.Fatalf("report error: %v", app.reports.err)
	}
	if len(app.reports.days) != 1 {
		t.Fatalf("expected 1 day in the report, got %d", len(app.reports.days))
	}
	if app.reports.days[0].totals.Kcal != 360 {
		t.Fatalf("expected 360 kcal, got %v", app.reports.days[0].totals.Kcal)
	}
	out := app.View()
	for _, want := range []string{"Monday", "Total", "Protein"} {
		if !containsString(out, want) {
			t.Fatalf("report missing %q", want)
		}
	}

	app = press(t, app, "m")
	if app.reports.mode != reportKcal {
		t.Fatal("m should switch to kcal")
	}
}

func TestReportError(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)
	srv.FailNext("GET", "/api/athletes/7/days", 500, "boom")

	app = press(t, app, "2")
	if app.reports.err == nil {
		t.Fatal("expected report error")
	}
	if !containsString(app.View(), "Error loading report") {
		t.Fatal("report should show the error")
	}
}

func TestShortLabel(t *testing.T) {
	if got := shortLabel("Wednesday"); got != "Wed" {
		t.Fatalf("got %q", got)
	}
	if got := shortLabel("Tu"); got != "Tu" {
		t.Fatalf("got %q", got)
	}
}

// ============================================================
// Export
// ============================================================

func TestExportFromPicker(t *testing.T) {
	_, app := foodFixture(t)
	dir := t.TempDir()
	if err := app.store.SetSetting(store.KeyExportDir, dir); err != nil {
		t.Fatal(err)
	}
	app = press(t, app, "esc")
	app = press(t, app, "esc")

	app = press(t, app, "e")
	if !app.picker.active {
		t.Fatal("e should open the export picker")
	}
	if app.picker.cursor != 0 {
		t.Fatalf("picker should start on csv, got %d", app.picker.cursor)
	}
	app = press(t, app, "j")
	app = press(t, app, "enter")

	if app.picker.active {
		t.Fatal("picker should close")
	}
	if !containsString(app.status, "Exported to") {
		t.Fatalf("unexpected status %q", app.status)
	}

	recs, err := app.store.ListExports(testAthlete, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Format != "json" || recs[0].Foods != 1 {
		t.Fatalf("unexpected export records %+v", recs)
	}
	if _, err := os.Stat(recs[0].Path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
}

func TestExportPickerStartsOnPreferredFormat(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)
	if err := app.store.SetSetting(store.KeyExportFormat, "xlsx"); err != nil {
		t.Fatal(err)
	}

	app = press(t, app, "e")
	if app.picker.cursor != 2 {
		t.Fatalf("expected xlsx cursor, got %d", app.picker.cursor)
	}
	app = press(t, app, "esc")
	if app.picker.active {
		t.Fatal("esc should close the picker")
	}
}

func TestExportPickerCursorStaysInRange(t *testing.T) {
	var p exportPicker
	p.open("csv")
	if _, ok := p.update(keyMsg("k")); ok {
		t.Fatal("k should not choose a format")
	}
	if p.cursor != 0 {
		t.Fatalf("cursor should stay at 0, got %d", p.cursor)
	}
	for range export.Formats {
		p.update(keyMsg("j"))
	}
	if p.cursor != len(export.Formats)-1 {
		t.Fatalf("cursor should stop at the last format, got %d", p.cursor)
	}
	format, ok := p.update(keyMsg("enter"))
	if !ok || format != "xlsx" || p.active {
		t.Fatalf("enter should choose xlsx and close, got %q %v %v", format, ok, p.active)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsSaveAppliesDeletePolicy(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	m := app.settings
	*m.deletePolicy = "rollback"
	*m.exportFormat = "xlsx"
	*m.exportDir = "/tmp/plans"
	if err := m.saveSettings(); err != nil {
		t.Fatal(err)
	}

	if app.session.Policy() != session.DeleteRollback {
		t.Fatal("policy should apply to the running session")
	}
	v, err := app.store.GetSetting(store.KeyDeletePolicy)
	if err != nil || v != "rollback" {
		t.Fatalf("stored policy = %q, %v", v, err)
	}
	if m.preferredFormat() != "xlsx" {
		t.Fatal("preferred format not saved")
	}
}

func TestSettingsViewListsRecentAthletes(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	app = press(t, app, "3")
	if len(app.settings.athletes) != 1 {
		t.Fatalf("expected 1 recent athlete, got %d", len(app.settings.athletes))
	}
	out := app.View()
	if !containsString(out, "Recent athletes") || !containsString(out, "#7") {
		t.Fatal("settings should list the athlete")
	}
}

func TestFormatSettingValue(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{store.KeyAthleteID, "12", "#12 (change with --athlete)"},
		{store.KeyExportFormat, "xlsx", "Excel"},
		{store.KeyExportDir, "", "home directory"},
		{store.KeyExportDir, "/tmp", "/tmp"},
		{store.KeyDeletePolicy, "rollback", "rollback"},
		{"other", "", "-"},
	}
	for _, tt := range tests {
		if got := formatSettingValue(tt.key, tt.value); got != tt.want {
			t.Errorf("formatSettingValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

// ============================================================
// Helpers
// ============================================================

func TestRunRequestsEmpty(t *testing.T) {
	if cmd := runRequests(nil, time.Second, nil); cmd != nil {
		t.Fatal("no requests should give no command")
	}
}

func TestClamp(t *testing.T) {
	if clamp(5, 0, 3) != 3 || clamp(-1, 0, 3) != 0 || clamp(2, 0, 3) != 2 {
		t.Fatal("clamp out of range")
	}
}

var errSentinel = errors.New("sentinel")

func TestApplyIgnoresValidationError(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, srv)

	p, cmd := app.plan.apply(nil, errSentinel)
	if cmd != nil {
		t.Fatal("no requests should give no command")
	}
	if p.focus != focusDays {
		t.Fatal("focus should stay on days")
	}
}

// containsString checks if s contains substr, ignoring ANSI escape codes.
func containsString(s, substr string) bool {
	// ANSI codes don't break a raw substring match
	return len(s) > 0 && len(substr) > 0 && stringContains(s, substr)
}

func stringContains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

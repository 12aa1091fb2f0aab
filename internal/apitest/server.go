// Package apitest runs an in-memory calorie server that speaks the same REST
// surface as the real one. Tests use it to drive the client and the session
// state machine end to end.
package apitest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sadopc/caltrack/internal/api"
)

const (
	TokenHeader = "X-CSRF-TOKEN"
	TokenValue  = "test-token"
)

type failure struct {
	status  int
	message string
}

type Server struct {
	HTTP *httptest.Server

	mu         sync.Mutex
	athletes   map[int64]bool
	categories []api.FoodCategory
	days       map[int64]*api.Day
	meals      map[int64]*api.Meal
	foods      map[int64]*api.Food
	nextID     int64
	requests   []string
	failures   map[string]failure
	rawBodies  map[string]string
}

// New starts a server and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		athletes:  map[int64]bool{},
		days:      map[int64]*api.Day{},
		meals:     map[int64]*api.Meal{},
		foods:     map[int64]*api.Food{},
		failures:  map[string]failure{},
		rawBodies: map[string]string{},
	}
	s.HTTP = httptest.NewServer(s.routes())
	t.Cleanup(s.HTTP.Close)
	return s
}

// Client returns an API client already holding the server's token.
func (s *Server) Client() *api.Client {
	c := api.New(s.HTTP.URL, 5*time.Second, nil)
	c.Token = api.Token{Header: TokenHeader, Value: TokenValue}
	return c
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.checkToken)

	r.Get("/", s.handlePage)
	r.Get("/api/food-categories", s.handleCategories)

	r.Get("/api/athletes/{id}/days", s.handleListDays)
	r.Post("/api/days", s.handleCreateDay)
	r.Put("/api/days/{id}", s.handleRenameDay)
	r.Delete("/api/days/{id}", s.handleDeleteDay)
	r.Get("/api/days/{id}/nutrition", s.handleDayNutrition)
	r.Get("/api/days/{id}/meals", s.handleListMeals)

	r.Post("/api/meals", s.handleCreateMeal)
	r.Put("/api/meals/{id}", s.handleRenameMeal)
	r.Delete("/api/meals/{id}", s.handleDeleteMeal)
	r.Get("/api/meals/{id}/nutrition", s.handleMealNutrition)
	r.Get("/api/meals/{id}/foods", s.handleListFoods)

	r.Post("/api/foods", s.handleCreateFood)
	r.Put("/api/foods/{id}", s.handleUpdateFood)
	r.Delete("/api/foods/{id}", s.handleDeleteFood)
	return r
}

// --- Seeding ---

func (s *Server) AddAthlete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.athletes[id] = true
}

func (s *Server) AddCategory(name string, prot, carb, fat, kcal float64) api.FoodCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := api.FoodCategory{ID: s.nextID, Name: name, Protein: prot, Carb: carb, Fat: fat, Kcal: kcal}
	s.categories = append(s.categories, c)
	return c
}

func (s *Server) AddDay(athleteID int64, name string) api.Day {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.athletes[athleteID] = true
	return s.insertDay(athleteID, name)
}

func (s *Server) AddMeal(dayID int64, name string) api.Meal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertMeal(dayID, name)
}

func (s *Server) AddFood(mealID, categoryID int64, quantity int) api.Food {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	f := &api.Food{ID: s.nextID, MealID: mealID, CategoryID: categoryID, Quantity: quantity}
	s.foods[f.ID] = f
	return s.foodView(f)
}

// --- Inspection ---

// FailNext makes the next request matching method and exact path answer with
// {"error": message} and the given status.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// RespondRaw makes the next request matching method and path answer 200 with body verbatim.
func (s *Server) RespondRaw(method, path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawBodies[method+" "+path] = body
}

// Requests lists every request seen as "METHOD /path".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests matched method and exact path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) DayCount(athleteID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.days {
		if d.AthleteID == athleteID {
			n++
		}
	}
	return n
}

func (s *Server) HasFood(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.foods[id]
	return ok
}

// --- Middleware ---

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests = append(s.requests, key)
		f, failing := s.failures[key]
		delete(s.failures, key)
		raw, hasRaw := s.rawBodies[key]
		delete(s.rawBodies, key)
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]any{"error": f.message})
			return
		}
		if hasRaw {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(raw))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Header.Get(TokenHeader) != TokenValue {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "Invalid CSRF token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!doctype html><html><head>
<meta name="_csrf" content="%s">
<meta name="_csrf_header" content="%s">
</head><body><div id="dayTabsNav"></div></body></html>`, TokenValue, TokenHeader)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.categories)
}

// --- Days ---

func (s *Server) handleListDays(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.athletes[athleteID] {
		badRequest(w, "Athlete not found")
		return
	}
	days := []api.Day{}
	for _, d := range s.days {
		if d.AthleteID == athleteID {
			days = append(days, *d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].ID < days[j].ID })
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleCreateDay(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AthleteID *int64  `json:"athleteId"`
		DayName   *string `json:"dayName"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if payload.AthleteID == nil {
		badRequest(w, "athleteId is required")
		return
	}
	if payload.DayName == nil {
		badRequest(w, "dayName is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.athletes[*payload.AthleteID] {
		badRequest(w, "Athlete not found")
		return
	}
	for _, d := range s.days {
		if d.AthleteID == *payload.AthleteID && d.Name == *payload.DayName {
			badRequest(w, "Day already exists for this athlete")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.insertDay(*payload.AthleteID, *payload.DayName))
}

func (s *Server) handleRenameDay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		DayName string `json:"dayName"`
	}
	if !decode(w, r, &payload) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	day, found := s.days[id]
	if !found {
		badRequest(w, "Day not found")
		return
	}
	for _, d := range s.days {
		if d.ID != id && d.AthleteID == day.AthleteID && d.Name == payload.DayName {
			badRequest(w, "Day name already exists for this athlete")
			return
		}
	}
	day.Name = payload.DayName
	writeJSON(w, http.StatusOK, *day)
}

func (s *Server) handleDeleteDay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.days[id]; !found {
		badRequest(w, "Day not found")
		return
	}
	for mid, m := range s.meals {
		if m.DayID == id {
			s.deleteMeal(mid)
		}
	}
	delete(s.days, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDayNutrition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.days[id]; !found {
		badRequest(w, "Day not found")
		return
	}
	var foods []*api.Food
	for _, m := range s.meals {
		if m.DayID == id {
			foods = append(foods, s.foodsOf(m.ID)...)
		}
	}
	writeJSON(w, http.StatusOK, s.totals(foods))
}

// --- Meals ---

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	dayID, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.days[dayID]; !found {
		badRequest(w, "Day not found")
		return
	}
	meals := []api.Meal{}
	for _, m := range s.meals {
		if m.DayID == dayID {
			meals = append(meals, *m)
		}
	}
	sort.Slice(meals, func(i, j int) bool { return meals[i].ID < meals[j].ID })
	writeJSON(w, http.StatusOK, meals)
}

func (s *Server) handleCreateMeal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DayID    *int64  `json:"dayId"`
		MealName *string `json:"mealName"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if payload.DayID == nil {
		badRequest(w, "dayId is required")
		return
	}
	if payload.MealName == nil {
		badRequest(w, "mealName is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.days[*payload.DayID]; !found {
		badRequest(w, "Day not found")
		return
	}
	for _, m := range s.meals {
		if m.DayID == *payload.DayID && m.Name == *payload.MealName {
			badRequest(w, "Meal already exists for this day")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.insertMeal(*payload.DayID, *payload.MealName))
}

func (s *Server) handleRenameMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		MealName string `json:"mealName"`
	}
	if !decode(w, r, &payload) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	meal, found := s.meals[id]
	if !found {
		badRequest(w, "Meal not found")
		return
	}
	for _, m := range s.meals {
		if m.ID != id && m.DayID == meal.DayID && m.Name == payload.MealName {
			badRequest(w, "Meal name already exists for this day")
			return
		}
	}
	meal.Name = payload.MealName
	writeJSON(w, http.StatusOK, *meal)
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.meals[id]; !found {
		badRequest(w, "Meal not found")
		return
	}
	s.deleteMeal(id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMealNutrition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.meals[id]; !found {
		badRequest(w, "Meal not found")
		return
	}
	writeJSON(w, http.StatusOK, s.totals(s.foodsOf(id)))
}

// --- Foods ---

func (s *Server) handleListFoods(w http.ResponseWriter, r *http.Request) {
	mealID, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.meals[mealID]; !found {
		badRequest(w, "Meal not found")
		return
	}
	foods := []api.Food{}
	for _, f := range s.foodsOf(mealID) {
		foods = append(foods, s.foodView(f))
	}
	writeJSON(w, http.StatusOK, foods)
}

func (s *Server) handleCreateFood(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MealID     *int64 `json:"mealId"`
		CategoryID *int64 `json:"categoryId"`
		Quantity   *int   `json:"quantity"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if payload.MealID == nil {
		badRequest(w, "mealId is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.meals[*payload.MealID]; !found {
		badRequest(w, "Meal not found")
		return
	}
	qty := 1
	if payload.Quantity != nil {
		qty = *payload.Quantity
	}
	var catID int64
	switch {
	case payload.CategoryID != nil:
		if _, found := s.category(*payload.CategoryID); !found {
			badRequest(w, "Food category not found")
			return
		}
		catID = *payload.CategoryID
	case len(s.categories) > 0:
		catID = s.categories[0].ID
	default:
		badRequest(w, "No food categories available")
		return
	}
	s.nextID++
	f := &api.Food{ID: s.nextID, MealID: *payload.MealID, CategoryID: catID, Quantity: qty}
	s.foods[f.ID] = f
	writeJSON(w, http.StatusOK, s.foodView(f))
}

func (s *Server) handleUpdateFood(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload api.FoodUpdate
	if !decode(w, r, &payload) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, found := s.foods[id]
	if !found {
		badRequest(w, "Food not found")
		return
	}
	if payload.CategoryID != nil {
		if _, found := s.category(*payload.CategoryID); !found {
			badRequest(w, "Food category not found")
			return
		}
		f.CategoryID = *payload.CategoryID
	}
	if payload.Quantity != nil {
		f.Quantity = *payload.Quantity
	}
	writeJSON(w, http.StatusOK, s.foodView(f))
}

func (s *Server) handleDeleteFood(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.foods[id]; !found {
		badRequest(w, "Food not found")
		return
	}
	delete(s.foods, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- Internals (callers hold s.mu) ---

func (s *Server) insertDay(athleteID int64, name string) api.Day {
	s.nextID++
	d := &api.Day{ID: s.nextID, Name: name, AthleteID: athleteID, Date: time.Now().Format("2006-01-02")}
	s.days[d.ID] = d
	return *d
}

func (s *Server) insertMeal(dayID int64, name string) api.Meal {
	s.nextID++
	m := &api.Meal{ID: s.nextID, Name: name, DayID: dayID}
	s.meals[m.ID] = m
	return *m
}

func (s *Server) deleteMeal(id int64) {
	for fid, f := range s.foods {
		if f.MealID == id {
			delete(s.foods, fid)
		}
	}
	delete(s.meals, id)
}

func (s *Server) foodsOf(mealID int64) []*api.Food {
	var out []*api.Food
	for _, f := range s.foods {
		if f.MealID == mealID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) category(id int64) (api.FoodCategory, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return api.FoodCategory{}, false
}

func (s *Server) foodView(f *api.Food) api.Food {
	out := *f
	c, ok := s.category(f.CategoryID)
	if !ok {
		out.CategoryName = "Unknown Category"
		out.FoodNutrients = api.FoodNutrients{TotalGrams: float64(f.Quantity)}
		return out
	}
	q := float64(f.Quantity) / 100
	out.CategoryName = c.Name
	out.FoodNutrients = api.FoodNutrients{
		Protein:    round1(c.Protein * q),
		Carb:       round1(c.Carb * q),
		Fat:        round1(c.Fat * q),
		Kcal:       math.Round(c.Kcal * q),
		TotalGrams: float64(f.Quantity),
	}
	return out
}

func (s *Server) totals(foods []*api.Food) api.Totals {
	var t api.Totals
	for _, f := range foods {
		c, ok := s.category(f.CategoryID)
		if !ok {
			continue
		}
		q := float64(f.Quantity) / 100
		t.Protein += c.Protein * q
		t.Carbs += c.Carb * q
		t.Fat += c.Fat * q
		t.Kcal += c.Kcal * q
	}
	return api.Totals{Protein: round1(t.Protein), Carbs: round1(t.Carbs), Fat: round1(t.Fat), Kcal: math.Round(t.Kcal)}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, err.Error())
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package api

type Day struct {
	ID        int64  `json:"id"`
	Name      string `json:"dayName"`
	Date      string `json:"date,omitempty"`
	AthleteID int64  `json:"athleteId,omitempty"`
}

type Meal struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	DayID int64  `json:"dayId"`
}

// FoodNutrients are the server-computed values for one food line.
type FoodNutrients struct {
	Protein    float64 `json:"prot"`
	Carb       float64 `json:"carb"`
	Fat        float64 `json:"fat"`
	Kcal       float64 `json:"kcal"`
	TotalGrams float64 `json:"gTot"`
}

type Food struct {
	ID           int64  `json:"id"`
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Quantity     int    `json:"quantity"`
	MealID       int64  `json:"mealId"`
	FoodNutrients
}

// FoodCategory is read-only reference data; nutrient values are per 100 g.
type FoodCategory struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Protein float64 `json:"prot"`
	Carb    float64 `json:"carb"`
	Fat     float64 `json:"fat"`
	Kcal    float64 `json:"kcal"`
}

// Totals is the aggregate returned by the day and meal nutrition endpoints.
type Totals struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
	Kcal    float64 `json:"kcal"`
}

// FoodUpdate carries exactly one of CategoryID or Quantity.
type FoodUpdate struct {
	CategoryID *int64 `json:"categoryId,omitempty"`
	Quantity   *int   `json:"quantity,omitempty"`
}

// Token is the anti-forgery header pair attached to mutating requests.
type Token struct {
	Header string
	Value  string
}

type createDayRequest struct {
	AthleteID int64  `json:"athleteId"`
	DayName   string `json:"dayName"`
}

type renameDayRequest struct {
	DayName string `json:"dayName"`
}

type createMealRequest struct {
	DayID    int64  `json:"dayId"`
	MealName string `json:"mealName"`
}

type renameMealRequest struct {
	MealName string `json:"mealName"`
}

type createFoodRequest struct {
	MealID     int64 `json:"mealId"`
	CategoryID int64 `json:"categoryId"`
	Quantity   int   `json:"quantity"`
}

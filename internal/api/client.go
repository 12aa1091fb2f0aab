package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

const (
	DefaultTimeout = 15 * time.Second

	// DefaultTokenHeader is used when the page does not advertise a header name.
	DefaultTokenHeader = "_csrf"
)

// Client issues one best-effort request per call against the calorie server.
// There is no retry and no caching.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      Token
	Logger     *slog.Logger
}

// New returns a client with a cookie jar so the session cookie set while
// fetching the token page is sent on later API calls.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: timeout, Jar: jar},
		Logger:     logger,
	}
}

func (c *Client) ListDays(ctx context.Context, athleteID int64) ([]Day, error) {
	var days []Day
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/athletes/%d/days", athleteID), nil, &days)
	return days, err
}

func (c *Client) CreateDay(ctx context.Context, athleteID int64, name string) (Day, error) {
	var day Day
	err := c.do(ctx, http.MethodPost, "/api/days", createDayRequest{AthleteID: athleteID, DayName: name}, &day)
	return day, err
}

func (c *Client) RenameDay(ctx context.Context, id int64, name string) (Day, error) {
	var day Day
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/days/%d", id), renameDayRequest{DayName: name}, &day)
	return day, err
}

func (c *Client) DeleteDay(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/days/%d", id), nil, nil)
}

func (c *Client) DayNutrition(ctx context.Context, id int64) (Totals, error) {
	var t Totals
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/days/%d/nutrition", id), nil, &t)
	return t, err
}

func (c *Client) ListMeals(ctx context.Context, dayID int64) ([]Meal, error) {
	var meals []Meal
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/days/%d/meals", dayID), nil, &meals)
	return meals, err
}

func (c *Client) CreateMeal(ctx context.Context, dayID int64, name string) (Meal, error) {
	var meal Meal
	err := c.do(ctx, http.MethodPost, "/api/meals", createMealRequest{DayID: dayID, MealName: name}, &meal)
	return meal, err
}

func (c *Client) RenameMeal(ctx context.Context, id int64, name string) (Meal, error) {
	var meal Meal
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/meals/%d", id), renameMealRequest{MealName: name}, &meal)
	return meal, err
}

func (c *Client) DeleteMeal(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/meals/%d", id), nil, nil)
}

func (c *Client) MealNutrition(ctx context.Context, id int64) (Totals, error) {
	var t Totals
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/meals/%d/nutrition", id), nil, &t)
	return t, err
}

func (c *Client) ListFoods(ctx context.Context, mealID int64) ([]Food, error) {
	var foods []Food
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/meals/%d/foods", mealID), nil, &foods)
	return foods, err
}

func (c *Client) CreateFood(ctx context.Context, mealID, categoryID int64, quantity int) (Food, error) {
	var food Food
	req := createFoodRequest{MealID: mealID, CategoryID: categoryID, Quantity: quantity}
	err := c.do(ctx, http.MethodPost, "/api/foods", req, &food)
	return food, err
}

func (c *Client) UpdateFood(ctx context.Context, id int64, update FoodUpdate) (Food, error) {
	var food Food
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/foods/%d", id), update, &food)
	return food, err
}

func (c *Client) DeleteFood(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/foods/%d", id), nil, nil)
}

func (c *Client) ListFoodCategories(ctx context.Context) ([]FoodCategory, error) {
	var cats []FoodCategory
	err := c.do(ctx, http.MethodGet, "/api/food-categories", nil, &cats)
	return cats, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.Token.Value != "" {
		header := c.Token.Header
		if header == "" {
			header = DefaultTokenHeader
		}
		req.Header.Set(header, c.Token.Value)
	}

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger().Warn("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("execute %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	c.logger().Debug("request done", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if lerr := logicalError(resp.StatusCode, data); lerr != nil {
		c.logger().Warn("server rejected request", "method", method, "path", path, "status", resp.StatusCode, "error", lerr)
		return lerr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return &http.Client{Timeout: DefaultTimeout}
	}
	return c.HTTPClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pantrypilot/web/internal/domain/feedback"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/domain/user"
)

// Fake API credentials
const (
	FakeEmail    = "cook@example.com"
	FakePassword = "secret123"
	FakeToken    = "fake-access-token"
)

// Call is a request recorded by the fake API
type Call struct {
	Query  url.Values
	Header http.Header
	Body   []byte
}

type failure struct {
	status  int
	message string
}

// FakeAPI is an in-process stand-in for the recipe API. It keeps a small
// catalog in memory and records every call per route.
type FakeAPI struct {
	Server *httptest.Server

	mu         sync.Mutex
	recipes    []recipe.Recipe
	saved      map[string]bool
	feedback   map[string]feedback.Aggregate
	user       user.User
	healthy    bool
	cached     bool
	expired    bool
	accounts   map[string]user.User
	passwords  map[string]string
	failures   map[string]failure
	calls      map[string][]Call
	shareDelay time.Duration
}

// NewFakeAPI starts a fake API seeded with n recipes. The server is closed
// when the test finishes.
func NewFakeAPI(t testing.TB, n int) *FakeAPI {
	t.Helper()

	factory := NewRecipeFactory(42)
	f := &FakeAPI{
		recipes:   factory.Recipes(n),
		saved:     map[string]bool{},
		feedback:  map[string]feedback.Aggregate{},
		user:      user.User{ID: uuid.NewString(), Email: FakeEmail, Name: "Test Cook", CreatedAt: time.Now()},
		healthy:   true,
		accounts:  map[string]user.User{},
		passwords: map[string]string{FakeEmail: FakePassword},
		failures:  map[string]failure{},
		calls:     map[string][]Call{},
	}

	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API base URL
func (f *FakeAPI) URL() string {
	return f.Server.URL + "/api"
}

// Recipes returns a copy of the seeded catalog
func (f *FakeAPI) Recipes() []recipe.Recipe {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recipe.Recipe(nil), f.recipes...)
}

// User returns the account the fake API signs in
func (f *FakeAPI) User() user.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

// SetHealthy toggles the /health response between 200 and 503
func (f *FakeAPI) SetHealthy(healthy bool) {
	f.mu.Lock()
	f.healthy = healthy
	f.mu.Unlock()
}

// SetCached makes generate report a cache hit
func (f *FakeAPI) SetCached(cached bool) {
	f.mu.Lock()
	f.cached = cached
	f.mu.Unlock()
}

// SetExpired makes every authenticated route answer 401
func (f *FakeAPI) SetExpired(expired bool) {
	f.mu.Lock()
	f.expired = expired
	f.mu.Unlock()
}

// SetShareDelay slows down share link creation
func (f *FakeAPI) SetShareDelay(d time.Duration) {
	f.mu.Lock()
	f.shareDelay = d
	f.mu.Unlock()
}

// Fail makes route answer with status and message until cleared with status 0
func (f *FakeAPI) Fail(route string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, route)
		return
	}
	f.failures[route] = failure{status: status, message: message}
}

// SetFeedback seeds the aggregated feedback for a recipe
func (f *FakeAPI) SetFeedback(recipeID string, agg feedback.Aggregate) {
	f.mu.Lock()
	f.feedback[recipeID] = agg
	f.mu.Unlock()
}

// CallCount returns how often route was called. Routes are named
// "METHOD /pattern", e.g. "GET /recipes/search".
func (f *FakeAPI) CallCount(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[route])
}

// LastCall returns the most recent call to route
func (f *FakeAPI) LastCall(route string) (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls[route]
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// Calls returns every recorded call to route
func (f *FakeAPI) Calls(route string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls[route]...)
}

func (f *FakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)

	r.Get("/api/health", f.health)
	r.Post("/api/auth/login", f.login)
	r.Post("/api/auth/register", f.register)
	r.Get("/api/recipes/shared/{shareId}", f.shared)
	r.Get("/api/recipes/cuisines", f.cuisines)
	r.Get("/api/recipes/search", f.search)
	r.Get("/api/recipes", f.list)
	r.Get("/api/recipes/{id}", f.get)
	r.Get("/api/recipes/{id}/similar", f.similar)
	r.Get("/api/recipes/{id}/feedback", f.getFeedback)

	r.Group(func(r chi.Router) {
		r.Use(f.requireToken)
		r.Get("/api/auth/profile", f.profile)
		r.Patch("/api/auth/profile", f.updateProfile)
		r.Post("/api/recipes/generate", f.generate)
		r.Get("/api/recipes/alternatives", f.alternatives)
		r.Post("/api/recipes/save", f.save)
		r.Delete("/api/recipes/saved/{id}", f.unsave)
		r.Get("/api/recipes/saved", f.savedList)
		r.Post("/api/recipes/{id}/feedback", f.submitFeedback)
		r.Get("/api/recipes/{id}/share", f.share)
	})
	return r
}

// record stores the call under its route name and applies configured
// failures.
func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		route := r.Method + " " + strings.TrimPrefix(routePattern(r), "/api")
		f.mu.Lock()
		f.calls[route] = append(f.calls[route], Call{Query: r.URL.Query(), Header: r.Header.Clone(), Body: body})
		fail, failing := f.failures[route]
		f.mu.Unlock()

		if failing {
			writeJSON(w, fail.status, map[string]any{"statusCode": fail.status, "message": fail.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routePattern resolves the pattern before the router has dispatched
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return r.URL.Path
	}
	tctx := chi.NewRouteContext()
	if rctx.Routes.Match(tctx, r.Method, r.URL.Path) {
		return tctx.RoutePattern()
	}
	return r.URL.Path
}

func (f *FakeAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		expired := f.expired
		f.mu.Unlock()

		if expired || r.Header.Get("Authorization") != "Bearer "+FakeToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) health(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	healthy := f.healthy
	f.mu.Unlock()

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var req user.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}

	f.mu.Lock()
	password, known := f.passwords[req.Email]
	u, registered := f.accounts[req.Email]
	if !registered {
		u = f.user
	}
	f.mu.Unlock()

	if !known || req.Password != password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, user.LoginResponse{AccessToken: FakeToken, User: u})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	f.mu.Lock()
	_, taken := f.passwords[req.Email]
	f.mu.Unlock()
	if taken {
		writeJSON(w, http.StatusConflict, map[string]any{"statusCode": 409, "message": "Email already registered"})
		return
	}
	if len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"statusCode": 400, "message": []string{"password must be longer than or equal to 6 characters"}})
		return
	}
	u := user.User{ID: uuid.NewString(), Email: req.Email, Name: req.Name, CreatedAt: time.Now()}
	f.mu.Lock()
	f.accounts[req.Email] = u
	f.passwords[req.Email] = req.Password
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, u)
}

func (f *FakeAPI) profile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.User())
}

func (f *FakeAPI) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	if req.NewPassword != "" && req.CurrentPassword != FakePassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"statusCode": 400, "message": "Current password is incorrect"})
		return
	}

	f.mu.Lock()
	if req.Name != "" {
		f.user.Name = req.Name
	}
	u := f.user
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (f *FakeAPI) generate(w http.ResponseWriter, r *http.Request) {
	var req recipe.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Ingredients) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"statusCode": 400, "message": "ingredients should not be empty"})
		return
	}

	f.mu.Lock()
	cached := f.cached
	recipes := append([]recipe.Recipe(nil), f.recipes[:min(3, len(f.recipes))]...)
	f.mu.Unlock()

	for i := range recipes {
		recipes[i].Ingredients = append(append([]string(nil), req.Ingredients...), recipes[i].Ingredients...)
	}
	writeJSON(w, http.StatusCreated, recipe.GenerateResponse{
		Recipes:     recipes,
		Cached:      cached,
		GeneratedAt: time.Now().UTC(),
		Fingerprint: "fp-" + strings.Join(req.Ingredients, "-"),
	})
}

func (f *FakeAPI) cuisines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Cuisines)
}

func (f *FakeAPI) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	maxTime, _ := strconv.Atoi(q.Get("maxTime"))

	var matched []recipe.Recipe
	for _, rec := range f.Recipes() {
		if term := q.Get("q"); term != "" && !strings.Contains(strings.ToLower(rec.Title), strings.ToLower(term)) {
			continue
		}
		if d := q.Get("difficulty"); d != "" && string(rec.Difficulty) != d {
			continue
		}
		if c := q.Get("cuisine"); c != "" && rec.Cuisine != c {
			continue
		}
		if maxTime > 0 && rec.EstimatedTime > maxTime {
			continue
		}
		matched = append(matched, rec)
	}

	if q.Get("sortBy") == string(recipe.SortEstimatedTime) {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].EstimatedTime < matched[j].EstimatedTime })
	}

	page := []recipe.Recipe{}
	if offset < len(matched) {
		page = matched[offset:min(offset+limit, len(matched))]
	}
	writeJSON(w, http.StatusOK, recipe.SearchResponse{Data: page, Total: len(matched), Limit: limit, Offset: offset})
}

func (f *FakeAPI) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.Recipes())
}

func (f *FakeAPI) find(id string) (recipe.Recipe, bool) {
	for _, rec := range f.Recipes() {
		if rec.ID == id {
			return rec, true
		}
	}
	return recipe.Recipe{}, false
}

func (f *FakeAPI) get(w http.ResponseWriter, r *http.Request) {
	rec, ok := f.find(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"statusCode": 404, "message": "Recipe not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (f *FakeAPI) similar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out := []recipe.Recipe{}
	for _, rec := range f.Recipes() {
		if rec.ID != id && len(out) < 3 {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) alternatives(w http.ResponseWriter, _ *http.Request) {
	all := f.Recipes()
	groups := []recipe.AlternativesGroup{
		{Recipes: all[:min(2, len(all))], MatchScore: 0.8},
	}
	writeJSON(w, http.StatusOK, groups)
}

func (f *FakeAPI) save(w http.ResponseWriter, r *http.Request) {
	var req recipe.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecipeID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "recipeId is required"})
		return
	}
	f.mu.Lock()
	f.saved[req.RecipeID] = true
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "saved"})
}

func (f *FakeAPI) unsave(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delete(f.saved, chi.URLParam(r, "id"))
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

func (f *FakeAPI) savedList(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	saved := make(map[string]bool, len(f.saved))
	for id := range f.saved {
		saved[id] = true
	}
	f.mu.Unlock()

	out := []recipe.Recipe{}
	for _, rec := range f.Recipes() {
		if saved[rec.ID] {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) getFeedback(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	agg, ok := f.feedback[chi.URLParam(r, "id")]
	f.mu.Unlock()
	if !ok {
		agg = feedback.Aggregate{RatingDistribution: map[int]int{}, RecentComments: []feedback.Feedback{}}
	}
	writeJSON(w, http.StatusOK, agg)
}

func (f *FakeAPI) submitFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req feedback.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}

	f.mu.Lock()
	agg := f.feedback[id]
	if agg.RatingDistribution == nil {
		agg.RatingDistribution = map[int]int{}
	}
	if req.Rating != nil {
		total := agg.AverageRating*float64(agg.TotalRatings) + float64(*req.Rating)
		agg.TotalRatings++
		agg.AverageRating = total / float64(agg.TotalRatings)
		agg.RatingDistribution[*req.Rating]++
	}
	fb := feedback.Feedback{ID: uuid.NewString(), RecipeID: id, Type: req.Type, Rating: req.Rating, Comment: req.Comment, CreatedAt: time.Now()}
	if req.Comment != "" {
		agg.RecentComments = append([]feedback.Feedback{fb}, agg.RecentComments...)
	}
	f.feedback[id] = agg
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, fb)
}

func (f *FakeAPI) share(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delay := f.shareDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	id := chi.URLParam(r, "id")
	shareID := "s-" + id
	writeJSON(w, http.StatusOK, recipe.ShareLink{
		ShareID:    shareID,
		ShareURL:   fmt.Sprintf("%s/r/%s", f.Server.URL, shareID),
		OGImageURL: fmt.Sprintf("%s/api/og/%s.png", f.Server.URL, shareID),
		CreatedAt:  time.Now().UTC(),
	})
}

func (f *FakeAPI) shared(w http.ResponseWriter, r *http.Request) {
	rec, ok := f.find(strings.TrimPrefix(chi.URLParam(r, "shareId"), "s-"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"statusCode": 404, "message": "Shared recipe not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

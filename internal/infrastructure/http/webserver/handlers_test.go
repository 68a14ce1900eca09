package webserver

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrypilot/web/internal/infrastructure/security"
	"github.com/pantrypilot/web/test/testutils"
)

func isCard(e testutils.Element) bool {
	class, _ := e.Attr("class")
	return class == "recipe-card"
}

func revealTriggers(doc *testutils.Document) []testutils.Element {
	return doc.FindAll(testutils.ByAttr("hx-trigger", "revealed"))
}

func TestSearch_InfiniteScrollLoadsEveryPageOnce(t *testing.T) {
	env := newTestEnv(t, 30)

	resp, body := env.get("/search")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutils.ParseHTML(t, body)

	cards := doc.FindAll(isCard)
	require.Len(t, cards, 12)
	triggers := revealTriggers(doc)
	require.Len(t, triggers, 1, "only the last card loads the next page")
	lastID, _ := cards[len(cards)-1].Attr("id")
	triggerID, _ := triggers[0].Attr("id")
	assert.Equal(t, lastID, triggerID)

	next, _ := triggers[0].Attr("hx-get")
	assert.Contains(t, next, "offset=12")
	swap, _ := triggers[0].Attr("hx-swap")
	assert.Equal(t, "afterend", swap)

	seen := map[string]bool{}
	for _, c := range cards {
		id, _ := c.Attr("id")
		seen[id] = true
	}

	for _, want := range []int{12, 6} {
		resp, body = env.htmx(http.MethodGet, next, "/search", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		doc = testutils.ParseHTML(t, body)

		cards = doc.FindAll(isCard)
		require.Len(t, cards, want)
		for _, c := range cards {
			id, _ := c.Attr("id")
			assert.False(t, seen[id], "card %s rendered twice", id)
			seen[id] = true
		}

		triggers = revealTriggers(doc)
		if want == 6 {
			assert.Empty(t, triggers, "no trigger after the last page")
			break
		}
		require.Len(t, triggers, 1)
		next, _ = triggers[0].Attr("hx-get")
		assert.Contains(t, next, "offset=24")
	}
	assert.Len(t, seen, 30)
}

func TestSearch_EmptyStateOffersClearFilters(t *testing.T) {
	env := newTestEnv(t, 5)

	resp, body := env.htmx(http.MethodGet, "/htmx/search?q=zzzz-nothing&difficulty=hard", "/search", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	push := resp.Header.Get("HX-Push-Url")
	assert.True(t, strings.HasPrefix(push, "/search?"), push)
	assert.Contains(t, push, "difficulty=hard")

	doc := testutils.ParseHTML(t, body)
	assert.Zero(t, doc.Count(isCard))
	assert.Contains(t, body, "No recipes found")

	clear := doc.First(testutils.ByAttr("class", "button"))
	href, _ := clear.Attr("href")
	assert.NotContains(t, href, "difficulty=hard")
	assert.Contains(t, href, "difficulty=any")
	assert.Contains(t, href, "q=zzzz-nothing")
}

func TestCookbook_ToggleTwiceRestoresState(t *testing.T) {
	env := newTestEnv(t, 4)
	env.login()
	id := env.api.Recipes()[1].ID

	resp, body := env.htmx(http.MethodPost, "/htmx/cookbook/"+id+"/toggle", "/search", url.Values{"saved": {"false"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cookbook-changed", resp.Header.Get("HX-Trigger"))
	doc := testutils.ParseHTML(t, body)
	saved, _ := doc.First(testutils.ByAttr("data-saved", "")).Attr("data-saved")
	assert.Equal(t, "true", saved)
	assert.Contains(t, body, "Added to Cookbook")
	assert.Equal(t, 1, env.api.CallCount("POST /recipes/save"))

	_, body = env.htmx(http.MethodGet, "/htmx/cookbook", "/search", nil)
	assert.Equal(t, 1, testutils.ParseHTML(t, body).Count(isCard))

	resp, body = env.htmx(http.MethodPost, "/htmx/cookbook/"+id+"/toggle", "/search", url.Values{"saved": {"true"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = testutils.ParseHTML(t, body)
	saved, _ = doc.First(testutils.ByAttr("data-saved", "")).Attr("data-saved")
	assert.Equal(t, "false", saved)
	assert.Equal(t, 1, env.api.CallCount("DELETE /recipes/saved/{id}"))

	_, body = env.htmx(http.MethodGet, "/htmx/cookbook", "/search", nil)
	assert.Zero(t, testutils.ParseHTML(t, body).Count(isCard))
	assert.Equal(t, 2, env.api.CallCount("GET /recipes/saved"), "list refetched after each toggle")
}

func TestGenerate_RequiresAnIngredient(t *testing.T) {
	env := newTestEnv(t, 4)
	env.login()

	_, body := env.get("/")
	submit := testutils.ParseHTML(t, body).First(testutils.ByAttr("id", "generate-submit"))
	_, disabled := submit.Attr("disabled")
	assert.True(t, disabled)

	resp, body := env.htmx(http.MethodPost, "/htmx/generate", "/", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Add an ingredient")
	assert.Zero(t, env.api.CallCount("POST /recipes/generate"))

	resp, body = env.htmx(http.MethodPost, "/htmx/generate/tags", "/", url.Values{"field": {"ingredients"}, "tag": {"chicken"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	submit = testutils.ParseHTML(t, body).First(testutils.ByAttr("id", "generate-submit"))
	_, disabled = submit.Attr("disabled")
	assert.False(t, disabled)

	resp, body = env.htmx(http.MethodPost, "/htmx/generate", "/", url.Values{"maxTime": {"45"}, "difficulty": {"any"}, "cuisine": {"any"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotZero(t, testutils.ParseHTML(t, body).Count(isCard))
	assert.Equal(t, 1, env.api.CallCount("POST /recipes/generate"))

	call, ok := env.api.LastCall("POST /recipes/generate")
	require.True(t, ok)
	assert.Contains(t, string(call.Body), `"chicken"`)
	assert.Contains(t, string(call.Body), `"maxTime":45`)
}

func TestGenerate_RejectsMarkupTags(t *testing.T) {
	env := newTestEnv(t, 2)
	env.login()

	_, body := env.htmx(http.MethodPost, "/htmx/generate/tags", "/", url.Values{"field": {"allergies"}, "tag": {"<b>nuts</b>"}})
	assert.Contains(t, body, "Invalid entry")
	assert.Zero(t, testutils.ParseHTML(t, body).Count(testutils.ByAttr("class", "tag")))

	_, body = env.htmx(http.MethodPost, "/htmx/generate/tags", "/", url.Values{"field": {"allergies"}, "tag": {"peanuts"}})
	assert.Equal(t, 1, testutils.ParseHTML(t, body).Count(testutils.ByAttr("class", "tag")))

	_, body = env.htmx(http.MethodDelete, "/htmx/generate/tags?field=allergies&tag=peanuts", "/", nil)
	assert.Zero(t, testutils.ParseHTML(t, body).Count(testutils.ByAttr("class", "tag")))
}

func TestShare_OneRequestPerDialogOpen(t *testing.T) {
	env := newTestEnv(t, 3)
	env.login()
	env.api.SetShareDelay(50 * time.Millisecond)
	id := env.api.Recipes()[0].ID

	openDialog := func() string {
		resp, body := env.htmx(http.MethodGet, "/htmx/recipes/"+id+"/share", "/recipes/"+id, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		shell := testutils.ParseHTML(t, body).First(testutils.ByAttr("hx-trigger", "load"))
		src, _ := shell.Attr("hx-get")
		require.True(t, strings.HasPrefix(src, "/htmx/recipes/"+id+"/share/"))
		return src
	}

	src := openDialog()

	token := env.token()
	var wg sync.WaitGroup
	bodies := make([]string, 5)
	errs := make([]error, 5)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, env.server.URL+src, nil)
			if err != nil {
				errs[i] = err
				return
			}
			req.Header.Set("HX-Request", "true")
			req.Header.Set("HX-Current-URL", env.server.URL+"/recipes/"+id)
			req.Header.Set(security.CSRFHeader, token)
			resp, err := env.client.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			raw, err := io.ReadAll(resp.Body)
			bodies[i], errs[i] = string(raw), err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	for _, body := range bodies {
		input := testutils.ParseHTML(t, body).First(testutils.ByAttr("readonly", ""))
		v, _ := input.Attr("value")
		assert.True(t, strings.HasSuffix(v, "/r/s-"+id), v)
	}
	assert.Equal(t, 1, env.api.CallCount("GET /recipes/{id}/share"))

	other := openDialog()
	assert.NotEqual(t, src, other)
	env.htmx(http.MethodGet, other, "/recipes/"+id, nil)
	assert.Equal(t, 2, env.api.CallCount("GET /recipes/{id}/share"))

	_, body := env.htmx(http.MethodPost, "/htmx/share/copied", "/recipes/"+id, url.Values{})
	assert.Contains(t, body, "Link copied to clipboard!")
}

func TestShare_FailureShowsMessage(t *testing.T) {
	env := newTestEnv(t, 2)
	env.login()
	env.api.Fail("GET /recipes/{id}/share", http.StatusInternalServerError, "share service down")
	id := env.api.Recipes()[0].ID

	_, shell := env.htmx(http.MethodGet, "/htmx/recipes/"+id+"/share", "/recipes/"+id, nil)
	src, _ := testutils.ParseHTML(t, shell).First(testutils.ByAttr("hx-trigger", "load")).Attr("hx-get")

	resp, body := env.htmx(http.MethodGet, src, "/recipes/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutils.ParseHTML(t, body)
	assert.NotEmpty(t, doc.First(testutils.ByAttr("role", "alert")).Text())
	assert.Zero(t, doc.Count(testutils.ByAttr("data-copy", "")))
}

func TestShare_OpenIDIsBoundToRecipe(t *testing.T) {
	env := newTestEnv(t, 3)
	env.login()
	a, b := env.api.Recipes()[0].ID, env.api.Recipes()[1].ID

	_, shell := env.htmx(http.MethodGet, "/htmx/recipes/"+a+"/share", "/recipes/"+a, nil)
	src, _ := testutils.ParseHTML(t, shell).First(testutils.ByAttr("hx-trigger", "load")).Attr("hx-get")
	openID := strings.TrimPrefix(src, "/htmx/recipes/"+a+"/share/")
	require.NotEmpty(t, openID)

	resp, body := env.htmx(http.MethodGet, src, "/recipes/"+a, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/r/s-"+a)

	resp, body = env.htmx(http.MethodGet, "/htmx/recipes/"+b+"/share/"+openID, "/recipes/"+b, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, body, "/r/s-")

	resp, _ = env.htmx(http.MethodGet, "/htmx/recipes/"+a+"/share/made-up-id", "/recipes/"+a, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, env.api.CallCount("GET /recipes/{id}/share"))
}

func TestRecipePage(t *testing.T) {
	env := newTestEnv(t, 4)
	rc := env.api.Recipes()[0]

	resp, body := env.get("/recipes/" + rc.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, rc.Title)
	doc := testutils.ParseHTML(t, body)
	assert.Equal(t, 1, doc.Count(testutils.ByAttr("id", "feedback-summary")))
	assert.Equal(t, 3, doc.Count(isCard), "similar recipes")

	resp, _ = env.get("/recipes/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.get("/r/s-" + rc.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, rc.Title)

	resp, _ = env.get("/r/s-missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedback_SubmitRefreshesSummary(t *testing.T) {
	env := newTestEnv(t, 2)
	env.login()
	id := env.api.Recipes()[0].ID
	page := "/recipes/" + id

	env.get(page)
	require.Equal(t, 1, env.api.CallCount("GET /recipes/{id}/feedback"))

	resp, body := env.htmx(http.MethodPost, "/htmx/recipes/"+id+"/feedback", page, url.Values{"comment": {"tasty"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Please select a rating")
	assert.Zero(t, env.api.CallCount("POST /recipes/{id}/feedback"))

	resp, body = env.htmx(http.MethodPost, "/htmx/recipes/"+id+"/feedback", page, url.Values{"rating": {"4"}, "comment": {"tasty"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Thank you for rating this recipe!")
	assert.Equal(t, 1, env.api.CallCount("POST /recipes/{id}/feedback"))
	assert.Equal(t, 2, env.api.CallCount("GET /recipes/{id}/feedback"), "cached aggregate dropped")

	doc := testutils.ParseHTML(t, body)
	summary := doc.First(testutils.ByAttr("id", "feedback-summary"))
	oob, _ := summary.Attr("hx-swap-oob")
	assert.Equal(t, "true", oob)
	assert.Contains(t, summary.Text(), "4.0")
	assert.Contains(t, summary.Text(), "tasty")
}

func TestProfile_UpdateName(t *testing.T) {
	env := newTestEnv(t, 2)
	env.login()

	resp, body := env.get("/profile")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	form := testutils.ParseHTML(t, body).First(testutils.ByAttr("id", "profile-name"))
	action, _ := form.Attr("hx-post")
	assert.Equal(t, "/profile/name", action)

	resp, body = env.htmx(http.MethodPost, "/profile/name", "/profile", url.Values{"name": {"Chef Renamed"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	input := testutils.ParseHTML(t, body).First(testutils.ByAttr("name", "name"))
	v, _ := input.Attr("value")
	assert.Equal(t, "Chef Renamed", v)
	assert.Equal(t, "Chef Renamed", env.api.User().Name)

	_, body = env.htmx(http.MethodPost, "/profile/password", "/profile", url.Values{
		"currentPassword": {testutils.FakePassword},
		"newPassword":     {"abc"},
		"confirmPassword": {"abc"},
	})
	assert.Equal(t, 1, env.api.CallCount("PATCH /auth/profile"), "short password never reaches the API")
	assert.Equal(t, 1, testutils.ParseHTML(t, body).Count(testutils.ByAttr("id", "profile-password")))
}

func TestStatus_BadgePolls(t *testing.T) {
	env := newTestEnv(t, 1)

	resp, body := env.htmx(http.MethodGet, "/htmx/status", "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	badge := testutils.ParseHTML(t, body).First(testutils.ByAttr("id", "status-badge"))
	trigger, _ := badge.Attr("hx-trigger")
	assert.Equal(t, "every 30s", trigger)
	assert.Contains(t, badge.Text(), "Connecting")
}

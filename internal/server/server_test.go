package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopagg/internal/config"
	"shopagg/internal/session"
	"shopagg/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv *Server
	app *fiber.App
	cat *testutil.Catalog
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.NewSQLiteDB(t)
	cat := testutil.NewCatalog(t, db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:        "test_secret_test_secret_test_secret",
		HomeCityID:       cat.Capital.ID,
		PageSize:         20,
		CategoryPageSize: 20,
		SessionTTLHours:  1,
		FeatureFlags:     flags,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.App(), cat: cat, mr: mr}
}

// browser keeps the session cookie and bearer token between requests.
type browser struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
	token  string
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, env: e}
}

func (b *browser) do(method, path string, body any, headers ...string) (*http.Response, []byte) {
	b.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.env.app.Test(req, -1)
	require.NoError(b.t, err)
	defer func() { _ = resp.Body.Close() }()

	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			b.cookie = c
		}
	}
	out, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, out
}

func (b *browser) likedIDs() []uint {
	b.t.Helper()
	resp, body := b.do(http.MethodGet, "/api/likes", nil)
	require.Equal(b.t, http.StatusOK, resp.StatusCode, string(body))
	var cards []struct {
		ID      uint `json:"id"`
		IsLiked bool `json:"is_liked"`
	}
	require.NoError(b.t, json.Unmarshal(body, &cards))
	ids := make([]uint, 0, len(cards))
	for _, c := range cards {
		assert.True(b.t, c.IsLiked)
		ids = append(ids, c.ID)
	}
	return ids
}

func (b *browser) signup(username string) map[string]any {
	b.t.Helper()
	resp, body := b.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@shoppers.test",
		"password": "Correct-Horse-42",
	})
	require.Equal(b.t, http.StatusCreated, resp.StatusCode, string(body))
	var out map[string]any
	require.NoError(b.t, json.Unmarshal(body, &out))
	b.token = out["token"].(string)
	return out
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	b := env.browser(t)

	resp, _ := b.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := b.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &ready))
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["redis"])

	env.mr.Close()
	resp, body = b.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &ready))
	assert.Equal(t, "degraded", ready.Status)
}

func TestAnonymousLikesAreIsolatedPerSession(t *testing.T) {
	env := newTestEnv(t, "")
	p := env.cat.NewProduct(t, "Honey")
	q := env.cat.NewProduct(t, "Candles")

	alice, bob := env.browser(t), env.browser(t)

	resp, body := alice.do(http.MethodPost, fmt.Sprintf("/api/products/%d/like", p.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"status":"liked"}`, string(body))
	require.NotNil(t, alice.cookie)

	resp, _ = bob.do(http.MethodPost, fmt.Sprintf("/api/products/%d/like", q.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []uint{p.ID}, alice.likedIDs())
	assert.Equal(t, []uint{q.ID}, bob.likedIDs())

	_, body = alice.do(http.MethodPost, fmt.Sprintf("/api/products/%d/like", p.ID), nil)
	assert.JSONEq(t, `{"status":"unliked"}`, string(body))
	assert.Empty(t, alice.likedIDs())
}

func TestToggleLike_UnknownProduct(t *testing.T) {
	env := newTestEnv(t, "")
	b := env.browser(t)

	for _, path := range []string{"/api/products/999/like", "/api/products/abc/like"} {
		resp, _ := b.do(http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestListProducts_FullAndPartial(t *testing.T) {
	env := newTestEnv(t, "")
	for i := range 25 {
		env.cat.NewProduct(t, fmt.Sprintf("Item %02d", i))
	}
	b := env.browser(t)

	resp, body := b.do(http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var full map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &full))
	assert.Contains(t, full, "total")
	assert.Contains(t, full, "city")
	assert.JSONEq(t, "25", string(full["total"]))

	resp, body = b.do(http.MethodGet, "/api/products?page=2", nil, "X-Requested-With", "XMLHttpRequest")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var partial map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &partial))
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"items", "has_next", "next_page"}, keys)
	assert.JSONEq(t, "false", string(partial["has_next"]))

	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(partial["items"], &items))
	assert.Len(t, items, 5)
}

func TestCategoryAndCityEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	env.cat.NewProduct(t, "Beans")
	b := env.browser(t)

	resp, _ := b.do(http.MethodGet, "/api/categories/unknown/products", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := b.do(http.MethodGet, "/api/categories/coffee/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"slug":"coffee"`)

	resp, _ = b.do(http.MethodPost, "/api/cities/0/select", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = b.do(http.MethodPost, "/api/cities/404/select", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = b.do(http.MethodPost, fmt.Sprintf("/api/cities/%d/select", env.cat.Other.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = b.do(http.MethodGet, "/api/cities", nil)
	var cities struct {
		Current struct {
			ID uint `json:"id"`
		} `json:"current"`
	}
	require.NoError(t, json.Unmarshal(body, &cities))
	assert.Equal(t, env.cat.Other.ID, cities.Current.ID)

	_, body = b.do(http.MethodGet, "/api/categories", nil)
	var counts []struct {
		Slug         string `json:"slug"`
		ProductCount int64  `json:"product_count"`
	}
	require.NoError(t, json.Unmarshal(body, &counts))
	require.Len(t, counts, 1)
	assert.Zero(t, counts[0].ProductCount, "the beans do not reach the selected city")
}

func TestSignupMergesSessionLikes(t *testing.T) {
	env := newTestEnv(t, "")
	p := env.cat.NewProduct(t, "Honey")
	b := env.browser(t)

	b.do(http.MethodPost, fmt.Sprintf("/api/products/%d/like", p.ID), nil)
	anonymous := b.cookie.Value

	out := b.signup("shopper")
	assert.EqualValues(t, 1, out["merged_likes"])
	require.NotNil(t, b.cookie)
	assert.NotEqual(t, anonymous, b.cookie.Value, "login rotates the session")

	assert.Equal(t, []uint{p.ID}, b.likedIDs())

	b.token = ""
	assert.Empty(t, b.likedIDs(), "the session no longer holds the merged likes")
}

func TestLoginMergesSessionLikes(t *testing.T) {
	env := newTestEnv(t, "")
	p := env.cat.NewProduct(t, "Honey")
	q := env.cat.NewProduct(t, "Candles")

	first := env.browser(t)
	first.signup("returning")
	first.do(http.MethodPost, fmt.Sprintf("/api/products/%d/like", p.ID), nil)

	second := env.browser(t)
	second.do(http.MethodPost, fmt.Sprintf("/api/products/%d/like", p.ID), nil)
	second.do(http.MethodPost, fmt.Sprintf("/api/products/%d/like", q.ID), nil)

	resp, body := second.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "returning@shoppers.test",
		"password": "Correct-Horse-42",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.EqualValues(t, 1, out["merged_likes"])
	second.token = out["token"].(string)

	assert.ElementsMatch(t, []uint{p.ID, q.ID}, second.likedIDs())

	resp, _ = second.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "returning@shoppers.test",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, "seller_features=on")
	b := env.browser(t)
	b.signup("leaver")

	resp, _ := b.do(http.MethodGet, "/api/seller/products", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "authenticated but not a seller")

	resp, _ = b.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var revoked []string
	for _, k := range env.mr.Keys() {
		if strings.HasPrefix(k, "blacklist:") {
			revoked = append(revoked, k)
		}
	}
	require.Len(t, revoked, 1)
	assert.Positive(t, env.mr.TTL(revoked[0]))

	resp, _ = b.do(http.MethodGet, "/api/seller/products", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSellerRoutesRequireFeatureFlag(t *testing.T) {
	env := newTestEnv(t, "")
	b := env.browser(t)

	resp, _ := b.do(http.MethodGet, "/api/seller/products", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := env.srv.generateToken(env.cat.User.ID, env.cat.User.Username)
	require.NoError(t, err)
	b.token = token
	resp, _ = b.do(http.MethodGet, "/api/seller/products", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSellerProductLifecycle(t *testing.T) {
	env := newTestEnv(t, "seller_features=on")
	b := env.browser(t)
	token, err := env.srv.generateToken(env.cat.User.ID, env.cat.User.Username)
	require.NoError(t, err)
	b.token = token

	payload := map[string]any{
		"name":              "Café de Marcala",
		"description":       "Single origin",
		"link":              "https://main.example.com/p/marcala",
		"price":             "12.50",
		"stock_quantity":    3,
		"category_id":       env.cat.Category.ID,
		"origin_city_id":    env.cat.Capital.ID,
		"delivery_city_ids": []uint{env.cat.Other.ID},
	}
	resp, body := b.do(http.MethodPost, "/api/seller/products", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created struct {
		ID    uint   `json:"id"`
		Slug  string `json:"slug"`
		Price string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "cafe-de-marcala", created.Slug)
	assert.Equal(t, "12.5", created.Price)

	resp, _ = b.do(http.MethodPost, "/api/seller/products", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "link already listed")

	payload["price"] = "free"
	resp, _ = b.do(http.MethodPost, "/api/seller/products", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload["price"] = "14.00"
	payload["name"] = "Café de Marcala 500g"
	resp, body = b.do(http.MethodPut, "/api/seller/products/"+created.Slug, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	_, body = b.do(http.MethodGet, "/api/seller/products", nil)
	var mine []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(body, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Café de Marcala 500g", mine[0].Name)

	resp, _ = b.do(http.MethodGet, "/api/products/"+created.Slug, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = b.do(http.MethodDelete, "/api/seller/products/"+created.Slug, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = b.do(http.MethodGet, "/api/products/"+created.Slug, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Likes(t *testing.T) {
	s := New()
	assert.False(t, s.Dirty())

	s.AddLike(5)
	s.AddLike(3)
	s.AddLike(5)
	assert.Equal(t, []uint{5, 3}, s.LikedProductIDs())
	assert.True(t, s.HasLike(3))
	assert.True(t, s.Dirty())

	ids := s.LikedProductIDs()
	ids[0] = 99
	assert.True(t, s.HasLike(5), "returned slice is a copy")

	assert.True(t, s.RemoveLike(5))
	assert.False(t, s.RemoveLike(5))
	assert.Equal(t, []uint{3}, s.LikedProductIDs())

	s.ClearLikes()
	assert.Empty(t, s.LikedProductIDs())
}

func TestSession_CityAndSeeds(t *testing.T) {
	s := New()
	assert.Nil(t, s.SelectedCityID())

	s.SelectCity(2)
	require.NotNil(t, s.SelectedCityID())
	assert.Equal(t, uint(2), *s.SelectedCityID())

	s.ClearSelectedCity()
	assert.Nil(t, s.SelectedCityID())

	_, ok := s.Seed("products")
	assert.False(t, ok)
	s.SetSeed("products", 42)
	s.SetSeed("category:coffee", 7)
	seed, ok := s.Seed("products")
	assert.True(t, ok)
	assert.Equal(t, int64(42), seed)

	s.Clear()
	_, ok = s.Seed("products")
	assert.False(t, ok)
}

func TestSession_UnchangedWritesStayClean(t *testing.T) {
	s := New()
	s.SelectCity(1)
	s.SetSeed("products", 1)
	require.NoError(t, NewMemoryStore(time.Hour).Save(context.Background(), s))

	s.SelectCity(1)
	s.SetSeed("products", 1)
	s.RemoveLike(8)
	s.ClearLikes()
	assert.False(t, s.Dirty())
}

func TestMemoryStore_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := New()
	s.AddLike(5)
	s.SelectCity(3)
	require.NoError(t, store.Save(ctx, s))
	assert.False(t, s.Dirty())

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, loaded.LikedProductIDs())
	assert.Equal(t, uint(3), *loaded.SelectedCityID())

	now = now.Add(2 * time.Hour)
	_, err = store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_RoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, time.Hour)

	s := New()
	s.AddLike(7)
	s.SetSeed("products", 99)
	require.NoError(t, store.Save(ctx, s))
	assert.True(t, mr.Exists("session:"+s.ID))

	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, loaded.HasLike(7))
	seed, _ := loaded.Seed("products")
	assert.Equal(t, int64(99), seed)

	mr.FastForward(61 * time.Minute)
	_, err = store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mr.Set("session:bad", "{"))
	_, err = store.Load(ctx, "bad")
	assert.Error(t, err)
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	s := New()
	s.AddLike(1)
	require.NoError(t, store.Save(ctx, s))
	old := s.ID

	require.NoError(t, Rotate(ctx, store, s))
	assert.NotEqual(t, old, s.ID)

	_, err := store.Load(ctx, old)
	assert.ErrorIs(t, err, ErrNotFound)
	moved, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, moved.HasLike(1))
}

func newTestApp(store Store) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(store, Options{TTL: time.Hour}))
	app.Post("/like/:id", func(c *fiber.Ctx) error {
		id, _ := strconv.Atoi(c.Params("id"))
		FromContext(c).AddLike(uint(id))
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/likes", func(c *fiber.Ctx) error {
		return c.JSON(FromContext(c).LikedProductIDs())
	})
	app.Post("/rotate", func(c *fiber.Ctx) error {
		return Rotate(c.UserContext(), store, FromContext(c))
	})
	return app
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func doRequest(t *testing.T, app *fiber.App, method, path string, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestMiddleware_AnonymousSessionsAreIsolated(t *testing.T) {
	app := newTestApp(NewMemoryStore(time.Hour))

	resp, _ := doRequest(t, app, http.MethodPost, "/like/5", nil)
	first := sessionCookie(t, resp)
	require.NotNil(t, first)
	assert.True(t, first.HttpOnly)

	_, body := doRequest(t, app, http.MethodGet, "/likes", first)
	assert.JSONEq(t, `[5]`, body)

	resp, body = doRequest(t, app, http.MethodGet, "/likes", nil)
	assert.JSONEq(t, `[]`, body)
	assert.Nil(t, sessionCookie(t, resp), "untouched sessions are not persisted")

	resp, _ = doRequest(t, app, http.MethodPost, "/like/9", nil)
	second := sessionCookie(t, resp)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	_, body = doRequest(t, app, http.MethodGet, "/likes", second)
	assert.JSONEq(t, `[9]`, body)
	_, body = doRequest(t, app, http.MethodGet, "/likes", first)
	assert.JSONEq(t, `[5]`, body)
}

func TestMiddleware_UnknownOrMalformedCookieStartsFresh(t *testing.T) {
	app := newTestApp(NewMemoryStore(time.Hour))

	for _, value := range []string{"not-a-uuid", "7f1d2c9e-5c1a-4b7e-9a53-0e7c8a1b2c3d"} {
		_, body := doRequest(t, app, http.MethodGet, "/likes", &http.Cookie{Name: CookieName, Value: value})
		assert.JSONEq(t, `[]`, body)
	}
}

func TestMiddleware_RotateIssuesNewCookie(t *testing.T) {
	app := newTestApp(NewMemoryStore(time.Hour))

	resp, _ := doRequest(t, app, http.MethodPost, "/like/5", nil)
	before := sessionCookie(t, resp)
	require.NotNil(t, before)

	resp, _ = doRequest(t, app, http.MethodPost, "/rotate", before)
	after := sessionCookie(t, resp)
	require.NotNil(t, after)
	assert.NotEqual(t, before.Value, after.Value)

	_, body := doRequest(t, app, http.MethodGet, "/likes", after)
	assert.JSONEq(t, `[5]`, body)
	_, body = doRequest(t, app, http.MethodGet, "/likes", before)
	assert.JSONEq(t, `[]`, body)
}

func TestMiddleware_SessionSurvivesForeignCookies(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	app := newTestApp(store)

	resp, _ := doRequest(t, app, http.MethodPost, "/like/2", nil)
	mine := sessionCookie(t, resp)
	require.NotNil(t, mine)

	_, body := doRequest(t, app, http.MethodPost, "/like/3", mine)
	assert.JSONEq(t, `[2,3]`, body)

	for i := range 20 {
		foreign := &http.Cookie{Name: CookieName, Value: fmt.Sprintf("00000000-0000-4000-8000-%012d", i)}
		doRequest(t, app, http.MethodGet, "/likes", foreign)
		doRequest(t, app, http.MethodPost, "/like/"+strconv.Itoa(100+i), foreign)
	}

	s, err := store.Load(context.Background(), mine.Value)
	require.NoError(t, err)
	assert.Equal(t, mine.Value, s.ID)

	_, body = doRequest(t, app, http.MethodGet, "/likes", mine)
	assert.JSONEq(t, `[2,3]`, body)
}

package featureflags

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.Enabled("always", 0))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("canary", 0), "partial rollout requires a user")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}
}

func TestNewManager_IgnoresMalformedPairs(t *testing.T) {
	m := NewManager(" bad ,X=on, y = 20% ,z=,=on")

	snap := m.Snapshot(7)
	assert.Len(t, snap, 2)
	assert.True(t, snap["x"])
	assert.Contains(t, snap, "y")
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(SellerFeatures, 1))
}

func TestRequire(t *testing.T) {
	tests := []struct {
		name   string
		flags  string
		status int
	}{
		{"enabled", "seller_features=on", http.StatusOK},
		{"disabled", "seller_features=off", http.StatusNotFound},
		{"unset", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/seller", NewManager(tt.flags).Require(SellerFeatures), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/seller", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIPHasherDeterministic(t *testing.T) {
	h := NewIPHasher("hmac-secret")

	r1 := httptest.NewRequest("GET", "/", nil)
	r1.RemoteAddr = "203.0.113.5:1111"
	r2 := httptest.NewRequest("GET", "/", nil)
	r2.RemoteAddr = "203.0.113.5:2222"

	a := h.HashRequest(r1)
	b := h.HashRequest(r2)
	require.NotEmpty(t, a)
	require.Equal(t, a, b, "port must not affect the hash")
	require.NotContains(t, a, "203.0.113.5")
}

func TestIPHasherDifferentIPs(t *testing.T) {
	h := NewIPHasher("hmac-secret")

	r1 := httptest.NewRequest("GET", "/", nil)
	r1.RemoteAddr = "203.0.113.5:1111"
	r2 := httptest.NewRequest("GET", "/", nil)
	r2.RemoteAddr = "203.0.113.6:1111"

	require.NotEqual(t, h.HashRequest(r1), h.HashRequest(r2))
}

func TestIPHasherDisabled(t *testing.T) {
	h := NewIPHasher("")
	require.False(t, h.Enabled())

	r := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, h.HashRequest(r))
}

func TestClientIPForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	require.Equal(t, "198.51.100.7", ClientIP(r))
}

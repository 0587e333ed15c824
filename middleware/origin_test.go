package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func request(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy([]string{"https://App.example.com", "not a url", " "})

	assert.True(t, p.CheckOrigin(request("https://app.example.com")))
	assert.True(t, p.CheckOrigin(request("HTTPS://APP.EXAMPLE.COM")))
	assert.True(t, p.CheckOrigin(request("")), "non-browser clients send no origin")
	assert.False(t, p.CheckOrigin(request("https://evil.example.com")))
	assert.False(t, p.CheckOrigin(request("http://app.example.com")))
}

func TestOriginPolicyAllowAll(t *testing.T) {
	assert.True(t, NewOriginPolicy(nil).CheckOrigin(request("https://anything.test")))
	assert.True(t, NewOriginPolicy([]string{"*"}).CheckOrigin(request("https://anything.test")))
}

package util

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", ClientIP(r))

	r.Header.Set("CF-Connecting-IP", "203.0.113.42")
	assert.Equal(t, "203.0.113.42", ClientIP(r))
}

func TestIsPrivateAddr(t *testing.T) {
	private := []string{"127.0.0.1", "localhost", "10.1.2.3", "192.168.0.9:8080", "172.16.5.5", "::1"}
	for _, addr := range private {
		assert.True(t, IsPrivateAddr(addr), addr)
	}

	public := []string{"203.0.113.9", "8.8.8.8:53", "2001:4860:4860::8888", "not-an-ip"}
	for _, addr := range public {
		assert.False(t, IsPrivateAddr(addr), addr)
	}
}

func TestIsSecureRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsSecureRequest(r))

	r.Header.Set("X-Forwarded-Proto", "HTTPS")
	assert.True(t, IsSecureRequest(r))

	tlsReq := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	assert.True(t, IsSecureRequest(tlsReq))
}

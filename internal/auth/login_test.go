package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repeater-directory/internal/audit"
	"repeater-directory/internal/config"
	"repeater-directory/internal/directory"
	"repeater-directory/internal/token"
	"repeater-directory/internal/util"
)

type handshakeFixture struct {
	handshake *Handshake
	codec     *token.Codec
	dir       *fakeDirectory
}

func newHandshakeFixture(t *testing.T, cfg config.SessionConfig) *handshakeFixture {
	t.Helper()
	codec := token.NewCodec(token.NewKeyProvider("login-test-secret"))
	policy := token.NewPolicy(cfg)
	dir := &fakeDirectory{identities: map[string]*directory.Identity{
		"ALICE": {Username: "ALICE", Enabled: true, TokenVersion: 4},
	}}
	rec := audit.NewRecorder(nil, nil, zap.NewNop())
	t.Cleanup(rec.Close)

	return &handshakeFixture{
		handshake: NewHandshake(dir, codec, policy, cfg, rec, zap.NewNop()),
		codec:     codec,
		dir:       dir,
	}
}

func loginRequest(username, password, remoteAddr string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/admin/login", nil)
	r.Header.Set("User-Agent", testUA)
	r.RemoteAddr = remoteAddr
	if username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		r.Header.Set("Authorization", "Basic "+creds)
	}
	return r
}

func TestLoginIssuesToken(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{RequireHTTPS: false})

	result, denial := f.handshake.Login(loginRequest("alice", "good-password", "203.0.113.9:1234"), "device-7")
	require.Nil(t, denial)
	assert.Equal(t, "ALICE", result.Identity.Username)

	claims, err := f.codec.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "ALICE", claims.Username)
	assert.Equal(t, int64(4), claims.TokenVersion)
	assert.Equal(t, util.HashUserAgent(testUA), claims.UAHash)
	assert.Equal(t, "device-7", claims.Device)
	assert.Less(t, claims.IssuedAt, claims.IdleExpires)
}

func TestLoginRequiresBasicHeader(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{})

	_, denial := f.handshake.Login(loginRequest("", "", "203.0.113.9:1234"), "")
	require.NotNil(t, denial)
	assert.Equal(t, http.StatusUnauthorized, denial.Status)
	assert.Equal(t, "Basic authorization required", denial.Message)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{})

	_, denial := f.handshake.Login(loginRequest("alice", "wrong", "203.0.113.9:1234"), "")
	require.NotNil(t, denial)
	assert.Equal(t, http.StatusUnauthorized, denial.Status)
	assert.Equal(t, KindAuth, denial.Kind)
	assert.Equal(t, "Invalid credentials", denial.Message)
}

func TestLoginUnknownUserLooksLikeWrongPassword(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{})

	_, denial := f.handshake.Login(loginRequest("nobody", "good-password", "203.0.113.9:1234"), "")
	require.NotNil(t, denial)
	assert.Equal(t, http.StatusUnauthorized, denial.Status)
	assert.Equal(t, "Invalid credentials", denial.Message)
}

func TestLoginDisabledUser(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{})
	f.dir.identities["ALICE"].Enabled = false

	_, denial := f.handshake.Login(loginRequest("alice", "good-password", "203.0.113.9:1234"), "")
	require.NotNil(t, denial)
	assert.Equal(t, http.StatusForbidden, denial.Status)
	assert.Equal(t, "User disabled", denial.Message)
}

func TestLoginHTTPSEnforcement(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{RequireHTTPS: true})

	// Public address over plaintext: rejected.
	_, denial := f.handshake.Login(loginRequest("alice", "good-password", "203.0.113.9:1234"), "")
	require.NotNil(t, denial)
	assert.Equal(t, http.StatusForbidden, denial.Status)
	assert.Equal(t, KindHTTPS, denial.Kind)
	assert.Equal(t, "HTTPS is required", denial.Message)

	// Private address over plaintext: allowed for local development.
	result, denial := f.handshake.Login(loginRequest("alice", "good-password", "192.168.1.50:1234"), "")
	assert.Nil(t, denial)
	assert.NotNil(t, result)

	// Public address behind a TLS-terminating proxy: allowed.
	r := loginRequest("alice", "good-password", "203.0.113.9:1234")
	r.Header.Set("X-Forwarded-Proto", "https")
	result, denial = f.handshake.Login(r, "")
	assert.Nil(t, denial)
	assert.NotNil(t, result)
}

func TestLogoutBumpsVersion(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{})

	// Token issued at version 4.
	result, denial := f.handshake.Login(loginRequest("alice", "good-password", "192.168.1.50:1234"), "")
	require.Nil(t, denial)

	identity, denial := f.handshake.Logout(httptest.NewRequest(http.MethodPost, "/v1/admin/logout", nil), "ALICE")
	require.Nil(t, denial)
	assert.Equal(t, int64(5), identity.TokenVersion)

	// Old token's version no longer matches.
	claims, err := f.codec.Verify(result.Token)
	require.NoError(t, err)
	assert.NotEqual(t, claims.TokenVersion, identity.TokenVersion)
}

func TestLogoutUnknownUser(t *testing.T) {
	f := newHandshakeFixture(t, config.SessionConfig{})

	_, denial := f.handshake.Logout(httptest.NewRequest(http.MethodPost, "/v1/admin/logout", nil), "GHOST")
	require.NotNil(t, denial)
	assert.Equal(t, http.StatusNotFound, denial.Status)
	assert.Equal(t, KindNotFound, denial.Kind)
}

func TestDecodeBasicAuth(t *testing.T) {
	user, pass, ok := decodeBasicAuth("Basic " + base64.StdEncoding.EncodeToString([]byte("u:p:with:colons")))
	assert.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p:with:colons", pass)

	_, _, ok = decodeBasicAuth("")
	assert.False(t, ok)
	_, _, ok = decodeBasicAuth("Bearer abc")
	assert.False(t, ok)
	_, _, ok = decodeBasicAuth("Basic not-base64!!!")
	assert.False(t, ok)
	_, _, ok = decodeBasicAuth("Basic " + base64.StdEncoding.EncodeToString([]byte("no-colon")))
	assert.False(t, ok)

	empty := base64.StdEncoding.EncodeToString([]byte(":password"))
	_, _, ok = decodeBasicAuth("Basic " + empty)
	assert.False(t, ok, "empty username must be rejected")
}

// Covers the fallback sequence as a whole: stale pins in a refreshed
// token keep pointing at the original client.
func TestLoginThenRefreshKeepsPins(t *testing.T) {
	cfg := config.SessionConfig{TTL: 24 * time.Hour, IdleTimeout: 2 * time.Hour}
	f := newHandshakeFixture(t, cfg)

	result, denial := f.handshake.Login(loginRequest("alice", "good-password", "192.168.1.50:1234"), "device-9")
	require.Nil(t, denial)

	claims, err := f.codec.Verify(result.Token)
	require.NoError(t, err)

	policy := token.NewPolicy(cfg)
	refreshed := policy.Refresh(claims, time.Now())
	assert.Equal(t, claims.UAHash, refreshed.UAHash)
	assert.Equal(t, claims.Device, refreshed.Device)
}

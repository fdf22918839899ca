package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsBearer(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   bool
	}{
		// Reads are public.
		{http.MethodGet, "/v1/repeaters", false},
		{http.MethodGet, "/v1/repeaters/search", false},
		{http.MethodGet, "/v1/repeaters/4a2f", false},
		{http.MethodHead, "/v1/repeaters", false},
		{http.MethodOptions, "/v1/repeaters", false},

		// The user admin surface is guarded even for reads.
		{http.MethodGet, "/v1/admin/users", true},
		{http.MethodGet, "/v1/admin/users/ALICE", true},
		{http.MethodDelete, "/v1/admin/users/ALICE", true},

		// Carve-outs.
		{http.MethodPost, "/v1/admin/login", false},
		{http.MethodPost, "/v1/requests", false},

		// Everything else that writes needs a session.
		{http.MethodPost, "/v1/repeaters", true},
		{http.MethodPut, "/v1/repeaters/4a2f", true},
		{http.MethodDelete, "/v1/repeaters/4a2f", true},
		{http.MethodPost, "/v1/admin/logout", true},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, needsBearer(c.method, c.path), "%s %s", c.method, c.path)
	}
}

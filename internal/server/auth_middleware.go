package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenAuth guards inspector routes with a shared token. The token is read
// from an "Authorization: Bearer" header or, for websocket clients that cannot
// set headers, from the token query parameter. An empty token disables the
// check.
type TokenAuth struct {
	Token string
}

func (m TokenAuth) Authorize(r *http.Request) error {
	if m.Token == "" {
		return nil
	}
	got := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		got = strings.TrimPrefix(h, "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(m.Token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (m TokenAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.Authorize(r); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package fakeapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/maison-storefront/pkg/auth"
)

type ctxKey string

const accountKey ctxKey = "fakeapi.account"

func routeKey(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// offlineGuard drops the connection without a response, which clients see
// as a transport failure.
func (s *Server) offlineGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		offline := s.offline
		s.mu.Unlock()
		if !offline {
			next.ServeHTTP(w, r)
			return
		}
		hj, ok := w.(http.Hijacker)
		if !ok {
			writeDetail(w, http.StatusServiceUnavailable, "offline")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			return
		}
		_ = conn.Close()
	})
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[routeKey(r)]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r)
		s.mu.Lock()
		queued := s.faults[key]
		var f *fault
		if len(queued) > 0 {
			f = &queued[0]
			s.faults[key] = queued[1:]
		}
		s.mu.Unlock()
		if f != nil {
			s.logg.Debug(r.Context(), "fakeapi injected fault on "+key)
			writeDetail(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth accepts bearer tokens this server minted and has not revoked.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			writeDetail(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		token := strings.TrimSpace(parts[1])

		if _, err := auth.ParseAccessToken(s.signing, token); err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		s.mu.Lock()
		id, ok := s.sessions[token]
		acc := s.byID[id]
		s.mu.Unlock()
		if !ok || acc == nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(ctx context.Context) *account {
	acc, _ := ctx.Value(accountKey).(*account)
	return acc
}

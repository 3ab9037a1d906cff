package gateway

import (
	"net/http"
	"strings"

	"github.com/quietbay/paydrop/internal/auth"
	"github.com/quietbay/paydrop/internal/httpx"
	"github.com/quietbay/paydrop/internal/shop"
)

type Router struct {
	Claims    *shop.Claimer
	Downloads *shop.Downloader
	Auth      auth.Handler
	Debug     DebugHandler

	// AuthMW guards the diagnostic endpoints; nil disables them.
	AuthMW func(http.Handler) http.Handler
}

func (rt Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Health.
	if r.Method == http.MethodGet && r.URL.Path == "/healthz" {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	// Purchase confirmation.
	if r.URL.Path == "/claim" {
		if r.Method != http.MethodGet {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.handleClaim(w, r)
		return
	}

	// Human-facing gate page. Never consumes the token.
	if strings.HasPrefix(r.URL.Path, "/download/") {
		if r.Method != http.MethodGet {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		token := strings.TrimPrefix(r.URL.Path, "/download/")
		if token == "" || strings.Contains(token, "/") {
			httpx.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		rt.handleGate(w, r, token)
		return
	}

	// Binary endpoint. Consumes the token.
	if strings.HasPrefix(r.URL.Path, "/file/") {
		if r.Method != http.MethodGet {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		token := strings.TrimPrefix(r.URL.Path, "/file/")
		if token == "" || strings.Contains(token, "/") {
			httpx.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		rt.handleFile(w, r, token)
		return
	}

	// Diagnostic surface.
	if r.URL.Path == "/api/v1/auth/login" {
		if r.Method != http.MethodPost {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.Auth.Login(w, r)
		return
	}
	if strings.HasPrefix(r.URL.Path, "/api/v1/debug/") {
		if r.Method != http.MethodGet {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/api/v1/debug/") {
		case "tokens":
			rt.requireAdmin(http.HandlerFunc(rt.Debug.Tokens)).ServeHTTP(w, r)
		case "claims":
			rt.requireAdmin(http.HandlerFunc(rt.Debug.Claims)).ServeHTTP(w, r)
		case "catalog":
			rt.requireAdmin(http.HandlerFunc(rt.Debug.CatalogItems)).ServeHTTP(w, r)
		default:
			httpx.WriteError(w, http.StatusNotFound, "not found")
		}
		return
	}

	httpx.WriteError(w, http.StatusNotFound, "not found")
}

func (rt Router) requireAdmin(h http.Handler) http.Handler {
	if rt.AuthMW == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteError(w, http.StatusServiceUnavailable, "admin access not configured")
		})
	}
	return rt.AuthMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := auth.ClaimsFromContext(r.Context())
		if !ok || !strings.EqualFold(c.Role, "admin") {
			httpx.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		h.ServeHTTP(w, r)
	}))
}

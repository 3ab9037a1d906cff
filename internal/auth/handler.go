package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/quietbay/paydrop/internal/httpx"
)

// Handler issues bearer tokens for the diagnostic surface. There is a
// single operator role; the admin key comes from configuration.
type Handler struct {
	AdminKey string
	JWT      JWT
}

type loginRequest struct {
	AdminKey string `json:"admin_key"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h Handler) Login(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.AdminKey) == "" {
		httpx.WriteError(w, http.StatusServiceUnavailable, "admin access not configured")
		return
	}

	var req loginRequest
	if err := httpx.ReadJSON(r, &req, 1<<16); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.AdminKey), []byte(h.AdminKey)) != 1 {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid admin key")
		return
	}

	token, expiresAt, err := h.JWT.Sign(Claims{Role: "admin"})
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

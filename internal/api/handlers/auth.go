package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/frostdev-ops/govee-bridge-go/pkg/utils"
)

// loginRequest exchanges the configured PIN for a bearer token.
type loginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Login mints a JWT when the caller presents the configured PIN.
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "PIN is required")
		return
	}

	if req.PIN != h.cfg.Auth.PIN {
		h.log.WithField("client_ip", c.ClientIP()).Warn("Login attempt with wrong PIN")
		utils.SendError(c, http.StatusUnauthorized, "Invalid PIN")
		return
	}

	expiresAt := time.Now().Add(time.Duration(h.cfg.Auth.TokenExpiry) * time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "bridge-user",
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(h.cfg.Auth.JWTSecret))
	if err != nil {
		h.log.WithError(err).Error("Failed to sign token")
		utils.SendError(c, http.StatusInternalServerError, "Failed to create token")
		return
	}

	utils.SendSuccess(c, gin.H{
		"token":      signed,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

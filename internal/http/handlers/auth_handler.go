// Authentication HTTP handlers.
//
//   - POST /api/login   (delegate: identity pair, no password)
//   - POST /login       (chair: username + password, returns a bearer token)
//   - GET  /chair       (token check, requires ChairAuth middleware)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/munstack/conference-backend/internal/http/middleware"
	"github.com/munstack/conference-backend/internal/services"
)

// DelegateLoginRequest is the delegate identity pair.
type DelegateLoginRequest struct {
	Name    string `json:"name"    binding:"required"`
	Country string `json:"country" binding:"required"`
}

// ChairLoginRequest is the chair credential payload.
type ChairLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// DelegateLogin resolves a delegate by (name, country). The response carries
// the delegate's ID and committee, which the client uses for room interests.
func (h *Handlers) DelegateLogin(c *gin.Context) {
	var req DelegateLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and country required")
		return
	}
	d, err := h.auth.LoginDelegate(c.Request.Context(), req.Name, req.Country)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid name or country")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success":   true,
		"committee": d.Committee,
		"id":        d.ID,
	})
}

// ChairLogin verifies chair credentials and issues a bearer token.
func (h *Handlers) ChairLogin(c *gin.Context) {
	var req ChairLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}
	token, err := h.auth.LoginChair(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"access_token": token})
}

// ChairWhoAmI echoes the authenticated chair identity. Mounted behind
// middleware.ChairAuth, so reaching it implies a valid token.
func (h *Handlers) ChairWhoAmI(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"logged_in_as": middleware.ChairFrom(c)})
}

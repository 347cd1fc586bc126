// Identity HTTP handlers.
//
// This file exposes account endpoints:
//   - POST /api/user/register  (create identity, returns a session)
//   - POST /api/user/login     (verify credentials, returns a session)
//   - POST /api/user/logout    (revoke the presented token)
//   - GET  /api/user/me        (current identity)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/domain"
	"github.com/tbourn/go-estate-backend/internal/http/middleware"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an identity.
type RegisterRequest struct {
	Name     string `json:"name"     example:"Somchai"`
	Email    string `json:"email"    example:"somchai@example.com"`
	Password string `json:"password" example:"correct-horse"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email"    example:"somchai@example.com"`
	Password string `json:"password" example:"correct-horse"`
}

// SessionResponse carries a bearer token and the display name.
type SessionResponse struct {
	Success  bool   `json:"success"  example:"true"`
	Token    string `json:"token"    example:"eyJhbGciOiJIUzI1NiIs..."`
	Username string `json:"username" example:"Somchai"`
}

// ProfileResponse wraps the current identity.
type ProfileResponse struct {
	Success bool         `json:"success" example:"true"`
	User    *domain.User `json:"user"`
}

// Register godoc
// @ID          register
// @Summary     Register an identity
// @Description Creates an identity and returns a 7-day bearer token. Passwords must be at least 8 characters.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Registration payload"
// @Success     201   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.identity.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, SessionResponse{Success: true, Token: res.Token, Username: res.Username})
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and returns a fresh bearer token. Earlier tokens stay valid.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     404   {object}  handlers.ErrorResponse  "Unknown email"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, SessionResponse{Success: true, Token: res.Token, Username: res.Username})
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Revokes the presented bearer token. Other sessions of the same identity are unaffected.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MessageResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	if err := h.identity.Logout(c.Request.Context(), claims); err != nil {
		writeError(c, err)
		return
	}
	okMessage(c, "logged out")
}

// Me godoc
// @ID          me
// @Summary     Current identity
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ProfileResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Identity not found"
// @Router      /api/user/me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, authed := currentUser(c)
	if !authed {
		return
	}
	profile, err := h.identity.Profile(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ProfileResponse{Success: true, User: profile})
}

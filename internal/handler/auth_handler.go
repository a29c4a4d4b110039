package handler

import (
	"context"
	"net/http"

	"solis/internal/auth"
	"solis/internal/logger"
	"solis/internal/middleware"
	"solis/internal/model"
	"solis/internal/service"
	"solis/internal/session"

	"github.com/gin-gonic/gin"
)

// Accounts is the part of the user service sign-up and sign-in need.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
}

// TokenIssuer mints session tokens. It is nil when clients sign in against
// the hosted identity provider directly.
type TokenIssuer interface {
	Generate(id auth.Identity) (string, auth.Identity, error)
}

// Sessions is the session provider surface the handlers drive.
type Sessions interface {
	Handle(ctx context.Context, sessionID string, ev session.Event) session.Result
	Anonymous(view string) session.Result
	Teardown(sessionID string)
}

type AuthHandler struct {
	accounts Accounts
	tokens   TokenIssuer
	sessions Sessions
	log      *logger.Logger
}

func NewAuthHandler(accounts Accounts, tokens TokenIssuer, sessions Sessions, log *logger.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, sessions: sessions, log: log.Named("auth")}
}

type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required,min=2"`
	Password   string `json:"password" binding:"required,min=6"`
	Department string `json:"department" binding:"omitempty,department"`
	Role       string `json:"role" binding:"omitempty,role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued token, the profile and where the console
// should navigate next.
type AuthResponse struct {
	Token    string      `json:"token,omitempty"`
	User     *model.User `json:"user"`
	Redirect string      `json:"redirect,omitempty"`
}

// Register godoc
// @Summary      Register a new account
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Account"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Department: req.Department,
		Role:       req.Role,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to create user")
		return
	}

	h.signIn(c, http.StatusCreated, user)
}

// Login godoc
// @Summary      Sign in with email and password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} AuthResponse
// @Failure      401 {object} ErrorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "Failed to sign in")
		return
	}

	h.signIn(c, http.StatusOK, user)
}

func (h *AuthHandler) signIn(c *gin.Context, status int, user *model.User) {
	if h.tokens == nil {
		c.JSON(status, AuthResponse{User: user})
		return
	}

	token, id, err := h.tokens.Generate(auth.Identity{
		Subject: user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to generate token")
		return
	}

	res := h.sessions.Handle(c.Request.Context(), id.SessionID, session.Event{
		Kind:     session.SignedIn,
		Identity: &id,
		View:     c.DefaultQuery("view", session.EntryView),
	})
	c.JSON(status, AuthResponse{Token: token, User: res.User, Redirect: res.Redirect})
}

// Session godoc
// @Summary      Current session state
// @Description  Resolves the bearer token, if any, and reports the redirect for the given view.
// @Tags         Auth
// @Produce      json
// @Param        view query string false "Current console view"
// @Success      200 {object} session.Result
// @Router       /session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	view := c.Query("view")
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusOK, h.sessions.Anonymous(view))
		return
	}
	res := h.sessions.Handle(c.Request.Context(), id.SessionID, session.Event{
		Kind:     session.Loaded,
		Identity: id,
		View:     view,
	})
	c.JSON(http.StatusOK, res)
}

// Logout godoc
// @Summary      Sign out
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} session.Result
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Not authenticated"})
		return
	}
	res := h.sessions.Handle(c.Request.Context(), id.SessionID, session.Event{
		Kind:     session.SignedOut,
		Identity: id,
		View:     c.Query("view"),
	})
	h.sessions.Teardown(id.SessionID)
	c.JSON(http.StatusOK, res)
}

// Refresh godoc
// @Summary      Refresh the session token
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} AuthResponse
// @Router       /token/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Not authenticated"})
		return
	}

	var token string
	if h.tokens != nil {
		var err error
		token, _, err = h.tokens.Generate(*id)
		if err != nil {
			respondError(c, h.log, err, "Failed to generate token")
			return
		}
	}

	res := h.sessions.Handle(c.Request.Context(), id.SessionID, session.Event{
		Kind:     session.TokenRefreshed,
		Identity: id,
		View:     c.Query("view"),
	})
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: res.User, Redirect: res.Redirect})
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/auth"
	"github.com/mrlokans/bookexchange/internal/services"
)

// AccountsController handles registration, login and the caller's profile.
type AccountsController struct {
	accounts *services.AccountService
	sessions *auth.SessionManager
}

func NewAccountsController(accounts *services.AccountService, sessions *auth.SessionManager) *AccountsController {
	return &AccountsController{accounts: accounts, sessions: sessions}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/register
func (ac *AccountsController) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := ac.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "user", "register user")
		return
	}
	respondCreated(c, user)
}

// Login handles POST /api/login
func (ac *AccountsController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondBadRequest(c, "username and password are required")
		return
	}

	ctx := c.Request.Context()
	user, err := ac.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err, "user", "login")
		return
	}

	if err := ac.sessions.CreateSession(ctx, user); err != nil {
		respondInternalError(c, err, "create session")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout handles POST /api/logout
func (ac *AccountsController) Logout(c *gin.Context) {
	if err := ac.sessions.DestroySession(c.Request.Context()); err != nil {
		respondInternalError(c, err, "destroy session")
		return
	}
	respondSuccess(c, "logged out")
}

// Me handles GET /api/me
func (ac *AccountsController) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PUT /api/me
func (ac *AccountsController) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	updated, err := ac.accounts.UpdateProfile(c.Request.Context(), user.Username, req)
	if err != nil {
		respondServiceError(c, err, "user", "update profile")
		return
	}
	c.JSON(http.StatusOK, updated)
}

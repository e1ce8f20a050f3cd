package auth

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/entities"
)

// ContextKeyUser holds the *entities.User of the logged-in caller.
const ContextKeyUser = "auth_user"

// UserLookup resolves the username stored in a session.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
}

// Middleware rejects requests without a logged-in user.
type Middleware struct {
	users    UserLookup
	sessions *SessionManager
}

func NewMiddleware(users UserLookup, sessions *SessionManager) *Middleware {
	return &Middleware{users: users, sessions: sessions}
}

// RequireUser loads the session's user into the gin context or aborts with
// 401. A session whose user no longer exists is destroyed.
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username := m.sessions.Username(ctx)
		if username == "" {
			abortUnauthorized(c)
			return
		}

		user, err := m.users.GetUserByUsername(ctx, username)
		if err != nil {
			log.Printf("Failed to load session user %s: %v", username, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "failed to load user",
			})
			return
		}
		if user == nil {
			m.sessions.DestroySession(ctx)
			abortUnauthorized(c)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "authentication required",
		"code":  "unauthorized",
	})
}

// CurrentUser returns the user set by RequireUser, or nil.
func CurrentUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

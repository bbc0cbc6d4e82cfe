package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/service"
)

const (
	// SessionCookie is the name of the sealed session cookie.
	SessionCookie = "session"

	sessionContextKey = "walletSession"
)

// SessionMiddleware validates the sealed session cookie. On any
// failure the cookie is actively cleared, not just rejected, so a
// client holding a dead token is forced back through login.
func SessionMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		session, err := authService.Validate(token)
		if err != nil {
			clearSessionCookie(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// sessionFromContext returns the session stored by the middleware.
func sessionFromContext(c *gin.Context) (core.Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return core.Session{}, false
	}
	session, ok := value.(core.Session)
	return session, ok
}

func setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", true, true)
}

func clearSessionCookie(c *gin.Context) {
	setSessionCookie(c, "", -1)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/services"
	"github.com/yungbote/recall-backend/internal/types"
)

const identityKey = "authUser"

// ExtractToken checks, in order, the auth cookie, the Authorization
// header, and the token query parameter.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	return r.URL.Query().Get("token")
}

// RequireAuth resolves the request's token to a user and aborts with 401
// when it cannot.
func RequireAuth(log *logger.Logger, auth services.AuthService) gin.HandlerFunc {
	mwLog := log.With("middleware", "RequireAuth")
	return func(c *gin.Context) {
		token := ExtractToken(c.Request)
		user, err := auth.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			mwLog.Debug("Request rejected", "path", c.FullPath(), "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(identityKey, user)
		c.Next()
	}
}

// CurrentUser returns the identity set by RequireAuth.
func CurrentUser(c *gin.Context) (*types.User, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*types.User)
	return user, ok
}

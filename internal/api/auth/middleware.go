package auth

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth restores the user of the current session.
// Requests without a valid session are answered with 401.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := getSessionString(session, SessionUserIDKey)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
			return
		}

		user, err := LoadUser(c.Request.Context(), h.db, userID)
		if err != nil {
			log.Error("Failed to load session user", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load user"})
			return
		}
		if user == nil {
			if err := clearSession(c); err != nil {
				log.Warn("Failed to clear stale session", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

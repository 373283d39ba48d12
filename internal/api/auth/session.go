package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/database"
	"gorm.io/gorm"
)

const (
	// SessionUserIDKey is the session key holding the stringified user id.
	SessionUserIDKey = "user_id"
	// ContextUserKey is the gin context key of the authenticated *database.User.
	ContextUserKey = "user"
)

// LoadUser resolves a stringified user id to a user.
// It returns nil without an error if the id is malformed or no such user exists.
func LoadUser(ctx context.Context, db database.UserDB, id string) (*database.User, error) {
	uid, err := strconv.ParseUint(id, 10, 0)
	if err != nil {
		return nil, nil
	}

	user, err := db.GetUserByID(ctx, uint(uid))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) *database.User {
	user, _ := c.Get(ContextUserKey)
	u, _ := user.(*database.User)
	return u
}

func startSession(c *gin.Context, user *database.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(SessionUserIDKey, strconv.FormatUint(uint64(user.ID), 10))
	return session.Save()
}

func clearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

func getSessionString(session sessions.Session, key string) string {
	if val := session.Get(key); val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

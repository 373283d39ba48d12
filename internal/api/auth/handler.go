package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/api/models"
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/database"
	"gorm.io/gorm"
)

// Mailer sends account notifications.
type Mailer interface {
	SendWelcome(user *database.User) error
	SendPasswordChanged(user *database.User) error
}

// Handler implements registration, login and account endpoints.
type Handler struct {
	db       database.UserDB
	mailer   Mailer
	password *config.PasswordConfig
	gravatar *config.GravatarConfig
}

// New creates a new auth handler. mailer may be nil.
func New(db database.UserDB, mailer Mailer, cfg *config.Config) *Handler {
	h := &Handler{
		db:       db,
		mailer:   mailer,
		password: &config.PasswordConfig{MinLength: models.DefaultPasswordMinLength},
	}
	if cfg != nil {
		if cfg.Password != nil {
			h.password = cfg.Password
		}
		h.gravatar = cfg.Gravatar
	}
	return h
}

// Register creates an account and starts a session for it.
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": models.ValidationMessage(err)})
		return
	}
	if err := models.CheckPassword(h.password, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, err := h.db.CreateUser(c.Request.Context(), req.Username, strings.ToLower(req.Email), req.Password)
	switch {
	case errors.Is(err, database.ErrUsernameTaken), errors.Is(err, database.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Username or email already taken"})
		return
	case err != nil:
		log.Error("Failed to register user", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create user"})
		return
	}

	if err := startSession(c, user); err != nil {
		log.Error("Failed to save session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save session"})
		return
	}

	log.Info("User registered", "username", user.Username)
	h.notify(user, h.sendWelcome)

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": models.ToUser(user, h.gravatar)})
}

// Login starts a session for valid credentials.
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.db.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) && strings.Contains(req.Username, "@") {
		user, err = h.db.GetUserByEmail(ctx, strings.ToLower(req.Username))
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Failed to look up user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to look up user"})
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		log.Debug("Failed login attempt", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	if err := startSession(c, user); err != nil {
		log.Error("Failed to save session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": models.ToUser(user, h.gravatar)})
}

// Logout clears the current session.
func (h *Handler) Logout(c *gin.Context) {
	if err := clearSession(c); err != nil {
		log.Error("Failed to clear session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the current user.
func (h *Handler) Me(c *gin.Context) {
	user := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": models.ToUser(user, h.gravatar)})
}

// ChangePassword replaces the current user's password after checking the current one.
func (h *Handler) ChangePassword(c *gin.Context) {
	user := CurrentUser(c)

	var req models.ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": models.ValidationMessage(err)})
		return
	}
	if !user.CheckPassword(req.CurrentPassword) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Current password is incorrect"})
		return
	}
	if err := models.CheckPassword(h.password, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.db.UpdateUserPassword(c.Request.Context(), user.ID, req.NewPassword); err != nil {
		log.Error("Failed to update password", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update password"})
		return
	}

	log.Info("Password changed", "username", user.Username)
	h.notify(user, h.sendPasswordChanged)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}

func (h *Handler) sendWelcome(user *database.User) error {
	return h.mailer.SendWelcome(user)
}

func (h *Handler) sendPasswordChanged(user *database.User) error {
	return h.mailer.SendPasswordChanged(user)
}

// notify sends a mail off the request path.
func (h *Handler) notify(user *database.User, send func(*database.User) error) {
	if h.mailer == nil {
		return
	}
	u := *user
	go func() {
		if err := send(&u); err != nil {
			log.Error("Failed to send notification", "username", u.Username, "error", err)
		}
	}()
}

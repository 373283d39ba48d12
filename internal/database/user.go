package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordCost is the bcrypt cost used by SetPassword.
var PasswordCost = bcrypt.DefaultCost

// User is an account that owns courses.
// Courses are never preloaded by the user lookups, they are fetched on demand.
type User struct {
	ID           uint    `gorm:"primarykey"`
	Username     string  `gorm:"size:64;uniqueIndex;not null"`
	Email        string  `gorm:"size:120;uniqueIndex;not null"`
	PasswordHash *string `gorm:"size:256"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Courses      []Course `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

// UserDB defines the user related database operations.
type UserDB interface {
	CreateUser(ctx context.Context, username, email, password string) (*User, error)
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	UpdateUserPassword(ctx context.Context, id uint, password string) error
	DeleteUser(ctx context.Context, id uint) error
}

func (u *User) String() string {
	return fmt.Sprintf("<User %s>", u.Username)
}

// SetPassword hashes the password with a random salt and stores the hash.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return err
	}
	h := string(hash)
	u.PasswordHash = &h
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) == nil
}

func (c *Client) CreateUser(ctx context.Context, username, email, password string) (*User, error) {
	if err := c.ensureUnique(ctx, username, email); err != nil {
		return nil, err
	}

	user := User{
		Username: username,
		Email:    email,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := c.db.WithContext(ctx).Create(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Error("failed to create user", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) ensureUnique(ctx context.Context, username, email string) error {
	var count int64
	if err := c.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		log.Error("failed to check username", "error", err)
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if err := c.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		log.Error("failed to check email", "error", err)
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return nil
}

func (c *Client) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by ID", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by username", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by email", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetAllUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		log.Error("failed to get all users", "error", err)
		return nil, err
	}
	return users, nil
}

func (c *Client) UpdateUserPassword(ctx context.Context, id uint, password string) error {
	user, err := c.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := c.db.WithContext(ctx).Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		log.Error("failed to update user password", "error", err)
		return err
	}
	return nil
}

// DeleteUser removes a user together with all of its courses and their assessments.
func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		courseIDs := tx.Model(&Course{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("course_id IN (?)", courseIDs).Delete(&Assessment{}).Error; err != nil {
			log.Error("failed to delete assessments of user", "user_id", id, "error", err)
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&Course{}).Error; err != nil {
			log.Error("failed to delete courses of user", "user_id", id, "error", err)
			return err
		}
		if err := tx.Delete(&user).Error; err != nil {
			log.Error("failed to delete user", "user_id", id, "error", err)
			return err
		}
		return nil
	})
}

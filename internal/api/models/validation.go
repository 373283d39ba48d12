package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jon4hz/gradebook/internal/config"
)

// DefaultPasswordMinLength applies when no password policy is configured.
const DefaultPasswordMinLength = 8

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("username", validateUsername); err != nil {
			panic(err)
		}
	}
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

// Validate runs the binding rules of obj outside of a request.
func Validate(obj any) error {
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return errors.New(ValidationMessage(err))
	}
	return nil
}

// CheckPassword applies the password policy. The minimum length counts characters,
// the maximum counts bytes since bcrypt ignores everything past 72 bytes.
func CheckPassword(policy *config.PasswordConfig, password string) error {
	minLength := DefaultPasswordMinLength
	if policy != nil {
		minLength = policy.MinLength
	}
	if utf8.RuneCountInString(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}
	if len(password) > config.MaxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes long", config.MaxPasswordLength)
	}
	return nil
}

// ValidationMessage turns a binding error into a message for API clients.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "username":
		return fmt.Sprintf("%s may only contain letters, digits, '.', '_' and '-'", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/jon4hz/gradebook/internal/config"
)

const baseURL = "https://www.gravatar.com/avatar/"

// Hash returns the hex encoded SHA-256 hash of the normalised email address.
func Hash(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// AvatarURL returns the avatar URL of a user.
// It is empty if gravatar is disabled or the user has no email.
func AvatarURL(email string, cfg *config.GravatarConfig) string {
	if cfg == nil || !cfg.Enabled || strings.TrimSpace(email) == "" {
		return ""
	}

	u := baseURL + Hash(email)

	params := url.Values{}
	if cfg.DefaultImage != "" {
		params.Set("d", cfg.DefaultImage)
	}
	if cfg.Rating != "" {
		params.Set("r", cfg.Rating)
	}
	if cfg.Size > 0 {
		params.Set("s", strconv.Itoa(cfg.Size))
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

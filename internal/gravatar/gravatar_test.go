package gravatar

import (
	"testing"

	"github.com/jon4hz/gradebook/internal/config"
	"github.com/stretchr/testify/assert"
)

const testHash = "973dfe463ec85785f5f95af5ba3906eedb2d931c24e69824a89ea65dba4e813b"

func TestHash(t *testing.T) {
	assert.Equal(t, testHash, Hash("test@example.com"))
	assert.Equal(t, testHash, Hash("  TEST@Example.com "))
}

func TestAvatarURL(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		config   *config.GravatarConfig
		expected string
	}{
		{
			name:     "nil config",
			email:    "test@example.com",
			config:   nil,
			expected: "",
		},
		{
			name:     "disabled",
			email:    "test@example.com",
			config:   &config.GravatarConfig{Enabled: false, Size: 80},
			expected: "",
		},
		{
			name:     "blank email",
			email:    "   ",
			config:   &config.GravatarConfig{Enabled: true},
			expected: "",
		},
		{
			name:     "no options",
			email:    "test@example.com",
			config:   &config.GravatarConfig{Enabled: true},
			expected: "https://www.gravatar.com/avatar/" + testHash,
		},
		{
			name:     "default image only",
			email:    "test@example.com",
			config:   &config.GravatarConfig{Enabled: true, DefaultImage: "robohash"},
			expected: "https://www.gravatar.com/avatar/" + testHash + "?d=robohash",
		},
		{
			name:  "all options",
			email: "TEST@EXAMPLE.COM",
			config: &config.GravatarConfig{
				Enabled:      true,
				DefaultImage: "identicon",
				Rating:       "pg",
				Size:         120,
			},
			expected: "https://www.gravatar.com/avatar/" + testHash + "?d=identicon&r=pg&s=120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AvatarURL(tt.email, tt.config))
		})
	}
}

package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/database"
	"github.com/jon4hz/gradebook/internal/database/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSetLogLevel(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"info":    log.InfoLevel,
		"":        log.InfoLevel,
		"warn":    log.WarnLevel,
		"error":   log.ErrorLevel,
		"verbose": log.InfoLevel,
	}
	for in, want := range tests {
		setLogLevel(in)
		assert.Equal(t, want, log.GetLevel(), in)
	}
}

func TestGenerateSessionKey(t *testing.T) {
	a, err := generateSessionKey()
	require.NoError(t, err)
	b, err := generateSessionKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestUserCommands(t *testing.T) {
	database.PasswordCost = bcrypt.MinCost
	ctx := context.Background()
	db := mock.NewMockDB()
	policy := &config.PasswordConfig{MinLength: 8}
	var out bytes.Buffer

	require.NoError(t, addUser(ctx, db, policy, &out, "alice", "Alice@Example.com", "secret123"))
	assert.Contains(t, out.String(), "Created user alice")

	assert.ErrorContains(t, addUser(ctx, db, policy, &out, "bob", "bob@example.com", "short"), "at least 8")
	assert.ErrorIs(t, addUser(ctx, db, policy, &out, "alice", "other@example.com", "secret123"), database.ErrUsernameTaken)
	assert.ErrorContains(t, addUser(ctx, db, policy, &out, "", "empty@example.com", "secret123"), "Username is required")
	assert.ErrorContains(t, addUser(ctx, db, policy, &out, "a@b.c", "mail@example.com", "secret123"), "Username may only contain")
	assert.ErrorContains(t, addUser(ctx, db, policy, &out, "carol", "not-an-email", "secret123"), "Email must be a valid email")

	out.Reset()
	require.NoError(t, listUsers(ctx, db, &out))
	assert.Contains(t, out.String(), "USERNAME")
	assert.Contains(t, out.String(), "alice@example.com")

	out.Reset()
	require.NoError(t, setUserPassword(ctx, db, policy, &out, "alice", "newsecret123"))
	user, err := db.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.CheckPassword("newsecret123"))
	assert.ErrorContains(t, setUserPassword(ctx, db, policy, &out, "nobody", "newsecret123"), `user "nobody" not found`)

	course := &database.Course{Name: "Maths", UserID: user.ID}
	require.NoError(t, db.CreateCourse(ctx, course))

	out.Reset()
	require.NoError(t, deleteUser(ctx, db, &out, "alice"))
	assert.Contains(t, out.String(), "Deleted user alice")
	_, err = db.GetCourseByID(ctx, course.ID)
	assert.Error(t, err)

	out.Reset()
	require.NoError(t, listUsers(ctx, db, &out))
	assert.Equal(t, "No users found.\n", out.String())
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	printStats(&out, &database.Stats{TotalUsers: 1200, TotalCourses: 3, TotalAssessments: 7, AverageAssessmentsPerCourse: 7.0 / 3})
	assert.Contains(t, out.String(), "Users: 1,200")
	assert.Contains(t, out.String(), "Assessments per Course: 2.33")
	assert.Contains(t, out.String(), "Latest Course: never")

	out.Reset()
	latest := time.Now().Add(-2 * time.Hour)
	printStats(&out, &database.Stats{LatestCourseAt: &latest})
	assert.Contains(t, out.String(), "Latest Course: 2 hours ago")
}

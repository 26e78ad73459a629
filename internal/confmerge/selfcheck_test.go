package confmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misttv/misttv/internal/models"
)

func TestSelfCheckDeduplicates(t *testing.T) {
	cfg := &models.AdminConfig{
		VideoSources: []models.VideoSource{
			{Key: "a", Name: "First"},
			{Key: "a", Name: "Duplicate"},
			{Key: "b", Name: "Other"},
		},
		Categories: []models.CustomCategory{
			{Name: "One", Type: "tv", Query: "anime"},
			{Name: "Two", Type: "tv", Query: "anime"},
			{Name: "Kept", Type: "movie", Query: "anime"},
		},
		Lives: []models.LiveSource{
			{Key: "x", Name: "First"},
			{Key: "x", Name: "Duplicate"},
		},
	}

	SelfCheck(cfg, "root")

	require.Len(t, cfg.VideoSources, 2)
	assert.Equal(t, "First", cfg.VideoSources[0].Name)
	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, "One", cfg.Categories[0].Name)
	require.Len(t, cfg.Lives, 1)
	assert.Equal(t, "First", cfg.Lives[0].Name)
}

func TestSelfCheckPinsOwner(t *testing.T) {
	cfg := &models.AdminConfig{
		Users: []models.User{
			{Username: "alice", Role: models.RoleOwner},
			{Username: "root", Role: models.RoleUser, Banned: true},
			{Username: "bob", Role: models.RoleOwner},
		},
	}

	SelfCheck(cfg, "root")

	byName := make(map[string]models.User)
	for _, u := range cfg.Users {
		byName[u.Username] = u
	}

	// Exactly one owner, and it is the configured one.
	assert.Equal(t, models.RoleOwner, byName["root"].Role)
	assert.False(t, byName["root"].Banned)
	assert.Equal(t, models.RoleAdmin, byName["alice"].Role)
	assert.Equal(t, models.RoleAdmin, byName["bob"].Role)
}

func TestSelfCheckCreatesMissingOwner(t *testing.T) {
	cfg := &models.AdminConfig{
		Users: []models.User{
			{Username: "alice", Role: models.RoleUser},
		},
	}

	SelfCheck(cfg, "root")

	require.Len(t, cfg.Users, 2)
	assert.Equal(t, "root", cfg.Users[0].Username)
	assert.Equal(t, models.RoleOwner, cfg.Users[0].Role)
}

func TestSelfCheckDeduplicatesUsers(t *testing.T) {
	cfg := &models.AdminConfig{
		Users: []models.User{
			{Username: "root", Role: models.RoleOwner},
			{Username: "root", Role: models.RoleUser},
		},
	}

	SelfCheck(cfg, "root")

	require.Len(t, cfg.Users, 1)
	assert.Equal(t, models.RoleOwner, cfg.Users[0].Role)
}

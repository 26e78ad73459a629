package confmerge

import (
	"github.com/misttv/misttv/internal/models"
)

// SelfCheck repairs structural invariants of the admin config in place:
// duplicate entries within each family are collapsed (first occurrence wins),
// and the user list is pinned to exactly one owner account matching
// ownerUsername. Any other account claiming the owner role is downgraded to
// admin; a missing owner account is created at the front of the list.
//
// Run after every merge and before every persist, so a malformed config file
// or a racy admin edit cannot leave the stored config inconsistent.
func SelfCheck(cfg *models.AdminConfig, ownerUsername string) {
	cfg.VideoSources = dedupVideoSources(cfg.VideoSources)
	cfg.Categories = dedupCategories(cfg.Categories)
	cfg.Lives = dedupLives(cfg.Lives)
	cfg.Users = pinOwner(dedupUsers(cfg.Users), ownerUsername)
}

func dedupVideoSources(in []models.VideoSource) []models.VideoSource {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v.Key]; ok {
			continue
		}
		seen[v.Key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupCategories(in []models.CustomCategory) []models.CustomCategory {
	seen := make(map[models.CategoryKey]struct{}, len(in))
	out := in[:0]
	for _, c := range in {
		if _, ok := seen[c.Key()]; ok {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupLives(in []models.LiveSource) []models.LiveSource {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, l := range in {
		if _, ok := seen[l.Key]; ok {
			continue
		}
		seen[l.Key] = struct{}{}
		out = append(out, l)
	}
	return out
}

func dedupUsers(in []models.User) []models.User {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, u := range in {
		if _, ok := seen[u.Username]; ok {
			continue
		}
		seen[u.Username] = struct{}{}
		out = append(out, u)
	}
	return out
}

// pinOwner enforces the single-owner invariant: the configured owner account
// holds the owner role and nobody else does.
func pinOwner(users []models.User, ownerUsername string) []models.User {
	if ownerUsername == "" {
		return users
	}

	found := false
	for i := range users {
		switch {
		case users[i].Username == ownerUsername:
			users[i].Role = models.RoleOwner
			users[i].Banned = false
			found = true
		case users[i].Role == models.RoleOwner:
			users[i].Role = models.RoleAdmin
		}
	}
	if !found {
		users = append([]models.User{{Username: ownerUsername, Role: models.RoleOwner}}, users...)
	}
	return users
}

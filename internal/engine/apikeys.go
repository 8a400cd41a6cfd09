package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

const apiKeyPrefix = "dk_"

// IssuedAPIKey carries the plaintext secret, which is never stored and only returned once.
type IssuedAPIKey struct {
	Key    domain.APIKey `json:"key"`
	Secret string        `json:"secret"`
}

func (e Engine) CreateAPIKey(ctx context.Context, actor domain.Actor, userID int64, name string) (IssuedAPIKey, error) {
	if err := positive("user_id", userID); err != nil {
		return IssuedAPIKey{}, err
	}
	if err := e.ensureUser(ctx, "user_id", &userID); err != nil {
		return IssuedAPIKey{}, err
	}
	secret := apiKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: e.stamp(),
	}
	if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
		return IssuedAPIKey{}, storeErr("insert api key", err)
	}
	e.record(ctx, actor, "create", "api_keys", 0)
	return IssuedAPIKey{Key: key, Secret: secret}, nil
}

func (e Engine) ListAPIKeys(ctx context.Context, actor domain.Actor, userID int64) ([]domain.APIKey, error) {
	keys, err := e.Repo.ListAPIKeys(ctx, userID)
	if err != nil {
		return nil, storeErr("list api keys", err)
	}
	return keys, nil
}

func (e Engine) RevokeAPIKey(ctx context.Context, actor domain.Actor, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	if err := e.Repo.DeleteAPIKey(ctx, id); err != nil {
		return writeErr("delete api key", "api key", 0, err)
	}
	e.record(ctx, actor, "delete", "api_keys", 0)
	return nil
}

// AuthenticateAPIKey resolves a plaintext key to its owning user.
func (e Engine) AuthenticateAPIKey(ctx context.Context, secret string) (domain.User, error) {
	if strings.TrimSpace(secret) == "" {
		return domain.User{}, invalid("api_key", "is required")
	}
	key, err := e.Repo.GetAPIKeyByHash(ctx, repo.HashAPIKey(secret))
	if err != nil {
		return domain.User{}, lookupErr("api key", 0, err)
	}
	u, err := e.Repo.GetUser(ctx, key.UserID)
	if err != nil {
		return domain.User{}, lookupErr("user", key.UserID, err)
	}
	return u, nil
}

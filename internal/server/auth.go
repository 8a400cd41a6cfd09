package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

type AuthConfig struct {
	JWTSecret string
	// AllowUserHeader trusts X-User-Id without credentials.
	AllowUserHeader bool
	Logger          *slog.Logger
}

type actorKey struct{}

func (c AuthConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func actorFromContext(ctx context.Context) (domain.Actor, huma.StatusError) {
	if a, ok := ctx.Value(actorKey{}).(domain.Actor); ok && a.UserID > 0 {
		return a, nil
	}
	return domain.Actor{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

// SignToken mints an HS256 token whose subject is the user id.
func SignToken(secret string, userID int64, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  strconv.FormatInt(userID, 10),
		IssuedAt: jwt.NewNumericDate(now),
		Issuer:   "agencydesk",
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func authenticateJWT(token string, secret string) (int64, error) {
	if strings.TrimSpace(secret) == "" {
		return 0, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid {
		return 0, errors.New("invalid token")
	}
	return parseUserID(claims.Subject)
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("user id must be a positive integer")
	}
	return id, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// resolveUser turns an authenticated user id into an Actor carrying the stored role.
func resolveUser(ctx context.Context, e engine.Engine, id int64, source string) (domain.Actor, error) {
	u, err := e.Repo.GetUser(ctx, id)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{UserID: u.ID, Role: u.Role, Source: source}, nil
}

func newAuthMiddleware(basePath string, cfg AuthConfig, e engine.Engine) func(http.Handler) http.Handler {
	public := map[string]bool{
		path.Join(basePath, "health"):       true,
		path.Join(basePath, "openapi.json"): true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if public[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			unauthorized := newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)

			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			apiKeyHeader := strings.TrimSpace(req.Header.Get("X-Api-Key"))
			userHeader := strings.TrimSpace(req.Header.Get("X-User-Id"))

			var (
				actor domain.Actor
				err   error
			)
			switch {
			case authz != "":
				token, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, unauthorized)
					return
				}
				var id int64
				if id, err = authenticateJWT(token, cfg.JWTSecret); err == nil {
					actor, err = resolveUser(req.Context(), e, id, "jwt")
				}
			case apiKeyHeader != "":
				var u domain.User
				if u, err = e.AuthenticateAPIKey(req.Context(), apiKeyHeader); err == nil {
					actor = domain.Actor{UserID: u.ID, Role: u.Role, Source: "api_key"}
				}
			case userHeader != "" && cfg.AllowUserHeader:
				var id int64
				if id, err = parseUserID(userHeader); err == nil {
					actor, err = resolveUser(req.Context(), e, id, "user_header")
				}
			default:
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			if err != nil {
				cfg.logger().Debug("authentication failed", "path", req.URL.Path, "err", err)
				respondStatusError(w, unauthorized)
				return
			}
			next.ServeHTTP(w, req.WithContext(withActor(req.Context(), actor)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

package auth

import (
	"os"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// EnvConfig is an environment backed Config. Values are read once by
// LoadConfig so tests can build the struct directly.
type EnvConfig struct {
	SigningKey           string
	SigningMethod        string
	ContextKey           string
	TokenExpiration      int
	Issuer               string
	Audience             []string
	BaseURL              string
	RejectedRouteKey     string
	RejectedRouteDefault string
}

func (c EnvConfig) GetSigningKey() string           { return c.SigningKey }
func (c EnvConfig) GetSigningMethod() string        { return c.SigningMethod }
func (c EnvConfig) GetContextKey() string           { return c.ContextKey }
func (c EnvConfig) GetTokenExpiration() int         { return c.TokenExpiration }
func (c EnvConfig) GetIssuer() string               { return c.Issuer }
func (c EnvConfig) GetAudience() []string           { return c.Audience }
func (c EnvConfig) GetBaseURL() string              { return c.BaseURL }
func (c EnvConfig) GetRejectedRouteKey() string     { return c.RejectedRouteKey }
func (c EnvConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }

// LoadConfig reads a .env file if present and builds the configuration
// from the environment. JWT_SECRET is the only required value.
func LoadConfig() (*EnvConfig, error) {
	_ = godotenv.Load()

	signingKey := os.Getenv("JWT_SECRET")
	if signingKey == "" {
		return nil, goerrors.New("JWT_SECRET is required", goerrors.CategoryBadInput).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	cfg := &EnvConfig{
		SigningKey:           signingKey,
		SigningMethod:        envOr("JWT_SIGNING_METHOD", "HS256"),
		ContextKey:           envOr("AUTH_CONTEXT_KEY", "_token"),
		TokenExpiration:      envIntOr("AUTH_TOKEN_EXPIRATION", 24),
		Issuer:               os.Getenv("AUTH_ISSUER"),
		BaseURL:              envOr("BASE_URL", "http://localhost:3000"),
		RejectedRouteKey:     envOr("AUTH_REJECTED_ROUTE_KEY", "rejected_route"),
		RejectedRouteDefault: envOr("AUTH_REJECTED_ROUTE_DEFAULT", "/mis-propiedades"),
	}

	if aud := os.Getenv("AUTH_AUDIENCE"); aud != "" {
		for _, a := range strings.Split(aud, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Audience = append(cfg.Audience, a)
			}
		}
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Package jwtauth validates bearer access tokens for the HTTP transport.
// Keys come either from an OIDC issuer (discovery plus an auto-refreshing
// JWKS) or from a shared HS256 secret.
package jwtauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// Config controls validation behavior for access tokens.
type Config struct {
	// Issuer is the expected iss claim. For discovery it is also the base URL
	// of the OIDC provider.
	Issuer string
	// Audience, when set, must appear in the aud claim.
	Audience    string
	AllowedAlgs []string
	Leeway      time.Duration
}

// DefaultConfig returns a Config with safe defaults for algorithm and leeway.
func DefaultConfig() *Config {
	return &Config{
		AllowedAlgs: []string{"RS256", "ES256"},
		Leeway:      60 * time.Second,
	}
}

// UserInfo is the validated principal behind a token.
type UserInfo interface {
	UserID() string
	Claims(ref any) error
}

type userInfo struct {
	sub    string
	claims map[string]any
}

func (u *userInfo) UserID() string { return u.sub }
func (u *userInfo) Claims(ref any) error {
	b, err := json.Marshal(u.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}

// Authenticator validates access tokens. Implementations perform signature,
// issuer, audience and time validations.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, tok string) (UserInfo, error)
}

// ErrUnauthorized indicates that the access token failed validation and the
// request should be treated as unauthenticated.
var ErrUnauthorized = errors.New("jwtauth: unauthorized")

// JWTAuthenticator validates JWTs with a fixed keyfunc and policy.
type JWTAuthenticator struct {
	cfg     Config
	keyfunc jwt.Keyfunc
}

var _ Authenticator = (*JWTAuthenticator)(nil)

// NewFromDiscovery performs OIDC discovery to obtain jwks_uri and the issuer
// and builds an Authenticator backed by an auto-refreshing JWKS.
func NewFromDiscovery(ctx context.Context, cfg *Config) (*JWTAuthenticator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	var meta struct {
		Issuer  string `json:"issuer"`
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, errors.New("discovery incomplete: missing jwks_uri")
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{meta.JwksURI})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}

	c := withDefaults(*cfg)
	c.Issuer = meta.Issuer
	return &JWTAuthenticator{cfg: c, keyfunc: kf.Keyfunc}, nil
}

// NewHS256 builds an Authenticator for tokens signed with a shared secret.
// Issuer and Audience are enforced only when set.
func NewHS256(secret []byte, cfg *Config) (*JWTAuthenticator, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret is required")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.AllowedAlgs = []string{"HS256"}
	c = withDefaults(c)
	return &JWTAuthenticator{cfg: c, keyfunc: func(*jwt.Token) (any, error) {
		return secret, nil
	}}, nil
}

func withDefaults(c Config) Config {
	if len(c.AllowedAlgs) == 0 {
		c.AllowedAlgs = DefaultConfig().AllowedAlgs
	}
	if c.Leeway == 0 {
		c.Leeway = DefaultConfig().Leeway
	}
	return c
}

// CheckAuthentication parses and verifies tok and returns its subject.
func (a *JWTAuthenticator) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(a.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.cfg.Leeway),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}

	parsed, err := jwt.NewParser(opts...).Parse(tok, a.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: token parse/verify failed: %v", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if !slices.Contains(a.cfg.AllowedAlgs, parsed.Method.Alg()) {
		return nil, fmt.Errorf("%w: disallowed alg %s", ErrUnauthorized, parsed.Method.Alg())
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrUnauthorized)
	}
	return &userInfo{sub: sub, claims: claims}, nil
}

package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the type claim.
const (
	KindRefresh = "refresh"
	KindAccess  = "access"
)

var (
	// ErrMissingInput reports an empty or absent token string.
	ErrMissingInput = errors.New("missing token")
	// ErrBadSignature reports a token that failed signature or structural
	// verification.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrExpired reports a token whose exp claim has passed.
	ErrExpired = errors.New("token expired")
	// ErrWrongType reports a token whose type claim does not match the
	// kind the caller required.
	ErrWrongType = errors.New("unexpected token type")
)

// Claims is the shared payload of refresh and access tokens.
type Claims struct {
	TokenType  string `json:"type"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	SessionKey string `json:"session_key"`
	jwt.RegisteredClaims
}

// EnvelopeClaims is the payload of the signed outer envelope accepted by
// the exchange endpoint. The envelope's own exp bounds how long a captured
// request stays replayable; its claims are not required to match the inner
// refresh token's.
type EnvelopeClaims struct {
	RefreshToken string `json:"refresh_token"`
	jwt.RegisteredClaims
}

// Config holds the signing secret and token lifetimes.
type Config struct {
	Secret      []byte
	RefreshTTL  time.Duration
	AccessTTL   time.Duration
	EnvelopeTTL time.Duration
	Leeway      time.Duration
}

// Manager signs and verifies tokens. Safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates the configuration and returns a manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.RefreshTTL <= 0 || cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.EnvelopeTTL <= 0 {
		cfg.EnvelopeTTL = time.Minute
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// IssueRefresh mints a refresh token bound to the given session key.
func (m *Manager) IssueRefresh(username, email, sessionKey string) (string, error) {
	return m.sign(Claims{
		TokenType:  KindRefresh,
		Username:   username,
		Email:      email,
		SessionKey: sessionKey,
	}, m.config.RefreshTTL)
}

// IssueAccessFrom mints an access token carrying the identity claims of a
// verified refresh token. The session binding is preserved.
func (m *Manager) IssueAccessFrom(refresh Claims) (string, error) {
	refresh.TokenType = KindAccess
	return m.sign(refresh, m.config.AccessTTL)
}

// WrapEnvelope signs the outer request envelope around an already-signed
// refresh token.
func (m *Manager) WrapEnvelope(refreshToken string) (string, error) {
	now := m.now()
	claims := EnvelopeClaims{
		RefreshToken: refreshToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.EnvelopeTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// ParseEnvelope verifies the outer envelope and returns the inner refresh
// token string. An envelope without a refresh_token claim is a missing
// input, not a signature failure.
func (m *Manager) ParseEnvelope(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissingInput
	}
	var claims EnvelopeClaims
	if err := m.parse(raw, &claims); err != nil {
		return "", err
	}
	if claims.RefreshToken == "" {
		return "", ErrMissingInput
	}
	return claims.RefreshToken, nil
}

// ParseRefresh verifies a refresh token and returns its claims. A valid
// token of any other kind fails with ErrWrongType.
func (m *Manager) ParseRefresh(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrMissingInput
	}
	var claims Claims
	if err := m.parse(raw, &claims); err != nil {
		return Claims{}, err
	}
	if claims.TokenType != KindRefresh {
		return Claims{}, ErrWrongType
	}
	return claims, nil
}

// ParseAccess verifies an access token and returns its claims.
func (m *Manager) ParseAccess(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrMissingInput
	}
	var claims Claims
	if err := m.parse(raw, &claims); err != nil {
		return Claims{}, err
	}
	if claims.TokenType != KindAccess {
		return Claims{}, ErrWrongType
	}
	return claims, nil
}

func (m *Manager) sign(claims Claims, ttl time.Duration) (string, error) {
	now := m.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

func (m *Manager) parse(raw string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	tok, err := jwt.NewParser(options...).ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return classify(err)
	}
	if !tok.Valid {
		return ErrBadSignature
	}
	return nil
}

// classify folds the jwt library's error space into the exchange taxonomy.
// Expiry is reported distinctly; every other verification failure, malformed
// input included, reads as a signature problem to the caller.
func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpired
	}
	return ErrBadSignature
}

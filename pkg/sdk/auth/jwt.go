package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of tokens minted by JWTProvider.
const DefaultTokenTTL = 15 * time.Minute

// refreshMargin is how long before expiry a token is replaced.
const refreshMargin = time.Minute

// JWTProvider mints short-lived HS256 tokens from a shared secret, for
// service-to-service callers that hold the server's signing key.
type JWTProvider struct {
	secret  []byte
	issuer  string
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTProvider returns a provider signing tokens for subject. ttl <= 0
// uses DefaultTokenTTL.
func NewJWTProvider(secret, issuer, subject string, ttl time.Duration) (*JWTProvider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if subject == "" {
		return nil, errors.New("jwt subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTProvider{
		secret:  []byte(secret),
		issuer:  issuer,
		subject: subject,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Authenticate adds a bearer token, minting a new one when the current one
// is close to expiry.
func (p *JWTProvider) Authenticate(req *http.Request) error {
	token, err := p.current()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Refresh forces a new token.
func (p *JWTProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mintLocked()
}

func (p *JWTProvider) current() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == "" || p.now().Add(refreshMargin).After(p.expires) {
		if err := p.mintLocked(); err != nil {
			return "", err
		}
	}
	return p.token, nil
}

func (p *JWTProvider) mintLocked() error {
	now := p.now()
	exp := now.Add(p.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   p.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	if p.issuer != "" {
		claims.Issuer = p.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return err
	}
	p.token = signed
	p.expires = exp
	return nil
}

package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"zeroforums/internal/domain"
)

// TokenConfig drives the HS256 session token carried in X-Session-Token.
type TokenConfig struct {
	Issuer     string
	Audience   string
	TTL        time.Duration // 24h session lifetime
	SigningKey []byte        // HS256 secret
}

type SessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

type TokenService struct {
	cfg TokenConfig
}

func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// Sign mints the session token bound to the session row.
func (t *TokenService) Sign(sess *domain.Session, now time.Time) (string, error) {
	claims := SessionClaims{
		SID: sess.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   sess.UserID.String(),
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.cfg.SigningKey)
}

// Parse validates a session token and returns the embedded session and user
// ids. Expired or tampered tokens return domain.ErrSessionExpired.
func (t *TokenService) Parse(tokenStr string) (domain.SessionID, domain.UserID, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, uuid.Nil, domain.ErrSessionExpired
	}
	if claims.Issuer != t.cfg.Issuer {
		return uuid.Nil, uuid.Nil, domain.ErrSessionExpired
	}
	if !containsAudience(claims.Audience, t.cfg.Audience) {
		return uuid.Nil, uuid.Nil, domain.ErrSessionExpired
	}
	sid, err := uuid.Parse(claims.SID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrSessionExpired
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrSessionExpired
	}
	return sid, sub, nil
}

func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}

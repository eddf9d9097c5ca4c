package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

const sessionIssuer = "ai-chat-be"

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// TokenRevocationStore tracks session tokens ended by logout.
type TokenRevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type IAuthService interface {
	// AuthenticateGoogle verifies a Google ID token and opens a session.
	AuthenticateGoogle(ctx context.Context, idToken string) (*entity.Identity, *SessionToken, error)
	VerifyToken(ctx context.Context, token string) (*entity.Identity, string, error)
	IssueSession(identity *entity.Identity) (*SessionToken, error)
	Logout(ctx context.Context, token string) error
}

type SessionToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// SessionClaims carries the identity inside the signed session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

func (c *SessionClaims) Identity() *entity.Identity {
	return &entity.Identity{
		Id:      c.Subject,
		Email:   c.Email,
		Name:    c.Name,
		Picture: c.Picture,
	}
}

// IDTokenValidator checks a Google ID token's signature, expiry and
// audience. *idtoken.Validator satisfies it.
type IDTokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

type AuthServiceConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	GoogleClientID string
}

type authService struct {
	cfg         AuthServiceConfig
	secret      []byte
	validator   IDTokenValidator
	revocations TokenRevocationStore
	logger      logger.ILogger
	now         func() time.Time
}

var randRead = rand.Read

func NewAuthService(cfg AuthServiceConfig, validator IDTokenValidator, revocations TokenRevocationStore, log logger.ILogger) (IAuthService, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// Sessions then only survive until restart.
		secret = make([]byte, 32)
		if _, err := randRead(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		log.Warn("AuthService", "JWT_SECRET not set, using a random per-process secret", nil)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	return &authService{
		cfg:         cfg,
		secret:      secret,
		validator:   validator,
		revocations: revocations,
		logger:      log,
		now:         time.Now,
	}, nil
}

// NewGoogleIDTokenValidator checks tokens offline against Google's published
// signing keys, fetched and cached by the idtoken package.
func NewGoogleIDTokenValidator(ctx context.Context) (IDTokenValidator, error) {
	return idtoken.NewValidator(ctx, option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
}

func (s *authService) verifyGoogleIDToken(ctx context.Context, idToken string) (*entity.Identity, error) {
	if s.validator == nil {
		return nil, apperror.Unauthenticated("google sign-in is not configured")
	}

	payload, err := s.validator.Validate(ctx, idToken, s.cfg.GoogleClientID)
	if err != nil {
		s.logger.Warn("AuthService", "Google ID token rejected", map[string]interface{}{"error": err.Error()})
		return nil, &apperror.Error{Kind: apperror.KindUnauthenticated, Message: "invalid id token", Err: err}
	}

	switch {
	case !googleIssuers[payload.Issuer]:
		return nil, apperror.Unauthenticated("wrong issuer")
	case payload.Subject == "":
		return nil, apperror.Unauthenticated("id token has no subject")
	}

	return &entity.Identity{
		Id:      payload.Subject,
		Email:   stringClaim(payload.Claims, "email"),
		Name:    stringClaim(payload.Claims, "name"),
		Picture: stringClaim(payload.Claims, "picture"),
	}, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}

func (s *authService) AuthenticateGoogle(ctx context.Context, idToken string) (*entity.Identity, *SessionToken, error) {
	if idToken == "" {
		return nil, nil, apperror.InvalidArgument("no token provided")
	}

	identity, err := s.verifyGoogleIDToken(ctx, idToken)
	if err != nil {
		if apperror.KindOf(err) == "" {
			s.logger.Error("AuthService", "Google token verification failed", map[string]interface{}{"error": err})
			return nil, nil, &apperror.Error{Kind: apperror.KindUnauthenticated, Message: "authentication failed", Err: err}
		}
		return nil, nil, err
	}

	session, err := s.IssueSession(identity)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("AuthService", "User signed in", map[string]interface{}{"user_id": identity.Id})
	return identity, session, nil
}

func (s *authService) IssueSession(identity *entity.Identity) (*SessionToken, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   identity.Id,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:   identity.Email,
		Name:    identity.Name,
		Picture: identity.Picture,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &SessionToken{Token: signed, ID: claims.ID, ExpiresAt: expiresAt}, nil
}

func (s *authService) parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("session token missing subject or id")
	}
	return claims, nil
}

func (s *authService) VerifyToken(ctx context.Context, token string) (*entity.Identity, string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, "", apperror.Unauthenticated("invalid session")
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, "", apperror.Store(err)
	}
	if revoked {
		return nil, "", apperror.Unauthenticated("session ended")
	}

	return claims.Identity(), claims.ID, nil
}

// Logout revokes the token until its natural expiry. Invalid or missing
// tokens need no revocation.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperror.Store(err)
	}

	s.logger.Info("AuthService", "User logged out", map[string]interface{}{"user_id": claims.Subject})
	return nil
}

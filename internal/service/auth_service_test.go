package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

const testClientID = "client-123.apps.googleusercontent.com"

// fakeIDTokenValidator accepts the "good-*" tokens for testClientID.
type fakeIDTokenValidator struct {
	err error
}

func (v *fakeIDTokenValidator) Validate(_ context.Context, idToken, audience string) (*idtoken.Payload, error) {
	if v.err != nil {
		return nil, v.err
	}
	payload := &idtoken.Payload{
		Issuer:   "https://accounts.google.com",
		Audience: testClientID,
		Subject:  "1234567890",
		Expires:  4102444800,
		Claims: map[string]interface{}{
			"email":   "alice@example.com",
			"name":    "Alice",
			"picture": "https://example.com/a.png",
		},
	}
	switch idToken {
	case "good-token":
	case "good-other-aud":
		payload.Audience = "someone-else"
	case "good-bad-iss":
		payload.Issuer = "evil.example.com"
	case "good-no-sub":
		payload.Subject = ""
	default:
		return nil, errors.New("idtoken: invalid token")
	}
	if payload.Audience != audience {
		return nil, errors.New("idtoken: audience provided does not match aud claim in the JWT")
	}
	return payload, nil
}

// newGoogleStub serves the OAuth2 token endpoint for code "auth-code".
func newGoogleStub(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "auth-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"good-token"}`))
	}))
}

func newTestAuthServiceWith(t *testing.T, validator IDTokenValidator) *authService {
	svc, err := NewAuthService(AuthServiceConfig{
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		GoogleClientID: testClientID,
	}, validator, memory.NewRevocationRepository(), logger.NewNopLogger())
	require.NoError(t, err)
	return svc.(*authService)
}

func newTestAuthService(t *testing.T) *authService {
	return newTestAuthServiceWith(t, &fakeIDTokenValidator{})
}

func TestAuthenticateGoogle(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	identity, session, err := svc.AuthenticateGoogle(ctx, "good-token")
	require.NoError(t, err)
	assert.Equal(t, &entity.Identity{
		Id:      "1234567890",
		Email:   "alice@example.com",
		Name:    "Alice",
		Picture: "https://example.com/a.png",
	}, identity)
	assert.NotEmpty(t, session.Token)
	assert.NotEmpty(t, session.ID)

	for _, token := range []string{"good-other-aud", "good-bad-iss", "good-no-sub", "garbage"} {
		_, _, err := svc.AuthenticateGoogle(ctx, token)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated, token)
	}

	_, _, err = svc.AuthenticateGoogle(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestAuthenticateGoogleValidatorFailure(t *testing.T) {
	svc := newTestAuthServiceWith(t, &fakeIDTokenValidator{err: errors.New("fetch certs: connection refused")})

	_, _, err := svc.AuthenticateGoogle(context.Background(), "good-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	assert.Equal(t, "invalid id token", err.(*apperror.Error).Message)

	unconfigured := newTestAuthServiceWith(t, nil)
	_, _, err = unconfigured.AuthenticateGoogle(context.Background(), "good-token")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestNewAuthServiceRandomSecret(t *testing.T) {
	svc, err := NewAuthService(AuthServiceConfig{}, nil, memory.NewRevocationRepository(), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Len(t, svc.(*authService).secret, 32)

	orig := randRead
	defer func() { randRead = orig }()
	randRead = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

	_, err = NewAuthService(AuthServiceConfig{}, nil, memory.NewRevocationRepository(), logger.NewNopLogger())
	assert.ErrorContains(t, err, "generate session secret")
}

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()
	alice := &entity.Identity{Id: "sub-1", Email: "alice@example.com", Name: "Alice"}

	session, err := svc.IssueSession(alice)
	require.NoError(t, err)

	identity, jti, err := svc.VerifyToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, alice, identity)
	assert.Equal(t, session.ID, jti)

	// Tampered payload fails the signature check.
	parts := strings.Split(session.Token, ".")
	require.Len(t, parts, 3)
	_, _, err = svc.VerifyToken(ctx, parts[0]+"."+parts[1]+"x."+parts[2])
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	// Tokens signed with another key or algorithm are rejected.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "sub-1", "jti": "x", "iss": sessionIssuer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, _, err = svc.VerifyToken(ctx, forged)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "sub-1", "jti": "x", "iss": sessionIssuer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, _, err = svc.VerifyToken(ctx, none)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestSessionTokenExpires(t *testing.T) {
	svc := newTestAuthService(t)
	session, err := svc.IssueSession(&entity.Identity{Id: "sub-1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, err = svc.VerifyToken(context.Background(), session.Token)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	session, err := svc.IssueSession(&entity.Identity{Id: "sub-1"})
	require.NoError(t, err)
	other, err := svc.IssueSession(&entity.Identity{Id: "sub-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))
	_, _, err = svc.VerifyToken(ctx, session.Token)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	// Other sessions of the same user stay valid.
	_, _, err = svc.VerifyToken(ctx, other.Token)
	assert.NoError(t, err)

	assert.NoError(t, svc.Logout(ctx, ""))
	assert.NoError(t, svc.Logout(ctx, "not-a-jwt"))
}

func TestOAuthCallback(t *testing.T) {
	stub := newGoogleStub(t)
	defer stub.Close()
	auth := newTestAuthService(t)

	oauth := NewOAuthService(OAuthConfig{
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:9527/api/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  stub.URL + "/auth",
			TokenURL: stub.URL + "/token",
		},
	}, auth, logger.NewNopLogger())

	state := oauth.NewState()
	loginURL, err := oauth.GetLoginURL("google", state)
	require.NoError(t, err)
	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	assert.Equal(t, state, parsed.Query().Get("state"))
	assert.Equal(t, testClientID, parsed.Query().Get("client_id"))

	_, err = oauth.GetLoginURL("github", state)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	identity, session, err := oauth.HandleCallback(context.Background(), "google", "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "1234567890", identity.Id)
	assert.NotEmpty(t, session.Token)

	_, _, err = oauth.HandleCallback(context.Background(), "google", "wrong-code")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type IOAuthService interface {
	NewState() string
	GetLoginURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, code string) (*entity.Identity, *SessionToken, error)
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint // zero value means Google
}

type oauthService struct {
	googleConf *oauth2.Config
	auth       IAuthService
	logger     logger.ILogger
}

func NewOAuthService(cfg OAuthConfig, auth IAuthService, log logger.ILogger) IOAuthService {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     endpoint,
	}

	return &oauthService{
		googleConf: conf,
		auth:       auth,
		logger:     log,
	}
}

func (s *oauthService) NewState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *oauthService) GetLoginURL(provider, state string) (string, error) {
	if provider != "google" {
		return "", apperror.NotFound("unsupported provider")
	}
	return s.googleConf.AuthCodeURL(state), nil
}

// HandleCallback exchanges the code and signs in with the ID token from the
// token response, so both sign-in paths share one verification.
func (s *oauthService) HandleCallback(ctx context.Context, provider, code string) (*entity.Identity, *SessionToken, error) {
	if provider != "google" {
		return nil, nil, apperror.NotFound("unsupported provider")
	}
	if code == "" {
		return nil, nil, apperror.InvalidArgument("missing code")
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("OAuthService", "Code exchange failed", map[string]interface{}{"error": err})
		return nil, nil, &apperror.Error{Kind: apperror.KindUnauthenticated, Message: "code exchange failed", Err: err}
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, nil, apperror.Unauthenticated("token response has no id_token")
	}

	return s.auth.AuthenticateGoogle(ctx, idToken)
}

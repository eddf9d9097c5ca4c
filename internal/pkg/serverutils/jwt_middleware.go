package serverutils

import (
	"context"
	"strings"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/entity"

	"github.com/gofiber/fiber/v2"
)

const (
	identityKey = "identity"
	tokenIDKey  = "token_id"
)

// TokenVerifier resolves a session token to the identity it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*entity.Identity, string, error)
}

// ExtractToken reads a bearer token, falling back to the session cookie.
func ExtractToken(ctx *fiber.Ctx, cookieName string) string {
	authHeader := ctx.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ctx.Cookies(cookieName)
}

// JwtMiddleware accepts the session token from the Authorization header or
// the session cookie and stores the typed identity in Locals.
func JwtMiddleware(verifier TokenVerifier, cookieName string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := ExtractToken(ctx, cookieName)
		if tokenStr == "" {
			return apperror.Unauthenticated("user not authenticated")
		}

		identity, tokenID, err := verifier.VerifyToken(ctx.UserContext(), tokenStr)
		if err != nil {
			return err
		}

		ctx.Locals(identityKey, identity)
		ctx.Locals(tokenIDKey, tokenID)
		return ctx.Next()
	}
}

// CurrentIdentity returns the identity attached by JwtMiddleware.
func CurrentIdentity(ctx *fiber.Ctx) (*entity.Identity, error) {
	identity, ok := ctx.Locals(identityKey).(*entity.Identity)
	if !ok || identity == nil {
		return nil, apperror.Unauthenticated("user not authenticated")
	}
	return identity, nil
}

func CurrentTokenID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(tokenIDKey).(string)
	return id
}

package controller

import (
	"time"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const oauthStateCookie = "oauth_state"

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	GoogleLogin(ctx *fiber.Ctx) error
	OAuthLogin(ctx *fiber.Ctx) error
	OAuthCallback(ctx *fiber.Ctx) error
	CurrentUser(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type AuthControllerConfig struct {
	CookieName   string
	CookieSecure bool
	ClientURL    string
}

type authController struct {
	cfg          AuthControllerConfig
	authService  service.IAuthService
	oauthService service.IOAuthService
	auth         fiber.Handler
	logger       logger.ILogger
}

func NewAuthController(
	cfg AuthControllerConfig,
	authService service.IAuthService,
	oauthService service.IOAuthService,
	auth fiber.Handler,
	log logger.ILogger,
) IAuthController {
	return &authController{
		cfg:          cfg,
		authService:  authService,
		oauthService: oauthService,
		auth:         auth,
		logger:       log,
	}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/google", c.GoogleLogin)
	h.Get("/:provider/login", c.OAuthLogin)
	h.Get("/:provider/callback", c.OAuthCallback)
	h.Get("/user", c.auth, c.CurrentUser)
	h.Post("/logout", c.Logout)
}

func (c *authController) setSessionCookie(ctx *fiber.Ctx, session *service.SessionToken) {
	ctx.Cookie(&fiber.Cookie{
		Name:     c.cfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   c.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (c *authController) GoogleLogin(ctx *fiber.Ctx) error {
	var req dto.GoogleLoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if req.IdToken == "" {
		return apperror.InvalidArgument("no token provided")
	}

	identity, session, err := c.authService.AuthenticateGoogle(ctx.UserContext(), req.IdToken)
	if err != nil {
		return err
	}

	c.setSessionCookie(ctx, session)
	return ctx.JSON(dto.LoginResponse{
		Status: serverutils.StatusSuccess,
		User:   identity,
		Token:  session.Token,
	})
}

func (c *authController) OAuthLogin(ctx *fiber.Ctx) error {
	state := c.oauthService.NewState()
	url, err := c.oauthService.GetLoginURL(ctx.Params("provider"), state)
	if err != nil {
		return err
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   c.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return ctx.Redirect(url, fiber.StatusTemporaryRedirect)
}

func (c *authController) OAuthCallback(ctx *fiber.Ctx) error {
	state := ctx.Query("state")
	if state == "" || state != ctx.Cookies(oauthStateCookie) {
		c.logger.Warn("AuthController", "OAuth state mismatch", map[string]interface{}{"ip": ctx.IP()})
		return apperror.Unauthenticated("invalid oauth state")
	}
	ctx.ClearCookie(oauthStateCookie)

	identity, session, err := c.oauthService.HandleCallback(ctx.UserContext(), ctx.Params("provider"), ctx.Query("code"))
	if err != nil {
		return err
	}

	c.logger.Info("AuthController", "OAuth sign-in completed", map[string]interface{}{"user_id": identity.Id})
	c.setSessionCookie(ctx, session)
	return ctx.Redirect(c.cfg.ClientURL, fiber.StatusTemporaryRedirect)
}

func (c *authController) CurrentUser(ctx *fiber.Ctx) error {
	identity, err := serverutils.CurrentIdentity(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(dto.CurrentUserResponse{Status: serverutils.StatusSuccess, User: identity})
}

// Logout always succeeds for the client; the cookie is cleared even when the
// token was already invalid.
func (c *authController) Logout(ctx *fiber.Ctx) error {
	token := serverutils.ExtractToken(ctx, c.cfg.CookieName)
	if err := c.authService.Logout(ctx.UserContext(), token); err != nil {
		return err
	}

	ctx.ClearCookie(c.cfg.CookieName)
	return ctx.JSON(serverutils.SuccessResponse[any]("Successfully logged out", nil))
}

package handler

import (
	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	internalWS "ai-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ChatEventsHandler streams the caller's chat events over a websocket.
type ChatEventsHandler struct {
	hub        *internalWS.Hub
	verifier   serverutils.TokenVerifier
	cookieName string
	logger     logger.ILogger
}

func NewChatEventsHandler(hub *internalWS.Hub, verifier serverutils.TokenVerifier, cookieName string, log logger.ILogger) *ChatEventsHandler {
	return &ChatEventsHandler{
		hub:        hub,
		verifier:   verifier,
		cookieName: cookieName,
		logger:     log,
	}
}

// ServeWs authenticates the handshake, then upgrades. Browsers cannot set
// headers on websocket requests, so a "token" query parameter is accepted
// besides the bearer header and session cookie.
func (h *ChatEventsHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.ExtractToken(c, h.cookieName)
	}
	if tokenStr == "" {
		return apperror.Unauthenticated("user not authenticated")
	}

	identity, _, err := h.verifier.VerifyToken(c.UserContext(), tokenStr)
	if err != nil {
		h.logger.Warn("ChatEventsHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return err
	}

	ownerId := identity.Id
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ChatEventsHandler", "Starting WebSocket session", map[string]interface{}{"owner_id": ownerId})
		internalWS.ServeWs(h.hub, conn, ownerId)
		h.logger.Info("ChatEventsHandler", "WebSocket session ended", map[string]interface{}{"owner_id": ownerId})
	})(c)
}

func (h *ChatEventsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

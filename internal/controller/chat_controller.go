package controller

import (
	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(app fiber.Router, api fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	NewChat(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Rename(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	auth        fiber.Handler
}

func NewChatController(chatService service.IChatService, auth fiber.Handler) IChatController {
	return &chatController{
		chatService: chatService,
		auth:        auth,
	}
}

// RegisterRoutes mounts POST /chat on the root router and the chat management
// routes under /api/chat.
func (c *chatController) RegisterRoutes(app fiber.Router, api fiber.Router) {
	app.Post("/chat", c.auth, c.SendMessage)

	h := api.Group("/chat")
	h.Use(c.auth)
	h.Post("/new", c.NewChat)
	h.Get("/history", c.History)
	h.Get("/:id", c.Show)
	h.Delete("/:id/delete", c.Delete)
	h.Put("/:id/rename", c.Rename)
}

func parseChatID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.NotFound("chat not found")
	}
	return id, nil
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	identity, err := serverutils.CurrentIdentity(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.UserContext(), identity, req.ChatId, req.Message)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *chatController) NewChat(ctx *fiber.Ctx) error {
	identity, err := serverutils.CurrentIdentity(ctx)
	if err != nil {
		return err
	}

	chatId, err := c.chatService.CreateChat(ctx.UserContext(), identity.Id, "")
	if err != nil {
		return err
	}

	return ctx.JSON(dto.CreateChatResponse{Status: serverutils.StatusSuccess, ChatId: chatId})
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	identity, err := serverutils.CurrentIdentity(ctx)
	if err != nil {
		return err
	}

	chats, err := c.chatService.ListChats(ctx.UserContext(), identity.Id)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.ChatHistoryResponse{Status: serverutils.StatusSuccess, Chats: chats})
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	identity, err := serverutils.CurrentIdentity(ctx)
	if err != nil {
		return err
	}
	chatId, err := parseChatID(ctx)
	if err != nil {
		return err
	}

	chat, err := c.chatService.GetChat(ctx.UserContext(), identity.Id, chatId)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.ChatDetailResponse{Status: serverutils.StatusSuccess, Chat: *chat})
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	identity, err := serverutils.CurrentIdentity(ctx)
	if err != nil {
		return err
	}
	chatId, err := parseChatID(ctx)
	if err != nil {
		return err
	}

	if err := c.chatService.DeleteChat(ctx.UserContext(), identity.Id, chatId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Chat deleted successfully", nil))
}

func (c *chatController) Rename(ctx *fiber.Ctx) error {
	identity, err := serverutils.CurrentIdentity(ctx)
	if err != nil {
		return err
	}
	chatId, err := parseChatID(ctx)
	if err != nil {
		return err
	}

	var req dto.RenameChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.InvalidArgument("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.RenameChat(ctx.UserContext(), identity.Id, chatId, req.Title); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Chat renamed successfully", nil))
}

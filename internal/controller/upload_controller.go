package controller

import (
	"io"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUploadController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
}

type uploadController struct {
	uploadService service.IUploadService
	auth          fiber.Handler
}

func NewUploadController(uploadService service.IUploadService, auth fiber.Handler) IUploadController {
	return &uploadController{uploadService: uploadService, auth: auth}
}

func (c *uploadController) RegisterRoutes(r fiber.Router) {
	r.Post("/upload", c.auth, c.Upload)
	r.Post("/analyze/:filename", c.auth, c.Analyze)
}

func (c *uploadController) Upload(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return apperror.InvalidArgument("no file part")
	}

	f, err := header.Open()
	if err != nil {
		return apperror.InvalidArgument("unreadable file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return apperror.InvalidArgument("unreadable file")
	}

	name, err := c.uploadService.StoreFile(ctx.UserContext(), data, header.Filename)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.UploadResponse{Message: "File uploaded successfully", Filename: name})
}

func (c *uploadController) Analyze(ctx *fiber.Ctx) error {
	var req dto.AnalyzeRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.InvalidArgument("invalid request body")
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	analysis, err := c.uploadService.Analyze(ctx.UserContext(), ctx.Params("filename"), req.Question)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.AnalyzeResponse{Analysis: analysis})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/llm"

	"github.com/google/uuid"
)

type IUploadService interface {
	StoreFile(ctx context.Context, data []byte, name string) (string, error)
	Analyze(ctx context.Context, storedName, question string) (string, error)
}

type UploadServiceConfig struct {
	Dir         string
	MaxSize     int
	VisionModel string
}

type uploadService struct {
	cfg      UploadServiceConfig
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewUploadService(cfg UploadServiceConfig, provider llm.LLMProvider, log logger.ILogger) IUploadService {
	return &uploadService{cfg: cfg, provider: provider, logger: log}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename keeps the base name and replaces anything outside a
// conservative ASCII set.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func (s *uploadService) StoreFile(ctx context.Context, data []byte, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", apperror.InvalidArgument("no selected file")
	}
	ext := extensionOf(name)
	if !constant.AllowedUploadExtensions[ext] {
		return "", apperror.InvalidArgument("file type not allowed")
	}
	if s.cfg.MaxSize > 0 && len(data) > s.cfg.MaxSize {
		return "", apperror.InvalidArgument("file too large")
	}

	base := sanitizeFilename(name)
	if extensionOf(base) != ext {
		base = "upload." + ext
	}
	storedName := uuid.NewString()[:8] + "_" + base

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", apperror.Store(err)
	}
	if err := os.WriteFile(filepath.Join(s.cfg.Dir, storedName), data, 0o644); err != nil {
		return "", apperror.Store(err)
	}

	s.logger.Info("UploadService", "File stored", map[string]interface{}{"filename": storedName, "size": len(data)})
	return storedName, nil
}

func (s *uploadService) readStored(storedName string) ([]byte, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.HasPrefix(storedName, ".") {
		return nil, apperror.NotFound("file not found")
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.Dir, storedName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperror.NotFound("file not found")
	}
	if err != nil {
		return nil, apperror.Store(err)
	}
	return data, nil
}

func (s *uploadService) Analyze(ctx context.Context, storedName, question string) (string, error) {
	ext := extensionOf(storedName)
	if !constant.AllowedUploadExtensions[ext] {
		return "", apperror.UnsupportedMedia("unsupported file type")
	}

	data, err := s.readStored(storedName)
	if err != nil {
		return "", err
	}

	var analysis string
	switch {
	case ext == "txt":
		analysis, err = s.analyzeText(ctx, string(data), question)
	case constant.ImageMimeTypes[ext] != "":
		analysis, err = s.analyzeImage(ctx, constant.ImageMimeTypes[ext], data)
	default:
		return "", apperror.UnsupportedMedia(fmt.Sprintf("text extraction for .%s files is not available", ext))
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("UploadService", "File analyzed", map[string]interface{}{"filename": storedName})
	return analysis, nil
}

func (s *uploadService) analyzeText(ctx context.Context, content, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		question = constant.AnalyzeDefaultQuestion
	}
	if r := []rune(content); len(r) > constant.AnalyzeMaxContentRunes {
		content = string(r[:constant.AnalyzeMaxContentRunes])
	}

	reply, err := s.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: constant.AnalyzeSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("文件內容：\n\n%s\n\n用戶問題：%s", content, question)},
	}, llm.WithMaxTokens(constant.AnalyzeMaxTokens))
	if err != nil {
		return "", apperror.Provider(err)
	}
	return reply, nil
}

func (s *uploadService) analyzeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	vision, ok := s.provider.(llm.VisionProvider)
	if !ok {
		return "", apperror.UnsupportedMedia("the configured model cannot analyze images")
	}

	opts := []llm.Option{llm.WithMaxTokens(constant.AnalyzeImageMaxTokens)}
	if s.cfg.VisionModel != "" {
		opts = append(opts, llm.WithModel(s.cfg.VisionModel))
	}

	reply, err := vision.DescribeImage(ctx, constant.AnalyzeImagePrompt, mimeType, data, opts...)
	if err != nil {
		return "", apperror.Provider(err)
	}
	return reply, nil
}

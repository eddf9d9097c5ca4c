package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/lock"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ai-chat-be/internal/service")

type IChatService interface {
	CreateChat(ctx context.Context, ownerId string, title string) (uuid.UUID, error)
	GetChat(ctx context.Context, ownerId string, chatId uuid.UUID) (*dto.ChatDetail, error)
	ListChats(ctx context.Context, ownerId string) ([]dto.ChatSummary, error)
	GetMessages(ctx context.Context, chatId uuid.UUID) ([]*entity.ChatMessage, error)
	RenameChat(ctx context.Context, ownerId string, chatId uuid.UUID, title string) error
	DeleteChat(ctx context.Context, ownerId string, chatId uuid.UUID) error
	SendMessage(ctx context.Context, identity *entity.Identity, chatId *uuid.UUID, text string) (*dto.SendMessageResponse, error)
}

type ChatServiceConfig struct {
	SystemPrompt      string
	MaxTokens         int
	CompletionTimeout time.Duration
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	provider   llm.LLMProvider
	locker     lock.Locker
	publisher  IPublisherService
	logger     logger.ILogger
	cfg        ChatServiceConfig
	now        func() time.Time
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	provider llm.LLMProvider,
	locker lock.Locker,
	publisher IPublisherService,
	log logger.ILogger,
	cfg ChatServiceConfig,
) IChatService {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = constant.DefaultSystemPrompt
	}
	return &chatService{
		uowFactory: uowFactory,
		provider:   provider,
		locker:     locker,
		publisher:  publisher,
		logger:     log,
		cfg:        cfg,
		now:        time.Now,
	}
}

// DeriveTitle keeps the first TitleMaxRunes characters of text and marks
// the cut with an ellipsis.
func DeriveTitle(text string) string {
	if utf8.RuneCountInString(text) <= constant.TitleMaxRunes {
		return text
	}
	return string([]rune(text)[:constant.TitleMaxRunes]) + constant.TitleEllipsis
}

// clock returns UTC time at the precision every supported store keeps.
func (s *chatService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// after returns t, or the instant just past prev when t would not sort after it.
func after(t, prev time.Time) time.Time {
	if !prev.IsZero() && !t.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return t
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.InvalidArgument("title is required")
	}
	if utf8.RuneCountInString(title) > constant.MaxTitleLength {
		return "", apperror.InvalidArgument(fmt.Sprintf("title must be at most %d characters", constant.MaxTitleLength))
	}
	return title, nil
}

func findOwnedChat(ctx context.Context, repo contract.ChatRepository, ownerId string, chatId uuid.UUID) (*entity.Chat, error) {
	chat, err := repo.FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{OwnerID: ownerId},
	)
	if err != nil {
		return nil, apperror.Store(err)
	}
	if chat == nil {
		return nil, apperror.NotFound("chat not found")
	}
	return chat, nil
}

func chatEventData(chat *entity.Chat) map[string]interface{} {
	return map[string]interface{}{
		"chat_id":    chat.Id.String(),
		"owner_id":   chat.OwnerId,
		"title":      chat.Title,
		"updated_at": chat.UpdatedAt,
	}
}

func messageEventData(ownerId string, msg *entity.ChatMessage) map[string]interface{} {
	return map[string]interface{}{
		"chat_id":    msg.ChatId.String(),
		"owner_id":   ownerId,
		"message_id": msg.Id.String(),
		"role":       msg.Role.String(),
		"content":    msg.Content,
		"timestamp":  msg.Timestamp,
	}
}

func (s *chatService) CreateChat(ctx context.Context, ownerId string, title string) (uuid.UUID, error) {
	if ownerId == "" {
		return uuid.Nil, apperror.Unauthenticated("user not authenticated")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = entity.DefaultChatTitle
	}
	title, err := validateTitle(title)
	if err != nil {
		return uuid.Nil, err
	}

	now := s.clock()
	chat := &entity.Chat{
		Id:        uuid.New(),
		OwnerId:   ownerId,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatRepository().Create(ctx, chat); err != nil {
		return uuid.Nil, apperror.Store(err)
	}

	s.publisher.PublishEvent(ctx, events.TypeChatCreated, chatEventData(chat))
	return chat.Id, nil
}

func (s *chatService) GetChat(ctx context.Context, ownerId string, chatId uuid.UUID) (*dto.ChatDetail, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := findOwnedChat(ctx, uow.ChatRepository(), ownerId, chatId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chat.Id},
		specification.Chronological(),
	)
	if err != nil {
		return nil, apperror.Store(err)
	}

	res := make([]dto.ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, dto.ChatMessageResponse{
			Id:        m.Id,
			Role:      m.Role.String(),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}

	return &dto.ChatDetail{
		Id:       chat.Id,
		Title:    chat.Title,
		Messages: res,
	}, nil
}

func (s *chatService) ListChats(ctx context.Context, ownerId string) ([]dto.ChatSummary, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := append([]specification.Specification{specification.OwnedBy{OwnerID: ownerId}},
		specification.MostRecentlyActive()...)
	chats, err := uow.ChatRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, apperror.Store(err)
	}

	res := make([]dto.ChatSummary, 0, len(chats))
	for _, c := range chats {
		res = append(res, dto.ChatSummary{Id: c.Id, Title: c.Title})
	}
	return res, nil
}

// GetMessages does not check existence; an unknown chat has no messages.
func (s *chatService) GetMessages(ctx context.Context, chatId uuid.UUID) ([]*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.Chronological(),
	)
	if err != nil {
		return nil, apperror.Store(err)
	}
	return messages, nil
}

func (s *chatService) RenameChat(ctx context.Context, ownerId string, chatId uuid.UUID, title string) error {
	title, err := validateTitle(title)
	if err != nil {
		return err
	}

	unlock, err := s.lockChat(ctx, chatId)
	if err != nil {
		return err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Store(err)
	}
	defer uow.Rollback()

	chat, err := findOwnedChat(ctx, uow.ChatRepository(), ownerId, chatId)
	if err != nil {
		return err
	}

	at := after(s.clock(), chat.UpdatedAt)
	if err := uow.ChatRepository().UpdateTitle(ctx, chat.Id, title, at); err != nil {
		return apperror.Store(err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Store(err)
	}

	chat.Title = title
	chat.UpdatedAt = at
	s.publisher.PublishEvent(ctx, events.TypeChatRenamed, chatEventData(chat))
	return nil
}

// DeleteChat is idempotent: a missing chat, or one owned by someone else,
// is reported as success without touching anything. It waits for an
// in-flight send on the same chat to finish first.
func (s *chatService) DeleteChat(ctx context.Context, ownerId string, chatId uuid.UUID) error {
	unlock, err := s.lockChat(ctx, chatId)
	if err != nil {
		return err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Store(err)
	}
	defer uow.Rollback()

	chat, err := uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{OwnerID: ownerId},
	)
	if err != nil {
		return apperror.Store(err)
	}
	if chat == nil {
		return nil
	}

	if err := uow.ChatMessageRepository().DeleteByChatId(ctx, chat.Id); err != nil {
		return apperror.Store(err)
	}
	if err := uow.ChatRepository().Delete(ctx, chat.Id); err != nil {
		return apperror.Store(err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Store(err)
	}

	s.publisher.PublishEvent(ctx, events.TypeChatDeleted, chatEventData(chat))
	return nil
}

// lockChat serializes writers of one chat: sends, renames and deletes.
func (s *chatService) lockChat(ctx context.Context, chatId uuid.UUID) (func(), error) {
	unlock, err := s.locker.Lock(ctx, chatId.String())
	if err != nil {
		return nil, apperror.Store(fmt.Errorf("acquire chat lock: %w", err))
	}
	return unlock, nil
}

func (s *chatService) buildPayload(history []*entity.ChatMessage, text string) []llm.Message {
	payload := make([]llm.Message, 0, len(history)+2)
	payload = append(payload, llm.Message{Role: llm.RoleSystem, Content: s.cfg.SystemPrompt})
	for _, m := range history {
		payload = append(payload, llm.Message{Role: m.Role.String(), Content: m.Content})
	}
	return append(payload, llm.Message{Role: llm.RoleUser, Content: text})
}

func (s *chatService) complete(ctx context.Context, payload []llm.Message) (string, error) {
	ctx, span := tracer.Start(ctx, "LLMProvider.Chat", trace.WithAttributes(
		attribute.Int("llm.messages", len(payload)),
		attribute.Int("llm.max_tokens", s.cfg.MaxTokens),
	))
	defer span.End()

	if s.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CompletionTimeout)
		defer cancel()
	}

	reply, err := s.provider.Chat(ctx, payload, llm.WithMaxTokens(s.cfg.MaxTokens))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	return reply, nil
}

// SendMessage runs one user turn: it reads the history, asks the provider
// for a reply and stores both messages in a single transaction. Nothing is
// written when the provider fails, including the chat itself when it would
// have been created by this call. The per-chat lock is held from the
// history read to the commit.
func (s *chatService) SendMessage(ctx context.Context, identity *entity.Identity, chatId *uuid.UUID, text string) (*dto.SendMessageResponse, error) {
	ctx, span := tracer.Start(ctx, "ChatService.SendMessage")
	defer span.End()

	if identity == nil || identity.Id == "" {
		return nil, apperror.Unauthenticated("user not authenticated")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperror.InvalidArgument("message is required")
	}
	if utf8.RuneCountInString(text) > constant.MaxMessageLength {
		return nil, apperror.InvalidArgument(fmt.Sprintf("message must be at most %d characters", constant.MaxMessageLength))
	}

	startedAt := s.clock()

	var chat *entity.Chat
	isNew := chatId == nil || *chatId == uuid.Nil
	if isNew {
		chat = &entity.Chat{
			Id:        uuid.New(),
			OwnerId:   identity.Id,
			Title:     DeriveTitle(text),
			CreatedAt: startedAt,
			UpdatedAt: startedAt,
		}
		chatId = &chat.Id
	}

	unlock, err := s.lockChat(ctx, *chatId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)

	var history []*entity.ChatMessage
	if !isNew {
		chat, err = findOwnedChat(ctx, uow.ChatRepository(), identity.Id, *chatId)
		if err != nil {
			return nil, err
		}
		history, err = uow.ChatMessageRepository().FindAll(ctx,
			specification.ByChatID{ChatID: chat.Id},
			specification.Chronological(),
		)
		if err != nil {
			return nil, apperror.Store(err)
		}
	}
	span.SetAttributes(
		attribute.String("chat.id", chat.Id.String()),
		attribute.Bool("chat.new", isNew),
		attribute.Int("chat.history", len(history)),
	)

	reply, err := s.complete(ctx, s.buildPayload(history, text))
	if err != nil {
		s.logger.Warn("ChatService", "Completion failed, nothing persisted", map[string]interface{}{
			"chat_id": chat.Id.String(),
			"error":   err.Error(),
		})
		return nil, apperror.Provider(err)
	}

	var last time.Time
	if n := len(history); n > 0 {
		last = history[n-1].Timestamp
	}
	userMsg := &entity.ChatMessage{
		Id:        uuid.New(),
		ChatId:    chat.Id,
		Role:      entity.MessageRoleUser,
		Content:   text,
		Timestamp: after(startedAt, last),
	}
	assistantMsg := &entity.ChatMessage{
		Id:      uuid.New(),
		ChatId:  chat.Id,
		Role:    entity.MessageRoleAssistant,
		Content: reply,
	}
	assistantMsg.Timestamp = after(s.clock(), userMsg.Timestamp)

	derived := !isNew && chat.HasDefaultTitle()
	if err := s.persistTurn(ctx, uow, chat, isNew, derived, text, userMsg, assistantMsg); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if isNew {
		s.publisher.PublishEvent(ctx, events.TypeChatCreated, chatEventData(chat))
	} else if derived {
		s.publisher.PublishEvent(ctx, events.TypeChatRenamed, chatEventData(chat))
	}
	s.publisher.PublishEvent(ctx, events.TypeChatMessageAppended, messageEventData(chat.OwnerId, userMsg))
	s.publisher.PublishEvent(ctx, events.TypeChatMessageAppended, messageEventData(chat.OwnerId, assistantMsg))

	return &dto.SendMessageResponse{
		Response: reply,
		ChatId:   chat.Id,
	}, nil
}

func (s *chatService) persistTurn(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	chat *entity.Chat,
	isNew, derived bool,
	text string,
	userMsg, assistantMsg *entity.ChatMessage,
) error {
	if err := uow.Begin(ctx); err != nil {
		return apperror.Store(err)
	}
	defer uow.Rollback()

	chats := uow.ChatRepository()
	messages := uow.ChatMessageRepository()

	switch {
	case isNew:
		if err := chats.Create(ctx, chat); err != nil {
			return apperror.Store(err)
		}
	case derived:
		title := DeriveTitle(text)
		if err := chats.UpdateTitle(ctx, chat.Id, title, userMsg.Timestamp); err != nil {
			return apperror.Store(err)
		}
		chat.Title = title
	}

	for _, msg := range []*entity.ChatMessage{userMsg, assistantMsg} {
		if err := messages.Create(ctx, msg); err != nil {
			return apperror.Store(err)
		}
		if err := chats.Touch(ctx, chat.Id, msg.Timestamp); err != nil {
			return apperror.Store(err)
		}
	}

	if err := uow.Commit(); err != nil {
		return apperror.Store(err)
	}
	chat.UpdatedAt = assistantMsg.Timestamp
	return nil
}

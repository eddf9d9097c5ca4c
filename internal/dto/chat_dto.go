package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ChatId  *uuid.UUID `json:"chatId"`
	Message string     `json:"message" validate:"required,notblank"`
}

type SendMessageResponse struct {
	Response string    `json:"response"`
	ChatId   uuid.UUID `json:"chatId"`
}

type CreateChatResponse struct {
	Status string    `json:"status"`
	ChatId uuid.UUID `json:"chatId"`
}

type ChatSummary struct {
	Id    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type ChatHistoryResponse struct {
	Status string        `json:"status"`
	Chats  []ChatSummary `json:"chats"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatDetail struct {
	Id       uuid.UUID             `json:"id"`
	Title    string                `json:"title"`
	Messages []ChatMessageResponse `json:"messages"`
}

type ChatDetailResponse struct {
	Status string     `json:"status"`
	Chat   ChatDetail `json:"chat"`
}

type RenameChatRequest struct {
	Title string `json:"title" validate:"required,notblank"`
}

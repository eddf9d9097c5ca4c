package dto

import "ai-chat-be/internal/entity"

type GoogleLoginRequest struct {
	IdToken string `json:"id_token" validate:"required"`
}

type LoginResponse struct {
	Status string           `json:"status"`
	User   *entity.Identity `json:"user"`
	Token  string           `json:"token"`
}

type CurrentUserResponse struct {
	Status string           `json:"status"`
	User   *entity.Identity `json:"user"`
}

package dto

import "github.com/noah-isme/casetrack-api/internal/models"

// BotCreateProcessRequest opens a client and a process from a chat conversation.
type BotCreateProcessRequest struct {
	Phone string             `json:"phone" validate:"required,min=8"`
	Name  string             `json:"name" validate:"required"`
	Email string             `json:"email" validate:"omitempty,email"`
	Type  models.ProcessType `json:"type" validate:"required,oneof=OPENING ALTERATION CLOSURE"`
}

// BotProcessResponse is what the bot receives after creating a process.
type BotProcessResponse struct {
	Client  models.Client  `json:"client"`
	Process models.Process `json:"process"`
}

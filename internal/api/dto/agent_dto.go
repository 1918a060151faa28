package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// RegisterAgentRequest payload.
type RegisterAgentRequest struct {
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Role     domain.AgentRole `json:"role"`
	Avatar   string           `json:"avatar"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token and the authenticated agent.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Agent     AgentResponse `json:"agent"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateAgentRequest payload; omitted fields are untouched.
type UpdateAgentRequest struct {
	Name   *string           `json:"name"`
	Avatar *string           `json:"avatar"`
	Role   *domain.AgentRole `json:"role"`
	Active *bool             `json:"active"`
}

// AgentResponse is an agent without credential fields.
type AgentResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.AgentRole `json:"role"`
	Avatar    string           `json:"avatar"`
	Active    bool             `json:"active"`
	Online    *bool            `json:"online,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// ChatHandler manages conversations and messages between agents.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{service: chatService}
}

// ListConversations GET /chat/conversations.
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	views, err := h.service.ListConversations(c.Context(), principal.Agent.ID)
	if err != nil {
		return err
	}
	items := make([]dto.ConversationResponse, 0, len(views))
	for i := range views {
		items = append(items, conversationResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// OpenDirect POST /chat/conversations/direct. Finds or creates the thread.
func (h *ChatHandler) OpenDirect(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.OpenDirectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	conv, err := h.service.OpenDirect(c.Context(), principal.Agent.ID, req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationOnly(conv)})
}

// CreateGroup POST /chat/conversations/group.
func (h *ChatHandler) CreateGroup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	conv, err := h.service.CreateGroup(c.Context(), principal.Agent.ID, req.Name, req.MemberIDs)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": conversationOnly(conv)})
}

// ListMessages GET /chat/conversations/:id/messages.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)

	messages, err := h.service.ListMessages(c.Context(), principal.Agent.ID, c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, messageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SendMessage POST /chat/conversations/:id/messages.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msg, err := h.service.SendMessage(c.Context(), principal.Agent.ID, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// MarkRead POST /chat/conversations/:id/read.
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.service.MarkRead(c.Context(), principal.Agent.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}

// Heartbeat POST /chat/presence/heartbeat.
func (h *ChatHandler) Heartbeat(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.service.Heartbeat(c.Context(), principal.Agent.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"online": true}})
}

// Presence GET /chat/presence?agent_ids=a,b,c.
func (h *ChatHandler) Presence(c *fiber.Ctx) error {
	raw := c.Query("agent_ids")
	if raw == "" {
		return apperrors.NewValidationError("agent_ids required", nil)
	}
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}

	online, err := h.service.Presence(c.Context(), ids)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PresenceResponse(online)})
}

func conversationResponse(view *repository.ConversationView) dto.ConversationResponse {
	resp := conversationOnly(&view.Conversation)
	resp.UnreadCount = view.Unread
	for _, p := range view.Participants {
		resp.ParticipantIDs = append(resp.ParticipantIDs, p.AgentID)
	}
	return resp
}

func conversationOnly(conv *domain.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ID:                  conv.ID,
		Type:                conv.Type,
		Name:                conv.Name,
		LastMessageBody:     conv.LastMessageBody,
		LastMessageSenderID: conv.LastMessageSenderID,
		LastMessageAt:       conv.LastMessageAt,
		CreatedAt:           conv.CreatedAt,
		UpdatedAt:           conv.UpdatedAt,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		Type:           msg.Type,
		CreatedAt:      msg.CreatedAt,
	}
}

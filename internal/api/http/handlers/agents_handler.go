package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AgentsHandler serves the agent directory.
type AgentsHandler struct {
	service *service.AgentService
	chat    *service.ChatService
}

// NewAgentsHandler constructs handler. The chat service supplies presence.
func NewAgentsHandler(agentService *service.AgentService, chatService *service.ChatService) *AgentsHandler {
	return &AgentsHandler{service: agentService, chat: chatService}
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	filter := service.AgentListFilter{}
	if role := c.Query("role"); role != "" {
		r := domain.AgentRole(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		val := active == "true"
		filter.Active = &val
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 100)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	agents, err := h.service.ListAgents(c.Context(), filter)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(agents))
	for i := range agents {
		ids = append(ids, agents[i].ID)
	}
	online, err := h.chat.Presence(c.Context(), ids)
	if err != nil {
		return err
	}

	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		resp := agentResponse(&agents[i])
		isOnline := online[agents[i].ID]
		resp.Online = &isOnline
		items = append(items, resp)
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAgent GET /agents/:id.
func (h *AgentsHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.service.GetAgent(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// UpdateAgent PATCH /agents/:id. Admin only.
func (h *AgentsHandler) UpdateAgent(c *fiber.Ctx) error {
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	agent, err := h.service.UpdateAgent(c.Context(), c.Params("id"), service.AgentUpdateInput{
		Name:   req.Name,
		Avatar: req.Avatar,
		Role:   req.Role,
		Active: req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// DeactivateAgent DELETE /agents/:id. Admin only; disables rather than
// deletes.
func (h *AgentsHandler) DeactivateAgent(c *fiber.Ctx) error {
	if err := h.service.DeactivateAgent(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deactivated": true}})
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// StatsHandler serves per-agent stats and the performance scoreboard.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{service: statsService}
}

// MyStats GET /stats/me.
func (h *StatsHandler) MyStats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	return h.agentStats(c, principal.Agent.ID)
}

// AgentStats GET /stats/agents/:id. Agents can read their own numbers;
// anything else needs admin.
func (h *StatsHandler) AgentStats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	agentID := c.Params("id")
	if agentID != principal.Agent.ID && principal.Agent.Role != domain.AgentRoleAdmin {
		return apperrors.NewForbidden("cannot view another agent's stats")
	}
	return h.agentStats(c, agentID)
}

func (h *StatsHandler) agentStats(c *fiber.Ctx, agentID string) error {
	period, err := parsePeriod(c)
	if err != nil {
		return err
	}
	stats, err := h.service.AgentStats(c.Context(), agentID, period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentStatsResponse(stats)})
}

// Performance GET /performance. Admin only.
func (h *StatsHandler) Performance(c *fiber.Ctx) error {
	period, err := parsePeriod(c)
	if err != nil {
		return err
	}
	report, err := h.service.Performance(c.Context(), period, time.Now())
	if err != nil {
		return err
	}

	resp := dto.PerformanceResponse{
		Period:      string(report.Period.Kind),
		From:        report.Period.From,
		To:          report.Period.To,
		Agents:      make([]dto.AgentStatsResponse, 0, len(report.Agents)),
		Totals:      agentStatsResponse(&report.Totals),
		Trend:       make([]dto.TrendPointResponse, 0, len(report.Trend)),
		GeneratedAt: report.GeneratedAt,
	}
	for i := range report.Agents {
		resp.Agents = append(resp.Agents, agentStatsResponse(&report.Agents[i]))
	}
	for _, bucket := range report.Trend {
		resp.Trend = append(resp.Trend, dto.TrendPointResponse{
			Label:            bucket.Label,
			Start:            bucket.Start,
			ClosedCount:      bucket.ClosedCount,
			AvgHandlingHours: bucket.AvgHandlingHours,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parsePeriod(c *fiber.Ctx) (service.Period, error) {
	return service.ResolvePeriod(
		c.Query("period"),
		parseTime(c.Query("from")),
		parseTime(c.Query("to")),
		time.Now(),
	)
}

func agentStatsResponse(stats *service.AgentStats) dto.AgentStatsResponse {
	resp := dto.AgentStatsResponse{
		AgentID:          stats.AgentID,
		Name:             stats.Name,
		Role:             stats.Role,
		Total:            stats.Total,
		Active:           stats.Active,
		Completed:        stats.Completed,
		ByStatus:         make(map[string]int, len(stats.ByStatus)),
		ByPriority:       make(map[string]int, len(stats.ByPriority)),
		AvgHandlingHours: stats.AvgHandlingHours,
		AvgHandlingLabel: stats.AvgHandlingLabel,
		Score:            stats.Score,
		Rating:           stats.Rating,
	}
	for status, count := range stats.ByStatus {
		resp.ByStatus[string(status)] = count
	}
	for priority, count := range stats.ByPriority {
		resp.ByPriority[string(priority)] = count
	}
	return resp
}

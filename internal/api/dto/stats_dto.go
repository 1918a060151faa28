package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AgentStatsResponse is one agent's aggregates for the requested period.
type AgentStatsResponse struct {
	AgentID          string           `json:"agent_id"`
	Name             string           `json:"name"`
	Role             domain.AgentRole `json:"role"`
	Total            int              `json:"total"`
	Active           int              `json:"active"`
	Completed        int              `json:"completed"`
	ByStatus         map[string]int   `json:"by_status"`
	ByPriority       map[string]int   `json:"by_priority"`
	AvgHandlingHours float64          `json:"avg_handling_hours"`
	AvgHandlingLabel string           `json:"avg_handling_label"`
	Score            *int             `json:"score"`
	Rating           string           `json:"rating,omitempty"`
}

// TrendPointResponse is one bucket of the trend series.
type TrendPointResponse struct {
	Label            string    `json:"label"`
	Start            time.Time `json:"start"`
	ClosedCount      int       `json:"closed_count"`
	AvgHandlingHours float64   `json:"avg_handling_hours"`
}

// PerformanceResponse is the scoreboard for all scoring-relevant agents.
type PerformanceResponse struct {
	Period      string               `json:"period"`
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Agents      []AgentStatsResponse `json:"agents"`
	Totals      AgentStatsResponse   `json:"totals"`
	Trend       []TrendPointResponse `json:"trend"`
	GeneratedAt time.Time            `json:"generated_at"`
}

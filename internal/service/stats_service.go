package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// statsScanLimit caps snapshot reads to avoid unbounded scans.
const statsScanLimit = 5000

// PeriodKind names a reporting window.
type PeriodKind string

const (
	PeriodToday   PeriodKind = "today"
	PeriodWeek    PeriodKind = "week"
	PeriodMonth   PeriodKind = "month"
	PeriodQuarter PeriodKind = "quarter"
	PeriodYear    PeriodKind = "year"
	PeriodAll     PeriodKind = "all"
	PeriodCustom  PeriodKind = "custom"
)

// Period is a resolved reporting window.
type Period struct {
	Kind PeriodKind
	From time.Time
	To   time.Time
}

// ResolvePeriod translates a period name (or custom range) into a window
// ending at now.
func ResolvePeriod(kind string, from, to *time.Time, now time.Time) (Period, error) {
	if kind == "" {
		kind = string(PeriodMonth)
	}
	switch PeriodKind(kind) {
	case PeriodToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return Period{Kind: PeriodToday, From: start, To: now}, nil
	case PeriodWeek:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -6)
		return Period{Kind: PeriodWeek, From: start, To: now}, nil
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Period{Kind: PeriodMonth, From: start, To: now}, nil
	case PeriodQuarter:
		quarterMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		start := time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
		return Period{Kind: PeriodQuarter, From: start, To: now}, nil
	case PeriodYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Period{Kind: PeriodYear, From: start, To: now}, nil
	case PeriodAll:
		return Period{Kind: PeriodAll, From: time.Time{}, To: now}, nil
	case PeriodCustom:
		if from == nil || to == nil || to.Before(*from) {
			return Period{}, apperrors.NewValidationError("custom period requires a valid from/to range", nil)
		}
		return Period{Kind: PeriodCustom, From: *from, To: *to}, nil
	}
	return Period{}, apperrors.NewValidationError("unknown period", map[string]any{"period": kind})
}

// AgentStats aggregates one agent's tickets for a period.
type AgentStats struct {
	AgentID          string
	Name             string
	Role             domain.AgentRole
	Total            int
	Active           int
	Completed        int
	ByStatus         map[domain.TicketStatus]int
	ByPriority       map[domain.TicketPriority]int
	TimedCount       int
	AvgHandlingHours float64
	AvgHandlingLabel string
	Score            *int
	Rating           string
}

// TrendBucket is one point of the trend series.
type TrendBucket struct {
	Label            string
	Start            time.Time
	ClosedCount      int
	AvgHandlingHours float64
}

// StatsService computes per-agent and system-wide metrics from ticket
// snapshots. Everything is recomputed on each request; no state is kept.
type StatsService struct {
	tickets repository.TicketRepository
	agents  repository.AgentRepository
	policy  config.SupportConfig
}

// NewStatsService constructs the service.
func NewStatsService(tickets repository.TicketRepository, agents repository.AgentRepository, policy config.SupportConfig) *StatsService {
	return &StatsService{tickets: tickets, agents: agents, policy: policy}
}

// AgentStats computes stats for the tickets assigned to one agent within the
// period.
func (s *StatsService) AgentStats(ctx context.Context, agentID string, period Period) (*AgentStats, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}

	tickets, err := s.snapshot(ctx, &agentID, period)
	if err != nil {
		return nil, err
	}
	stats := ComputeAgentStats(tickets, agent, s.policy)
	return &stats, nil
}

// PerformanceReport holds the scoreboard for all scoring-relevant agents
// plus system-wide totals and the trend series.
type PerformanceReport struct {
	Period      Period
	Agents      []AgentStats
	Totals      AgentStats
	Trend       []TrendBucket
	GeneratedAt time.Time
}

// Performance computes the full report for the period.
func (s *StatsService) Performance(ctx context.Context, period Period, now time.Time) (*PerformanceReport, error) {
	agents, err := s.agents.ListByRoles(ctx,
		domain.AgentRoleSenior, domain.AgentRoleJunior, domain.AgentRoleIT)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	all, err := s.snapshot(ctx, nil, period)
	if err != nil {
		return nil, err
	}

	report := &PerformanceReport{
		Period:      period,
		Agents:      make([]AgentStats, 0, len(agents)),
		Trend:       TrendSeries(all, period.Kind, now),
		GeneratedAt: now,
	}
	for i := range agents {
		agent := &agents[i]
		assigned := filterAssigned(all, agent.ID)
		report.Agents = append(report.Agents, ComputeAgentStats(assigned, agent, s.policy))
	}
	report.Totals = computeTotals(all)
	return report, nil
}

func (s *StatsService) snapshot(ctx context.Context, assignedTo *string, period Period) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		AssignedTo: assignedTo,
		Limit:      statsScanLimit,
	}
	if !period.From.IsZero() {
		from := period.From
		filter.CreatedFrom = &from
	}
	if !period.To.IsZero() {
		to := period.To
		filter.CreatedTo = &to
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ComputeAgentStats aggregates a ticket snapshot for one agent. IT agents
// get no score.
func ComputeAgentStats(tickets []domain.Ticket, agent *domain.Agent, policy config.SupportConfig) AgentStats {
	stats := computeTotals(tickets)
	stats.AgentID = agent.ID
	stats.Name = agent.Name
	stats.Role = agent.Role

	if agent.Role.IsCustomerService() {
		target := policy.TargetFor(agent.Role == domain.AgentRoleSenior)
		score := ComputeScore(stats.Completed, stats.AvgHandlingHours, stats.TimedCount, target)
		stats.Score = &score
		stats.Rating = RatingFor(score)
	}
	return stats
}

func computeTotals(tickets []domain.Ticket) AgentStats {
	stats := AgentStats{
		ByStatus:   make(map[domain.TicketStatus]int),
		ByPriority: make(map[domain.TicketPriority]int),
	}

	var handlingSum float64
	for i := range tickets {
		t := &tickets[i]
		stats.Total++
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		if t.Status.IsCompleted() {
			stats.Completed++
		} else {
			stats.Active++
		}
		if hours, ok := t.HandlingHours(); ok {
			handlingSum += hours
			stats.TimedCount++
		}
	}
	if stats.TimedCount > 0 {
		stats.AvgHandlingHours = handlingSum / float64(stats.TimedCount)
	}
	stats.AvgHandlingLabel = FormatHandling(stats.AvgHandlingHours, stats.TimedCount)
	return stats
}

// ComputeScore is the weighted composite: completion base (up to 60) +
// speed bonus (up to 25) + flat quality bonus (15), capped at 100.
func ComputeScore(completed int, avgHours float64, timedCount, target int) int {
	if target <= 0 {
		target = 1
	}
	base := float64(completed) / float64(target) * 60
	if base > 60 {
		base = 60
	}
	score := base + float64(speedBonus(avgHours, timedCount)) + 15
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// speedBonus tiers on the average handling time, not per-ticket values.
func speedBonus(avgHours float64, timedCount int) int {
	if timedCount == 0 {
		return 0
	}
	switch {
	case avgHours <= 24:
		return 25
	case avgHours <= 48:
		return 15
	default:
		return 5
	}
}

// RatingFor maps a score to its label.
func RatingFor(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Great"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Needs Improvement"
	case score > 0:
		return "At Risk"
	default:
		return ""
	}
}

// FormatHandling renders an average as minutes under an hour, hours under a
// day, and days beyond that.
func FormatHandling(hours float64, timedCount int) string {
	if timedCount == 0 {
		return "n/a"
	}
	switch {
	case hours < 1:
		return fmt.Sprintf("%dm", int(math.Round(hours*60)))
	case hours < 24:
		return fmt.Sprintf("%.1fh", hours)
	default:
		return fmt.Sprintf("%.1fd", hours/24)
	}
}

// TrendSeries buckets closed tickets over a trailing window: the last 7
// calendar days for short periods, the last months otherwise.
func TrendSeries(tickets []domain.Ticket, kind PeriodKind, now time.Time) []TrendBucket {
	switch kind {
	case PeriodToday, PeriodWeek:
		return dailyTrend(tickets, now, 7)
	case PeriodMonth, PeriodCustom:
		return monthlyTrend(tickets, now, 6)
	case PeriodQuarter:
		return monthlyTrend(tickets, now, 3)
	default:
		return monthlyTrend(tickets, now, 12)
	}
}

func dailyTrend(tickets []domain.Ticket, now time.Time, days int) []TrendBucket {
	buckets := make([]TrendBucket, days)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i < days; i++ {
		start := today.AddDate(0, 0, i-days+1)
		buckets[i] = TrendBucket{Label: start.Format("Jan 02"), Start: start}
	}
	fillTrend(buckets, tickets, func(closed time.Time) int {
		day := time.Date(closed.Year(), closed.Month(), closed.Day(), 0, 0, 0, 0, now.Location())
		return days - 1 - int(today.Sub(day).Hours()/24)
	})
	return buckets
}

func monthlyTrend(tickets []domain.Ticket, now time.Time, months int) []TrendBucket {
	buckets := make([]TrendBucket, months)
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < months; i++ {
		start := currentMonth.AddDate(0, i-months+1, 0)
		buckets[i] = TrendBucket{Label: start.Format("Jan"), Start: start}
	}
	fillTrend(buckets, tickets, func(closed time.Time) int {
		monthDiff := (now.Year()-closed.Year())*12 + int(now.Month()) - int(closed.Month())
		return months - 1 - monthDiff
	})
	return buckets
}

func fillTrend(buckets []TrendBucket, tickets []domain.Ticket, indexOf func(time.Time) int) {
	sums := make([]float64, len(buckets))
	timed := make([]int, len(buckets))
	for i := range tickets {
		t := &tickets[i]
		if t.ClosedAt == nil {
			continue
		}
		idx := indexOf(*t.ClosedAt)
		if idx < 0 || idx >= len(buckets) {
			continue
		}
		buckets[idx].ClosedCount++
		if hours, ok := t.HandlingHours(); ok {
			sums[idx] += hours
			timed[idx]++
		}
	}
	for i := range buckets {
		if timed[i] > 0 {
			buckets[i].AvgHandlingHours = sums[i] / float64(timed[i])
		}
	}
}

func filterAssigned(tickets []domain.Ticket, agentID string) []domain.Ticket {
	var result []domain.Ticket
	for i := range tickets {
		if tickets[i].AssignedTo != nil && *tickets[i].AssignedTo == agentID {
			result = append(result, tickets[i])
		}
	}
	return result
}

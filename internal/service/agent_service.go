package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AgentService manages the agent directory.
type AgentService struct {
	agents repository.AgentRepository
}

// NewAgentService constructs the service.
func NewAgentService(agents repository.AgentRepository) *AgentService {
	return &AgentService{agents: agents}
}

// AgentListFilter describes directory listing filters.
type AgentListFilter struct {
	Role   *domain.AgentRole
	Active *bool
	Limit  int
	Offset int
}

// ListAgents returns agents matching the filter.
func (s *AgentService) ListAgents(ctx context.Context, filter AgentListFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, repository.AgentFilter{
		Role:   filter.Role,
		Active: filter.Active,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	return agents, nil
}

// GetAgent fetches one agent by id.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// AgentUpdateInput describes a partial profile update. Nil fields are
// untouched.
type AgentUpdateInput struct {
	Name   *string
	Avatar *string
	Role   *domain.AgentRole
	Active *bool
}

// UpdateAgent applies a partial profile update.
func (s *AgentService) UpdateAgent(ctx context.Context, id string, input AgentUpdateInput) (*domain.Agent, error) {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		agent.Name = name
	}
	if input.Avatar != nil {
		agent.Avatar = *input.Avatar
	}
	if input.Role != nil {
		if !validRole(*input.Role) {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		agent.Role = *input.Role
	}
	if input.Active != nil {
		agent.Active = *input.Active
	}

	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// DeactivateAgent disables an account without deleting its rows; assigned
// tickets and history stay intact.
func (s *AgentService) DeactivateAgent(ctx context.Context, id string) error {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return err
	}
	agent.Active = false
	return apperrors.MapError(s.agents.Update(ctx, agent))
}

func validRole(r domain.AgentRole) bool {
	switch r {
	case domain.AgentRoleSenior, domain.AgentRoleJunior, domain.AgentRoleIT, domain.AgentRoleAdmin:
		return true
	}
	return false
}

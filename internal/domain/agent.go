package domain

import "time"

// AgentRole enumerates support-desk operator roles.
type AgentRole string

const (
	AgentRoleSenior AgentRole = "SENIOR"
	AgentRoleJunior AgentRole = "JUNIOR"
	AgentRoleIT     AgentRole = "IT"
	AgentRoleAdmin  AgentRole = "ADMIN"
)

// IsCustomerService reports whether the role handles customer tickets directly.
func (r AgentRole) IsCustomerService() bool {
	return r == AgentRoleSenior || r == AgentRoleJunior
}

// Agent models a support operator (customer service, IT, or admin).
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Avatar       string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

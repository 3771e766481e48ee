package store

import (
	"strings"
	"time"
)

// NormalizeRole maps legacy role spellings onto the closed role set.
// Historical records used "team_leader" for what is now "leader".
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "team_leader" {
		return RoleLeader
	}
	return role
}

// CreateAgent validates the role tag and inserts a new agent.
func (s *Store) CreateAgent(a *Agent) error {
	a.Role = NormalizeRole(a.Role)
	if !validRole(a.Role) {
		return ErrInvalidRole
	}
	a.Active = true
	return translate(s.db.Create(a).Error)
}

// CreateDefaultAgent inserts a general-purpose assistant agent, the
// convenience starting point for a new persona.
func (s *Store) CreateDefaultAgent(name, provider, modelID string) (*Agent, error) {
	a := &Agent{
		Name:          name,
		Role:          RoleAssistant,
		Instructions:  "You are a helpful assistant. Answer questions clearly and concisely.",
		ModelProvider: provider,
		ModelID:       modelID,
	}
	if err := s.CreateAgent(a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAgent fetches an agent by id regardless of active state.
func (s *Store) GetAgent(id uint) (*Agent, error) {
	var a Agent
	if err := s.db.First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// ListAgents returns agents, optionally restricted to active ones.
func (s *Store) ListAgents(activeOnly bool) ([]Agent, error) {
	var agents []Agent
	q := s.db.Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&agents).Error; err != nil {
		return nil, translate(err)
	}
	return agents, nil
}

// UpdateAgent applies field changes to an existing agent.
func (s *Store) UpdateAgent(a *Agent) error {
	a.Role = NormalizeRole(a.Role)
	if !validRole(a.Role) {
		return ErrInvalidRole
	}
	a.UpdatedAt = time.Now().UTC()
	return translate(s.db.Save(a).Error)
}

// DeactivateAgent soft-deletes an agent. An agent referenced by an active
// persona cannot be deactivated; the persona must drop it first.
func (s *Store) DeactivateAgent(id uint) error {
	personas, err := s.ListPersonas(true)
	if err != nil {
		return err
	}
	for _, p := range personas {
		for _, aid := range p.AgentIDs {
			if aid == id {
				return ErrAgentInUse
			}
		}
	}
	res := s.db.Model(&Agent{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

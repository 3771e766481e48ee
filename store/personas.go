package store

import "time"

// CreatePersona inserts a persona after checking every referenced agent
// exists and is active. A persona with no agents is rejected; it would never
// be able to answer.
func (s *Store) CreatePersona(p *Persona) error {
	if len(p.AgentIDs) == 0 {
		return ErrNoAgents
	}
	if err := s.checkAgentsLive(p.AgentIDs); err != nil {
		return err
	}
	p.Active = true
	return translate(s.db.Create(p).Error)
}

// GetPersona fetches a persona by id regardless of active state.
func (s *Store) GetPersona(id uint) (*Persona, error) {
	var p Persona
	if err := s.db.First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListPersonas returns personas, optionally restricted to active ones.
func (s *Store) ListPersonas(activeOnly bool) ([]Persona, error) {
	var personas []Persona
	q := s.db.Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&personas).Error; err != nil {
		return nil, translate(err)
	}
	return personas, nil
}

// UpdatePersona applies field changes, revalidating the agent list.
func (s *Store) UpdatePersona(p *Persona) error {
	if len(p.AgentIDs) == 0 {
		return ErrNoAgents
	}
	if err := s.checkAgentsLive(p.AgentIDs); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return translate(s.db.Save(p).Error)
}

// DeactivatePersona soft-deletes a persona unless any user still holds an
// active assignment to it.
func (s *Store) DeactivatePersona(id uint) error {
	var count int64
	if err := s.db.Model(&UserPersona{}).
		Where("persona_id = ? AND active = ?", id, true).
		Count(&count).Error; err != nil {
		return translate(err)
	}
	if count > 0 {
		return ErrPersonaInUse
	}
	res := s.db.Model(&Persona{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveAgents resolves the persona's stored agent id list against live Agent
// rows. Ids that no longer resolve or point at deactivated agents are
// silently dropped; the stored order of the survivors is preserved.
func (s *Store) ActiveAgents(personaID uint) ([]Agent, error) {
	p, err := s.GetPersona(personaID)
	if err != nil {
		return nil, err
	}
	if len(p.AgentIDs) == 0 {
		return nil, nil
	}

	var rows []Agent
	if err := s.db.Where("id IN ? AND active = ?", []uint(p.AgentIDs), true).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}

	byID := make(map[uint]Agent, len(rows))
	for _, a := range rows {
		byID[a.ID] = a
	}

	agents := make([]Agent, 0, len(p.AgentIDs))
	for _, id := range p.AgentIDs {
		if a, ok := byID[id]; ok {
			agents = append(agents, a)
		}
	}
	return agents, nil
}

// checkAgentsLive verifies every id resolves to an active agent.
func (s *Store) checkAgentsLive(ids IDList) error {
	var count int64
	if err := s.db.Model(&Agent{}).
		Where("id IN ? AND active = ?", []uint(ids), true).
		Count(&count).Error; err != nil {
		return translate(err)
	}
	if count != int64(len(unique(ids))) {
		return ErrNoAgents
	}
	return nil
}

func unique(ids IDList) IDList {
	seen := make(map[uint]struct{}, len(ids))
	out := make(IDList, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

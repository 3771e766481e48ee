package store

import (
	"errors"

	"gorm.io/gorm"
)

// CreateUser inserts a user account. Email uniqueness violations surface as
// ErrDuplicateEmail.
func (s *Store) CreateUser(u *User) error {
	var existing User
	err := s.db.Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		return ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return translate(err)
	}
	u.Active = true
	return translate(s.db.Create(u).Error)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(id uint) (*User, error) {
	var u User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetUserByEmail fetches a user by email address.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	var u User
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// AssignPersona grants a user access to a persona. Re-assigning an inactive
// assignment reactivates it instead of inserting a duplicate row.
func (s *Store) AssignPersona(userID, personaID uint) error {
	if _, err := s.GetUser(userID); err != nil {
		return err
	}
	if _, err := s.GetPersona(personaID); err != nil {
		return err
	}

	var existing UserPersona
	err := s.db.Where("user_id = ? AND persona_id = ?", userID, personaID).First(&existing).Error
	if err == nil {
		if existing.Active {
			return nil
		}
		return translate(s.db.Model(&existing).Update("active", true).Error)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return translate(err)
	}

	return translate(s.db.Create(&UserPersona{
		UserID:    userID,
		PersonaID: personaID,
		Active:    true,
	}).Error)
}

// UnassignPersona revokes a user's access to a persona.
func (s *Store) UnassignPersona(userID, personaID uint) error {
	res := s.db.Model(&UserPersona{}).
		Where("user_id = ? AND persona_id = ? AND active = ?", userID, personaID, true).
		Update("active", false)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotAssigned
	}
	return nil
}

// UserPersonas lists the active personas assigned to a user, ordered by id.
func (s *Store) UserPersonas(userID uint) ([]Persona, error) {
	var assignments []UserPersona
	if err := s.db.Where("user_id = ? AND active = ?", userID, true).
		Order("persona_id").Find(&assignments).Error; err != nil {
		return nil, translate(err)
	}
	if len(assignments) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.PersonaID)
	}

	var personas []Persona
	if err := s.db.Where("id IN ? AND active = ?", ids, true).
		Order("id").Find(&personas).Error; err != nil {
		return nil, translate(err)
	}
	return personas, nil
}

// IsPersonaAssigned reports whether the user holds an active assignment.
func (s *Store) IsPersonaAssigned(userID, personaID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&UserPersona{}).
		Where("user_id = ? AND persona_id = ? AND active = ?", userID, personaID, true).
		Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

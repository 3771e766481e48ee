package store

import "time"

// CreateConversation opens a conversation after verifying the user holds an
// active assignment to the target persona.
func (s *Store) CreateConversation(c *Conversation) error {
	assigned, err := s.IsPersonaAssigned(c.UserID, c.PersonaID)
	if err != nil {
		return err
	}
	if !assigned {
		return ErrNotAssigned
	}
	if c.Status == "" {
		c.Status = ConversationActive
	}
	if !validStatus(c.Status) {
		return ErrInvalidStatus
	}
	return translate(s.db.Create(c).Error)
}

// GetConversation fetches a conversation by id.
func (s *Store) GetConversation(id uint) (*Conversation, error) {
	var c Conversation
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// GetUserConversation fetches a conversation and enforces ownership.
func (s *Store) GetUserConversation(id, userID uint) (*Conversation, error) {
	var c Conversation
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListConversations returns a user's conversations, newest first.
func (s *Store) ListConversations(userID uint) ([]Conversation, error) {
	var convs []Conversation
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, translate(err)
	}
	return convs, nil
}

// UpdateConversationStatus moves a conversation between lifecycle states.
func (s *Store) UpdateConversationStatus(id uint, status string) error {
	if !validStatus(status) {
		return ErrInvalidStatus
	}
	res := s.db.Model(&Conversation{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchConversation bumps the updated_at ordering key.
func (s *Store) TouchConversation(id uint) error {
	return translate(s.db.Model(&Conversation{}).Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error)
}

// AppendMessage inserts a message row, stamping the timestamp if unset.
func (s *Store) AppendMessage(m *Message) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return translate(s.db.Create(m).Error)
}

// RecentMessages returns up to limit messages for a conversation, newest
// first. Callers that need chronological order reverse the slice.
func (s *Store) RecentMessages(conversationID uint, limit int) ([]Message, error) {
	var msgs []Message
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, translate(err)
	}
	return msgs, nil
}

// Messages returns the full history of a conversation in chronological order.
func (s *Store) Messages(conversationID uint) ([]Message, error) {
	var msgs []Message
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, translate(err)
	}
	return msgs, nil
}

package store

import "time"

// CreateRunLog persists a diagnostic transcript. Called after the outbound
// message row exists so MessageID resolves.
func (s *Store) CreateRunLog(l *AgentRunLog) error {
	return translate(s.db.Create(l).Error)
}

// RunLogView is an AgentRunLog prepared for display, with the creation time
// rendered in the configured display timezone.
type RunLogView struct {
	AgentRunLog
	CreatedAtDisplay string `json:"created_at_display"`
}

// ListRunLogs pages through run logs, newest first, optionally filtered to a
// conversation. Timestamps are rendered in loc for display; a nil loc falls
// back to UTC.
func (s *Store) ListRunLogs(conversationID *uint, limit, offset int, loc *time.Location) ([]RunLogView, int64, error) {
	if loc == nil {
		loc = time.UTC
	}
	if limit <= 0 {
		limit = 50
	}

	q := s.db.Model(&AgentRunLog{})
	if conversationID != nil {
		q = q.Where("conversation_id = ?", *conversationID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var logs []AgentRunLog
	if err := q.Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, translate(err)
	}

	views := make([]RunLogView, len(logs))
	for i, l := range logs {
		views[i] = RunLogView{
			AgentRunLog:      l,
			CreatedAtDisplay: l.CreatedAt.In(loc).Format("2006-01-02 15:04:05 MST"),
		}
	}
	return views, total, nil
}

// RunLogForMessage fetches the transcript attached to one outbound message.
func (s *Store) RunLogForMessage(messageID uint) (*AgentRunLog, error) {
	var l AgentRunLog
	if err := s.db.Where("message_id = ?", messageID).First(&l).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

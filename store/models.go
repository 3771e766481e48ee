// Package store is the relational persistence layer: personas, agents,
// conversations, messages, run logs, users and file metadata, mapped with
// GORM. Soft deletion is an Active tombstone flag rather than row removal so
// history keeps resolving by id.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Agent role tags form a closed set.
const (
	RoleLeader     = "leader"
	RoleSpecialist = "specialist"
	RoleAssistant  = "assistant"
)

// Conversation lifecycle states.
const (
	ConversationActive = "active"
	ConversationEnded  = "ended"
	ConversationPaused = "paused"
)

// Message sender classifications.
const (
	SenderUser    = "user"
	SenderPersona = "persona"
	SenderSystem  = "system"
)

// IDList stores an ordered list of entity ids as a JSON text column.
// The persona→agent association is deliberately list-valued (document
// style); membership is validated against live Agent rows on every read.
type IDList []uint

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		l = IDList{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = IDList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into IDList", src)
	}
}

// StringList stores a list of names (tool names) as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// User is an account that owns conversations and file uploads.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string    `gorm:"size:255" json:"name"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	Active       bool      `gorm:"default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPersona assigns a persona to a user. A conversation may only target a
// persona its owner is actively assigned.
type UserPersona struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_user_persona,unique;not null" json:"user_id"`
	PersonaID uint      `gorm:"index:idx_user_persona,unique;not null" json:"persona_id"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Persona is an administrator-defined chat identity backed by one or more
// agents. AgentIDs is the ordered member list.
type Persona struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Instructions  string    `gorm:"type:text" json:"instructions"`
	ModelProvider string    `gorm:"size:32" json:"model_provider"`
	ModelID       string    `gorm:"size:128" json:"model_id"`
	AgentIDs      IDList    `gorm:"type:text" json:"agent_ids"`
	Active        bool      `gorm:"default:true" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Agent is a single LLM-bound role with its own instructions, model choice
// and tool set. Agents exist independently of personas and may be shared.
type Agent struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Role          string     `gorm:"size:32;not null" json:"role"`
	Instructions  string     `gorm:"type:text" json:"instructions"`
	ModelProvider string     `gorm:"size:32" json:"model_provider"`
	ModelID       string     `gorm:"size:128" json:"model_id"`
	Tools         StringList `gorm:"type:text" json:"tools"`
	Active        bool       `gorm:"default:true" json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Conversation belongs to exactly one user and one persona.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	PersonaID uint      `gorm:"index;not null" json:"persona_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Status    string    `gorm:"size:16;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn of a conversation. Rows are append-only; there is no
// edit path.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	Role           string    `gorm:"size:16;not null" json:"role"` // user / assistant / system
	SenderType     string    `gorm:"size:16" json:"sender_type"`   // user / persona / system
	AgentName      string    `gorm:"size:255" json:"agent_name,omitempty"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
}

// AgentRunLog holds the ANSI-stripped diagnostic transcript of one team
// invocation, keyed to the outbound message it explains. Write-once.
type AgentRunLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	PersonaID      uint      `gorm:"index" json:"persona_id"`
	MessageID      uint      `gorm:"index;not null" json:"message_id"`
	RawLog         string    `gorm:"type:text" json:"raw_log"`
	CreatedAt      time.Time `json:"created_at"`
}

// File is the metadata of an uploaded binary; the bytes live in the object
// store under ObjectKey.
type File struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Filename    string    `gorm:"size:512" json:"filename"`
	ObjectKey   string    `gorm:"size:512;uniqueIndex" json:"object_key"`
	Size        int64     `json:"size"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageFile associates uploaded files with the message that referenced them.
type MessageFile struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	MessageID uint `gorm:"index;not null" json:"message_id"`
	FileID    uint `gorm:"index;not null" json:"file_id"`
}

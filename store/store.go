package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"personahub/logging"
)

// Sentinel errors returned by store operations.
var (
	ErrNotFound       = errors.New("record not found")
	ErrNoAgents       = errors.New("persona requires at least one active agent")
	ErrInvalidRole    = errors.New("invalid agent role")
	ErrPersonaInUse   = errors.New("persona has active user assignments")
	ErrAgentInUse     = errors.New("agent is referenced by an active persona")
	ErrNotAssigned    = errors.New("persona is not assigned to user")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidStatus  = errors.New("invalid conversation status")
)

// Store wraps a gorm.DB with the application's data access methods.
type Store struct {
	db  *gorm.DB
	log logging.Logger
}

// Option mutates a Store during construction.
type Option func(s *Store)

// WithLogger attaches a logger used for non-fatal data layer warnings.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewPostgres opens a PostgreSQL-backed store and migrates the schema.
func NewPostgres(dsn string, optFns ...Option) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db, optFns...)
}

// NewSQLite opens a SQLite-backed store, used by tests and local development.
func NewSQLite(path string, optFns ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return New(db, optFns...)
}

// New wraps an existing gorm.DB and runs schema migration.
func New(db *gorm.DB, optFns ...Option) (*Store, error) {
	s := &Store{db: db, log: logging.NewNoOpLogger()}
	for _, fn := range optFns {
		fn(s)
	}
	if err := db.AutoMigrate(
		&User{},
		&UserPersona{},
		&Persona{},
		&Agent{},
		&Conversation{},
		&Message{},
		&AgentRunLog{},
		&File{},
		&MessageFile{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// DB exposes the underlying handle for callers that need raw queries.
func (s *Store) DB() *gorm.DB { return s.db }

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func validRole(role string) bool {
	switch role {
	case RoleLeader, RoleSpecialist, RoleAssistant:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case ConversationActive, ConversationEnded, ConversationPaused:
		return true
	}
	return false
}

package store

import (
	"context"
	"errors"

	"github.com/tobyn/inkwell/internal/config"
	"github.com/tobyn/inkwell/internal/domain"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// SessionStore is the uniform contract every session backend implements.
// The backend is selected once at startup from configuration and fixed for
// the life of the process.
type SessionStore interface {
	// Connect establishes or verifies the backend connection.
	Connect(ctx context.Context) error

	// Get retrieves a session by id, ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.BookSession, error)

	// Save creates or overwrites a session record.
	Save(ctx context.Context, session *domain.BookSession) error

	// Delete removes a session by id.
	Delete(ctx context.Context, id string) error

	// List returns all sessions, newest first.
	List(ctx context.Context) ([]domain.BookSession, error)
}

// NewStore creates the session store backend named by the configuration.
// Parameters:
//   - cfg: database configuration; driver "memory" selects the in-memory
//     backend, anything else a GORM-backed one.
// Returns:
//   - SessionStore: initialized backend.
//   - error: non-nil if the backend cannot be created.
func NewStore(cfg *config.DatabaseConfig) (SessionStore, error) {
	if cfg.Driver == "memory" {
		return NewMemoryStore(), nil
	}
	db, err := InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewGormStore(db), nil
}

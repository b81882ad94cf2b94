package store

import (
	"context"
	"errors"

	"github.com/tobyn/inkwell/internal/domain"
	"gorm.io/gorm"
)

// GormStore is the SessionStore backed by a relational database through
// GORM (SQLite or PostgreSQL, selected by configuration).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a session store bound to an initialized database.
// Parameters:
//   - db: GORM database handle from InitDB.
// Returns:
//   - *GormStore: store instance bound to db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Connect verifies the underlying connection is usable.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the database is unreachable.
func (s *GormStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Get retrieves a session by id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: session id.
// Returns:
//   - *domain.BookSession: session record if found.
//   - error: ErrNotFound if absent, otherwise the query error.
func (s *GormStore) Get(ctx context.Context, id string) (*domain.BookSession, error) {
	var session domain.BookSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Save creates or overwrites a session record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - session: session to persist.
// Returns:
//   - error: non-nil if the write fails.
func (s *GormStore) Save(ctx context.Context, session *domain.BookSession) error {
	return s.db.WithContext(ctx).Save(session).Error
}

// Delete removes a session by id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: session id to delete.
// Returns:
//   - error: non-nil if the delete fails.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&domain.BookSession{}, "id = ?", id).Error
}

// List returns all sessions, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.BookSession: all persisted sessions.
//   - error: non-nil if the query fails.
func (s *GormStore) List(ctx context.Context) ([]domain.BookSession, error) {
	var sessions []domain.BookSession
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

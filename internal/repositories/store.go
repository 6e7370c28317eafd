package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store is the document store collaborator. A Store obtained inside
// Transaction routes every repository call through the same transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Tasks() *TaskRepository {
	return NewTaskRepository(s.db)
}

func (s *Store) Users() *UserRepository {
	return NewUserRepository(s.db)
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return translate(err, nil)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return translate(err, nil)
	}
	return nil
}

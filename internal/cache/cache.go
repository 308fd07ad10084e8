// Package cache persists the last canonical job list and the auth triple
// per account so a reopened board renders before the first fetch returns.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/support1122/flashfire-dashboard/internal/backend"
	"github.com/support1122/flashfire-dashboard/internal/models"
)

// JobSnapshot is the cached job list of one account.
type JobSnapshot struct {
	Email     string `gorm:"primaryKey;size:320"`
	Payload   []byte `gorm:"not null"`
	Count     int
	UpdatedAt time.Time
}

// TableName pins the table name.
func (JobSnapshot) TableName() string { return "job_snapshots" }

// AuthRecord is the cached identity of one account.
type AuthRecord struct {
	Email        string `gorm:"primaryKey;size:320"`
	Name         string
	Role         string `gorm:"size:32"`
	OperatorName string
	Token        string
	UpdatedAt    time.Time
}

// TableName pins the table name.
func (AuthRecord) TableName() string { return "auth_records" }

// Store is the gorm-backed cache.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New migrates the cache tables and returns a store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&JobSnapshot{}, &AuthRecord{}); err != nil {
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// LoadJobs returns the cached list for email.
func (s *Store) LoadJobs(ctx context.Context, email string) ([]models.Job, bool, error) {
	var snap JobSnapshot
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}

	var jobs []models.Job
	if err := json.Unmarshal(snap.Payload, &jobs); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	return jobs, true, nil
}

// SaveJobs replaces the cached list for email.
func (s *Store) SaveJobs(ctx context.Context, email string, jobs []models.Job) error {
	if jobs == nil {
		jobs = []models.Job{}
	}
	payload, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	snap := JobSnapshot{Email: email, Payload: payload, Count: len(jobs), UpdatedAt: s.now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "count", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// SaveAuth stores the session's identity and current token.
func (s *Store) SaveAuth(ctx context.Context, sess *backend.Session) error {
	rec := AuthRecord{
		Email:        sess.Email,
		Name:         sess.Name,
		Role:         string(sess.Actor.Role),
		OperatorName: sess.Actor.Name,
		Token:        sess.Token(),
		UpdatedAt:    s.now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "operator_name", "token", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save auth: %w", err)
	}
	return nil
}

// LoadAuth rebuilds a session from the cached identity.
func (s *Store) LoadAuth(ctx context.Context, email string) (*backend.Session, bool, error) {
	var rec AuthRecord
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load auth: %w", err)
	}
	actor := models.Actor{Role: models.Role(rec.Role), Name: rec.OperatorName}
	if actor.Role == "" {
		actor.Role = models.RoleUser
	}
	return backend.NewSession(rec.Email, rec.Name, rec.Token, actor), true, nil
}

// Clear drops everything cached for email.
func (s *Store) Clear(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Delete(&JobSnapshot{}).Error; err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
		if err := tx.Where("email = ?", email).Delete(&AuthRecord{}).Error; err != nil {
			return fmt.Errorf("clear auth: %w", err)
		}
		return nil
	})
}

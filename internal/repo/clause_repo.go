// Repository functions for the Clause model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Lifecycle rules (single publish slot,
// debate cleanup) live in services.ClauseService.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound for convenience and consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateClause inserts a new clause row with all lifecycle flags false and a
// UTC ingest timestamp.
func CreateClause(ctx context.Context, db *gorm.DB, committee, country, filename, htmlContent string) (*domain.Clause, error) {
	c := &domain.Clause{
		Committee:   committee,
		Country:     country,
		Filename:    filename,
		HTMLContent: htmlContent,
		Timestamp:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetClause fetches a clause by ID, or ErrNotFound.
func GetClause(ctx context.Context, db *gorm.DB, id int64) (*domain.Clause, error) {
	var c domain.Clause
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClauses returns all clauses for a committee, newest first.
func ListClauses(ctx context.Context, db *gorm.DB, committee string) ([]domain.Clause, error) {
	var out []domain.Clause
	err := db.WithContext(ctx).
		Where("committee = ?", committee).
		Order("timestamp desc").
		Find(&out).Error
	return out, err
}

// PublishedClause returns the most recent published clause for a committee,
// or ErrNotFound when the committee's publish slot is empty.
func PublishedClause(ctx context.Context, db *gorm.DB, committee string) (*domain.Clause, error) {
	var c domain.Clause
	err := db.WithContext(ctx).
		Where("committee = ? AND is_published = ?", committee, true).
		Order("timestamp desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveClause persists every field of an already-loaded clause.
func SaveClause(ctx context.Context, db *gorm.DB, c *domain.Clause) error {
	return db.WithContext(ctx).Save(c).Error
}

// UpdateClauseContent overwrites a clause's HTML content. Returns ErrNotFound
// when the clause does not exist.
func UpdateClauseContent(ctx context.Context, db *gorm.DB, id int64, content string) error {
	res := db.WithContext(ctx).
		Model(&domain.Clause{}).
		Where("id = ?", id).
		Update("html_content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

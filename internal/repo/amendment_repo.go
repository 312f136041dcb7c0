// Repository functions for the Amendment model. Thin CRUD only; the debate
// state machine lives in services.AmendmentService.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
)

// CreateAmendment inserts a new amendment with all lifecycle flags false.
func CreateAmendment(ctx context.Context, db *gorm.DB, text, country, committee string, clauseID *int64) (*domain.Amendment, error) {
	a := &domain.Amendment{
		AmendmentText: text,
		Country:       country,
		Committee:     committee,
		ClauseID:      clauseID,
		Timestamp:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetAmendment fetches an amendment by ID, or ErrNotFound.
func GetAmendment(ctx context.Context, db *gorm.DB, id int64) (*domain.Amendment, error) {
	var a domain.Amendment
	if err := db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAmendments returns a committee's amendments, newest first.
func ListAmendments(ctx context.Context, db *gorm.DB, committee string) ([]domain.Amendment, error) {
	var out []domain.Amendment
	err := db.WithContext(ctx).
		Where("committee = ?", committee).
		Order("timestamp desc").
		Find(&out).Error
	return out, err
}

// ListAllAmendments returns every amendment, for bulk archival.
func ListAllAmendments(ctx context.Context, db *gorm.DB) ([]domain.Amendment, error) {
	var out []domain.Amendment
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// SaveAmendment persists every field of an already-loaded amendment.
func SaveAmendment(ctx context.Context, db *gorm.DB, a *domain.Amendment) error {
	return db.WithContext(ctx).Save(a).Error
}

// DeleteAmendment removes an amendment row by ID. Returns ErrNotFound when no
// row was deleted.
func DeleteAmendment(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Delete(&domain.Amendment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllAmendments removes every amendment row.
func DeleteAllAmendments(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Where("1 = 1").Delete(&domain.Amendment{}).Error
}

// DeleteAmendmentsByID removes exactly the given amendment rows. Rows created
// after the caller built the ID list are left alone.
func DeleteAmendmentsByID(ctx context.Context, db *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Delete(&domain.Amendment{}, ids).Error
}

// ActiveAmendmentForClause returns the amendment currently under debate
// against the given clause, or ErrNotFound.
func ActiveAmendmentForClause(ctx context.Context, db *gorm.DB, clauseID int64) (*domain.Amendment, error) {
	var a domain.Amendment
	err := db.WithContext(ctx).
		Where("debate_clause_id = ? AND under_debate = ?", clauseID, true).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ClearDebateStatusForClause resets under_debate and debate_clause_id on every
// amendment debating the given clause.
func ClearDebateStatusForClause(ctx context.Context, db *gorm.DB, clauseID int64) error {
	return db.WithContext(ctx).
		Model(&domain.Amendment{}).
		Where("debate_clause_id = ?", clauseID).
		Updates(map[string]any{"under_debate": false, "debate_clause_id": nil}).Error
}

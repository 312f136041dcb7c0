// Repository functions for committee working-document content and adopted
// resolutions.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/munstack/conference-backend/internal/domain"
)

// GetCommitteeContent returns the stored working content for a committee. A
// committee with no stored content yet yields an empty row, not ErrNotFound.
func GetCommitteeContent(ctx context.Context, db *gorm.DB, committee string) (*domain.CommitteeContent, error) {
	var cc domain.CommitteeContent
	err := db.WithContext(ctx).
		Where("committee = ?", committee).
		First(&cc).Error
	if errors.Is(err, ErrNotFound) {
		return &domain.CommitteeContent{Committee: committee}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cc, nil
}

// SetCommitteeContent upserts the working content for a committee.
func SetCommitteeContent(ctx context.Context, db *gorm.DB, committee, content string) error {
	cc := domain.CommitteeContent{
		Committee: committee,
		Content:   content,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "committee"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).
		Create(&cc).Error
}

// CreateResolution inserts an adopted resolution for a committee.
func CreateResolution(ctx context.Context, db *gorm.DB, committee, content string, clauseID *int64) (*domain.Resolution, error) {
	r := domain.Resolution{
		Committee: committee,
		Content:   content,
		ClauseID:  clauseID,
		Timestamp: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResolutions returns a committee's resolutions in adoption order.
func ListResolutions(ctx context.Context, db *gorm.DB, committee string) ([]domain.Resolution, error) {
	var out []domain.Resolution
	err := db.WithContext(ctx).
		Where("committee = ?", committee).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// Repository functions for the per-user unread counters.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
)

// GetOrCreateUnread fetches the counter for (userID, groupID), creating a zero
// row on first access.
func GetOrCreateUnread(ctx context.Context, db *gorm.DB, userID, groupID int64) (*domain.UnreadCount, error) {
	var u domain.UnreadCount
	err := db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	u = domain.UnreadCount{UserID: userID, GroupID: groupID, Count: 0}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUnread overwrites the counter for (userID, groupID), creating the row if
// needed. The write is an idempotent overwrite, not an increment.
func SetUnread(ctx context.Context, db *gorm.DB, userID, groupID int64, count int) error {
	u, err := GetOrCreateUnread(ctx, db, userID, groupID)
	if err != nil {
		return err
	}
	u.Count = count
	return db.WithContext(ctx).Save(u).Error
}

// IncrementUnread bumps the counter for (userID, groupID) by one, creating the
// row at count=1 if needed.
func IncrementUnread(ctx context.Context, db *gorm.DB, userID, groupID int64) error {
	res := db.WithContext(ctx).
		Model(&domain.UnreadCount{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.WithContext(ctx).
			Create(&domain.UnreadCount{UserID: userID, GroupID: groupID, Count: 1}).Error
	}
	return nil
}

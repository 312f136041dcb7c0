// Repository functions for chat messages and their file attachments.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
)

// CreateMessage inserts a message together with its file rows. Files are
// written through the association so their MessageID is set atomically with
// the parent row.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	return db.WithContext(ctx).Create(m).Error
}

// GetMessage fetches a message with sender and files preloaded, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id int64) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Preload("Sender").
		Preload("Files").
		First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListGroupMessages returns the full ordered history of a group, with sender
// and files preloaded.
func ListGroupMessages(ctx context.Context, db *gorm.DB, groupID int64) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Preload("Sender").
		Preload("Files").
		Where("group_id = ?", groupID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// LastGroupMessage returns the newest message in a group, or ErrNotFound when
// the group has no history.
func LastGroupMessage(ctx context.Context, db *gorm.DB, groupID int64) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Preload("Sender").
		Preload("Files").
		Where("group_id = ?", groupID).
		Order("id desc").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMessage removes a message and its file rows. Returns ErrNotFound when
// the message does not exist.
func DeleteMessage(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m domain.Message
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&domain.File{}).Error; err != nil {
			return err
		}
		return tx.Delete(&m).Error
	})
}

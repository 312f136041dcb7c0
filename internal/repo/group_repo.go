// Repository functions for chat groups and their memberships.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
)

// CreateGroup inserts a group and attaches the given members.
func CreateGroup(ctx context.Context, db *gorm.DB, name string, members []domain.Delegate) (*domain.Group, error) {
	g := &domain.Group{Name: name}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	if len(members) > 0 {
		if err := db.WithContext(ctx).Model(g).Association("Delegates").Append(&members); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// GetGroup fetches a group with its members preloaded, or ErrNotFound.
func GetGroup(ctx context.Context, db *gorm.DB, id int64) (*domain.Group, error) {
	var g domain.Group
	err := db.WithContext(ctx).Preload("Delegates").First(&g, id).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GroupsForDelegate returns every group the delegate is a member of, with
// members preloaded.
func GroupsForDelegate(ctx context.Context, db *gorm.DB, delegateID int64) ([]domain.Group, error) {
	var d domain.Delegate
	err := db.WithContext(ctx).
		Preload("Groups.Delegates").
		First(&d, delegateID).Error
	if err != nil {
		return nil, err
	}
	return d.Groups, nil
}

// Repository functions for Delegate and Chair lookups.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
)

// ListDelegates returns all delegates with their group memberships preloaded.
func ListDelegates(ctx context.Context, db *gorm.DB) ([]domain.Delegate, error) {
	var out []domain.Delegate
	err := db.WithContext(ctx).Preload("Groups").Order("id asc").Find(&out).Error
	return out, err
}

// GetDelegate fetches a delegate by ID, or ErrNotFound.
func GetDelegate(ctx context.Context, db *gorm.DB, id int64) (*domain.Delegate, error) {
	var d domain.Delegate
	if err := db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDelegateByIdentity fetches the delegate with the given (name, country)
// login pair, or ErrNotFound.
func GetDelegateByIdentity(ctx context.Context, db *gorm.DB, name, country string) (*domain.Delegate, error) {
	var d domain.Delegate
	err := db.WithContext(ctx).
		Where("name = ? AND country = ?", name, country).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DelegatesByIDs fetches the delegates matching ids. The result may be
// shorter than ids when some do not exist; callers validate the lengths.
func DelegatesByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.Delegate, error) {
	var out []domain.Delegate
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// GetChairByUsername fetches a chair account, or ErrNotFound. The password
// hash stays inside the service layer.
func GetChairByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.Chair, error) {
	var c domain.Chair
	err := db.WithContext(ctx).Where("username = ?", username).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
)

// ContentService persists the per-committee working document and the list of
// adopted resolutions.
type ContentService struct {
	DB  *gorm.DB
	Bus *broadcast.Bus
}

func NewContentService(db *gorm.DB, bus *broadcast.Bus) *ContentService {
	return &ContentService{DB: db, Bus: bus}
}

// CurrentContent returns the committee's working content, empty when nothing
// has been stored yet.
func (s *ContentService) CurrentContent(ctx context.Context, committee string) (string, error) {
	if !domain.KnownCommittee(committee) {
		return "", ErrUnknownCommittee
	}
	cc, err := repo.GetCommitteeContent(ctx, s.DB, committee)
	if err != nil {
		return "", err
	}
	return cc.Content, nil
}

// SetContent stores the committee's working content and broadcasts
// update_content to the committee room.
func (s *ContentService) SetContent(ctx context.Context, committee, content string) error {
	if !domain.KnownCommittee(committee) {
		return ErrUnknownCommittee
	}
	if err := repo.SetCommitteeContent(ctx, s.DB, committee, content); err != nil {
		return err
	}
	s.Bus.Publish(broadcast.EventUpdateContent, broadcast.CommitteeRoom(committee), map[string]any{
		"group":   committee,
		"content": content,
	})
	return nil
}

// AddResolution records an adopted resolution. When the resolution stems from
// a published clause, that clause leaves the publish slot and is marked
// passed; clause_status_changed announces the transition.
func (s *ContentService) AddResolution(ctx context.Context, committee, content string, clauseID *int64) (*domain.Resolution, error) {
	if !domain.KnownCommittee(committee) {
		return nil, ErrUnknownCommittee
	}

	var res *domain.Resolution
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clauseID != nil {
			clause, err := repo.GetClause(ctx, tx, *clauseID)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			if clause != nil {
				clause.IsPublished = false
				clause.IsPassed = true
				if err := repo.SaveClause(ctx, tx, clause); err != nil {
					return err
				}
			}
		}
		var err error
		res, err = repo.CreateResolution(ctx, tx, committee, content, clauseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Bus.Publish(broadcast.EventClauseStatusChanged, broadcast.CommitteeRoom(committee), map[string]any{
		"clauseId":     clauseID,
		"committee":    committee,
		"is_published": false,
		"is_passed":    true,
	})
	return res, nil
}

// Resolutions lists a committee's adopted resolutions in order.
func (s *ContentService) Resolutions(ctx context.Context, committee string) ([]domain.Resolution, error) {
	if !domain.KnownCommittee(committee) {
		return nil, ErrUnknownCommittee
	}
	return repo.ListResolutions(ctx, s.DB, committee)
}

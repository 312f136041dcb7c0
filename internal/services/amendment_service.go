package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/munstack/conference-backend/internal/archive"
	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
)

// AmendmentView is an Amendment joined with its target clause's publish state.
type AmendmentView struct {
	domain.Amendment
	ClauseStatus *bool `json:"clause_status"`
}

// AmendmentService drives the amendment state machine: Draft, Published
// (under debate), and the terminal Passed / Rejected states. Unpublish moves
// an amendment back to Draft and reverts the debated clause's content.
type AmendmentService struct {
	DB      *gorm.DB
	Bus     *broadcast.Bus
	Archive *archive.Log
}

func NewAmendmentService(db *gorm.DB, bus *broadcast.Bus, arch *archive.Log) *AmendmentService {
	return &AmendmentService{DB: db, Bus: bus, Archive: arch}
}

// Submit records a new amendment in Draft state and broadcasts new_amendment.
func (s *AmendmentService) Submit(ctx context.Context, text, country, committee string, clauseID *int64) (*domain.Amendment, error) {
	a, err := repo.CreateAmendment(ctx, s.DB, text, country, committee, clauseID)
	if err != nil {
		return nil, err
	}
	s.Bus.Publish(broadcast.EventNewAmendment, broadcast.Everyone(), map[string]any{
		"id":             a.ID,
		"amendment_text": a.AmendmentText,
		"country":        a.Country,
		"committee":      a.Committee,
		"clause_id":      a.ClauseID,
		"timestamp":      a.Timestamp,
		"is_published":   a.IsPublished,
		"is_rejected":    a.IsRejected,
		"is_passed":      a.IsPassed,
	})
	return a, nil
}

// List returns a committee's amendments, newest first, each annotated with
// the publish state of the clause it targets.
func (s *AmendmentService) List(ctx context.Context, committee string) ([]AmendmentView, error) {
	amendments, err := repo.ListAmendments(ctx, s.DB, committee)
	if err != nil {
		return nil, err
	}
	views := make([]AmendmentView, 0, len(amendments))
	for _, a := range amendments {
		v := AmendmentView{Amendment: a}
		if a.ClauseID != nil {
			clause, err := repo.GetClause(ctx, s.DB, *a.ClauseID)
			if err == nil {
				v.ClauseStatus = &clause.IsPublished
			} else if !errors.Is(err, repo.ErrNotFound) {
				return nil, err
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// Get returns an amendment by ID.
func (s *AmendmentService) Get(ctx context.Context, id int64) (*domain.Amendment, error) {
	a, err := repo.GetAmendment(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAmendmentNotFound
	}
	return a, err
}

// OpenDebate attaches an amendment to the committee's published clause and
// marks it under debate. The clause content itself stays untouched; both the
// original and the amended text travel in the amendment_under_debate event so
// clients can render a diff.
func (s *AmendmentService) OpenDebate(ctx context.Context, committee string, amendmentID int64, amendedContent string) error {
	tr := otel.Tracer("services/AmendmentService")
	ctx, span := tr.Start(ctx, "OpenDebate",
		trace.WithAttributes(
			attribute.String("committee", committee),
			attribute.Int64("amendment.id", amendmentID),
		),
	)
	defer span.End()

	var (
		clause    *domain.Clause
		amendment *domain.Amendment
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		clause, err = repo.PublishedClause(ctx, tx, committee)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNoPublishedClause
			}
			return err
		}
		amendment, err = repo.GetAmendment(ctx, tx, amendmentID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAmendmentNotFound
			}
			return err
		}
		// Only one amendment may debate a clause at a time; evict any
		// prior occupant before seating this one.
		if err := repo.ClearDebateStatusForClause(ctx, tx, clause.ID); err != nil {
			return err
		}
		amendment.IsPublished = true
		amendment.UnderDebate = true
		amendment.DebateClauseID = &clause.ID
		amendment.AmendedClause = amendedContent
		return repo.SaveAmendment(ctx, tx, amendment)
	})
	if err != nil {
		return err
	}

	s.Bus.Publish(broadcast.EventAmendmentUnderDebate, broadcast.CommitteeRoom(committee), map[string]any{
		"clause_id":        clause.ID,
		"amendment_id":     amendment.ID,
		"original_content": clause.HTMLContent,
		"amended_content":  amendedContent,
		"committee":        committee,
		"country":          clause.Country,
	})
	return nil
}

// Publish flips an amendment's publish flag without touching any clause.
func (s *AmendmentService) Publish(ctx context.Context, amendmentID int64) error {
	a, err := s.mutate(ctx, amendmentID, func(a *domain.Amendment) {
		a.IsPublished = true
		a.IsRejected = false
		a.UnderDebate = true
	})
	if err != nil {
		return err
	}
	s.Bus.Publish(broadcast.EventAmendmentPublished, broadcast.CommitteeRoom(a.Committee), map[string]any{
		"id":        a.ID,
		"committee": a.Committee,
	})
	return nil
}

// Approve passes an amendment: its amended text permanently replaces the
// debated clause's content, and the debate relationship is dissolved. When
// the debated clause no longer exists the amendment flags still settle into
// the Passed state.
func (s *AmendmentService) Approve(ctx context.Context, amendmentID int64) error {
	tr := otel.Tracer("services/AmendmentService")
	ctx, span := tr.Start(ctx, "Approve",
		trace.WithAttributes(attribute.Int64("amendment.id", amendmentID)),
	)
	defer span.End()

	var (
		amendment *domain.Amendment
		clause    *domain.Clause
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		amendment, err = repo.GetAmendment(ctx, tx, amendmentID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAmendmentNotFound
			}
			return err
		}
		clause = s.debatedClause(ctx, tx, amendment)

		amendment.UnderDebate = false
		amendment.DebateClauseID = nil
		amendment.IsPassed = true
		amendment.IsPublished = false
		amendment.IsRejected = false

		if clause != nil {
			clause.HTMLContent = amendment.AmendedClause
			clause.IsAmended = false
			if err := repo.SaveClause(ctx, tx, clause); err != nil {
				return err
			}
		}
		return repo.SaveAmendment(ctx, tx, amendment)
	})
	if err != nil {
		return err
	}

	if clause != nil {
		s.Bus.Publish(broadcast.EventDebateContentUpdate, broadcast.CommitteeRoom(amendment.Committee), map[string]any{
			"committee":    amendment.Committee,
			"content":      clause.HTMLContent,
			"country":      clause.Country,
			"type":         "amendment_approved",
			"amendment_id": amendment.ID,
			"clause_id":    clause.ID,
		})
	}
	s.Bus.Publish(broadcast.EventAmendmentStatusChanged, broadcast.CommitteeRoom(amendment.Committee), map[string]any{
		"id":           amendment.ID,
		"committee":    amendment.Committee,
		"is_published": false,
		"is_passed":    true,
		"country":      amendment.Country,
	})
	return nil
}

// Reject moves an amendment into the Rejected state and severs its debate
// relationship. The old debate clause ID rides along in the event so clients
// can clear any debate view still pointed at it.
func (s *AmendmentService) Reject(ctx context.Context, amendmentID int64) error {
	var debateClauseID *int64
	a, err := s.mutate(ctx, amendmentID, func(a *domain.Amendment) {
		debateClauseID = a.DebateClauseID
		a.IsRejected = true
		a.IsPublished = false
		a.UnderDebate = false
		a.DebateClauseID = nil
	})
	if err != nil {
		return err
	}
	s.Bus.Publish(broadcast.EventAmendmentRejected, broadcast.CommitteeRoom(a.Committee), map[string]any{
		"amendment_id":     a.ID,
		"committee":        a.Committee,
		"debate_clause_id": debateClauseID,
	})
	return nil
}

// Unpublish returns an amendment to Draft and reverts the debated clause's
// content from the clause the amendment was originally filed against.
func (s *AmendmentService) Unpublish(ctx context.Context, amendmentID int64) error {
	var (
		amendment       *domain.Amendment
		debateClauseID  *int64
		originalContent string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		amendment, err = repo.GetAmendment(ctx, tx, amendmentID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAmendmentNotFound
			}
			return err
		}
		debateClauseID = amendment.DebateClauseID

		if clause := s.debatedClause(ctx, tx, amendment); clause != nil {
			clause.IsAmended = false
			if amendment.ClauseID != nil {
				original, err := repo.GetClause(ctx, tx, *amendment.ClauseID)
				if err == nil {
					clause.HTMLContent = original.HTMLContent
					originalContent = original.HTMLContent
				} else if !errors.Is(err, repo.ErrNotFound) {
					return err
				}
			}
			if err := repo.SaveClause(ctx, tx, clause); err != nil {
				return err
			}
		}

		amendment.UnderDebate = false
		amendment.DebateClauseID = nil
		amendment.IsPublished = false
		return repo.SaveAmendment(ctx, tx, amendment)
	})
	if err != nil {
		return err
	}

	s.Bus.Publish(broadcast.EventAmendmentUnpublished, broadcast.CommitteeRoom(amendment.Committee), map[string]any{
		"committee":        amendment.Committee,
		"amendment_id":     amendment.ID,
		"clause_id":        debateClauseID,
		"original_content": originalContent,
	})
	return nil
}

// Finalize resolves a debated amendment in one call. approved=true behaves
// like Approve, approved=false like Reject, and both clear the debate state.
func (s *AmendmentService) Finalize(ctx context.Context, amendmentID int64, approved bool) error {
	var (
		amendment *domain.Amendment
		clause    *domain.Clause
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		amendment, err = repo.GetAmendment(ctx, tx, amendmentID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAmendmentNotFound
			}
			return err
		}
		clause = s.debatedClause(ctx, tx, amendment)

		if approved {
			if clause != nil {
				clause.HTMLContent = amendment.AmendedClause
			}
			amendment.IsPassed = true
		} else {
			amendment.IsRejected = true
		}

		amendment.UnderDebate = false
		amendment.DebateClauseID = nil
		amendment.IsPublished = false

		if clause != nil {
			clause.IsAmended = false
			if err := repo.SaveClause(ctx, tx, clause); err != nil {
				return err
			}
		}
		return repo.SaveAmendment(ctx, tx, amendment)
	})
	if err != nil {
		return err
	}

	var newContent string
	if clause != nil {
		newContent = clause.HTMLContent
	}
	s.Bus.Publish(broadcast.EventAmendmentResolved, broadcast.CommitteeRoom(amendment.Committee), map[string]any{
		"amendment_id": amendment.ID,
		"approved":     approved,
		"new_content":  newContent,
		"committee":    amendment.Committee,
	})
	return nil
}

// UpdateAmendedClause replaces the working amended text of an amendment.
func (s *AmendmentService) UpdateAmendedClause(ctx context.Context, amendmentID int64, amendedClause string) error {
	if amendedClause == "" {
		return ErrEmptyContent
	}
	_, err := s.mutate(ctx, amendmentID, func(a *domain.Amendment) {
		a.AmendedClause = amendedClause
	})
	return err
}

// ArchiveAndDeleteAll snapshots every amendment to the archive file and then
// removes the rows. A run against an empty table is a no-op.
func (s *AmendmentService) ArchiveAndDeleteAll(ctx context.Context) error {
	amendments, err := repo.ListAllAmendments(ctx, s.DB)
	if err != nil {
		return err
	}
	if len(amendments) == 0 {
		return nil
	}

	entries := make([]archive.Entry, 0, len(amendments))
	ids := make([]int64, 0, len(amendments))
	for _, a := range amendments {
		entries = append(entries, archiveEntry(&a))
		ids = append(ids, a.ID)
	}
	if err := s.Archive.Append(entries...); err != nil {
		return err
	}
	// Delete only what was archived; amendments submitted since the
	// snapshot survive for the next run.
	if err := repo.DeleteAmendmentsByID(ctx, s.DB, ids); err != nil {
		return err
	}

	s.Bus.Publish(broadcast.EventAmendmentsCleared, broadcast.Everyone(), nil)
	return nil
}

// ArchiveAndDeleteOne archives a single amendment and removes it.
func (s *AmendmentService) ArchiveAndDeleteOne(ctx context.Context, amendmentID int64) error {
	a, err := repo.GetAmendment(ctx, s.DB, amendmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAmendmentNotFound
		}
		return err
	}
	if err := s.Archive.Append(archiveEntry(a)); err != nil {
		return err
	}
	if err := repo.DeleteAmendment(ctx, s.DB, a.ID); err != nil {
		return err
	}

	s.Bus.Publish(broadcast.EventAmendmentDeleted, broadcast.Everyone(), map[string]any{
		"id": a.ID,
	})
	return nil
}

// debatedClause resolves the clause an amendment is debating, or nil when the
// relationship is unset or the clause row is gone.
func (s *AmendmentService) debatedClause(ctx context.Context, tx *gorm.DB, a *domain.Amendment) *domain.Clause {
	if a.DebateClauseID == nil {
		return nil
	}
	clause, err := repo.GetClause(ctx, tx, *a.DebateClauseID)
	if err != nil {
		return nil
	}
	return clause
}

func (s *AmendmentService) mutate(ctx context.Context, amendmentID int64, fn func(*domain.Amendment)) (*domain.Amendment, error) {
	var amendment *domain.Amendment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		amendment, err = repo.GetAmendment(ctx, tx, amendmentID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAmendmentNotFound
			}
			return err
		}
		fn(amendment)
		return repo.SaveAmendment(ctx, tx, amendment)
	})
	if err != nil {
		return nil, err
	}
	return amendment, nil
}

func archiveEntry(a *domain.Amendment) archive.Entry {
	return archive.Entry{
		ID:            a.ID,
		AmendmentText: a.AmendmentText,
		Country:       a.Country,
		Committee:     a.Committee,
		Timestamp:     a.Timestamp,
	}
}

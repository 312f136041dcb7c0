// Package services – ClauseService
//
// This file implements the clause lifecycle: document upload and conversion,
// the single-publish-slot rule (at most one published clause per committee),
// rejection, unpublication, and content updates. Every mutation runs inside a
// transaction and broadcasts its event only after the commit succeeds.
package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/convert"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
	"github.com/munstack/conference-backend/internal/storage"
)

// ClauseService owns the clause lifecycle.
type ClauseService struct {
	DB        *gorm.DB
	Bus       *broadcast.Bus
	Store     *storage.FileStore
	Converter convert.Converter
}

// NewClauseService constructs a ClauseService.
func NewClauseService(db *gorm.DB, bus *broadcast.Bus, store *storage.FileStore, conv convert.Converter) *ClauseService {
	return &ClauseService{DB: db, Bus: bus, Store: store, Converter: conv}
}

// Upload stores the document, converts it to HTML, and inserts a clause row
// with every lifecycle flag false. Broadcasts new_clause on success.
//
// Returns ErrUnknownCommittee or ErrUnsupportedFile for request-level
// problems and a *convert.ConversionError when the converter fails.
func (s *ClauseService) Upload(ctx context.Context, committee, country, filename string, doc io.Reader) (*domain.Clause, error) {
	tr := otel.Tracer("services/ClauseService")
	ctx, span := tr.Start(ctx, "Upload",
		trace.WithAttributes(
			attribute.String("committee", committee),
			attribute.String("filename", filename),
		),
	)
	defer span.End()

	if !domain.KnownCommittee(committee) {
		return nil, ErrUnknownCommittee
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".docx") {
		return nil, ErrUnsupportedFile
	}

	rel, _, err := s.Store.Save(committee, filename, doc)
	if err != nil {
		return nil, err
	}
	abs, err := s.Store.Abs(rel)
	if err != nil {
		return nil, err
	}

	html, err := s.Converter.ToHTML(ctx, abs)
	if err != nil {
		return nil, err
	}

	clause, err := repo.CreateClause(ctx, s.DB, committee, country, storage.SanitizeFilename(filename), html)
	if err != nil {
		return nil, err
	}

	s.Bus.Publish(broadcast.EventNewClause, broadcast.CommitteeRoom(committee), map[string]any{
		"id":        clause.ID,
		"committee": clause.Committee,
		"country":   clause.Country,
		"filename":  clause.Filename,
		"timestamp": clause.Timestamp,
	})
	return clause, nil
}

// List returns a committee's clauses, newest first.
func (s *ClauseService) List(ctx context.Context, committee string) ([]domain.Clause, error) {
	return repo.ListClauses(ctx, s.DB, committee)
}

// Get returns a clause by ID.
func (s *ClauseService) Get(ctx context.Context, id int64) (*domain.Clause, error) {
	c, err := repo.GetClause(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrClauseNotFound
	}
	return c, err
}

// Publish moves a clause into its committee's publish slot.
//
// Side effects, in order: any amendment currently debating this clause has its
// debate status cleared; the slot check rejects with ErrClausePublished when a
// different clause is already published; optional content overwrites the
// stored HTML. Broadcasts clause_published after commit.
func (s *ClauseService) Publish(ctx context.Context, clauseID int64, committee, content string) (*domain.Clause, error) {
	tr := otel.Tracer("services/ClauseService")
	ctx, span := tr.Start(ctx, "Publish",
		trace.WithAttributes(
			attribute.Int64("clause.id", clauseID),
			attribute.String("committee", committee),
		),
	)
	defer span.End()

	var clause *domain.Clause
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.ClearDebateStatusForClause(ctx, tx, clauseID); err != nil {
			return err
		}

		existing, err := repo.PublishedClause(ctx, tx, committee)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if existing != nil && existing.ID != clauseID {
			return ErrClausePublished
		}

		clause, err = repo.GetClause(ctx, tx, clauseID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrClauseNotFound
			}
			return err
		}

		if content != "" {
			clause.HTMLContent = content
		}
		clause.IsPublished = true
		return repo.SaveClause(ctx, tx, clause)
	})
	if err != nil {
		return nil, err
	}

	s.Bus.Publish(broadcast.EventClausePublished, broadcast.CommitteeRoom(clause.Committee), map[string]any{
		"id":        clause.ID,
		"committee": clause.Committee,
		"country":   clause.Country,
		"content":   clause.HTMLContent,
		"timestamp": clause.Timestamp,
	})
	return clause, nil
}

// Reject clears the publish flag and marks the clause rejected. Broadcasts
// clause_rejected.
func (s *ClauseService) Reject(ctx context.Context, clauseID int64) (*domain.Clause, error) {
	clause, err := s.setFlags(ctx, clauseID, func(c *domain.Clause) {
		c.IsPublished = false
		c.IsRejected = true
	})
	if err != nil {
		return nil, err
	}
	s.Bus.Publish(broadcast.EventClauseRejected, broadcast.CommitteeRoom(clause.Committee), map[string]any{
		"clauseId":  clause.ID,
		"committee": clause.Committee,
	})
	return clause, nil
}

// Unpublish clears the publish flag, leaving other flags untouched.
// Broadcasts clause_unpublished.
func (s *ClauseService) Unpublish(ctx context.Context, clauseID int64) (*domain.Clause, error) {
	clause, err := s.setFlags(ctx, clauseID, func(c *domain.Clause) {
		c.IsPublished = false
	})
	if err != nil {
		return nil, err
	}
	s.Bus.Publish(broadcast.EventClauseUnpublished, broadcast.CommitteeRoom(clause.Committee), map[string]any{
		"clauseId":  clause.ID,
		"committee": clause.Committee,
	})
	return clause, nil
}

// PublishedClause returns the most recent published clause for a committee,
// or ErrNoPublishedClause.
func (s *ClauseService) PublishedClause(ctx context.Context, committee string) (*domain.Clause, error) {
	c, err := repo.PublishedClause(ctx, s.DB, committee)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoPublishedClause
	}
	return c, err
}

// CurrentClause returns the committee's published clause and, when an
// amendment is being debated against it, that amendment's ID.
func (s *ClauseService) CurrentClause(ctx context.Context, committee string) (*domain.Clause, *int64, error) {
	clause, err := s.PublishedClause(ctx, committee)
	if err != nil {
		return nil, nil, err
	}
	active, err := repo.ActiveAmendmentForClause(ctx, s.DB, clause.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return clause, nil, nil
		}
		return nil, nil, err
	}
	return clause, &active.ID, nil
}

// UpdateContent overwrites a clause's stored HTML with externally formatted
// content.
func (s *ClauseService) UpdateContent(ctx context.Context, clauseID int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	err := repo.UpdateClauseContent(ctx, s.DB, clauseID, content)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrClauseNotFound
	}
	return err
}

// setFlags loads a clause, applies mutate, and saves it in one transaction.
func (s *ClauseService) setFlags(ctx context.Context, clauseID int64, mutate func(*domain.Clause)) (*domain.Clause, error) {
	var clause *domain.Clause
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		clause, err = repo.GetClause(ctx, tx, clauseID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrClauseNotFound
			}
			return err
		}
		mutate(clause)
		return repo.SaveClause(ctx, tx, clause)
	})
	if err != nil {
		return nil, err
	}
	return clause, nil
}

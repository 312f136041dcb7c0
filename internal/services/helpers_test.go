package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
)

// newSvcDB opens an in-memory SQLite database and migrates the given models.
func newSvcDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newTestBus() *broadcast.Bus {
	return broadcast.NewBus(zerolog.Nop())
}

// watchBus subscribes to every event and returns the channel; the subscription
// is torn down with the test.
func watchBus(t *testing.T, bus *broadcast.Bus) <-chan broadcast.Event {
	t.Helper()
	id, ch := bus.Subscribe(broadcast.Interest{All: true})
	t.Cleanup(func() { bus.Unsubscribe(id) })
	return ch
}

// expectEvent drains one buffered event and checks its type.
func expectEvent(t *testing.T, ch <-chan broadcast.Event, eventType string) broadcast.Event {
	t.Helper()
	select {
	case ev := <-ch:
		if ev.Type != eventType {
			t.Fatalf("expected event %q, got %q", eventType, ev.Type)
		}
		return ev
	default:
		t.Fatalf("expected a buffered %q event, none delivered", eventType)
		return broadcast.Event{}
	}
}

func expectNoEvent(t *testing.T, ch <-chan broadcast.Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %q", ev.Type)
	default:
	}
}

func seedClause(t *testing.T, db *gorm.DB, committee, content string, published bool) *domain.Clause {
	t.Helper()
	c, err := repo.CreateClause(context.Background(), db, committee, "Testland", "seed.docx", content)
	if err != nil {
		t.Fatalf("seed clause: %v", err)
	}
	if published {
		c.IsPublished = true
		if err := repo.SaveClause(context.Background(), db, c); err != nil {
			t.Fatalf("publish seed clause: %v", err)
		}
	}
	return c
}

func seedAmendment(t *testing.T, db *gorm.DB, committee string, clauseID *int64) *domain.Amendment {
	t.Helper()
	a, err := repo.CreateAmendment(context.Background(), db, "insert operative 2", "Testland", committee, clauseID)
	if err != nil {
		t.Fatalf("seed amendment: %v", err)
	}
	return a
}

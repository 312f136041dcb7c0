// Handler wiring.
//
// Handlers depends only on the service layer plus the broadcast bus (for the
// event stream) and the chat file store (for attachment downloads). Transport
// concerns stay here; business rules live in internal/services.
package handlers

import (
	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/format"
	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/storage"
)

// Handlers groups the HTTP endpoints for clauses, amendments, chat, groups,
// auth, and committee content.
type Handlers struct {
	clauses    *services.ClauseService
	amendments *services.AmendmentService
	chat       *services.ChatService
	groups     *services.GroupService
	auth       *services.AuthService
	content    *services.ContentService
	formatter  *format.Client
	bus        *broadcast.Bus
	chatFiles  *storage.FileStore
}

// New constructs a Handlers instance bound to the given services.
func New(
	clauses *services.ClauseService,
	amendments *services.AmendmentService,
	chat *services.ChatService,
	groups *services.GroupService,
	auth *services.AuthService,
	content *services.ContentService,
	formatter *format.Client,
	bus *broadcast.Bus,
	chatFiles *storage.FileStore,
) *Handlers {
	return &Handlers{
		clauses:    clauses,
		amendments: amendments,
		chat:       chat,
		groups:     groups,
		auth:       auth,
		content:    content,
		formatter:  formatter,
		bus:        bus,
		chatFiles:  chatFiles,
	}
}

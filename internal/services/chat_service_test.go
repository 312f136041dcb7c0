package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
	"github.com/munstack/conference-backend/internal/storage"
)

func newChatService(t *testing.T) (*ChatService, <-chan broadcast.Event) {
	t.Helper()
	db := newSvcDB(t,
		&domain.Delegate{}, &domain.Group{}, &domain.Message{},
		&domain.File{}, &domain.UnreadCount{},
	)
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "chatfiles"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	bus := newTestBus()
	svc := NewChatService(db, bus, store, zerolog.Nop())
	return svc, watchBus(t, bus)
}

// seedChatGroup creates n delegates and a group containing all of them. When
// gossip is true the group is forced to carry the reserved gossip ID.
func seedChatGroup(t *testing.T, svc *ChatService, name string, n int, gossip bool) (*domain.Group, []domain.Delegate) {
	t.Helper()
	members := make([]domain.Delegate, 0, n)
	for i := 0; i < n; i++ {
		d := domain.Delegate{
			Name:      name + "-delegate-" + string(rune('a'+i)),
			Country:   "Country-" + name + string(rune('a'+i)),
			Committee: "junior",
		}
		if err := svc.DB.Create(&d).Error; err != nil {
			t.Fatalf("seed delegate: %v", err)
		}
		members = append(members, d)
	}
	g := domain.Group{Name: name}
	if gossip {
		g.ID = domain.GossipGroupID
	}
	if err := svc.DB.Create(&g).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
	if err := svc.DB.Model(&g).Association("Delegates").Append(&members); err != nil {
		t.Fatalf("attach members: %v", err)
	}
	return &g, members
}

func TestPostMessage_RequiresTextOrFiles(t *testing.T) {
	svc, _ := newChatService(t)
	g, members := seedChatGroup(t, svc, "team", 2, false)

	_, err := svc.PostMessage(context.Background(), g.ID, members[0].ID, "   ", "10:00", "2026-05-01", nil)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestPostMessage_UnknownGroup(t *testing.T) {
	svc, _ := newChatService(t)
	_, err := svc.PostMessage(context.Background(), 77, 1, "hi", "10:00", "2026-05-01", nil)
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestPostMessage_NotifiesEveryoneButTheSender(t *testing.T) {
	svc, events := newChatService(t)
	g, members := seedChatGroup(t, svc, "team", 3, false)

	payload, err := svc.PostMessage(context.Background(), g.ID, members[0].ID, "hello", "10:00", "2026-05-01", nil)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if payload.Username != members[0].Name {
		t.Fatalf("payload username must come from the sender preload: %q", payload.Username)
	}
	if payload.LegacyID == "" || payload.Content == nil || *payload.Content != "hello" {
		t.Fatalf("legacy alias fields missing: %+v", payload)
	}

	for i, m := range members {
		count, err := svc.GetUnread(context.Background(), m.ID, g.ID)
		if err != nil {
			t.Fatalf("GetUnread: %v", err)
		}
		want := 1
		if i == 0 {
			want = 0
		}
		if count != want {
			t.Fatalf("member %d unread = %d, want %d", i, count, want)
		}
	}
	expectEvent(t, events, broadcast.EventNewMessage)
}

func TestPostMessage_GossipGroupIsSilent(t *testing.T) {
	svc, events := newChatService(t)
	g, members := seedChatGroup(t, svc, "gossip", 2, true)

	// Occupy message ID 1 so the posted message cannot land in the pinned slot.
	pinnedText := "pinned"
	pinned := domain.Message{Text: &pinnedText, SenderID: members[0].ID, GroupID: g.ID, Timestamp: "08:00", Date: "2026-05-01"}
	if err := svc.DB.Create(&pinned).Error; err != nil {
		t.Fatalf("seed pinned message: %v", err)
	}

	payload, err := svc.PostMessage(context.Background(), g.ID, members[0].ID, "rumor", "11:00", "2026-05-01", nil)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if payload.ID == domain.GossipPinnedMessageID {
		t.Fatalf("test setup: message unexpectedly claimed the pinned ID")
	}

	// Persisted, but neither counted nor broadcast.
	if _, err := repo.GetMessage(context.Background(), svc.DB, payload.ID); err != nil {
		t.Fatalf("gossip message must still be stored: %v", err)
	}
	count, err := svc.GetUnread(context.Background(), members[1].ID, g.ID)
	if err != nil {
		t.Fatalf("GetUnread: %v", err)
	}
	if count != 0 {
		t.Fatalf("gossip message must not bump unread, got %d", count)
	}
	expectNoEvent(t, events)
}

func TestPostMessage_GossipPinnedMessageStillNotifies(t *testing.T) {
	svc, events := newChatService(t)
	g, members := seedChatGroup(t, svc, "gossip", 2, true)

	// First message in an empty table takes ID 1, the pinned slot.
	payload, err := svc.PostMessage(context.Background(), g.ID, members[0].ID, "pinned notice", "09:00", "2026-05-01", nil)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if payload.ID != domain.GossipPinnedMessageID {
		t.Fatalf("expected the pinned message ID, got %d", payload.ID)
	}
	count, err := svc.GetUnread(context.Background(), members[1].ID, g.ID)
	if err != nil {
		t.Fatalf("GetUnread: %v", err)
	}
	if count != 1 {
		t.Fatalf("pinned message must bump unread, got %d", count)
	}
	expectEvent(t, events, broadcast.EventNewMessage)
}

func TestPostMessage_StoresAttachmentsWithPreview(t *testing.T) {
	svc, _ := newChatService(t)
	g, members := seedChatGroup(t, svc, "team", 2, false)

	files := []IncomingFile{
		{Name: "photo.png", Type: "image/png", Data: strings.NewReader("fake png bytes")},
		{Name: "paper.pdf", Type: "application/pdf", Data: strings.NewReader("fake pdf bytes")},
	}
	payload, err := svc.PostMessage(context.Background(), g.ID, members[0].ID, "", "10:30", "2026-05-01", files)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if len(payload.Files) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(payload.Files))
	}

	var image, pdf *FilePayload
	for i := range payload.Files {
		switch payload.Files[i].Type {
		case "image/png":
			image = &payload.Files[i]
		case "application/pdf":
			pdf = &payload.Files[i]
		}
	}
	if image == nil || pdf == nil {
		t.Fatalf("attachment types lost: %+v", payload.Files)
	}
	if !strings.HasPrefix(image.Preview, "data:image/png;base64,") {
		t.Fatalf("image attachments must carry an inline preview, got %q", image.Preview)
	}
	if pdf.Preview != "" {
		t.Fatalf("non-image attachments must not carry a preview, got %q", pdf.Preview)
	}
	if !strings.HasPrefix(image.URL, "/chatfiles/") {
		t.Fatalf("attachment URL must be served from /chatfiles/, got %q", image.URL)
	}
	if !svc.Files.Exists(strings.TrimPrefix(image.URL, "/chatfiles/")) {
		t.Fatalf("attachment blob missing from the store")
	}
}

func TestMessages_HistoryOldestFirst(t *testing.T) {
	svc, _ := newChatService(t)
	g, members := seedChatGroup(t, svc, "team", 2, false)

	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.PostMessage(context.Background(), g.ID, members[0].ID, text, "10:00", "2026-05-01", nil); err != nil {
			t.Fatalf("PostMessage %q: %v", text, err)
		}
	}

	history, err := svc.Messages(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if *history[0].Text != "one" || *history[2].Text != "three" {
		t.Fatalf("history must be oldest first: %+v", history)
	}

	if _, err := svc.Messages(context.Background(), 404); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	svc, _ := newChatService(t)
	g, members := seedChatGroup(t, svc, "team", 2, false)

	payload, err := svc.PostMessage(context.Background(), g.ID, members[0].ID, "bye", "10:00", "2026-05-01", nil)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if err := svc.DeleteMessage(context.Background(), payload.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := svc.DeleteMessage(context.Background(), payload.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound on double delete, got %v", err)
	}
}

package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
	"github.com/munstack/conference-backend/internal/storage"
)

// IncomingFile is an attachment arriving with a chat message.
type IncomingFile struct {
	Name string
	Type string
	Data io.Reader
}

// FilePayload is the wire form of a stored attachment. Preview carries a
// base64 data URI for images and is empty for everything else.
type FilePayload struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Preview string `json:"preview,omitempty"`
}

// MessagePayload is the wire form of a chat message. The duplicated fields
// (_id/content/senderId) are aliases the existing chat frontend expects.
type MessagePayload struct {
	ID        int64         `json:"id"`
	LegacyID  string        `json:"_id"`
	Text      *string       `json:"text"`
	Content   *string       `json:"content"`
	SenderID  int64         `json:"sender_id"`
	SenderStr string        `json:"senderId"`
	GroupID   int64         `json:"group_id"`
	Username  string        `json:"username"`
	Timestamp string        `json:"timestamp"`
	Date      string        `json:"date"`
	Files     []FilePayload `json:"files"`
}

// ChatService handles messages, attachments, and unread bookkeeping.
//
// The gossip group (ID 1) is special: messages posted there are persisted but
// neither counted as unread nor broadcast, except for the pinned seed message.
type ChatService struct {
	DB    *gorm.DB
	Bus   *broadcast.Bus
	Files *storage.FileStore
	Log   zerolog.Logger
}

func NewChatService(db *gorm.DB, bus *broadcast.Bus, files *storage.FileStore, log zerolog.Logger) *ChatService {
	return &ChatService{DB: db, Bus: bus, Files: files, Log: log}
}

// PostMessage persists a message with its attachments, bumps unread counters
// for every other group member, and broadcasts new_message to the group room.
// A message needs text or at least one file.
func (s *ChatService) PostMessage(ctx context.Context, groupID, senderID int64, text, timestamp, date string, files []IncomingFile) (*MessagePayload, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(files) == 0 {
		return nil, ErrEmptyMessage
	}

	group, err := repo.GetGroup(ctx, s.DB, groupID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	msg := &domain.Message{
		SenderID:  senderID,
		GroupID:   groupID,
		Timestamp: timestamp,
		Date:      date,
	}
	if text != "" {
		msg.Text = &text
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateMessage(ctx, tx, msg); err != nil {
			return err
		}
		for _, in := range files {
			if in.Name == "" {
				continue
			}
			rel, size, err := s.Files.Save("", in.Name, in.Data)
			if err != nil {
				return err
			}
			f := domain.File{
				MessageID: msg.ID,
				Name:      storage.SanitizeFilename(in.Name),
				Size:      size,
				Type:      in.Type,
				Path:      rel,
			}
			if err := tx.Create(&f).Error; err != nil {
				return err
			}
			msg.Files = append(msg.Files, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	saved, err := repo.GetMessage(ctx, s.DB, msg.ID)
	if err != nil {
		return nil, err
	}
	payload := s.serializeMessage(saved)

	// The gossip group swallows everything but its pinned message: rows are
	// written, counters and broadcasts are not.
	if groupID == domain.GossipGroupID && saved.ID != domain.GossipPinnedMessageID {
		return payload, nil
	}

	for _, member := range group.Delegates {
		if member.ID == senderID {
			continue
		}
		if err := repo.IncrementUnread(ctx, s.DB, member.ID, groupID); err != nil {
			s.Log.Error().Err(err).
				Int64("user_id", member.ID).
				Int64("group_id", groupID).
				Msg("unread increment failed")
		}
	}

	s.Bus.Publish(broadcast.EventNewMessage, broadcast.GroupRoom(groupID), payload)
	return payload, nil
}

// Messages returns a group's full history, oldest first, with attachment
// metadata and inline previews.
func (s *ChatService) Messages(ctx context.Context, groupID int64) ([]MessagePayload, error) {
	if _, err := repo.GetGroup(ctx, s.DB, groupID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	msgs, err := repo.ListGroupMessages(ctx, s.DB, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]MessagePayload, 0, len(msgs))
	for i := range msgs {
		out = append(out, *s.serializeMessage(&msgs[i]))
	}
	return out, nil
}

// GetUnread returns the unread counter for a user and group, creating the row
// at zero on first access.
func (s *ChatService) GetUnread(ctx context.Context, userID, groupID int64) (int, error) {
	uc, err := repo.GetOrCreateUnread(ctx, s.DB, userID, groupID)
	if err != nil {
		return 0, err
	}
	return uc.Count, nil
}

// SetUnread overwrites the unread counter. Setting the same value twice is a
// no-op, so read receipts can be retried safely.
func (s *ChatService) SetUnread(ctx context.Context, userID, groupID int64, count int) error {
	return repo.SetUnread(ctx, s.DB, userID, groupID, count)
}

// DeleteMessage removes a message and its attachment rows.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID int64) error {
	err := repo.DeleteMessage(ctx, s.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	return err
}

func (s *ChatService) serializeMessage(m *domain.Message) *MessagePayload {
	return newMessagePayload(m, s.Files)
}

func newMessagePayload(m *domain.Message, files *storage.FileStore) *MessagePayload {
	p := &MessagePayload{
		ID:        m.ID,
		LegacyID:  strconv.FormatInt(m.ID, 10),
		Text:      m.Text,
		Content:   m.Text,
		SenderID:  m.SenderID,
		SenderStr: strconv.FormatInt(m.SenderID, 10),
		GroupID:   m.GroupID,
		Username:  m.Sender.Name,
		Timestamp: m.Timestamp,
		Date:      m.Date,
		Files:     make([]FilePayload, 0, len(m.Files)),
	}
	for _, f := range m.Files {
		p.Files = append(p.Files, FilePayload{
			Name:    f.Name,
			Size:    f.Size,
			Type:    f.Type,
			URL:     "/chatfiles/" + f.Path,
			Preview: imagePreview(f, files),
		})
	}
	return p
}

// imagePreview inlines image attachments as a data URI so the chat list can
// render thumbnails without a second request. Non-images and unreadable blobs
// yield an empty string.
func imagePreview(f domain.File, files *storage.FileStore) string {
	if !strings.HasPrefix(f.Type, "image/") {
		return ""
	}
	data, err := files.ReadAll(f.Path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", f.Type, base64.StdEncoding.EncodeToString(data))
}

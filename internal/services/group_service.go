package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
	"github.com/munstack/conference-backend/internal/storage"
)

// GroupMember is the short delegate reference embedded in group payloads.
type GroupMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GroupSummary is the wire form of a chat group as shown in the sidebar:
// members, the most recent message, and the viewer's unread counter.
type GroupSummary struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Delegates   []GroupMember    `json:"delegates"`
	UnreadCount int              `json:"unreadCount"`
	LastMessage *MessagePayload  `json:"lastMessage"`
	Messages    []MessagePayload `json:"messages,omitempty"`
}

// DelegatePayload is the wire form of a delegate in listings.
type DelegatePayload struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	Committee string   `json:"committee"`
	Groups    []string `json:"groups"`
}

// GroupService manages chat groups and delegate listings.
type GroupService struct {
	DB    *gorm.DB
	Bus   *broadcast.Bus
	Files *storage.FileStore
}

func NewGroupService(db *gorm.DB, bus *broadcast.Bus, files *storage.FileStore) *GroupService {
	return &GroupService{DB: db, Bus: bus, Files: files}
}

// Delegates lists every delegate with their group memberships.
func (s *GroupService) Delegates(ctx context.Context) ([]DelegatePayload, error) {
	delegates, err := repo.ListDelegates(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := make([]DelegatePayload, 0, len(delegates))
	for _, d := range delegates {
		names := make([]string, 0, len(d.Groups))
		for _, g := range d.Groups {
			names = append(names, g.Name)
		}
		out = append(out, DelegatePayload{
			ID:        d.ID,
			Name:      d.Name,
			Country:   d.Country,
			Committee: d.Committee,
			Groups:    names,
		})
	}
	return out, nil
}

// GroupsForDelegate returns the delegate's groups with last-message and
// unread annotations. The unread row is created at zero on first sight. The
// gossip group always reports its pinned message as the latest so the sidebar
// entry never churns.
func (s *GroupService) GroupsForDelegate(ctx context.Context, delegateID int64) ([]GroupSummary, error) {
	groups, err := repo.GroupsForDelegate(ctx, s.DB, delegateID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDelegateNotFound
		}
		return nil, err
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		summary := GroupSummary{
			ID:        g.ID,
			Name:      g.Name,
			Delegates: memberRefs(g.Delegates),
		}

		var last *domain.Message
		if g.ID == domain.GossipGroupID {
			last, err = repo.GetMessage(ctx, s.DB, domain.GossipPinnedMessageID)
		} else {
			last, err = repo.LastGroupMessage(ctx, s.DB, g.ID)
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		if last != nil {
			summary.LastMessage = newMessagePayload(last, s.Files)
		}

		uc, err := repo.GetOrCreateUnread(ctx, s.DB, delegateID, g.ID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = uc.Count

		out = append(out, summary)
	}
	return out, nil
}

// CreateGroup creates a chat group with the given members, posts a system
// message naming who was invited, and notifies each member's user room with
// added_to_group. Every delegate ID must resolve, including the inviter.
func (s *GroupService) CreateGroup(ctx context.Context, name string, delegateIDs []int64, invitingUserID int64) (*GroupSummary, error) {
	members, err := repo.DelegatesByIDs(ctx, s.DB, delegateIDs)
	if err != nil {
		return nil, err
	}
	if len(members) != len(delegateIDs) {
		return nil, ErrInvalidDelegates
	}
	inviter, err := repo.GetDelegate(ctx, s.DB, invitingUserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDelegateNotFound
		}
		return nil, err
	}

	var (
		group  *domain.Group
		system *domain.Message
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = repo.CreateGroup(ctx, tx, name, members)
		if err != nil {
			return err
		}

		invited := make([]string, 0, len(members))
		for _, m := range members {
			if m.ID != invitingUserID {
				invited = append(invited, m.Name)
			}
		}
		text := fmt.Sprintf("%s has invited %s to join the group.", inviter.Name, strings.Join(invited, ", "))
		now := time.Now()
		system = &domain.Message{
			Text:      &text,
			SenderID:  invitingUserID,
			GroupID:   group.ID,
			Timestamp: now.Format("15:04"),
			Date:      now.Format("2006-01-02"),
		}
		return repo.CreateMessage(ctx, tx, system)
	})
	if err != nil {
		return nil, err
	}

	system.Sender = *inviter
	sysPayload := newMessagePayload(system, s.Files)
	summary := &GroupSummary{
		ID:          group.ID,
		Name:        group.Name,
		Delegates:   memberRefs(members),
		LastMessage: sysPayload,
		Messages:    []MessagePayload{*sysPayload},
	}

	for _, m := range members {
		s.Bus.Publish(broadcast.EventAddedToGroup, broadcast.UserRoom(m.ID), summary)
	}
	return summary, nil
}

func memberRefs(delegates []domain.Delegate) []GroupMember {
	refs := make([]GroupMember, 0, len(delegates))
	for _, d := range delegates {
		refs = append(refs, GroupMember{ID: d.ID, Name: d.Name})
	}
	return refs
}

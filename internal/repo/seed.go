// Seeding of the conference fixture: the permanent gossip group (ID 1) with
// its pinned message (ID 1), one chat group and one chair delegate per
// committee, a starter set of delegates, and the chair login account.
package repo

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
)

// seedDelegates are the starter participants, grouped by committee.
var seedDelegates = map[string][]domain.Delegate{
	"junior": {
		{Name: "Alice Junior", Country: "USA", Committee: "junior"},
		{Name: "Bob Junior", Country: "UK", Committee: "junior"},
		{Name: "Charlie Junior", Country: "Canada", Committee: "junior"},
	},
	"senior": {
		{Name: "David Senior", Country: "Germany", Committee: "senior"},
		{Name: "Eve Senior", Country: "France", Committee: "senior"},
		{Name: "Frank Senior", Country: "Japan", Committee: "senior"},
	},
	"security council": {
		{Name: "Grace SC", Country: "Russia", Committee: "security council"},
		{Name: "Hank SC", Country: "China", Committee: "security council"},
		{Name: "Ivy SC", Country: "India", Committee: "security council"},
	},
}

// Seed populates an empty database with the conference fixture. It is a no-op
// when groups already exist, so it is safe to run on every startup.
//
// Ordering matters: the gossip group must be created first so it receives
// ID 1, and its pinned message must be the first message row (ID 1). The
// group-1 notification quirk in the chat service depends on both.
func Seed(ctx context.Context, db *gorm.DB, chairUsername, chairPassword string) error {
	var groups int64
	if err := db.WithContext(ctx).Model(&domain.Group{}).Count(&groups).Error; err != nil {
		return err
	}
	if groups > 0 {
		return nil
	}

	titler := cases.Title(language.English)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gossip := domain.Group{Name: "gossip"}
		if err := tx.Create(&gossip).Error; err != nil {
			return err
		}

		committeeGroups := make(map[string]*domain.Group, len(domain.Committees))
		for _, c := range domain.Committees {
			g := domain.Group{Name: c}
			if err := tx.Create(&g).Error; err != nil {
				return err
			}
			committeeGroups[c] = &g
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(chairPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if err := tx.Create(&domain.Chair{Username: chairUsername, PasswordHash: string(hash)}).Error; err != nil {
			return err
		}

		// One chair delegate per committee, member of that committee's group.
		chairDelegates := make(map[string]*domain.Delegate, len(domain.Committees))
		for _, c := range domain.Committees {
			d := domain.Delegate{
				Name:      titler.String(c) + " Chair",
				Country:   "Chair",
				Committee: c,
			}
			if err := tx.Create(&d).Error; err != nil {
				return err
			}
			chairDelegates[c] = &d
		}

		var allDelegates []*domain.Delegate
		for _, c := range domain.Committees {
			for i := range seedDelegates[c] {
				d := seedDelegates[c][i]
				if err := tx.Create(&d).Error; err != nil {
					return err
				}
				allDelegates = append(allDelegates, &d)
				if err := tx.Model(committeeGroups[c]).Association("Delegates").Append(&d); err != nil {
					return err
				}
			}
			if err := tx.Model(committeeGroups[c]).Association("Delegates").Append(chairDelegates[c]); err != nil {
				return err
			}
		}

		// Every regular delegate joins gossip; chairs stay out.
		for _, d := range allDelegates {
			if err := tx.Model(&gossip).Association("Delegates").Append(d); err != nil {
				return err
			}
		}

		now := time.Now()
		hhmm := now.Format("15:04")
		date := now.Format("2006-01-02")

		// Pinned gossip message, must be message ID 1.
		gossipText := "You can send your gossip to this group, and it cannot be deleted."
		pinned := domain.Message{
			Text:      &gossipText,
			SenderID:  chairDelegates[domain.Committees[0]].ID,
			GroupID:   gossip.ID,
			Timestamp: hhmm,
			Date:      date,
		}
		if err := tx.Create(&pinned).Error; err != nil {
			return err
		}

		for _, c := range domain.Committees {
			welcome := fmt.Sprintf(
				"Welcome to the %s Committee group chat. Here you can communicate with all delegates in your committee.",
				titler.String(c),
			)
			msg := domain.Message{
				Text:      &welcome,
				SenderID:  chairDelegates[c].ID,
				GroupID:   committeeGroups[c].ID,
				Timestamp: hhmm,
				Date:      date,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

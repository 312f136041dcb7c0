// Package domain defines the persistence models for the conference backend:
// delegates, chat groups and messages, uploaded clauses, amendments, and the
// per-user unread counters. These types are mapped with GORM and form the core
// data layer of the application.
package domain

import "time"

// Committees lists the conference sub-bodies in seeding order. The set is
// fixed for a conference; clauses, amendments, and committee rooms are
// partitioned by it.
var Committees = []string{"junior", "senior", "security council"}

// KnownCommittee reports whether name is one of the seeded committees.
func KnownCommittee(name string) bool {
	for _, c := range Committees {
		if c == name {
			return true
		}
	}
	return false
}

// Delegate is a conference participant. The (name, country) pair is the login
// identity and must be unique.
type Delegate struct {
	ID        int64  `json:"id"        gorm:"primaryKey;autoIncrement"`
	Name      string `json:"name"      gorm:"type:varchar(80);not null;uniqueIndex:ux_delegate_identity"`
	Country   string `json:"country"   gorm:"type:varchar(80);not null;uniqueIndex:ux_delegate_identity"`
	Committee string `json:"committee" gorm:"type:varchar(80);not null;index"`

	// Groups the delegate belongs to, via the delegate_groups join table.
	Groups []Group `json:"-" gorm:"many2many:delegate_groups"`
}

// TableName returns the database table name for Delegate.
func (Delegate) TableName() string { return "delegates" }

// Group is a chat room. The group seeded with ID 1 ("gossip") is permanent and
// carries special notification rules (see services.ChatService).
type Group struct {
	ID   int64  `json:"id"   gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:varchar(80);not null"`

	Delegates []Delegate `json:"-" gorm:"many2many:delegate_groups"`
	Messages  []Message  `json:"-" gorm:"foreignKey:GroupID"`
}

// TableName returns the database table name for Group.
func (Group) TableName() string { return "groups" }

// GossipGroupID is the permanent seeded group. Messages posted to it are
// persisted but, apart from its pinned first message, never notified.
const GossipGroupID int64 = 1

// GossipPinnedMessageID is the one seeded message in the gossip group that is
// still allowed to trigger unread counters and a broadcast.
const GossipPinnedMessageID int64 = 1

// Message is a single chat entry. Text may be nil when the message only
// carries file attachments; at least one of the two must be present.
//
// Timestamp and Date hold the client-formatted "HH:MM" and "YYYY-MM-DD"
// strings rather than a time.Time, matching the wire format the chat UI
// renders verbatim.
type Message struct {
	ID       int64   `json:"id"        gorm:"primaryKey;autoIncrement"`
	Text     *string `json:"text"      gorm:"type:varchar(200)"`
	SenderID int64   `json:"sender_id" gorm:"not null;index"`
	GroupID  int64   `json:"group_id"  gorm:"not null;index"`

	Timestamp string `json:"timestamp" gorm:"type:varchar(5);not null"`
	Date      string `json:"date"      gorm:"type:varchar(10);not null"`

	Sender Delegate `json:"-" gorm:"foreignKey:SenderID"`
	Files  []File   `json:"files" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// File is an attachment stored on disk and linked to a message. Path is
// relative to the chat-file store root and must reference an existing blob.
type File struct {
	ID        int64  `json:"id"         gorm:"primaryKey;autoIncrement"`
	MessageID int64  `json:"message_id" gorm:"not null;index"`
	Name      string `json:"name"       gorm:"type:varchar(255);not null"`
	Size      int64  `json:"size"       gorm:"not null"`
	Type      string `json:"type"       gorm:"type:varchar(50);not null"`
	Path      string `json:"path"       gorm:"type:varchar(255);not null"`
}

// TableName returns the database table name for File.
func (File) TableName() string { return "files" }

// Clause is an uploaded document section, converted to HTML on ingest.
//
// At most one clause per committee may have IsPublished set (enforced in
// services.ClauseService); clauses are never physically deleted.
type Clause struct {
	ID          int64     `json:"id"           gorm:"primaryKey;autoIncrement"`
	Committee   string    `json:"committee"    gorm:"type:varchar(50);index"`
	Country     string    `json:"country"      gorm:"type:varchar(100)"`
	Filename    string    `json:"filename"     gorm:"type:varchar(255)"`
	HTMLContent string    `json:"html_content" gorm:"type:text;column:html_content"`
	Timestamp   time.Time `json:"timestamp"`
	IsPublished bool      `json:"is_published" gorm:"default:false;index"`
	IsRejected  bool      `json:"is_rejected"  gorm:"default:false"`
	IsPassed    bool      `json:"is_passed"    gorm:"default:false"`
	IsAmended   bool      `json:"is_amended"   gorm:"default:false"`

	Amendments []Amendment `json:"-" gorm:"foreignKey:ClauseID"`
}

// TableName returns the database table name for Clause.
func (Clause) TableName() string { return "clauses" }

// Amendment is a proposed textual change to a clause.
//
// ClauseID references the clause the amendment was submitted against (the
// "original"); DebateClauseID references the clause whose on-screen content is
// currently being debated. The two are distinct on purpose: unpublishing
// restores the debated clause's content from the original, not from itself.
//
// Invariants: UnderDebate implies DebateClauseID is set; IsPassed or
// IsRejected implies UnderDebate is false and DebateClauseID is nil.
type Amendment struct {
	ID             int64     `json:"id"             gorm:"primaryKey;autoIncrement"`
	AmendmentText  string    `json:"amendment_text" gorm:"type:text;not null"`
	Country        string    `json:"country"        gorm:"type:varchar(100);not null"`
	Committee      string    `json:"committee"      gorm:"type:varchar(100);not null;index"`
	ClauseID       *int64    `json:"clause_id"`
	Timestamp      time.Time `json:"timestamp"`
	IsPublished    bool      `json:"is_published"   gorm:"default:false"`
	IsRejected     bool      `json:"is_rejected"    gorm:"default:false"`
	IsPassed       bool      `json:"is_passed"      gorm:"default:false"`
	AmendedClause  string    `json:"amended_clause" gorm:"type:text;default:''"`
	UnderDebate    bool      `json:"under_debate"   gorm:"default:false;index"`
	DebateClauseID *int64    `json:"debate_clause_id"`
}

// TableName returns the database table name for Amendment.
func (Amendment) TableName() string { return "amendments" }

// UnreadCount tracks how many messages in a group a user has not read yet.
// One row per (user, group); the count grows on incoming messages and is
// overwritten (typically to zero) by an explicit read event.
type UnreadCount struct {
	ID                int64  `json:"id"       gorm:"primaryKey;autoIncrement"`
	UserID            int64  `json:"user_id"  gorm:"not null;uniqueIndex:ux_unread_user_group"`
	GroupID           int64  `json:"group_id" gorm:"not null;uniqueIndex:ux_unread_user_group"`
	Count             int    `json:"count"    gorm:"default:0"`
	LastReadMessageID *int64 `json:"last_read_message_id"`
}

// TableName returns the database table name for UnreadCount.
func (UnreadCount) TableName() string { return "unread_counts" }

// Chair is a committee chair account. PasswordHash is a bcrypt hash and is
// never serialized.
type Chair struct {
	ID           int64  `json:"id"       gorm:"primaryKey;autoIncrement"`
	Username     string `json:"username" gorm:"type:varchar(80);uniqueIndex;not null"`
	PasswordHash string `json:"-"        gorm:"column:password;type:varchar(120);not null"`
}

// TableName returns the database table name for Chair.
func (Chair) TableName() string { return "chairs" }

// Resolution is the persisted form of a committee's adopted working document.
type Resolution struct {
	ID        int64     `json:"id"        gorm:"primaryKey;autoIncrement"`
	Committee string    `json:"committee" gorm:"type:varchar(50);not null;index"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	ClauseID  *int64    `json:"clause_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TableName returns the database table name for Resolution.
func (Resolution) TableName() string { return "resolutions" }

// CommitteeContent is the live working-document content for a committee,
// broadcast to the committee room whenever it changes.
type CommitteeContent struct {
	ID        int64     `json:"id"        gorm:"primaryKey;autoIncrement"`
	Committee string    `json:"committee" gorm:"type:varchar(50);uniqueIndex;not null"`
	Content   string    `json:"content"   gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for CommitteeContent.
func (CommitteeContent) TableName() string { return "committee_contents" }

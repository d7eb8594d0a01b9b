package conversation

import (
	"context"
	"encoding/json"
	"time"

	conversationDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/conversation"
)

type Kind string

const (
	KindText  Kind = "text"
	KindVoice Kind = "voice"
	KindFile  Kind = "file"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

type Thread struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	Title          string     `json:"title"`
	DepartmentID   *int64     `json:"department_id"`
	GroupID        *int64     `json:"group_id"`
	CreatedBy      int64      `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	LastSeenAt     *time.Time `json:"last_seen_at"`
}

// Unbound threads are reachable by admins only.
func (t *Thread) Unbound() bool {
	return t.DepartmentID == nil && t.GroupID == nil
}

type Message struct {
	ID        int64           `json:"id"`
	ThreadID  int64           `json:"thread_id"`
	SenderID  int64           `json:"sender_id"`
	Kind      Kind            `json:"kind"`
	Body      json.RawMessage `json:"body"`
	MediaRef  *string         `json:"media_ref,omitempty"`
	MediaType *string         `json:"media_type,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Page is one window of the log in ascending time order. NextCursor is the
// created_at of the oldest message returned, nil when the window is empty.
type Page struct {
	Messages   []*Message `json:"messages"`
	NextCursor *time.Time `json:"next_cursor"`
}

type ReadMark struct {
	UserID     int64     `json:"user_id"`
	ThreadID   int64     `json:"thread_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// ThreadRecord is a thread row joined with the caller's read mark.
type ThreadRecord struct {
	ID             int64      `gorm:"column:id"`
	OrganizationID int64      `gorm:"column:organization_id"`
	Title          string     `gorm:"column:title"`
	DepartmentID   *int64     `gorm:"column:department_id"`
	GroupID        *int64     `gorm:"column:group_id"`
	CreatedBy      int64      `gorm:"column:created_by"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	LastSeenAt     *time.Time `gorm:"column:last_seen_at"`
}

func threadFromRecord(r *ThreadRecord) *Thread {
	return &Thread{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Title:          r.Title,
		DepartmentID:   r.DepartmentID,
		GroupID:        r.GroupID,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		LastSeenAt:     r.LastSeenAt,
	}
}

func threadFromDataModel(t *conversationDatamodel.Thread) *Thread {
	return &Thread{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		Title:          t.Title,
		DepartmentID:   t.DepartmentID,
		GroupID:        t.GroupID,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
	}
}

func messageFromDataModel(m *conversationDatamodel.Message) *Message {
	return &Message{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		SenderID:  m.SenderID,
		Kind:      Kind(m.Kind),
		Body:      json.RawMessage(m.Body),
		MediaRef:  m.MediaRef,
		MediaType: m.MediaType,
		CreatedAt: m.CreatedAt,
	}
}

type RepositoryAPI interface {
	GetThread(ctx context.Context, organizationID, threadID int64) (*conversationDatamodel.Thread, error)
	ListThreads(ctx context.Context, organizationID, userID int64) ([]ThreadRecord, error)
	ListVisibleThreads(ctx context.Context, organizationID, userID int64) ([]ThreadRecord, error)
	CreateThread(ctx context.Context, thread *conversationDatamodel.Thread) error

	DepartmentExists(ctx context.Context, organizationID, departmentID int64) (bool, error)
	GroupExists(ctx context.Context, organizationID, groupID int64) (bool, error)
	IsDepartmentMember(ctx context.Context, departmentID, userID int64) (bool, error)
	IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error)

	AppendMessage(ctx context.Context, message *conversationDatamodel.Message) error
	ListMessages(ctx context.Context, threadID int64, before *time.Time, limit int) ([]conversationDatamodel.Message, error)

	UpsertReadMark(ctx context.Context, mark *conversationDatamodel.ReadMark) error
	GetReadMark(ctx context.Context, userID, threadID int64) (*conversationDatamodel.ReadMark, error)
}

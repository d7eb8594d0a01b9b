package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/teamspace/internal/conversation"
	conversationDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/conversation"
	directoryDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/directory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const appendAttempts = 5

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) conversation.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetThread(ctx context.Context, organizationID, threadID int64) (*conversationDatamodel.Thread, error) {
	var t conversationDatamodel.Thread
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", threadID, organizationID).
		Take(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &t, nil
}

const threadSelect = `SELECT t.id, t.organization_id, t.title, t.department_id, t.group_id,
		t.created_by, t.created_at, rm.last_seen_at
	FROM threads t
	LEFT JOIN read_marks rm ON rm.thread_id = t.id AND rm.user_id = ?`

func (r *Repository) ListThreads(ctx context.Context, organizationID, userID int64) ([]conversation.ThreadRecord, error) {
	var rows []conversation.ThreadRecord
	err := r.db.WithContext(ctx).Raw(threadSelect+`
	WHERE t.organization_id = ?
	ORDER BY t.created_at DESC, t.id DESC`, userID, organizationID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return rows, nil
}

// ListVisibleThreads returns threads bound to a department or group userID
// belongs to. Unbound threads never match either subquery.
func (r *Repository) ListVisibleThreads(ctx context.Context, organizationID, userID int64) ([]conversation.ThreadRecord, error) {
	var rows []conversation.ThreadRecord
	err := r.db.WithContext(ctx).Raw(threadSelect+`
	WHERE t.organization_id = ?
	  AND (t.department_id IN (SELECT department_id FROM department_members WHERE user_id = ?)
	    OR t.group_id IN (SELECT group_id FROM group_members WHERE user_id = ?))
	ORDER BY t.created_at DESC, t.id DESC`, userID, organizationID, userID, userID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list visible threads: %w", err)
	}
	return rows, nil
}

func (r *Repository) CreateThread(ctx context.Context, thread *conversationDatamodel.Thread) error {
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

func (r *Repository) exists(ctx context.Context, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) DepartmentExists(ctx context.Context, organizationID, departmentID int64) (bool, error) {
	ok, err := r.exists(ctx, &directoryDatamodel.Department{}, "id = ? AND organization_id = ?", departmentID, organizationID)
	if err != nil {
		return false, fmt.Errorf("department exists: %w", err)
	}
	return ok, nil
}

func (r *Repository) GroupExists(ctx context.Context, organizationID, groupID int64) (bool, error) {
	ok, err := r.exists(ctx, &directoryDatamodel.Group{}, "id = ? AND organization_id = ?", groupID, organizationID)
	if err != nil {
		return false, fmt.Errorf("group exists: %w", err)
	}
	return ok, nil
}

func (r *Repository) IsDepartmentMember(ctx context.Context, departmentID, userID int64) (bool, error) {
	ok, err := r.exists(ctx, &directoryDatamodel.DepartmentMember{}, "department_id = ? AND user_id = ?", departmentID, userID)
	if err != nil {
		return false, fmt.Errorf("department membership: %w", err)
	}
	return ok, nil
}

func (r *Repository) IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error) {
	ok, err := r.exists(ctx, &directoryDatamodel.GroupMember{}, "group_id = ? AND user_id = ?", groupID, userID)
	if err != nil {
		return false, fmt.Errorf("group membership: %w", err)
	}
	return ok, nil
}

// AppendMessage keeps created_at strictly increasing within a thread so a
// timestamp cursor never lands between two messages. A stamp at or before the
// thread's newest message is moved one microsecond past it; the unique
// (thread_id, created_at) index settles concurrent appends, and the loser
// restamps and tries again.
func (r *Repository) AppendMessage(ctx context.Context, message *conversationDatamodel.Message) error {
	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var latest []conversationDatamodel.Message
			if err := tx.Select("created_at").
				Where("thread_id = ?", message.ThreadID).
				Order("created_at DESC").
				Limit(1).
				Find(&latest).Error; err != nil {
				return fmt.Errorf("load newest message: %w", err)
			}
			if len(latest) == 1 && !message.CreatedAt.After(latest[0].CreatedAt) {
				message.CreatedAt = latest[0].CreatedAt.UTC().Add(time.Microsecond)
			}
			return tx.Create(message).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		message.ID = 0
	}
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns newest first; the service reverses the window.
func (r *Repository) ListMessages(ctx context.Context, threadID int64, before *time.Time, limit int) ([]conversationDatamodel.Message, error) {
	q := r.db.WithContext(ctx).Where("thread_id = ?", threadID)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}

	var rows []conversationDatamodel.Message
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rows, nil
}

// UpsertReadMark overwrites any existing mark for the pair unconditionally.
func (r *Repository) UpsertReadMark(ctx context.Context, mark *conversationDatamodel.ReadMark) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at", "updated_at"}),
	}).Create(mark).Error
	if err != nil {
		return fmt.Errorf("upsert read mark: %w", err)
	}
	return nil
}

func (r *Repository) GetReadMark(ctx context.Context, userID, threadID int64) (*conversationDatamodel.ReadMark, error) {
	var mark conversationDatamodel.ReadMark
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND thread_id = ?", userID, threadID).
		Take(&mark).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get read mark: %w", err)
	}
	return &mark, nil
}

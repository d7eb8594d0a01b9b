package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	conversationDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/conversation"
	"github.com/frahmantamala/teamspace/internal/core/events"
	"gorm.io/datatypes"
)

// Service owns threads, the per-thread message log and read marks. Every
// operation goes through the visibility check before touching the log.
type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to stamp messages and default read marks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// timestamp matches the microsecond precision of timestamptz so a cursor
// read back from the store compares equal to the value written.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) publish(ctx context.Context, id *internal.Identity, eventType string, data map[string]interface{}) {
	_ = s.publisher.Publish(ctx, events.NewWorkspaceEvent(eventType, id.OrganizationSlug, id.UserID, data))
}

func (s *Service) CreateThread(ctx context.Context, id *internal.Identity, dto CreateThreadDTO) (*Thread, error) {
	if err := auth.RequireCapability(id, auth.CapThreadsCreate); err != nil {
		return nil, err
	}

	member := id.IsAdmin()
	if dto.DepartmentID != nil {
		ok, err := s.repo.DepartmentExists(ctx, id.OrganizationID, *dto.DepartmentID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load department", err)
		}
		if !ok {
			return nil, internal.ErrDepartmentNotFound
		}
		if !member {
			if member, err = s.repo.IsDepartmentMember(ctx, *dto.DepartmentID, id.UserID); err != nil {
				return nil, internal.NewInternalError("failed to check membership", err)
			}
		}
	}
	if dto.GroupID != nil {
		ok, err := s.repo.GroupExists(ctx, id.OrganizationID, *dto.GroupID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load group", err)
		}
		if !ok {
			return nil, internal.ErrGroupNotFound
		}
		if !member {
			if member, err = s.repo.IsGroupMember(ctx, *dto.GroupID, id.UserID); err != nil {
				return nil, internal.NewInternalError("failed to check membership", err)
			}
		}
	}
	// A non-admin may only open threads they will be able to read.
	if !member {
		return nil, internal.ErrForbidden
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row := &conversationDatamodel.Thread{
		OrganizationID: id.OrganizationID,
		Title:          dto.Title,
		DepartmentID:   dto.DepartmentID,
		GroupID:        dto.GroupID,
		CreatedBy:      id.UserID,
		CreatedAt:      s.timestamp(),
	}
	if err := s.repo.CreateThread(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to create thread", "error", err)
		return nil, internal.NewInternalError("failed to create thread", err)
	}

	t := threadFromDataModel(row)
	s.logger.InfoContext(ctx, "thread created", "thread_id", t.ID)
	s.publish(ctx, id, events.EventTypeThreadCreated, map[string]interface{}{
		"thread_id":     t.ID,
		"title":         t.Title,
		"department_id": t.DepartmentID,
		"group_id":      t.GroupID,
	})
	return t, nil
}

// GetThread returns one accessible thread with the caller's read mark.
func (s *Service) GetThread(ctx context.Context, id *internal.Identity, threadID int64) (*Thread, error) {
	t, err := s.CheckThreadAccess(ctx, id, threadID)
	if err != nil {
		return nil, err
	}

	mark, err := s.repo.GetReadMark(ctx, id.UserID, threadID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load read mark", err)
	}
	if mark != nil {
		seen := mark.LastSeenAt
		t.LastSeenAt = &seen
	}
	return t, nil
}

// Append adds a message to the end of the thread's log. The log assigns
// created_at; callers cannot supply it.
func (s *Service) Append(ctx context.Context, id *internal.Identity, threadID int64, dto AppendMessageDTO) (*Message, error) {
	if err := auth.RequireCapability(id, auth.CapMessagesSend); err != nil {
		return nil, err
	}
	if _, err := s.CheckThreadAccess(ctx, id, threadID); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row := &conversationDatamodel.Message{
		ThreadID:       threadID,
		OrganizationID: id.OrganizationID,
		SenderID:       id.UserID,
		Kind:           dto.Kind,
		Body:           datatypes.JSON(dto.NormalizedBody()),
		MediaRef:       dto.MediaRef,
		MediaType:      dto.MediaType,
		CreatedAt:      s.timestamp(),
	}
	if err := s.repo.AppendMessage(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to append message", "thread_id", threadID, "error", err)
		return nil, internal.NewInternalError("failed to append message", err)
	}

	msg := messageFromDataModel(row)
	s.publish(ctx, id, events.EventTypeMessageCreated, map[string]interface{}{
		"thread_id":  threadID,
		"message_id": msg.ID,
		"sender_id":  msg.SenderID,
		"kind":       string(msg.Kind),
		"created_at": msg.CreatedAt,
	})
	return msg, nil
}

// Page returns up to limit messages older than q.Before (or the newest when
// Before is nil), oldest first.
func (s *Service) Page(ctx context.Context, id *internal.Identity, threadID int64, q PageQuery) (*Page, error) {
	if _, err := s.CheckThreadAccess(ctx, id, threadID); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var before *time.Time
	if q.Before != nil {
		b := q.Before.UTC()
		before = &b
	}

	rows, err := s.repo.ListMessages(ctx, threadID, before, q.limit())
	if err != nil {
		return nil, internal.NewInternalError("failed to load messages", err)
	}

	page := &Page{Messages: make([]*Message, len(rows))}
	for i := range rows {
		page.Messages[len(rows)-1-i] = messageFromDataModel(&rows[i])
	}
	if len(page.Messages) > 0 {
		cursor := page.Messages[0].CreatedAt
		page.NextCursor = &cursor
	}
	return page, nil
}

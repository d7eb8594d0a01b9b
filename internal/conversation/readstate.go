package conversation

import (
	"context"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	conversationDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/conversation"
	"github.com/frahmantamala/teamspace/internal/core/events"
)

// MarkRead stores the caller's watermark for a thread. The stored value is
// overwritten on every call, so an older timestamp moves the mark backwards.
func (s *Service) MarkRead(ctx context.Context, id *internal.Identity, threadID int64, dto MarkReadDTO) (*ReadMark, error) {
	if _, err := s.CheckThreadAccess(ctx, id, threadID); err != nil {
		return nil, err
	}

	now := s.timestamp()
	seen := now
	if dto.LastSeenAt != nil {
		seen = dto.LastSeenAt.UTC().Truncate(time.Microsecond)
	}

	row := &conversationDatamodel.ReadMark{
		UserID:     id.UserID,
		ThreadID:   threadID,
		LastSeenAt: seen,
		UpdatedAt:  now,
	}
	if err := s.repo.UpsertReadMark(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to store read mark", "thread_id", threadID, "error", err)
		return nil, internal.NewInternalError("failed to store read mark", err)
	}

	s.publish(ctx, id, events.EventTypeReadUpdated, map[string]interface{}{
		"thread_id":    threadID,
		"user_id":      id.UserID,
		"last_seen_at": seen,
	})
	return &ReadMark{UserID: id.UserID, ThreadID: threadID, LastSeenAt: seen}, nil
}

package user

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	"github.com/frahmantamala/teamspace/internal/core/events"
)

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
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

func (s *Service) GetProfile(ctx context.Context, id *internal.Identity) (*Profile, error) {
	if id == nil {
		return nil, internal.ErrNoSession
	}

	p, err := s.repo.GetProfile(ctx, id.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load profile", err)
	}
	if p == nil {
		return nil, internal.ErrMemberNotFound
	}
	p.DisplayName = p.ResolveDisplayName()
	return p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id *internal.Identity, dto UpdateProfileDTO) (*Profile, error) {
	if err := auth.RequireCapability(id, auth.CapProfileUpdate); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	changes := dto.Changes()
	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		changes.Name = &name
	}
	if !changes.Empty() {
		if err := s.repo.UpdateProfile(ctx, id.UserID, changes, s.now().UTC()); err != nil {
			s.logger.ErrorContext(ctx, "failed to update profile", "error", err)
			return nil, internal.NewInternalError("failed to update profile", err)
		}
	}

	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.NewWorkspaceEvent(events.EventTypeProfileUpdated, id.OrganizationSlug, id.UserID, map[string]interface{}{
		"user_id":      p.ID,
		"display_name": p.DisplayName,
		"avatar_ref":   p.AvatarRef,
	}))
	return p, nil
}

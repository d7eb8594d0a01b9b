package directory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	"github.com/frahmantamala/teamspace/internal/core/events"
)

// Service maintains departments, groups and their member lists.
type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func eventType(kind Kind, action string) string {
	return string(kind) + "." + action
}

func (s *Service) publish(ctx context.Context, id *internal.Identity, eventType string, data map[string]interface{}) {
	_ = s.publisher.Publish(ctx, events.NewWorkspaceEvent(eventType, id.OrganizationSlug, id.UserID, data))
}

func (s *Service) CreateContainer(ctx context.Context, id *internal.Identity, kind Kind, dto ContainerDTO) (*Container, error) {
	if err := auth.RequireCapability(id, kind.capabilities().create); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.CreateContainer(ctx, kind, id.OrganizationID, strings.TrimSpace(dto.Name))
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, internal.NewValidationFieldError("name", "name is already used", internal.ErrCodeAlreadyTaken)
		}
		s.logger.ErrorContext(ctx, "failed to create container", "kind", kind, "error", err)
		return nil, internal.NewInternalError("failed to create "+string(kind), err)
	}

	c := FromDataModel(kind, row)
	s.logger.InfoContext(ctx, "container created", "kind", kind, "id", c.ID, "name", c.Name)
	s.publish(ctx, id, eventType(kind, "created"), map[string]interface{}{"id": c.ID, "name": c.Name})
	return c, nil
}

func (s *Service) ListContainers(ctx context.Context, id *internal.Identity, kind Kind) ([]*Container, error) {
	if err := auth.RequireCapability(id, kind.capabilities().view); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListContainers(ctx, kind, id.OrganizationID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list "+string(kind)+"s", err)
	}

	out := make([]*Container, 0, len(rows))
	for i := range rows {
		out = append(out, FromDataModel(kind, &rows[i]))
	}
	return out, nil
}

func (s *Service) GetContainer(ctx context.Context, id *internal.Identity, kind Kind, containerID int64) (*Container, error) {
	if err := auth.RequireCapability(id, kind.capabilities().view); err != nil {
		return nil, err
	}
	return s.loadContainer(ctx, id, kind, containerID)
}

func (s *Service) loadContainer(ctx context.Context, id *internal.Identity, kind Kind, containerID int64) (*Container, error) {
	row, err := s.repo.GetContainer(ctx, kind, id.OrganizationID, containerID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load "+string(kind), err)
	}
	if row == nil {
		return nil, kind.notFound()
	}
	return FromDataModel(kind, row), nil
}

func (s *Service) RenameContainer(ctx context.Context, id *internal.Identity, kind Kind, containerID int64, dto ContainerDTO) (*Container, error) {
	if err := auth.RequireCapability(id, kind.capabilities().update); err != nil {
		return nil, err
	}
	c, err := s.loadContainer(ctx, id, kind, containerID)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(dto.Name)
	if err := s.repo.RenameContainer(ctx, kind, id.OrganizationID, containerID, name); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, internal.NewValidationFieldError("name", "name is already used", internal.ErrCodeAlreadyTaken)
		}
		return nil, internal.NewInternalError("failed to rename "+string(kind), err)
	}

	c.Name = name
	s.publish(ctx, id, eventType(kind, "updated"), map[string]interface{}{"id": c.ID, "name": c.Name})
	return c, nil
}

// DeleteContainer drops the container and its member rows. Threads bound to it
// are unbound rather than deleted, which leaves them visible to admins only.
func (s *Service) DeleteContainer(ctx context.Context, id *internal.Identity, kind Kind, containerID int64) error {
	if err := auth.RequireCapability(id, kind.capabilities().remove); err != nil {
		return err
	}
	if _, err := s.loadContainer(ctx, id, kind, containerID); err != nil {
		return err
	}

	if err := s.repo.DeleteContainer(ctx, kind, id.OrganizationID, containerID); err != nil {
		return internal.NewInternalError("failed to delete "+string(kind), err)
	}

	s.logger.InfoContext(ctx, "container deleted", "kind", kind, "id", containerID)
	s.publish(ctx, id, eventType(kind, "deleted"), map[string]interface{}{"id": containerID})
	return nil
}

func (s *Service) AddContainerMember(ctx context.Context, id *internal.Identity, kind Kind, containerID int64, dto AddMemberDTO) error {
	if err := auth.RequireCapability(id, kind.capabilities().manage); err != nil {
		return err
	}
	if _, err := s.loadContainer(ctx, id, kind, containerID); err != nil {
		return err
	}
	if err := dto.Validate(); err != nil {
		return err
	}

	member, err := s.repo.GetMember(ctx, id.OrganizationID, dto.UserID)
	if err != nil {
		return internal.NewInternalError("failed to load member", err)
	}
	if member == nil {
		return internal.ErrMemberNotFound
	}

	added, err := s.repo.AddContainerMember(ctx, kind, containerID, dto.UserID)
	if err != nil {
		return internal.NewInternalError("failed to add member", err)
	}
	if added {
		s.publish(ctx, id, eventType(kind, "member_added"), map[string]interface{}{"id": containerID, "user_id": dto.UserID})
	}
	return nil
}

// RemoveContainerMember is idempotent: removing a non-member succeeds.
func (s *Service) RemoveContainerMember(ctx context.Context, id *internal.Identity, kind Kind, containerID, userID int64) error {
	if err := auth.RequireCapability(id, kind.capabilities().manage); err != nil {
		return err
	}
	if _, err := s.loadContainer(ctx, id, kind, containerID); err != nil {
		return err
	}

	removed, err := s.repo.RemoveContainerMember(ctx, kind, containerID, userID)
	if err != nil {
		return internal.NewInternalError("failed to remove member", err)
	}
	if removed {
		s.publish(ctx, id, eventType(kind, "member_removed"), map[string]interface{}{"id": containerID, "user_id": userID})
	}
	return nil
}

func (s *Service) ListContainerMembers(ctx context.Context, id *internal.Identity, kind Kind, containerID int64) ([]ContainerMember, error) {
	if err := auth.RequireCapability(id, kind.capabilities().view); err != nil {
		return nil, err
	}
	if _, err := s.loadContainer(ctx, id, kind, containerID); err != nil {
		return nil, err
	}

	members, err := s.repo.ListContainerMembers(ctx, kind, containerID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list members", err)
	}
	if members == nil {
		members = []ContainerMember{}
	}
	return members, nil
}

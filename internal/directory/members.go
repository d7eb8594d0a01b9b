package directory

import (
	"context"
	"errors"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	"github.com/frahmantamala/teamspace/internal/core/common/validation"
	"github.com/frahmantamala/teamspace/internal/core/events"
)

func (s *Service) ListMembers(ctx context.Context, id *internal.Identity) ([]Member, error) {
	if err := auth.RequireCapability(id, auth.CapUsersView); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, id.OrganizationID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list members", err)
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}

// InviteMember attaches an already registered user to the caller's organization.
// Only admins may invite directly as admin.
func (s *Service) InviteMember(ctx context.Context, id *internal.Identity, dto InviteDTO) (*Member, error) {
	if err := auth.RequireCapability(id, auth.CapUsersInvite); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role := internal.RoleMember
	if dto.Role != "" {
		role = internal.Role(dto.Role)
	}
	if role == internal.RoleAdmin && !id.IsAdmin() {
		return nil, internal.ErrForbidden
	}

	user, err := s.repo.FindUserByIdentifier(ctx, validation.NormalizeIdentifier(dto.Identifier))
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if user == nil {
		s.logger.InfoContext(ctx, "invite for unknown user rejected")
		return nil, ErrCannotInvite
	}

	if err := s.repo.CreateMembership(ctx, id.OrganizationID, user.ID, role); err != nil {
		if errors.Is(err, ErrAlreadyMember) {
			return nil, ErrCannotInvite
		}
		return nil, internal.NewInternalError("failed to create membership", err)
	}

	member, err := s.repo.GetMember(ctx, id.OrganizationID, user.ID)
	if err != nil || member == nil {
		return nil, internal.NewInternalError("failed to load new member", err)
	}

	s.logger.InfoContext(ctx, "member invited", "user_id", user.ID, "role", role)
	s.publish(ctx, id, events.EventTypeMemberInvited, map[string]interface{}{"user_id": user.ID, "role": string(role)})
	return member, nil
}

func (s *Service) ChangeRole(ctx context.Context, id *internal.Identity, userID int64, dto RoleDTO) (*Member, error) {
	if err := auth.RequireCapability(id, auth.CapUsersUpdateRole); err != nil {
		return nil, err
	}

	member, err := s.repo.GetMember(ctx, id.OrganizationID, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load member", err)
	}
	if member == nil {
		return nil, internal.ErrMemberNotFound
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if userID == id.UserID {
		return nil, internal.NewValidationFieldError("user_id", "cannot change your own role", internal.ErrCodeValidationFailed)
	}

	role := internal.Role(dto.Role)
	if err := s.repo.UpdateMemberRole(ctx, id.OrganizationID, userID, role); err != nil {
		return nil, internal.NewInternalError("failed to update role", err)
	}

	member.Role = string(role)
	s.logger.InfoContext(ctx, "member role changed", "user_id", userID, "role", role)
	s.publish(ctx, id, events.EventTypeMemberRoleChanged, map[string]interface{}{"user_id": userID, "role": string(role)})
	return member, nil
}

// RemoveMember drops the membership together with the user's department and
// group memberships and sessions in this organization.
func (s *Service) RemoveMember(ctx context.Context, id *internal.Identity, userID int64) error {
	if err := auth.RequireCapability(id, auth.CapUsersDelete); err != nil {
		return err
	}

	member, err := s.repo.GetMember(ctx, id.OrganizationID, userID)
	if err != nil {
		return internal.NewInternalError("failed to load member", err)
	}
	if member == nil {
		return internal.ErrMemberNotFound
	}
	if userID == id.UserID {
		return internal.NewValidationFieldError("user_id", "cannot remove yourself", internal.ErrCodeValidationFailed)
	}

	if err := s.repo.RemoveMember(ctx, id.OrganizationID, userID); err != nil {
		return internal.NewInternalError("failed to remove member", err)
	}

	s.logger.InfoContext(ctx, "member removed", "user_id", userID)
	s.publish(ctx, id, events.EventTypeMemberRemoved, map[string]interface{}{"user_id": userID})
	return nil
}

package directory

import (
	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/common/validation"
)

type ContainerDTO struct {
	Name string `json:"name"`
}

func (d ContainerDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(80)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type AddMemberDTO struct {
	UserID int64 `json:"user_id"`
}

func (d AddMemberDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// InviteDTO adds an existing user, found by username or email, to the organization.
type InviteDTO struct {
	Identifier string `json:"identifier"`
	Role       string `json:"role,omitempty"`
}

func (d InviteDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("identifier", d.Identifier).Required()
	if d.Role != "" {
		v.Field("role", d.Role).OneOf(internal.ErrCodeInvalidRole, string(internal.RoleAdmin), string(internal.RoleManager), string(internal.RoleMember))
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RoleDTO struct {
	Role string `json:"role"`
}

func (d RoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("role", d.Role).Required().OneOf(internal.ErrCodeInvalidRole, string(internal.RoleAdmin), string(internal.RoleManager), string(internal.RoleMember))
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ContainersResponse struct {
	Items []*Container `json:"items"`
}

type ContainerMembersResponse struct {
	Items []ContainerMember `json:"items"`
}

type MembersResponse struct {
	Items []Member `json:"items"`
}

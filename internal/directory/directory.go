package directory

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
	directoryDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/directory"
)

var (
	ErrDuplicateName = errors.New("container name already used in organization")
	ErrAlreadyMember = errors.New("user is already a member of the organization")

	// ErrCannotInvite is returned for unknown users and existing members alike.
	ErrCannotInvite = internal.NewValidationFieldError("identifier", "this user cannot be invited", internal.ErrCodeCannotInvite)
)

// Kind selects between the two container types. Both share one row shape
// and differ only in table names and the thread column that binds to them.
type Kind string

const (
	KindDepartment Kind = "department"
	KindGroup      Kind = "group"
)

func (k Kind) Table() string {
	if k == KindGroup {
		return "user_groups"
	}
	return "departments"
}

func (k Kind) MemberTable() string {
	if k == KindGroup {
		return "group_members"
	}
	return "department_members"
}

// ForeignKey is the column naming the container in its member table and in threads.
func (k Kind) ForeignKey() string {
	if k == KindGroup {
		return "group_id"
	}
	return "department_id"
}

func (k Kind) notFound() *internal.AppError {
	if k == KindGroup {
		return internal.ErrGroupNotFound
	}
	return internal.ErrDepartmentNotFound
}

type capabilities struct {
	view, create, update, remove, manage auth.Capability
}

func (k Kind) capabilities() capabilities {
	if k == KindGroup {
		return capabilities{
			view:   auth.CapGroupsView,
			create: auth.CapGroupsCreate,
			update: auth.CapGroupsUpdate,
			remove: auth.CapGroupsDelete,
			manage: auth.CapGroupsManageMembers,
		}
	}
	return capabilities{
		view:   auth.CapDepartmentsView,
		create: auth.CapDepartmentsCreate,
		update: auth.CapDepartmentsUpdate,
		remove: auth.CapDepartmentsDelete,
		manage: auth.CapDepartmentsManageMembers,
	}
}

type Container struct {
	ID             int64     `json:"id"`
	Kind           Kind      `json:"kind"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

type ContainerMember struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	AddedAt  time.Time `json:"added_at"`
}

// Member is a user's membership in the caller's organization.
type Member struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func FromDataModel(kind Kind, c *directoryDatamodel.Container) *Container {
	return &Container{
		ID:             c.ID,
		Kind:           kind,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		CreatedAt:      c.CreatedAt,
	}
}

type RepositoryAPI interface {
	CreateContainer(ctx context.Context, kind Kind, organizationID int64, name string) (*directoryDatamodel.Container, error)
	ListContainers(ctx context.Context, kind Kind, organizationID int64) ([]directoryDatamodel.Container, error)
	GetContainer(ctx context.Context, kind Kind, organizationID, id int64) (*directoryDatamodel.Container, error)
	RenameContainer(ctx context.Context, kind Kind, organizationID, id int64, name string) error
	DeleteContainer(ctx context.Context, kind Kind, organizationID, id int64) error
	AddContainerMember(ctx context.Context, kind Kind, containerID, userID int64) (bool, error)
	RemoveContainerMember(ctx context.Context, kind Kind, containerID, userID int64) (bool, error)
	ListContainerMembers(ctx context.Context, kind Kind, containerID int64) ([]ContainerMember, error)

	ListMembers(ctx context.Context, organizationID int64) ([]Member, error)
	GetMember(ctx context.Context, organizationID, userID int64) (*Member, error)
	FindUserByIdentifier(ctx context.Context, identifier string) (*accountDatamodel.User, error)
	CreateMembership(ctx context.Context, organizationID, userID int64, role internal.Role) error
	UpdateMemberRole(ctx context.Context, organizationID, userID int64, role internal.Role) error
	RemoveMember(ctx context.Context, organizationID, userID int64) error
}

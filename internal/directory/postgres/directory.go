package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
	directoryDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/directory"
	"github.com/frahmantamala/teamspace/internal/directory"
	"gorm.io/gorm"
)

// Repository serves both container kinds. Table and column names come from
// directory.Kind constants, never from request input.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) directory.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) CreateContainer(ctx context.Context, kind directory.Kind, organizationID int64, name string) (*directoryDatamodel.Container, error) {
	row := directoryDatamodel.Container{OrganizationID: organizationID, Name: name}
	if err := r.db.WithContext(ctx).Table(kind.Table()).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, directory.ErrDuplicateName
		}
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	return &row, nil
}

func (r *Repository) ListContainers(ctx context.Context, kind directory.Kind, organizationID int64) ([]directoryDatamodel.Container, error) {
	var rows []directoryDatamodel.Container
	err := r.db.WithContext(ctx).Table(kind.Table()).
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return rows, nil
}

func (r *Repository) GetContainer(ctx context.Context, kind directory.Kind, organizationID, id int64) (*directoryDatamodel.Container, error) {
	var row directoryDatamodel.Container
	err := r.db.WithContext(ctx).Table(kind.Table()).
		Where("id = ? AND organization_id = ?", id, organizationID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return &row, nil
}

func (r *Repository) RenameContainer(ctx context.Context, kind directory.Kind, organizationID, id int64, name string) error {
	err := r.db.WithContext(ctx).Table(kind.Table()).
		Where("id = ? AND organization_id = ?", id, organizationID).
		Update("name", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return directory.ErrDuplicateName
		}
		return fmt.Errorf("rename %s: %w", kind, err)
	}
	return nil
}

func (r *Repository) DeleteContainer(ctx context.Context, kind directory.Kind, organizationID, id int64) error {
	fk := kind.ForeignKey()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("UPDATE threads SET %s = NULL WHERE %s = ? AND organization_id = ?", fk, fk), id, organizationID).Error; err != nil {
			return fmt.Errorf("unbind threads: %w", err)
		}
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", kind.MemberTable(), fk), id).Error; err != nil {
			return fmt.Errorf("delete %s members: %w", kind, err)
		}
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ? AND organization_id = ?", kind.Table()), id, organizationID).Error; err != nil {
			return fmt.Errorf("delete %s: %w", kind, err)
		}
		return nil
	})
}

func (r *Repository) AddContainerMember(ctx context.Context, kind directory.Kind, containerID, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("INSERT INTO %s (%s, user_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING", kind.MemberTable(), kind.ForeignKey()),
		containerID, userID, time.Now().UTC(),
	)
	if res.Error != nil {
		return false, fmt.Errorf("add %s member: %w", kind, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) RemoveContainerMember(ctx context.Context, kind directory.Kind, containerID, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND user_id = ?", kind.MemberTable(), kind.ForeignKey()),
		containerID, userID,
	)
	if res.Error != nil {
		return false, fmt.Errorf("remove %s member: %w", kind, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) ListContainerMembers(ctx context.Context, kind directory.Kind, containerID int64) ([]directory.ContainerMember, error) {
	var out []directory.ContainerMember
	err := r.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT u.id AS user_id, u.name, u.username, cm.created_at AS added_at
			FROM %s cm
			JOIN users u ON u.id = cm.user_id
			WHERE cm.%s = ?
			ORDER BY u.name ASC, u.id ASC`, kind.MemberTable(), kind.ForeignKey()),
		containerID,
	).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list %s members: %w", kind, err)
	}
	return out, nil
}

const memberSelect = `SELECT u.id AS user_id, u.name, u.username, u.email, m.role, m.created_at AS joined_at
	FROM memberships m
	JOIN users u ON u.id = m.user_id`

func (r *Repository) ListMembers(ctx context.Context, organizationID int64) ([]directory.Member, error) {
	var out []directory.Member
	err := r.db.WithContext(ctx).Raw(memberSelect+` WHERE m.organization_id = ? ORDER BY u.name ASC, u.id ASC`, organizationID).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out, nil
}

func (r *Repository) GetMember(ctx context.Context, organizationID, userID int64) (*directory.Member, error) {
	var out directory.Member
	res := r.db.WithContext(ctx).Raw(memberSelect+` WHERE m.organization_id = ? AND m.user_id = ?`, organizationID, userID).Scan(&out)
	if res.Error != nil {
		return nil, fmt.Errorf("get member: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &out, nil
}

func (r *Repository) FindUserByIdentifier(ctx context.Context, identifier string) (*accountDatamodel.User, error) {
	var user accountDatamodel.User
	err := r.db.WithContext(ctx).Where("username = ? OR email = ?", identifier, identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *Repository) CreateMembership(ctx context.Context, organizationID, userID int64, role internal.Role) error {
	m := accountDatamodel.Membership{UserID: userID, OrganizationID: organizationID, Role: string(role)}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return directory.ErrAlreadyMember
		}
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

func (r *Repository) UpdateMemberRole(ctx context.Context, organizationID, userID int64, role internal.Role) error {
	err := r.db.WithContext(ctx).Model(&accountDatamodel.Membership{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Update("role", string(role)).Error
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, organizationID, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmts := []string{
			"DELETE FROM department_members WHERE user_id = ? AND department_id IN (SELECT id FROM departments WHERE organization_id = ?)",
			"DELETE FROM group_members WHERE user_id = ? AND group_id IN (SELECT id FROM user_groups WHERE organization_id = ?)",
			"DELETE FROM sessions WHERE user_id = ? AND organization_id = ?",
			"DELETE FROM memberships WHERE user_id = ? AND organization_id = ?",
		}
		for _, stmt := range stmts {
			if err := tx.Exec(stmt, userID, organizationID).Error; err != nil {
				return fmt.Errorf("remove member: %w", err)
			}
		}
		return nil
	})
}

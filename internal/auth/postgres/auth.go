package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetOrganizationBySlug(ctx context.Context, slug string) (*accountDatamodel.Organization, error) {
	var org accountDatamodel.Organization
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get organization by slug: %w", err)
	}
	return &org, nil
}

// GetUserByIdentifier expects identifier already lower-cased; usernames and emails are stored lower-case.
func (r *Repository) GetUserByIdentifier(ctx context.Context, identifier string) (*accountDatamodel.User, error) {
	var user accountDatamodel.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by identifier: %w", err)
	}
	return &user, nil
}

func (r *Repository) GetMembership(ctx context.Context, userID, organizationID int64) (*accountDatamodel.Membership, error) {
	var m accountDatamodel.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (r *Repository) CreateSession(ctx context.Context, session *accountDatamodel.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *Repository) GetSessionRecord(ctx context.Context, token string) (*auth.SessionRecord, error) {
	var rec auth.SessionRecord
	res := r.db.WithContext(ctx).Raw(`
		SELECT s.user_id, s.organization_id, o.slug AS organization_slug, s.expires_at, m.role
		FROM sessions s
		JOIN organizations o ON o.id = s.organization_id
		LEFT JOIN memberships m ON m.user_id = s.user_id AND m.organization_id = s.organization_id
		WHERE s.id = ?`, token).Scan(&rec)
	if res.Error != nil {
		return nil, fmt.Errorf("get session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	err := r.db.WithContext(ctx).Where("id = ?", token).Delete(&accountDatamodel.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Signup runs inside one transaction. The organization insert is
// ON CONFLICT (slug) DO NOTHING, so exactly one concurrent caller sees
// RowsAffected == 1 and becomes admin; everyone else reads the winner's row.
func (r *Repository) Signup(ctx context.Context, p auth.SignupParams) (*auth.SignupResult, error) {
	var out auth.SignupResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org := accountDatamodel.Organization{Slug: p.OrganizationSlug, Name: p.OrganizationName}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&org)
		if res.Error != nil {
			return fmt.Errorf("insert organization: %w", res.Error)
		}
		created := res.RowsAffected == 1
		if !created {
			org = accountDatamodel.Organization{}
			if err := tx.Where("slug = ?", p.OrganizationSlug).First(&org).Error; err != nil {
				return fmt.Errorf("load existing organization: %w", err)
			}
		}

		user := accountDatamodel.User{
			Name:            p.Name,
			Username:        p.Username,
			Email:           p.Email,
			PasswordHash:    p.PasswordHash,
			DisplayNamePref: "name",
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return auth.ErrDuplicateUser
			}
			return fmt.Errorf("insert user: %w", err)
		}

		role := internal.RoleMember
		if created {
			role = internal.RoleAdmin
		}
		membership := accountDatamodel.Membership{
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           string(role),
		}
		if err := tx.Create(&membership).Error; err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}

		session := accountDatamodel.Session{
			ID:             p.SessionToken,
			UserID:         user.ID,
			OrganizationID: org.ID,
			ExpiresAt:      p.SessionExpiresAt,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		out = auth.SignupResult{
			Organization:        org,
			User:                user,
			Membership:          membership,
			Session:             session,
			CreatedOrganization: created,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repository) FindUserConflicts(ctx context.Context, username, email string) (bool, bool, error) {
	var usernameCount, emailCount int64
	if err := r.db.WithContext(ctx).Model(&accountDatamodel.User{}).Where("username = ?", username).Count(&usernameCount).Error; err != nil {
		return false, false, fmt.Errorf("count usernames: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&accountDatamodel.User{}).Where("email = ?", email).Count(&emailCount).Error; err != nil {
		return false, false, fmt.Errorf("count emails: %w", err)
	}
	return usernameCount > 0, emailCount > 0, nil
}

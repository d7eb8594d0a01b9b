package testutil

import (
	"github.com/frahmantamala/teamspace/internal"
	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
	"gorm.io/gorm"
)

func CreateOrganization(db *gorm.DB, slug string) (*accountDatamodel.Organization, error) {
	org := &accountDatamodel.Organization{Slug: slug, Name: slug}
	if err := db.Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

// CreateMember inserts a user and makes them a member of org with role.
// The returned identity is what the session resolver would produce for them.
func CreateMember(db *gorm.DB, org *accountDatamodel.Organization, username string, role internal.Role) (*internal.Identity, error) {
	user := &accountDatamodel.User{
		Name:            username,
		Username:        username,
		Email:           username + "@example.com",
		PasswordHash:    "x",
		DisplayNamePref: "name",
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	if err := Join(db, org, user.ID, role); err != nil {
		return nil, err
	}
	return &internal.Identity{
		UserID:           user.ID,
		OrganizationID:   org.ID,
		OrganizationSlug: org.Slug,
		Role:             role,
	}, nil
}

func Join(db *gorm.DB, org *accountDatamodel.Organization, userID int64, role internal.Role) error {
	return db.Create(&accountDatamodel.Membership{UserID: userID, OrganizationID: org.ID, Role: string(role)}).Error
}

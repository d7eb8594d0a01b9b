package user

import (
	"context"
	"time"
)

// DisplayNamePref selects which field other members see.
type DisplayNamePref string

const (
	DisplayName     DisplayNamePref = "name"
	DisplayNickname DisplayNamePref = "nickname"
	DisplayUsername DisplayNamePref = "username"
)

type Profile struct {
	ID              int64           `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Username        string          `json:"username" db:"username"`
	Email           string          `json:"email" db:"email"`
	AvatarRef       *string         `json:"avatar_ref" db:"avatar_ref"`
	Nickname        *string         `json:"nickname" db:"nickname"`
	DisplayNamePref DisplayNamePref `json:"display_name_pref" db:"display_name_pref"`
	DisplayName     string          `json:"display_name" db:"-"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// ResolveDisplayName falls back to the full name when the preferred field is empty.
func (p *Profile) ResolveDisplayName() string {
	switch p.DisplayNamePref {
	case DisplayNickname:
		if p.Nickname != nil && *p.Nickname != "" {
			return *p.Nickname
		}
	case DisplayUsername:
		return p.Username
	}
	return p.Name
}

// Changes is a partial profile update. Nil fields are left alone; an empty
// Nickname or AvatarRef clears the column.
type Changes struct {
	Name            *string
	Nickname        *string
	AvatarRef       *string
	DisplayNamePref *string
}

func (c Changes) Empty() bool {
	return c.Name == nil && c.Nickname == nil && c.AvatarRef == nil && c.DisplayNamePref == nil
}

type Repository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, changes Changes, now time.Time) error
}

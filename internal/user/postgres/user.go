package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/teamspace/internal/user"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) user.Repository {
	return &Repository{db: db}
}

func (r *Repository) GetProfile(ctx context.Context, userID int64) (*user.Profile, error) {
	var p user.Profile
	query := r.db.Rebind(`SELECT id, name, username, email, avatar_ref, nickname, display_name_pref, updated_at
		FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, userID int64, changes user.Changes, now time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{now}

	if changes.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *changes.Name)
	}
	if changes.Nickname != nil {
		sets = append(sets, "nickname = ?")
		args = append(args, nullable(*changes.Nickname))
	}
	if changes.AvatarRef != nil {
		sets = append(sets, "avatar_ref = ?")
		args = append(args, nullable(*changes.AvatarRef))
	}
	if changes.DisplayNamePref != nil {
		sets = append(sets, "display_name_pref = ?")
		args = append(args, *changes.DisplayNamePref)
	}
	args = append(args, userID)

	query := r.db.Rebind("UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

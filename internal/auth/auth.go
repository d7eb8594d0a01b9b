package auth

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
)

// ErrDuplicateUser is returned by the repository when a username or email unique constraint rejects a signup.
var ErrDuplicateUser = errors.New("username or email already registered")

// Session is an issued login. Token is the opaque value the client presents.
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Identity  internal.Identity `json:"identity"`
	User      UserSummary       `json:"user"`
}

type UserSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SessionRecord is the session row joined with its organization and the
// caller's current membership. Role is nil when the membership is gone.
type SessionRecord struct {
	UserID           int64
	OrganizationID   int64
	OrganizationSlug string
	ExpiresAt        time.Time
	Role             *string
}

type SignupParams struct {
	OrganizationSlug string
	OrganizationName string
	Name             string
	Username         string
	Email            string
	PasswordHash     string
	SessionToken     string
	SessionExpiresAt time.Time
}

type SignupResult struct {
	Organization        accountDatamodel.Organization
	User                accountDatamodel.User
	Membership          accountDatamodel.Membership
	Session             accountDatamodel.Session
	CreatedOrganization bool
}

type RepositoryAPI interface {
	GetOrganizationBySlug(ctx context.Context, slug string) (*accountDatamodel.Organization, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (*accountDatamodel.User, error)
	GetMembership(ctx context.Context, userID, organizationID int64) (*accountDatamodel.Membership, error)
	CreateSession(ctx context.Context, session *accountDatamodel.Session) error
	GetSessionRecord(ctx context.Context, token string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, token string) error
	Signup(ctx context.Context, params SignupParams) (*SignupResult, error)
	FindUserConflicts(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, token string) (*internal.Identity, error)
	Login(ctx context.Context, dto LoginDTO) (*Session, error)
	Signup(ctx context.Context, dto SignupDTO) (*Session, error)
	Logout(ctx context.Context, token string) error
}

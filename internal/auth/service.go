package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/common/validation"
	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

// Service resolves sessions and issues new ones.
type Service struct {
	repo        RepositoryAPI
	credentials *CredentialStore
	sessionTTL  time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo RepositoryAPI, credentials *CredentialStore, sessionTTL time.Duration, logger *slog.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Service{
		repo:        repo,
		credentials: credentials,
		sessionTTL:  sessionTTL,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests to move past expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Authenticate maps a token to the caller. The role comes from the membership
// row as it is now, so a role change applies on the very next request.
func (s *Service) Authenticate(ctx context.Context, token string) (*internal.Identity, error) {
	if token == "" {
		return nil, internal.ErrNoSession
	}

	rec, err := s.repo.GetSessionRecord(ctx, token)
	if err != nil {
		s.logger.ErrorContext(ctx, "session lookup failed", "error", err)
		return nil, internal.NewInternalError("failed to resolve session", err)
	}
	if rec == nil {
		return nil, internal.ErrNoSession
	}
	if !rec.ExpiresAt.After(s.now()) {
		return nil, internal.ErrSessionExpired
	}
	if rec.Role == nil {
		s.logger.WarnContext(ctx, "session without membership", "user_id", rec.UserID, "organization_id", rec.OrganizationID)
		return nil, internal.ErrSessionExpired
	}

	return &internal.Identity{
		UserID:           rec.UserID,
		OrganizationID:   rec.OrganizationID,
		OrganizationSlug: rec.OrganizationSlug,
		Role:             internal.Role(*rec.Role),
	}, nil
}

func (s *Service) Login(ctx context.Context, dto LoginDTO) (*Session, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganizationBySlug(ctx, validation.NormalizeIdentifier(dto.Organization))
	if err != nil {
		return nil, internal.NewInternalError("failed to load organization", err)
	}
	if org == nil {
		return nil, internal.ErrOrganizationNotFound
	}

	user, err := s.repo.GetUserByIdentifier(ctx, validation.NormalizeIdentifier(dto.Identifier))
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if user == nil {
		s.credentials.Burn(dto.Password)
		return nil, internal.ErrUserNotFound
	}

	if err := s.credentials.VerifyPassword(user.PasswordHash, dto.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			s.logger.InfoContext(ctx, "login rejected: wrong password", "user_id", user.ID)
			return nil, internal.ErrWrongPassword
		}
		return nil, internal.NewInternalError("failed to verify password", err)
	}

	membership, err := s.repo.GetMembership(ctx, user.ID, org.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load membership", err)
	}
	if membership == nil {
		s.logger.InfoContext(ctx, "login rejected: no membership", "user_id", user.ID, "organization", org.Slug)
		return nil, internal.ErrNoMembership
	}

	token, err := GenerateRandomToken()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate session token", err)
	}

	session := &accountDatamodel.Session{
		ID:             token,
		UserID:         user.ID,
		OrganizationID: org.ID,
		ExpiresAt:      s.now().Add(s.sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, internal.NewInternalError("failed to create session", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "organization", org.Slug, "role", membership.Role)

	return newSession(session, org, user, membership), nil
}

// Signup creates the organization when its slug is new, the user, the
// membership and a session in one transaction. Whoever actually inserted the
// organization row is its admin; later signups into the slug join as members.
func (s *Service) Signup(ctx context.Context, dto SignupDTO) (*Session, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.credentials.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	token, err := GenerateRandomToken()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate session token", err)
	}

	slug := validation.NormalizeIdentifier(dto.Organization)
	orgName := strings.TrimSpace(dto.OrganizationName)
	if orgName == "" {
		orgName = slug
	}

	params := SignupParams{
		OrganizationSlug: slug,
		OrganizationName: orgName,
		Name:             strings.TrimSpace(dto.Name),
		Username:         validation.NormalizeIdentifier(dto.Username),
		Email:            validation.NormalizeIdentifier(dto.Email),
		PasswordHash:     hash,
		SessionToken:     token,
		SessionExpiresAt: s.now().Add(s.sessionTTL),
	}

	res, err := s.repo.Signup(ctx, params)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, s.duplicateUserError(ctx, params.Username, params.Email)
		}
		s.logger.ErrorContext(ctx, "signup failed", "error", err, "organization", slug)
		return nil, internal.NewInternalError("failed to sign up", err)
	}

	s.logger.InfoContext(ctx, "user signed up",
		"user_id", res.User.ID,
		"organization", res.Organization.Slug,
		"role", res.Membership.Role,
		"created_organization", res.CreatedOrganization)

	return newSession(&res.Session, &res.Organization, &res.User, &res.Membership), nil
}

func (s *Service) duplicateUserError(ctx context.Context, username, email string) error {
	usernameTaken, emailTaken, err := s.repo.FindUserConflicts(ctx, username, email)
	if err != nil {
		return internal.NewInternalError("failed to check user conflicts", err)
	}

	var errs []internal.ValidationError
	if usernameTaken {
		errs = append(errs, internal.ValidationError{Field: "username", Message: "username is already taken", Code: string(internal.ErrCodeAlreadyTaken)})
	}
	if emailTaken {
		errs = append(errs, internal.ValidationError{Field: "email", Message: "email is already registered", Code: string(internal.ErrCodeAlreadyTaken)})
	}
	if len(errs) == 0 {
		errs = append(errs, internal.ValidationError{Field: "username", Message: "username or email is already taken", Code: string(internal.ErrCodeAlreadyTaken)})
	}
	return internal.NewValidationFieldErrors(errs)
}

// Logout deletes the session; a token that matches nothing is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return internal.NewInternalError("failed to delete session", err)
	}
	return nil
}

func newSession(sess *accountDatamodel.Session, org *accountDatamodel.Organization, user *accountDatamodel.User, m *accountDatamodel.Membership) *Session {
	return &Session{
		Token:     sess.ID,
		ExpiresAt: sess.ExpiresAt,
		Identity: internal.Identity{
			UserID:           user.ID,
			OrganizationID:   org.ID,
			OrganizationSlug: org.Slug,
			Role:             internal.Role(m.Role),
		},
		User: UserSummary{
			ID:       user.ID,
			Name:     user.Name,
			Username: user.Username,
			Email:    user.Email,
		},
	}
}

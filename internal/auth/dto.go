package auth

import (
	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/common/validation"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

func maxBcryptBytes(value interface{}) *internal.ValidationError {
	if s, ok := value.(string); ok && len(s) > maxPasswordBytes {
		return &internal.ValidationError{
			Field:   "password",
			Message: "password must not exceed 72 bytes",
			Code:    string(internal.ErrCodeTooLong),
		}
	}
	return nil
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
// Identifier is a username or an email address.
type LoginDTO struct {
	Identifier   string `json:"identifier"`
	Password     string `json:"password"`
	Organization string `json:"organization"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("identifier", d.Identifier).Required()
	v.Field("password", d.Password).Required()
	v.Field("organization", d.Organization).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SignupDTO struct {
	Name             string `json:"name"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Organization     string `json:"organization"`
	OrganizationName string `json:"organization_name,omitempty"`
}

func (d SignupDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(120)
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(40).Username()
	v.Field("email", d.Email).Required().MaxLength(254).Email()
	v.Field("password", d.Password).Required().MinLength(8).Custom(maxBcryptBytes)
	v.Field("organization", d.Organization).Required().MinLength(2).MaxLength(63).Slug()
	v.Field("organization_name", d.OrganizationName).MaxLength(120)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SessionResponse struct {
	Token        string      `json:"token"`
	ExpiresAt    string      `json:"expires_at"`
	UserID       int64       `json:"user_id"`
	Organization string      `json:"organization"`
	Role         string      `json:"role"`
	User         UserSummary `json:"user"`
}

type MeResponse struct {
	UserID         int64    `json:"user_id"`
	OrganizationID int64    `json:"organization_id"`
	Organization   string   `json:"organization"`
	Role           string   `json:"role"`
	Capabilities   []string `json:"capabilities"`
}

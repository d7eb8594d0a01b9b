package user

import (
	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/common/validation"
)

type UpdateProfileDTO struct {
	Name            *string `json:"name,omitempty"`
	Nickname        *string `json:"nickname,omitempty"`
	AvatarRef       *string `json:"avatar_ref,omitempty"`
	DisplayNamePref *string `json:"display_name_pref,omitempty"`
}

func (d UpdateProfileDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", d.Name).Required().MaxLength(120)
	}
	v.Field("nickname", d.Nickname).MaxLength(60)
	v.Field("avatar_ref", d.AvatarRef).MaxLength(512)
	if d.DisplayNamePref != nil {
		v.Field("display_name_pref", d.DisplayNamePref).OneOf(internal.ErrCodeInvalidFormat,
			string(DisplayName), string(DisplayNickname), string(DisplayUsername))
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d UpdateProfileDTO) Changes() Changes {
	return Changes{
		Name:            d.Name,
		Nickname:        d.Nickname,
		AvatarRef:       d.AvatarRef,
		DisplayNamePref: d.DisplayNamePref,
	}
}

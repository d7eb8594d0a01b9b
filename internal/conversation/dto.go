package conversation

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/common/validation"
)

const (
	maxTitleLength    = 200
	maxTextLength     = 4000
	maxMediaRefLength = 512
)

type CreateThreadDTO struct {
	Title        string `json:"title"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	GroupID      *int64 `json:"group_id,omitempty"`
}

func (d CreateThreadDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(maxTitleLength)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// AppendMessageDTO carries one message. Body is a JSON object whose shape
// depends on Kind; text messages need a non-empty "text" string, voice and
// file messages need a media reference.
type AppendMessageDTO struct {
	Kind      string          `json:"kind"`
	Body      json.RawMessage `json:"body,omitempty"`
	MediaRef  *string         `json:"media_ref,omitempty"`
	MediaType *string         `json:"media_type,omitempty"`
}

func (d AppendMessageDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("kind", d.Kind).Required().OneOf(internal.ErrCodeInvalidKind, string(KindText), string(KindVoice), string(KindFile))
	v.Field("body", []byte(d.Body)).Custom(jsonObject)

	switch Kind(d.Kind) {
	case KindText:
		v.Field("body.text", []byte(d.Body)).Custom(textBody)
	case KindVoice, KindFile:
		v.Field("media_ref", d.MediaRef).Required().MaxLength(maxMediaRefLength)
	}
	v.Field("media_type", d.MediaType).MaxLength(120)

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// NormalizedBody returns the body with an empty payload replaced by {}.
func (d AppendMessageDTO) NormalizedBody() []byte {
	trimmed := bytes.TrimSpace(d.Body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []byte("{}")
	}
	return trimmed
}

func jsonObject(value interface{}) *internal.ValidationError {
	raw, _ := value.([]byte)
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return &internal.ValidationError{Field: "body", Message: "body must be a JSON object", Code: string(internal.ErrCodeInvalidFormat)}
	}
	return nil
}

func textBody(value interface{}) *internal.ValidationError {
	raw, _ := value.([]byte)
	var body struct {
		Text *string `json:"text"`
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			// reported by the body field
			return nil
		}
	}
	if body.Text == nil || strings.TrimSpace(*body.Text) == "" {
		return &internal.ValidationError{Field: "body.text", Message: "body.text is required", Code: string(internal.ErrCodeRequired)}
	}
	if utf8.RuneCountInString(*body.Text) > maxTextLength {
		return &internal.ValidationError{Field: "body.text", Message: "body.text must not exceed 4000 characters", Code: string(internal.ErrCodeTooLong)}
	}
	return nil
}

// PageQuery is read from the query string. A nil Limit means the default.
type PageQuery struct {
	Before *time.Time
	Limit  *int
}

func (q PageQuery) Validate() error {
	if q.Limit == nil {
		return nil
	}
	v := validation.NewValidator()
	v.Field("limit", *q.Limit).IntRange(1, MaxPageLimit, internal.ErrCodeOutOfRange)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (q PageQuery) limit() int {
	if q.Limit == nil {
		return DefaultPageLimit
	}
	return *q.Limit
}

// MarkReadDTO sets the caller's watermark. A missing timestamp means now.
type MarkReadDTO struct {
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type ThreadsResponse struct {
	Items []*Thread `json:"items"`
}

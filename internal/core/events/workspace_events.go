package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeMessageCreated = "message.created"
	EventTypeThreadCreated  = "thread.created"
	EventTypeReadUpdated    = "read.updated"

	EventTypeDepartmentCreated       = "department.created"
	EventTypeDepartmentUpdated       = "department.updated"
	EventTypeDepartmentDeleted       = "department.deleted"
	EventTypeDepartmentMemberAdded   = "department.member_added"
	EventTypeDepartmentMemberRemoved = "department.member_removed"

	EventTypeGroupCreated       = "group.created"
	EventTypeGroupUpdated       = "group.updated"
	EventTypeGroupDeleted       = "group.deleted"
	EventTypeGroupMemberAdded   = "group.member_added"
	EventTypeGroupMemberRemoved = "group.member_removed"

	EventTypeMemberInvited     = "member.invited"
	EventTypeMemberRoleChanged = "member.role_changed"
	EventTypeMemberRemoved     = "member.removed"

	EventTypeProfileUpdated = "profile.updated"
)

// WorkspaceEvent is a mutation inside one organization, addressed to the
// real-time delivery layer by organization slug.
type WorkspaceEvent struct {
	BaseEvent
	Organization string `json:"organization"`
	ActorID      int64  `json:"actor_id"`
}

func (e WorkspaceEvent) OrganizationSlug() string {
	return e.Organization
}

func NewWorkspaceEvent(eventType, orgSlug string, actorID int64, data map[string]interface{}) WorkspaceEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return WorkspaceEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data:      data,
		},
		Organization: orgSlug,
		ActorID:      actorID,
	}
}

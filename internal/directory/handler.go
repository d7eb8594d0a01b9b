package directory

import (
	"context"
	"net/http"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/transport"
)

type ServiceAPI interface {
	CreateContainer(ctx context.Context, id *internal.Identity, kind Kind, dto ContainerDTO) (*Container, error)
	ListContainers(ctx context.Context, id *internal.Identity, kind Kind) ([]*Container, error)
	GetContainer(ctx context.Context, id *internal.Identity, kind Kind, containerID int64) (*Container, error)
	RenameContainer(ctx context.Context, id *internal.Identity, kind Kind, containerID int64, dto ContainerDTO) (*Container, error)
	DeleteContainer(ctx context.Context, id *internal.Identity, kind Kind, containerID int64) error
	AddContainerMember(ctx context.Context, id *internal.Identity, kind Kind, containerID int64, dto AddMemberDTO) error
	RemoveContainerMember(ctx context.Context, id *internal.Identity, kind Kind, containerID, userID int64) error
	ListContainerMembers(ctx context.Context, id *internal.Identity, kind Kind, containerID int64) ([]ContainerMember, error)

	ListMembers(ctx context.Context, id *internal.Identity) ([]Member, error)
	InviteMember(ctx context.Context, id *internal.Identity, dto InviteDTO) (*Member, error)
	ChangeRole(ctx context.Context, id *internal.Identity, userID int64, dto RoleDTO) (*Member, error)
	RemoveMember(ctx context.Context, id *internal.Identity, userID int64) error
}

// Handler serves one container kind; the router mounts one per kind.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Kind    Kind
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, kind Kind) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Kind:        kind,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}

	items, err := h.Service.ListContainers(r.Context(), id, h.Kind)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ContainersResponse{Items: items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}

	var dto ContainerDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	c, err := h.Service.CreateContainer(r.Context(), id, h.Kind, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	containerID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	c, err := h.Service.GetContainer(r.Context(), id, h.Kind, containerID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	containerID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto ContainerDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	c, err := h.Service.RenameContainer(r.Context(), id, h.Kind, containerID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	containerID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.DeleteContainer(r.Context(), id, h.Kind, containerID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	containerID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	members, err := h.Service.ListContainerMembers(r.Context(), id, h.Kind, containerID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ContainerMembersResponse{Items: members})
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	containerID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto AddMemberDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.AddContainerMember(r.Context(), id, h.Kind, containerID, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	containerID, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	userID, appErr := h.ParseIDParam(r, "userID")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.RemoveContainerMember(r.Context(), id, h.Kind, containerID, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MemberHandler serves the organization member roster.
type MemberHandler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewMemberHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *MemberHandler {
	return &MemberHandler{BaseHandler: baseHandler, Service: service}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}

	members, err := h.Service.ListMembers(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MembersResponse{Items: members})
}

func (h *MemberHandler) Invite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}

	var dto InviteDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	member, err := h.Service.InviteMember(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	userID, appErr := h.ParseIDParam(r, "userID")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto RoleDTO
	if appErr := h.DecodeJSON(w, r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	member, err := h.Service.ChangeRole(r.Context(), id, userID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	userID, appErr := h.ParseIDParam(r, "userID")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.RemoveMember(r.Context(), id, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package conversation

import (
	"context"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
)

// ListThreads returns the caller's visibility set. Admins get every thread in
// their organization. Everyone else gets threads bound to a department or a
// group they belong to; unbound threads never appear.
func (s *Service) ListThreads(ctx context.Context, id *internal.Identity) ([]*Thread, error) {
	if err := auth.RequireCapability(id, auth.CapThreadsView); err != nil {
		return nil, err
	}

	var (
		rows []ThreadRecord
		err  error
	)
	if id.IsAdmin() {
		rows, err = s.repo.ListThreads(ctx, id.OrganizationID, id.UserID)
	} else {
		rows, err = s.repo.ListVisibleThreads(ctx, id.OrganizationID, id.UserID)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list threads", "error", err)
		return nil, internal.NewInternalError("failed to list threads", err)
	}

	out := make([]*Thread, 0, len(rows))
	for i := range rows {
		out = append(out, threadFromRecord(&rows[i]))
	}
	return out, nil
}

// CheckThreadAccess resolves a thread the caller may read and write. A thread
// outside the caller's organization is reported as not found, never forbidden.
func (s *Service) CheckThreadAccess(ctx context.Context, id *internal.Identity, threadID int64) (*Thread, error) {
	if err := auth.RequireCapability(id, auth.CapThreadsView); err != nil {
		return nil, err
	}

	row, err := s.repo.GetThread(ctx, id.OrganizationID, threadID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load thread", err)
	}
	if row == nil {
		return nil, internal.ErrThreadNotFound
	}

	t := threadFromDataModel(row)
	if id.IsAdmin() {
		return t, nil
	}

	allowed, err := s.isBoundMember(ctx, id.UserID, t)
	if err != nil {
		return nil, internal.NewInternalError("failed to check membership", err)
	}
	if !allowed {
		s.logger.WarnContext(ctx, "thread access denied", "thread_id", threadID)
		return nil, internal.ErrForbidden
	}
	return t, nil
}

// isBoundMember reports whether userID belongs to either container the
// thread is bound to.
func (s *Service) isBoundMember(ctx context.Context, userID int64, t *Thread) (bool, error) {
	if t.Unbound() {
		return false, nil
	}
	if t.DepartmentID != nil {
		ok, err := s.repo.IsDepartmentMember(ctx, *t.DepartmentID, userID)
		if err != nil || ok {
			return ok, err
		}
	}
	if t.GroupID != nil {
		return s.repo.IsGroupMember(ctx, *t.GroupID, userID)
	}
	return false, nil
}

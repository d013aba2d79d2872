// Package access decides whether a user may read or edit a page and whether
// a user holds a sufficient role in a workspace. Every decision is made from
// the persisted state at call time.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notespace/api/internal/rbac"
	"notespace/api/internal/store"
)

var ErrInsufficientPermission = errors.New("insufficient permission")

type Store interface {
	GetPage(ctx context.Context, pageID string) (store.Page, error)
	GetPageShare(ctx context.Context, pageID, userID string) (store.PageShare, error)
	GetWorkspaceMember(ctx context.Context, workspaceID, userID string) (store.WorkspaceMember, error)
}

type Resolver struct {
	store Store
}

func NewResolver(s Store) *Resolver {
	return &Resolver{store: s}
}

// CheckPageAccess returns the page when actorID may access it at level.
// The creator is checked first, then a direct share, then workspace
// membership; the first grant found decides.
func (r *Resolver) CheckPageAccess(ctx context.Context, pageID, actorID string, level rbac.AccessLevel) (store.Page, error) {
	page, err := r.store.GetPage(ctx, pageID)
	if err != nil {
		return store.Page{}, fmt.Errorf("load page: %w", err)
	}
	if page.CreatedBy == actorID {
		return page, nil
	}

	share, err := r.store.GetPageShare(ctx, pageID, actorID)
	switch {
	case err == nil:
		if rbac.ShareAllows(rbac.SharePermission(share.Permission), level) {
			return page, nil
		}
		return store.Page{}, ErrInsufficientPermission
	case !errors.Is(err, sql.ErrNoRows):
		return store.Page{}, fmt.Errorf("load share: %w", err)
	}

	member, err := r.store.GetWorkspaceMember(ctx, page.WorkspaceID, actorID)
	switch {
	case err == nil:
		if rbac.RoleAllows(rbac.Role(member.Role), level) {
			return page, nil
		}
		return store.Page{}, ErrInsufficientPermission
	case errors.Is(err, sql.ErrNoRows):
		return store.Page{}, ErrInsufficientPermission
	default:
		return store.Page{}, fmt.Errorf("load membership: %w", err)
	}
}

// CheckWorkspaceAccess returns the actor's membership when its role ranks
// at least required.
func (r *Resolver) CheckWorkspaceAccess(ctx context.Context, workspaceID, actorID string, required rbac.Role) (store.WorkspaceMember, error) {
	member, err := r.store.GetWorkspaceMember(ctx, workspaceID, actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.WorkspaceMember{}, ErrInsufficientPermission
	}
	if err != nil {
		return store.WorkspaceMember{}, fmt.Errorf("load membership: %w", err)
	}
	if !rbac.AtLeast(rbac.Role(member.Role), required) {
		return store.WorkspaceMember{}, ErrInsufficientPermission
	}
	return member, nil
}

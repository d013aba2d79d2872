package rbac

import (
	"errors"
	"strings"
)

// Role is a workspace membership role. Roles form a total order by Rank.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// SharePermission is the grant carried by a page share.
type SharePermission string

const (
	PermissionView SharePermission = "VIEW"
	PermissionEdit SharePermission = "EDIT"
)

// AccessLevel is what a caller asks to do with a page.
type AccessLevel string

const (
	AccessRead AccessLevel = "READ"
	AccessEdit AccessLevel = "EDIT"
)

var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidPermission = errors.New("invalid permission")
)

var ranks = map[Role]int{
	RoleOwner:  3,
	RoleEditor: 2,
	RoleViewer: 1,
}

// Rank returns the numeric rank of role; unknown roles rank 0.
func Rank(role Role) int {
	return ranks[role]
}

func AtLeast(actual, required Role) bool {
	return Rank(actual) >= Rank(required)
}

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := ranks[role]; !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

// InvitableRole reports whether role may be offered by an invitation or
// assigned to a non-owner member.
func InvitableRole(role Role) bool {
	return role == RoleEditor || role == RoleViewer
}

// ParseSharePermission defaults an empty value to VIEW.
func ParseSharePermission(value string) (SharePermission, error) {
	switch SharePermission(strings.ToUpper(strings.TrimSpace(value))) {
	case "", PermissionView:
		return PermissionView, nil
	case PermissionEdit:
		return PermissionEdit, nil
	default:
		return "", ErrInvalidPermission
	}
}

// ShareAllows reports whether a share with permission satisfies level.
func ShareAllows(permission SharePermission, level AccessLevel) bool {
	if level == AccessRead {
		return true
	}
	return permission == PermissionEdit
}

// RoleAllows reports whether a workspace role satisfies level on a page of
// that workspace.
func RoleAllows(role Role, level AccessLevel) bool {
	if Rank(role) == 0 {
		return false
	}
	if level == AccessRead {
		return true
	}
	return AtLeast(role, RoleEditor)
}
